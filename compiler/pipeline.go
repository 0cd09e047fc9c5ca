package compiler

import (
	"github.com/skein-lang/skein/bytecode"
	"github.com/skein-lang/skein/runtime"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("skein.compiler")

// ---------------------------------------------------------------------------
// Compilation pipeline
// ---------------------------------------------------------------------------

// Compilation is a strict, ordered fold over one shared state: strings are
// registered, declarations gathered, types checked, tracked nodes found and
// instrumented, code generated, and initial values registered. Later passes
// assume earlier ones ran; code generation is skipped entirely when any
// Error diagnostic exists.

// CompilationMode selects how far the pipeline runs.
type CompilationMode int

const (
	// ModeFullCompilation runs every pass and produces a program.
	ModeFullCompilation CompilationMode = iota

	// ModeStringsOnly stops after string registration. Localization
	// tooling uses this to extract text without a full compile.
	ModeStringsOnly
)

// SourceFile is one input to a compilation.
type SourceFile struct {
	Name   string // used in diagnostics and implicit line IDs
	Source string
}

// CompilationJob describes one compiler invocation.
type CompilationJob struct {
	Files []SourceFile

	// Library provides the functions scripts may call, beyond the
	// standard operators. Optional.
	Library *runtime.Library

	// Declarations seeds the known set, letting the embedder predeclare
	// variables (with defaults) before any script mentions them.
	Declarations []*Declaration

	Mode CompilationMode
}

// CompilationResult is everything a compilation produces. Program is nil
// when any Error diagnostic was reported or when the mode stops short of
// code generation; the other fields are always populated as far as the
// pipeline ran.
type CompilationResult struct {
	Program      *bytecode.Program
	StringTable  *StringTable
	Declarations []*Declaration
	Diagnostics  []Diagnostic
}

// Compile runs the pipeline over the job's files. It never fails outright:
// user-authored problems surface as diagnostics, and an empty job yields an
// empty result.
func Compile(job CompilationJob) *CompilationResult {
	result := &CompilationResult{StringTable: NewStringTable()}

	// Parse.
	files := make([]*File, 0, len(job.Files))
	for _, source := range job.Files {
		parser := NewParser(source.Name, source.Source)
		file, diagnostics := parser.Parse()
		files = append(files, file)
		result.Diagnostics = append(result.Diagnostics, diagnostics...)
	}

	// Pass 1: register strings (and tag last lines).
	for _, file := range files {
		result.Diagnostics = append(result.Diagnostics, registerFileStrings(file, result.StringTable)...)
	}
	if job.Mode == ModeStringsOnly {
		result.Diagnostics = DeduplicateDiagnostics(result.Diagnostics)
		return result
	}

	// Pass 2: gather declarations, seeds first.
	known := newDeclarationSet()
	for _, seed := range job.Declarations {
		known.add(seed)
	}
	result.Diagnostics = append(result.Diagnostics, gatherDeclarations(files, known)...)

	// Pass 3: check types. The standard operators are always in scope; the
	// job's library adds the embedder's functions on top.
	library := runtime.StandardLibrary(runtime.NewMemoryVariableStorage())
	library.Extend(job.Library)
	result.Diagnostics = append(result.Diagnostics, checkTypes(files, known, library)...)

	// Passes 4 and 5: find tracked nodes and declare their counters.
	tracked := findTrackingNodes(files)
	addTrackingDeclarations(tracked, known)
	trackedSet := make(map[string]bool, len(tracked))
	for _, title := range tracked {
		trackedSet[title] = true
	}

	result.Declarations = known.all()

	// Pass 6: generate code, unless errors make the output meaningless.
	if HasErrors(result.Diagnostics) {
		log.Debugf("skipping code generation: %d diagnostic(s)", len(result.Diagnostics))
		result.Diagnostics = DeduplicateDiagnostics(result.Diagnostics)
		return result
	}

	programs := make([]*bytecode.Program, 0, len(files))
	for _, file := range files {
		program, diagnostics := generateCode(file, trackedSet)
		programs = append(programs, program)
		result.Diagnostics = append(result.Diagnostics, diagnostics...)
	}
	program, err := bytecode.Combine(programs...)
	if err != nil {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: SeverityError,
			Message:  err.Error(),
		})
	}

	// Pass 7: register initial values.
	result.Diagnostics = append(result.Diagnostics, registerInitialValues(known, program)...)

	result.Diagnostics = DeduplicateDiagnostics(result.Diagnostics)
	if HasErrors(result.Diagnostics) {
		return result
	}
	result.Program = program
	log.Debugf("compiled %d file(s): %d node(s), %d string(s)",
		len(files), len(program.Nodes), result.StringTable.Len())
	return result
}

// registerInitialValues writes every variable declaration's default into
// the program. Inferred declarations carry no authored default and fall
// back to their type's zero value; any other defaultless declaration is an
// error.
func registerInitialValues(known *declarationSet, program *bytecode.Program) []Diagnostic {
	var diagnostics []Diagnostic
	if program == nil {
		return diagnostics
	}
	for _, decl := range known.all() {
		if !decl.Type.IsConcrete() || decl.Signature != nil {
			continue
		}
		value := decl.Default
		if value == nil {
			if decl.Provenance != ProvenanceInferred {
				diagnostics = append(diagnostics, errorAt(decl.File, decl.Position,
					"variable %s has no default value", decl.Name))
				continue
			}
			zero := zeroValue(decl.Type)
			value = &zero
		}
		program.InitialValues[decl.Name] = operandFromValue(*value)
	}
	return diagnostics
}

// zeroValue returns the default for an inferred declaration's type.
func zeroValue(t TypeKind) runtime.Value {
	switch t {
	case TypeString:
		return runtime.StringValue("")
	case TypeBoolean:
		return runtime.BoolValue(false)
	default:
		return runtime.NumberValue(0)
	}
}

// operandFromValue converts a runtime value to its compiled literal form.
func operandFromValue(v runtime.Value) bytecode.Operand {
	switch v.Kind() {
	case runtime.KindNumber:
		n, _ := v.AsNumber()
		return bytecode.FloatOperand(n)
	case runtime.KindBoolean:
		b, _ := v.AsBool()
		return bytecode.BoolOperand(b)
	default:
		return bytecode.StringOperand(v.AsString())
	}
}
