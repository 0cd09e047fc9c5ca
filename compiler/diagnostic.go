package compiler

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Diagnostics: recoverable, user-authored script problems
// ---------------------------------------------------------------------------

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// String returns a human-readable name for Severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return fmt.Sprintf("Severity(%d)", s)
	}
}

// Diagnostic is one compiler-produced message about the source. Diagnostics
// never abort compilation; they accumulate so tooling can surface as many
// problems as possible in one run.
type Diagnostic struct {
	Severity Severity
	Message  string
	File     string
	Position Position
}

func (d Diagnostic) String() string {
	if d.File == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s:%s: %s: %s", d.File, d.Position, d.Severity, d.Message)
}

// errorAt builds an Error diagnostic.
func errorAt(file string, pos Position, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		File:     file,
		Position: pos,
	}
}

// warningAt builds a Warning diagnostic.
func warningAt(file string, pos Position, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
		File:     file,
		Position: pos,
	}
}

// HasErrors reports whether any diagnostic has Error severity.
func HasErrors(diagnostics []Diagnostic) bool {
	for _, d := range diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// DeduplicateDiagnostics collapses structurally equal diagnostics to one
// and returns them in a stable order (file, position, severity, message).
func DeduplicateDiagnostics(diagnostics []Diagnostic) []Diagnostic {
	seen := make(map[Diagnostic]bool, len(diagnostics))
	unique := make([]Diagnostic, 0, len(diagnostics))
	for _, d := range diagnostics {
		if seen[d] {
			continue
		}
		seen[d] = true
		unique = append(unique, d)
	}
	sort.Slice(unique, func(i, j int) bool {
		a, b := unique[i], unique[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Position.Line != b.Position.Line {
			return a.Position.Line < b.Position.Line
		}
		if a.Position.Column != b.Position.Column {
			return a.Position.Column < b.Position.Column
		}
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		return a.Message < b.Message
	})
	return unique
}
