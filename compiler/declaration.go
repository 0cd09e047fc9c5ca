package compiler

import (
	"fmt"

	"github.com/skein-lang/skein/runtime"
)

// ---------------------------------------------------------------------------
// Declarations: typed variable slots known to the compiler
// ---------------------------------------------------------------------------

// TypeKind is the type of a declared name.
type TypeKind int

const (
	TypeUnknown TypeKind = iota
	TypeString
	TypeNumber
	TypeBoolean
	TypeFunction
)

// String returns a human-readable name for TypeKind.
func (t TypeKind) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeFunction:
		return "function"
	default:
		return "unknown"
	}
}

// IsConcrete reports whether the type describes a storable value.
func (t TypeKind) IsConcrete() bool {
	return t == TypeString || t == TypeNumber || t == TypeBoolean
}

// typeKindFromName maps the `as` clause of a declare statement.
func typeKindFromName(name string) (TypeKind, bool) {
	switch name {
	case "string":
		return TypeString, true
	case "number":
		return TypeNumber, true
	case "boolean", "bool":
		return TypeBoolean, true
	default:
		return TypeUnknown, false
	}
}

// typeKindOfValueKind maps a runtime value kind onto a declaration type.
func typeKindOfValueKind(kind runtime.ValueKind) TypeKind {
	switch kind {
	case runtime.KindString:
		return TypeString
	case runtime.KindNumber:
		return TypeNumber
	case runtime.KindBoolean:
		return TypeBoolean
	default:
		return TypeUnknown
	}
}

// Provenance records how a declaration entered the compilation.
type Provenance int

const (
	// ProvenanceExplicit: written by the author with <<declare>>.
	ProvenanceExplicit Provenance = iota
	// ProvenanceInferred: deduced from a variable's first use.
	ProvenanceInferred
	// ProvenanceDerived: generated by the compiler (visit counters).
	ProvenanceDerived
)

// String returns a human-readable name for Provenance.
func (p Provenance) String() string {
	switch p {
	case ProvenanceExplicit:
		return "explicit"
	case ProvenanceInferred:
		return "inferred"
	case ProvenanceDerived:
		return "derived"
	default:
		return fmt.Sprintf("Provenance(%d)", p)
	}
}

// FunctionSignature describes a declared function's parameter and return
// types, taken from a Library entry.
type FunctionSignature struct {
	Params  []TypeKind
	Returns TypeKind
}

// Declaration is a named, typed variable (or function) slot. Names are
// unique within the global namespace.
type Declaration struct {
	Name        string
	Type        TypeKind
	Signature   *FunctionSignature // non-nil only for TypeFunction
	Default     *runtime.Value     // nil when no default exists
	Description string
	Provenance  Provenance
	File        string
	Position    Position
}

// HasDefault reports whether the declaration carries a default value.
func (d *Declaration) HasDefault() bool { return d.Default != nil }

// declarationSet holds declarations by name in insertion order. It serves
// both as the working set during type inference and as the final
// declaration output.
type declarationSet struct {
	byName map[string]*Declaration
	order  []string
}

func newDeclarationSet() *declarationSet {
	return &declarationSet{byName: make(map[string]*Declaration)}
}

// add inserts a declaration. The first entry for a name wins; callers
// diagnose conflicts before calling add.
func (s *declarationSet) add(d *Declaration) {
	if _, exists := s.byName[d.Name]; exists {
		return
	}
	s.byName[d.Name] = d
	s.order = append(s.order, d.Name)
}

func (s *declarationSet) get(name string) (*Declaration, bool) {
	d, ok := s.byName[name]
	return d, ok
}

// all returns the declarations in insertion order.
func (s *declarationSet) all() []*Declaration {
	declarations := make([]*Declaration, 0, len(s.order))
	for _, name := range s.order {
		declarations = append(declarations, s.byName[name])
	}
	return declarations
}
