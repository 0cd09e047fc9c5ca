// Package runtime executes compiled dialogue programs. It provides the
// Value and VariableStorage abstractions shared between the function
// library and the virtual machine, and the Dialogue façade embedders use
// to drive line, option, and command delivery.
package runtime

import (
	"fmt"
	"strconv"

	"github.com/skein-lang/skein/bytecode"
)

// ValueKind distinguishes the three runtime datum kinds.
type ValueKind uint8

const (
	KindString ValueKind = iota
	KindNumber
	KindBoolean

	// KindAny is only valid as a declared parameter kind; operator
	// functions accept any value and dispatch on the concrete kind.
	KindAny
)

// String returns a human-readable name for ValueKind.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindAny:
		return "any"
	default:
		return fmt.Sprintf("ValueKind(%d)", k)
	}
}

// Value is the tagged union {String, Number, Boolean}, the only datum type
// dialogue scripts compute with.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

// StringValue builds a string value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue builds a number value.
func NumberValue(f float64) Value { return Value{kind: KindNumber, num: f} }

// BoolValue builds a boolean value.
func BoolValue(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Kind returns the value's kind tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsString returns true for string values.
func (v Value) IsString() bool { return v.kind == KindString }

// IsNumber returns true for number values.
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// IsBool returns true for boolean values.
func (v Value) IsBool() bool { return v.kind == KindBoolean }

// AsString converts to a string. Every kind converts.
func (v Value) AsString() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// AsNumber converts to a number. Strings must parse as floats; booleans
// convert to 1 and 0.
func (v Value) AsNumber() (float64, error) {
	switch v.kind {
	case KindNumber:
		return v.num, nil
	case KindBoolean:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindString:
		f, err := strconv.ParseFloat(v.str, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to a number", v.str)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %s to a number", v.kind)
	}
}

// AsBool converts to a boolean. Strings must parse as booleans; numbers are
// true when non-zero.
func (v Value) AsBool() (bool, error) {
	switch v.kind {
	case KindBoolean:
		return v.b, nil
	case KindNumber:
		return v.num != 0, nil
	case KindString:
		b, err := strconv.ParseBool(v.str)
		if err != nil {
			return false, fmt.Errorf("cannot convert %q to a boolean", v.str)
		}
		return b, nil
	default:
		return false, fmt.Errorf("cannot convert %s to a boolean", v.kind)
	}
}

// ConvertTo checks and converts the value to the given kind.
func (v Value) ConvertTo(kind ValueKind) (Value, error) {
	switch kind {
	case KindAny:
		return v, nil
	case KindString:
		return StringValue(v.AsString()), nil
	case KindNumber:
		f, err := v.AsNumber()
		if err != nil {
			return Value{}, err
		}
		return NumberValue(f), nil
	case KindBoolean:
		b, err := v.AsBool()
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	default:
		return Value{}, fmt.Errorf("unknown value kind %s", kind)
	}
}

// Equals reports structural equality between two values of the same kind;
// values of different kinds are compared after converting to strings.
func (v Value) Equals(other Value) bool {
	if v.kind == other.kind {
		return v == other
	}
	return v.AsString() == other.AsString()
}

// String implements fmt.Stringer.
func (v Value) String() string { return v.AsString() }

// ValueFromOperand converts a compiled instruction operand to a runtime value.
func ValueFromOperand(op bytecode.Operand) Value {
	switch op.Kind {
	case bytecode.OperandFloat:
		return NumberValue(op.Num)
	case bytecode.OperandBool:
		return BoolValue(op.Bool)
	default:
		return StringValue(op.Str)
	}
}
