package runtime

import (
	"testing"

	"github.com/skein-lang/skein/bytecode"
)

func TestValueKinds(t *testing.T) {
	if !StringValue("a").IsString() {
		t.Error("StringValue kind")
	}
	if !NumberValue(1).IsNumber() {
		t.Error("NumberValue kind")
	}
	if !BoolValue(true).IsBool() {
		t.Error("BoolValue kind")
	}
}

func TestAsString(t *testing.T) {
	cases := []struct {
		value Value
		want  string
	}{
		{StringValue("hello"), "hello"},
		{NumberValue(4), "4"},
		{NumberValue(2.5), "2.5"},
		{BoolValue(true), "true"},
		{BoolValue(false), "false"},
	}
	for _, c := range cases {
		if got := c.value.AsString(); got != c.want {
			t.Errorf("AsString(%v) = %q, want %q", c.value.Kind(), got, c.want)
		}
	}
}

func TestAsNumber(t *testing.T) {
	if n, err := NumberValue(3.5).AsNumber(); err != nil || n != 3.5 {
		t.Errorf("number: %v, %v", n, err)
	}
	if n, err := BoolValue(true).AsNumber(); err != nil || n != 1 {
		t.Errorf("bool true: %v, %v", n, err)
	}
	if n, err := StringValue("42").AsNumber(); err != nil || n != 42 {
		t.Errorf("numeric string: %v, %v", n, err)
	}
	if _, err := StringValue("not a number").AsNumber(); err == nil {
		t.Error("expected error for non-numeric string")
	}
}

func TestAsBool(t *testing.T) {
	if b, err := BoolValue(true).AsBool(); err != nil || !b {
		t.Errorf("bool: %v, %v", b, err)
	}
	if b, err := NumberValue(0).AsBool(); err != nil || b {
		t.Errorf("zero: %v, %v", b, err)
	}
	if b, err := NumberValue(7).AsBool(); err != nil || !b {
		t.Errorf("non-zero: %v, %v", b, err)
	}
	if b, err := StringValue("true").AsBool(); err != nil || !b {
		t.Errorf("string true: %v, %v", b, err)
	}
	if _, err := StringValue("maybe").AsBool(); err == nil {
		t.Error("expected error for non-boolean string")
	}
}

func TestConvertTo(t *testing.T) {
	v, err := NumberValue(1).ConvertTo(KindBoolean)
	if err != nil {
		t.Fatalf("ConvertTo: %v", err)
	}
	if b, _ := v.AsBool(); !b {
		t.Error("1 should convert to true")
	}

	v, err = BoolValue(false).ConvertTo(KindAny)
	if err != nil || !v.IsBool() {
		t.Error("KindAny must pass values through unchanged")
	}

	if _, err := StringValue("x").ConvertTo(KindNumber); err == nil {
		t.Error("expected conversion error")
	}
}

func TestEquals(t *testing.T) {
	if !NumberValue(2).Equals(NumberValue(2)) {
		t.Error("equal numbers")
	}
	if NumberValue(2).Equals(NumberValue(3)) {
		t.Error("unequal numbers")
	}
	// Cross-kind comparison falls back to string forms.
	if !NumberValue(2).Equals(StringValue("2")) {
		t.Error("2 should equal \"2\" across kinds")
	}
}

func TestValueFromOperand(t *testing.T) {
	if v := ValueFromOperand(bytecode.FloatOperand(5)); !v.IsNumber() {
		t.Error("float operand")
	}
	if v := ValueFromOperand(bytecode.BoolOperand(true)); !v.IsBool() {
		t.Error("bool operand")
	}
	if v := ValueFromOperand(bytecode.StringOperand("s")); !v.IsString() {
		t.Error("string operand")
	}
}
