package bytecode

import (
	"strings"
	"testing"
)

func TestNodeEmitAndLabels(t *testing.T) {
	node := NewNode("Greeting")
	node.Emit(OpPushString, StringOperand("Start"))
	node.AddLabel("middle")
	node.Emit(OpPop)

	target, err := node.LabelTarget("middle")
	if err != nil {
		t.Fatalf("LabelTarget: %v", err)
	}
	if target != 1 {
		t.Errorf("label target = %d, want 1", target)
	}

	if _, err := node.LabelTarget("nowhere"); err == nil {
		t.Error("expected error for unknown label")
	}
}

func TestNodeLineIDs(t *testing.T) {
	node := NewNode("test")
	node.Emit(OpRunLine, StringOperand("line:aaa"), FloatOperand(0))
	node.Emit(OpPushFloat, FloatOperand(1))
	node.Emit(OpAddOption, StringOperand("line:bbb"), StringOperand("L1"), FloatOperand(0), BoolOperand(false))
	node.Emit(OpRunLine, StringOperand("line:ccc"), FloatOperand(0))

	ids := node.LineIDs()
	want := []string{"line:aaa", "line:bbb", "line:ccc"}
	if len(ids) != len(want) {
		t.Fatalf("got %d ids, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestProgramAddNodeRejectsDuplicates(t *testing.T) {
	program := NewProgram()
	if err := program.AddNode(NewNode("A")); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := program.AddNode(NewNode("A")); err == nil {
		t.Error("expected duplicate node error")
	}
}

func TestCombineDisjointPrograms(t *testing.T) {
	first := NewProgram()
	first.AddNode(NewNode("A"))
	first.InitialValues["$x"] = FloatOperand(1)

	second := NewProgram()
	second.AddNode(NewNode("B"))
	second.InitialValues["$y"] = StringOperand("hi")

	combined, err := Combine(first, second)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	names := combined.NodeNames()
	if len(names) != 2 || names[0] != "A" || names[1] != "B" {
		t.Errorf("node names = %v, want [A B]", names)
	}
	if combined.InitialValues["$x"].Num != 1 {
		t.Error("lost $x initial value")
	}
	if combined.InitialValues["$y"].Str != "hi" {
		t.Error("lost $y initial value")
	}
}

func TestCombineRejectsNodeCollision(t *testing.T) {
	first := NewProgram()
	first.AddNode(NewNode("Shared"))
	second := NewProgram()
	second.AddNode(NewNode("Shared"))

	if _, err := Combine(first, second); err == nil {
		t.Error("expected collision error")
	}
}

func TestCombineToleratesIdenticalInitialValues(t *testing.T) {
	first := NewProgram()
	first.InitialValues["$x"] = FloatOperand(3)
	second := NewProgram()
	second.InitialValues["$x"] = FloatOperand(3)

	combined, err := Combine(first, second)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if combined.InitialValues["$x"].Num != 3 {
		t.Error("lost $x initial value")
	}

	third := NewProgram()
	third.InitialValues["$x"] = FloatOperand(4)
	if _, err := Combine(first, third); err == nil {
		t.Error("expected conflicting initial value error")
	}
}

func TestOpcodeMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" {
			t.Errorf("opcode %#x has no name", byte(op))
		}
	}
	if !OpJumpTo.IsJump() || !OpJumpIfFalse.IsJump() {
		t.Error("jump opcodes not flagged as jumps")
	}
	if OpPushString.IsJump() {
		t.Error("push flagged as jump")
	}
	if !OpRunLine.YieldsControl() || !OpShowOptions.YieldsControl() {
		t.Error("yielding opcodes not flagged")
	}
	if OpPop.YieldsControl() {
		t.Error("pop flagged as yielding")
	}
}

func TestDisassembleSmoke(t *testing.T) {
	program := NewProgram()
	node := NewNode("test")
	node.Emit(OpRunLine, StringOperand("line:abc"), FloatOperand(0))
	node.AddLabel("end")
	program.AddNode(node)
	program.InitialValues["$gold"] = FloatOperand(10)

	out := program.Disassemble()
	for _, fragment := range []string{"test", "line:abc", "RUN_LINE", "$gold"} {
		if !strings.Contains(out, fragment) {
			t.Errorf("disassembly missing %q:\n%s", fragment, out)
		}
	}
}
