package runtime

import (
	"testing"

	"github.com/skein-lang/skein/bytecode"
)

// mapTextProvider backs LineText with a plain map.
type mapTextProvider map[LineID]string

func (m mapTextProvider) LineText(id LineID) (string, bool) {
	text, ok := m[id]
	return text, ok
}

func TestDialogueRunThrough(t *testing.T) {
	node := bytecode.NewNode("Start")
	node.Emit(bytecode.OpPushFloat, bytecode.FloatOperand(4))
	node.Emit(bytecode.OpRunLine, bytecode.StringOperand("line:greet"), bytecode.FloatOperand(1))

	program := bytecode.NewProgram()
	program.AddNode(node)

	dialogue := NewDialogue(nil)
	dialogue.SetProgram(program)
	dialogue.SetTextProvider(mapTextProvider{"line:greet": "you rolled {0}"})

	var texts []string
	dialogue.SetLineHandler(func(line Line) {
		text, ok := dialogue.LineText(line)
		if !ok {
			t.Errorf("no text for %s", line.ID)
		}
		texts = append(texts, text)
	})

	if dialogue.IsActive() {
		t.Error("dialogue active before start")
	}
	if err := dialogue.StartDialogue(); err != nil {
		t.Fatalf("StartDialogue: %v", err)
	}
	if !dialogue.IsActive() {
		t.Error("dialogue inactive after start")
	}

	for dialogue.IsActive() {
		if err := dialogue.Continue(); err != nil {
			t.Fatalf("Continue: %v", err)
		}
	}

	if len(texts) != 1 || texts[0] != "you rolled 4" {
		t.Errorf("texts = %v, want [you rolled 4]", texts)
	}
}

func TestDialogueAddProgram(t *testing.T) {
	first := bytecode.NewProgram()
	first.AddNode(bytecode.NewNode("A"))
	second := bytecode.NewProgram()
	second.AddNode(bytecode.NewNode("B"))

	dialogue := NewDialogue(nil)
	dialogue.SetProgram(first)
	if err := dialogue.AddProgram(second); err != nil {
		t.Fatalf("AddProgram: %v", err)
	}

	names := dialogue.NodeNames()
	if len(names) != 2 {
		t.Fatalf("NodeNames = %v", names)
	}
	if !dialogue.NodeExists("A") || !dialogue.NodeExists("B") {
		t.Error("nodes missing after AddProgram")
	}

	// A colliding node name is rejected and leaves the loaded program alone.
	third := bytecode.NewProgram()
	third.AddNode(bytecode.NewNode("A"))
	if err := dialogue.AddProgram(third); err == nil {
		t.Error("expected collision error")
	}
	if len(dialogue.NodeNames()) != 2 {
		t.Error("failed AddProgram changed the loaded program")
	}
}

func TestDialogueNodeIntrospection(t *testing.T) {
	node := bytecode.NewNode("Tavern")
	node.Tags = []string{"interior", "music"}

	program := bytecode.NewProgram()
	program.AddNode(node)

	dialogue := NewDialogue(NewMemoryVariableStorage())
	dialogue.SetProgram(program)

	tags := dialogue.TagsForNode("Tavern")
	if len(tags) != 2 || tags[0] != "interior" {
		t.Errorf("TagsForNode = %v", tags)
	}
	if dialogue.TagsForNode("Nowhere") != nil {
		t.Error("tags for unknown node should be nil")
	}
	if dialogue.NodeExists("Nowhere") {
		t.Error("NodeExists for unknown node")
	}
}

func TestDialogueVisitedFunctionSeesCompletedNodes(t *testing.T) {
	program := bytecode.NewProgram()
	cave := bytecode.NewNode("Cave")
	cave.TrackingNode = true
	program.AddNode(cave)

	storage := NewMemoryVariableStorage()
	dialogue := NewDialogue(storage)
	dialogue.SetProgram(program)

	if err := dialogue.SetNode("Cave"); err != nil {
		t.Fatalf("SetNode: %v", err)
	}
	for dialogue.IsActive() {
		if err := dialogue.Continue(); err != nil {
			t.Fatalf("Continue: %v", err)
		}
	}

	// The dialogue's library shares the dialogue's storage.
	visited, ok := dialogue.Library().Get(FuncVisited)
	if !ok {
		t.Fatal("visited not in library")
	}
	result, err := visited.Call([]Value{StringValue("Cave")})
	if err != nil {
		t.Fatalf("visited: %v", err)
	}
	if b, _ := result.AsBool(); !b {
		t.Error("visited(\"Cave\") = false after completing Cave")
	}
}

func TestExpandSubstitutions(t *testing.T) {
	got := ExpandSubstitutions("hi {0}, you have {1} coins", []string{"Ava", "7"})
	want := "hi Ava, you have 7 coins"
	if got != want {
		t.Errorf("ExpandSubstitutions = %q, want %q", got, want)
	}

	// Text with no placeholders passes through.
	if got := ExpandSubstitutions("plain", nil); got != "plain" {
		t.Errorf("ExpandSubstitutions(plain) = %q", got)
	}
}
