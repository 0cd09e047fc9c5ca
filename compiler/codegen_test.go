package compiler

import (
	"testing"

	"github.com/skein-lang/skein/runtime"
)

// playthrough drives a compiled program, answering each option set with the
// next index from picks and recording what was delivered.
type playthrough struct {
	lines    []string
	commands []string
	options  [][]string
}

func play(t *testing.T, result *CompilationResult, start string, picks ...int) *playthrough {
	t.Helper()
	record := &playthrough{}

	dialogue := runtime.NewDialogue(nil)
	dialogue.SetProgram(result.Program)
	dialogue.SetTextProvider(result.StringTable)

	dialogue.SetLineHandler(func(line runtime.Line) {
		text, ok := dialogue.LineText(line)
		if !ok {
			t.Fatalf("no text for line %s", line.ID)
		}
		record.lines = append(record.lines, text)
	})
	dialogue.SetCommandHandler(func(command runtime.Command) {
		record.commands = append(record.commands, command.Text)
	})
	dialogue.SetOptionsHandler(func(options []runtime.DialogueOption) {
		var texts []string
		for _, option := range options {
			text, _ := dialogue.LineText(option.Line)
			texts = append(texts, text)
		}
		record.options = append(record.options, texts)
	})

	if err := dialogue.SetNode(start); err != nil {
		t.Fatalf("SetNode: %v", err)
	}
	for dialogue.IsActive() {
		if dialogue.State() == runtime.StateWaitingForOptions {
			if len(picks) == 0 {
				t.Fatal("ran out of option picks")
			}
			if err := dialogue.SetSelectedOption(picks[0]); err != nil {
				t.Fatalf("SetSelectedOption: %v", err)
			}
			picks = picks[1:]
		}
		if err := dialogue.Continue(); err != nil {
			t.Fatalf("Continue: %v", err)
		}
	}
	return record
}

func TestCodegenOptions(t *testing.T) {
	result := compileSource(t, `title: test
---
pick one
-> Left
    went left
-> Right
    went right
after
===
`)
	record := play(t, result, "test", 1)

	if len(record.options) != 1 {
		t.Fatalf("option sets = %d, want 1", len(record.options))
	}
	set := record.options[0]
	if len(set) != 2 || set[0] != "Left" || set[1] != "Right" {
		t.Errorf("options = %v", set)
	}

	want := []string{"pick one", "went right", "after"}
	if len(record.lines) != len(want) {
		t.Fatalf("lines = %v, want %v", record.lines, want)
	}
	for i := range want {
		if record.lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, record.lines[i], want[i])
		}
	}
}

func TestCodegenOptionCondition(t *testing.T) {
	result := compileSource(t, `title: test
---
<<declare $brave = false>>
-> Fight <<if $brave>>
-> Flee
===
`)
	dialogue := runtime.NewDialogue(nil)
	dialogue.SetProgram(result.Program)
	dialogue.SetTextProvider(result.StringTable)

	var delivered []runtime.DialogueOption
	dialogue.SetOptionsHandler(func(options []runtime.DialogueOption) {
		delivered = options
	})

	if err := dialogue.SetNode("test"); err != nil {
		t.Fatalf("SetNode: %v", err)
	}
	if err := dialogue.Continue(); err != nil {
		t.Fatalf("Continue: %v", err)
	}

	if len(delivered) != 2 {
		t.Fatalf("got %d options, want 2", len(delivered))
	}
	if delivered[0].IsAvailable {
		t.Error("Fight should be unavailable while $brave is false")
	}
	if !delivered[1].IsAvailable {
		t.Error("Flee should be available")
	}
}

func TestCodegenIfElse(t *testing.T) {
	source := `title: test
---
<<declare $gold = %s as number>>
<<if $gold > 10>>
rich
<<elseif $gold > 0>>
modest
<<else>>
broke
<<endif>>
done
===
`
	cases := []struct {
		gold string
		want string
	}{
		{"50", "rich"},
		{"5", "modest"},
		{"0", "broke"},
	}
	for _, c := range cases {
		result := compileSource(t, replaceFirst(source, "%s", c.gold))
		record := play(t, result, "test")
		if len(record.lines) != 2 || record.lines[0] != c.want || record.lines[1] != "done" {
			t.Errorf("gold=%s: lines = %v, want [%s done]", c.gold, record.lines, c.want)
		}
	}
}

func replaceFirst(s, old, new string) string {
	for i := 0; i+len(old) <= len(s); i++ {
		if s[i:i+len(old)] == old {
			return s[:i] + new + s[i+len(old):]
		}
	}
	return s
}

func TestCodegenJumpAndStop(t *testing.T) {
	result := compileSource(t, `title: First
---
one
<<jump Second>>
unreachable
===
title: Second
---
two
<<stop>>
also unreachable
===
`)
	record := play(t, result, "First")
	want := []string{"one", "two"}
	if len(record.lines) != 2 || record.lines[0] != want[0] || record.lines[1] != want[1] {
		t.Errorf("lines = %v, want %v", record.lines, want)
	}
}

func TestCodegenCommands(t *testing.T) {
	result := compileSource(t, `title: test
---
<<wait 2>>
<<give sword {1 + 1}>>
===
`)
	record := play(t, result, "test")
	if len(record.commands) != 2 {
		t.Fatalf("commands = %v", record.commands)
	}
	if record.commands[0] != "wait 2" {
		t.Errorf("commands[0] = %q", record.commands[0])
	}
	if record.commands[1] != "give sword 2" {
		t.Errorf("commands[1] = %q", record.commands[1])
	}
}

func TestCodegenVisitedTracking(t *testing.T) {
	result := compileSource(t, `title: Hub
---
<<if visited("Side")>>
been there
<<else>>
not yet
<<endif>>
===
title: Side
---
a detour
===
`)

	// The queried node is instrumented, the querying node is not.
	side, _ := result.Program.Node("Side")
	if !side.TrackingNode {
		t.Error("Side should be visit-tracked")
	}
	hub, _ := result.Program.Node("Hub")
	if hub.TrackingNode {
		t.Error("Hub should not be visit-tracked")
	}

	storage := runtime.NewMemoryVariableStorage()
	dialogue := runtime.NewDialogue(storage)
	dialogue.SetProgram(result.Program)
	dialogue.SetTextProvider(result.StringTable)

	var lines []string
	dialogue.SetLineHandler(func(line runtime.Line) {
		text, _ := dialogue.LineText(line)
		lines = append(lines, text)
	})

	run := func(node string) {
		if err := dialogue.SetNode(node); err != nil {
			t.Fatalf("SetNode: %v", err)
		}
		for dialogue.IsActive() {
			if err := dialogue.Continue(); err != nil {
				t.Fatalf("Continue: %v", err)
			}
		}
	}

	run("Hub")
	if len(lines) != 1 || lines[0] != "not yet" {
		t.Fatalf("first visit: lines = %v", lines)
	}

	lines = nil
	run("Side")
	lines = nil
	run("Hub")
	if len(lines) != 1 || lines[0] != "been there" {
		t.Errorf("after detour: lines = %v", lines)
	}
}

func TestCodegenTrackingHeader(t *testing.T) {
	result := compileSource(t, `title: Counted
tracking: always
---
===
title: Ignored
tracking: never
---
===
`)
	counted, _ := result.Program.Node("Counted")
	if !counted.TrackingNode {
		t.Error("tracking: always should instrument the node")
	}
	ignored, _ := result.Program.Node("Ignored")
	if ignored.TrackingNode {
		t.Error("tracking: never should not instrument the node")
	}
	if _, ok := result.Program.InitialValues[runtime.VisitCounterVariable("Counted")]; !ok {
		t.Error("tracked node needs a counter initial value")
	}
}

func TestCodegenSetStatement(t *testing.T) {
	result := compileSource(t, `title: test
---
<<declare $gold = 10 as number>>
<<set $gold to $gold * 3>>
gold: {$gold}
===
`)
	record := play(t, result, "test")
	if len(record.lines) != 1 || record.lines[0] != "gold: 30" {
		t.Errorf("lines = %v, want [gold: 30]", record.lines)
	}
}
