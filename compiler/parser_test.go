package compiler

import (
	"strings"
	"testing"
)

// parseOne parses source that must contain exactly one node and no
// diagnostics.
func parseOne(t *testing.T, source string) *NodeDecl {
	t.Helper()
	file, diagnostics := NewParser("test.skein", source).Parse()
	if len(diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diagnostics)
	}
	if len(file.Nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(file.Nodes))
	}
	return file.Nodes[0]
}

func TestParseHeaders(t *testing.T) {
	node := parseOne(t, `title: Tavern
tags: interior music
tracking: always
---
hello
===
`)
	if node.Title != "Tavern" {
		t.Errorf("title = %q", node.Title)
	}
	if len(node.Tags) != 2 || node.Tags[0] != "interior" || node.Tags[1] != "music" {
		t.Errorf("tags = %v", node.Tags)
	}
	if node.Headers["tracking"] != "always" {
		t.Errorf("tracking header = %q", node.Headers["tracking"])
	}
	if len(node.Body) != 1 {
		t.Fatalf("body has %d statements, want 1", len(node.Body))
	}
	if _, ok := node.Body[0].(*LineStatement); !ok {
		t.Errorf("body[0] is %T, want *LineStatement", node.Body[0])
	}
}

func TestParseMultipleNodes(t *testing.T) {
	file, diagnostics := NewParser("test.skein", `title: A
---
===
title: B
---
===
`).Parse()
	if len(diagnostics) != 0 {
		t.Fatalf("diagnostics: %v", diagnostics)
	}
	if len(file.Nodes) != 2 || file.Nodes[0].Title != "A" || file.Nodes[1].Title != "B" {
		t.Errorf("nodes = %v", file.Nodes)
	}
}

func TestParseUnknownTrackingValue(t *testing.T) {
	_, diagnostics := NewParser("test.skein", "title: t\ntracking: sometimes\n---\n===\n").Parse()
	if len(diagnostics) != 1 || diagnostics[0].Severity != SeverityWarning {
		t.Errorf("diagnostics = %v, want one warning", diagnostics)
	}
	if HasErrors(diagnostics) {
		t.Error("an unknown tracking value must not be an error")
	}
}

func TestParseMissingTitle(t *testing.T) {
	_, diagnostics := NewParser("test.skein", "---\nhi\n===\n").Parse()
	if !HasErrors(diagnostics) {
		t.Error("expected a missing-title error")
	}
}

func TestParseInterpolation(t *testing.T) {
	node := parseOne(t, `title: test
---
a {1 + 3} cool expression
===
`)
	line := node.Body[0].(*LineStatement)
	if len(line.Parts) != 3 {
		t.Fatalf("parts = %d, want 3", len(line.Parts))
	}
	if line.Parts[0].Literal != "a " {
		t.Errorf("parts[0] = %q", line.Parts[0].Literal)
	}
	expr, ok := line.Parts[1].Expression.(*BinaryExpr)
	if !ok {
		t.Fatalf("parts[1] is %T, want *BinaryExpr", line.Parts[1].Expression)
	}
	if expr.Op != TokenPlus {
		t.Errorf("op = %v, want +", expr.Op)
	}
	if line.Parts[2].Literal != " cool expression" {
		t.Errorf("parts[2] = %q", line.Parts[2].Literal)
	}
}

func TestParseHashtags(t *testing.T) {
	node := parseOne(t, `title: test
---
hello there #line:greeting #mood:warm
===
`)
	line := node.Body[0].(*LineStatement)
	if line.ExplicitID != "line:greeting" {
		t.Errorf("explicit id = %q", line.ExplicitID)
	}
	if len(line.Tags) != 1 || line.Tags[0] != "mood:warm" {
		t.Errorf("tags = %v", line.Tags)
	}
	if line.Parts[0].Literal != "hello there" {
		t.Errorf("text = %q", line.Parts[0].Literal)
	}
}

func TestParseOptions(t *testing.T) {
	node := parseOne(t, `title: test
---
-> Go left
    you went left
-> Go right <<if $brave>>
    you went right
    -> Deeper
        all the way down
===
`)
	group, ok := node.Body[0].(*OptionGroup)
	if !ok {
		t.Fatalf("body[0] is %T, want *OptionGroup", node.Body[0])
	}
	if len(group.Options) != 2 {
		t.Fatalf("got %d options, want 2", len(group.Options))
	}

	left := group.Options[0]
	if left.Parts[0].Literal != "Go left" {
		t.Errorf("option 0 text = %q", left.Parts[0].Literal)
	}
	if left.Condition != nil {
		t.Error("option 0 should have no condition")
	}
	if len(left.Body) != 1 {
		t.Errorf("option 0 body = %d statements", len(left.Body))
	}

	right := group.Options[1]
	if right.Condition == nil {
		t.Fatal("option 1 should have a condition")
	}
	if _, ok := right.Condition.(*VariableExpr); !ok {
		t.Errorf("condition is %T, want *VariableExpr", right.Condition)
	}
	// The nested option group belongs to the outer option's body.
	if len(right.Body) != 2 {
		t.Fatalf("option 1 body = %d statements, want 2", len(right.Body))
	}
	if _, ok := right.Body[1].(*OptionGroup); !ok {
		t.Errorf("nested statement is %T, want *OptionGroup", right.Body[1])
	}
}

func TestParseSetAndDeclare(t *testing.T) {
	node := parseOne(t, `title: test
---
<<declare $gold = 50 as number>>
<<set $gold to $gold + 10>>
<<set $name = "Ava">>
===
`)
	declare := node.Body[0].(*DeclareStatement)
	if declare.Variable != "$gold" || declare.TypeName != "number" {
		t.Errorf("declare = %+v", declare)
	}
	if lit, ok := declare.Default.(*NumberLiteral); !ok || lit.Value != 50 {
		t.Errorf("declare default = %v", declare.Default)
	}

	set := node.Body[1].(*SetStatement)
	if set.Variable != "$gold" {
		t.Errorf("set variable = %q", set.Variable)
	}
	if _, ok := set.Value.(*BinaryExpr); !ok {
		t.Errorf("set value is %T, want *BinaryExpr", set.Value)
	}

	eq := node.Body[2].(*SetStatement)
	if lit, ok := eq.Value.(*StringLiteral); !ok || lit.Value != "Ava" {
		t.Errorf("set value = %v", eq.Value)
	}
}

func TestParseIfElse(t *testing.T) {
	node := parseOne(t, `title: test
---
<<if $gold > 10>>
    rich
<<elseif $gold > 0>>
    modest
<<else>>
    broke
<<endif>>
===
`)
	statement := node.Body[0].(*IfStatement)
	if len(statement.Clauses) != 3 {
		t.Fatalf("clauses = %d, want 3", len(statement.Clauses))
	}
	if statement.Clauses[0].Condition == nil || statement.Clauses[1].Condition == nil {
		t.Error("if and elseif must carry conditions")
	}
	if statement.Clauses[2].Condition != nil {
		t.Error("else must not carry a condition")
	}
	for i, clause := range statement.Clauses {
		if len(clause.Body) != 1 {
			t.Errorf("clause %d body = %d statements", i, len(clause.Body))
		}
	}
}

func TestParseIfBodiesAtClauseIndent(t *testing.T) {
	// Arm bodies need no extra indentation; the elseif/else/endif
	// directives bound them.
	node := parseOne(t, `title: test
---
<<if $gold > 10>>
rich
<<else>>
broke
<<endif>>
after
===
`)
	if len(node.Body) != 2 {
		t.Fatalf("body = %d statements, want 2", len(node.Body))
	}
	statement := node.Body[0].(*IfStatement)
	if len(statement.Clauses) != 2 {
		t.Fatalf("clauses = %d, want 2", len(statement.Clauses))
	}
	for i, clause := range statement.Clauses {
		if len(clause.Body) != 1 {
			t.Errorf("clause %d body = %d statements, want 1", i, len(clause.Body))
		}
	}
	if _, ok := node.Body[1].(*LineStatement); !ok {
		t.Errorf("body[1] is %T, want *LineStatement", node.Body[1])
	}
}

func TestParseUnterminatedIf(t *testing.T) {
	_, diagnostics := NewParser("test.skein", `title: test
---
<<if true>>
    stuck
===
`).Parse()
	if !HasErrors(diagnostics) {
		t.Error("expected missing-endif error")
	}
}

func TestParseJumpStopCommand(t *testing.T) {
	node := parseOne(t, `title: test
---
<<jump Tavern>>
<<stop>>
<<wait 2>>
<<give sword {1 + 1}>>
===
`)
	jump := node.Body[0].(*JumpStatement)
	if jump.Target != "Tavern" {
		t.Errorf("jump target = %q", jump.Target)
	}
	if _, ok := node.Body[1].(*StopStatement); !ok {
		t.Errorf("body[1] is %T, want *StopStatement", node.Body[1])
	}
	command := node.Body[2].(*CommandStatement)
	if command.Parts[0].Literal != "wait 2" {
		t.Errorf("command text = %q", command.Parts[0].Literal)
	}
	interpolated := node.Body[3].(*CommandStatement)
	if len(interpolated.Parts) != 2 || interpolated.Parts[1].Expression == nil {
		t.Errorf("interpolated command parts = %v", interpolated.Parts)
	}
}

func TestParseCommentsAndBlankLines(t *testing.T) {
	node := parseOne(t, `title: test
---
// a comment

hello
===
`)
	if len(node.Body) != 1 {
		t.Errorf("body = %d statements, want 1", len(node.Body))
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	node := parseOne(t, `title: test
---
{1 + 2 * 3 == 7 and not false}
===
`)
	line := node.Body[0].(*LineStatement)
	root, ok := line.Parts[0].Expression.(*BinaryExpr)
	if !ok || root.Op != TokenAnd {
		t.Fatalf("root = %v, want and", line.Parts[0].Expression)
	}
	eq, ok := root.Left.(*BinaryExpr)
	if !ok || eq.Op != TokenEq {
		t.Fatalf("left = %v, want ==", root.Left)
	}
	sum, ok := eq.Left.(*BinaryExpr)
	if !ok || sum.Op != TokenPlus {
		t.Fatalf("eq left = %v, want +", eq.Left)
	}
	product, ok := sum.Right.(*BinaryExpr)
	if !ok || product.Op != TokenStar {
		t.Fatalf("sum right = %v, want *", sum.Right)
	}
	if _, ok := root.Right.(*UnaryExpr); !ok {
		t.Errorf("root right = %T, want *UnaryExpr", root.Right)
	}
}

func TestParseExpressionErrors(t *testing.T) {
	cases := []string{
		"{1 +}",
		"{(1 + 2}",
		"{foo bar}",
		"{visited(}",
	}
	for _, body := range cases {
		source := "title: test\n---\n" + body + "\n===\n"
		_, diagnostics := NewParser("test.skein", source).Parse()
		if !HasErrors(diagnostics) {
			t.Errorf("%q: expected a parse error", body)
		}
	}
}

func TestParseEscapedBraces(t *testing.T) {
	node := parseOne(t, `title: test
---
literal \{braces\} here
===
`)
	line := node.Body[0].(*LineStatement)
	if len(line.Parts) != 1 || !strings.Contains(line.Parts[0].Literal, "{braces}") {
		t.Errorf("parts = %v", line.Parts)
	}
}
