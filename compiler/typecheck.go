package compiler

import (
	"github.com/skein-lang/skein/runtime"
)

// ---------------------------------------------------------------------------
// Declaration gathering and type checking
// ---------------------------------------------------------------------------

// literalValue evaluates a constant literal expression. Declare defaults
// must be literals; anything else returns ok=false.
func literalValue(expr Expression) (runtime.Value, bool) {
	switch e := expr.(type) {
	case *NumberLiteral:
		return runtime.NumberValue(e.Value), true
	case *StringLiteral:
		return runtime.StringValue(e.Value), true
	case *BoolLiteral:
		return runtime.BoolValue(e.Value), true
	case *UnaryExpr:
		if e.Op == TokenMinus {
			if inner, ok := e.Operand.(*NumberLiteral); ok {
				return runtime.NumberValue(-inner.Value), true
			}
		}
	}
	return runtime.Value{}, false
}

// gatherDeclarations collects explicit <<declare>> statements from every
// file into the known set. Seed declarations supplied by the caller are
// already present and win conflicts.
func gatherDeclarations(files []*File, known *declarationSet) []Diagnostic {
	var diagnostics []Diagnostic
	for _, file := range files {
		for _, node := range file.Nodes {
			walkStatements(node.Body, func(statement Statement) {
				decl, ok := statement.(*DeclareStatement)
				if !ok {
					return
				}
				diagnostics = append(diagnostics, declareVariable(file.Name, decl, known)...)
			})
		}
	}
	return diagnostics
}

func declareVariable(file string, decl *DeclareStatement, known *declarationSet) []Diagnostic {
	var diagnostics []Diagnostic

	value, ok := literalValue(decl.Default)
	if !ok {
		return append(diagnostics, errorAt(file, decl.Pos(),
			"default value for %s must be a literal", decl.Variable))
	}
	valueType := typeKindOfValueKind(value.Kind())

	declaredType := valueType
	if decl.TypeName != "" {
		named, ok := typeKindFromName(decl.TypeName)
		if !ok {
			return append(diagnostics, errorAt(file, decl.Pos(),
				"unknown type %q; expected string, number, or boolean", decl.TypeName))
		}
		if named != valueType {
			return append(diagnostics, errorAt(file, decl.Pos(),
				"default value for %s is %s, but it is declared as %s",
				decl.Variable, valueType, named))
		}
		declaredType = named
	}

	if existing, ok := known.get(decl.Variable); ok {
		switch existing.Provenance {
		case ProvenanceExplicit:
			return append(diagnostics, errorAt(file, decl.Pos(),
				"%s is already declared at %s:%s", decl.Variable, existing.File, existing.Position))
		default:
			// A seed or earlier inference exists; explicit declarations
			// must agree with it.
			if existing.Type.IsConcrete() && existing.Type != declaredType {
				return append(diagnostics, errorAt(file, decl.Pos(),
					"%s is declared as %s but already known as %s",
					decl.Variable, declaredType, existing.Type))
			}
			existing.Type = declaredType
			existing.Default = &value
			existing.Provenance = ProvenanceExplicit
			existing.File = file
			existing.Position = decl.Pos()
			return diagnostics
		}
	}

	known.add(&Declaration{
		Name:       decl.Variable,
		Type:       declaredType,
		Default:    &value,
		Provenance: ProvenanceExplicit,
		File:       file,
		Position:   decl.Pos(),
	})
	return diagnostics
}

// walkStatements visits every statement in a body, recursing into nested
// option and if bodies.
func walkStatements(body []Statement, visit func(Statement)) {
	for _, statement := range body {
		visit(statement)
		switch s := statement.(type) {
		case *OptionGroup:
			for _, option := range s.Options {
				visit(option)
				walkStatements(option.Body, visit)
			}
		case *IfStatement:
			for _, clause := range s.Clauses {
				walkStatements(clause.Body, visit)
			}
		}
	}
}

// typeChecker verifies expression and statement types across a whole
// compilation, inferring declarations for variables first seen in a
// <<set>> or in a typed operator context.
type typeChecker struct {
	files       []*File
	known       *declarationSet
	library     *runtime.Library
	nodeTitles  map[string]bool
	diagnostics []Diagnostic

	file string // file currently being checked
}

// checkTypes runs inference then verification over every file. Inference
// iterates to a fixpoint so variables first assigned in a later file still
// resolve.
func checkTypes(files []*File, known *declarationSet, library *runtime.Library) []Diagnostic {
	tc := &typeChecker{
		files:      files,
		known:      known,
		library:    library,
		nodeTitles: make(map[string]bool),
	}
	for _, file := range files {
		for _, node := range file.Nodes {
			tc.nodeTitles[node.Title] = true
		}
	}
	tc.inferAssignments()
	for _, file := range files {
		tc.file = file.Name
		for _, node := range file.Nodes {
			tc.checkBlock(node.Body)
		}
	}
	return tc.diagnostics
}

// inferAssignments derives declarations from <<set>> statements, repeating
// until no new declaration appears. Chains like `set $a to $b` resolve
// once $b gains a type.
func (tc *typeChecker) inferAssignments() {
	for {
		changed := false
		for _, file := range tc.files {
			for _, node := range file.Nodes {
				walkStatements(node.Body, func(statement Statement) {
					set, ok := statement.(*SetStatement)
					if !ok {
						return
					}
					if _, declared := tc.known.get(set.Variable); declared {
						return
					}
					t := tc.typeOf(set.Value)
					if !t.IsConcrete() {
						return
					}
					tc.known.add(&Declaration{
						Name:       set.Variable,
						Type:       t,
						Provenance: ProvenanceInferred,
						File:       file.Name,
						Position:   set.Pos(),
					})
					changed = true
				})
			}
		}
		if !changed {
			return
		}
	}
}

// typeOf computes an expression's type without reporting diagnostics.
// Unknown when it cannot be determined yet.
func (tc *typeChecker) typeOf(expr Expression) TypeKind {
	switch e := expr.(type) {
	case *NumberLiteral:
		return TypeNumber
	case *StringLiteral:
		return TypeString
	case *BoolLiteral:
		return TypeBoolean
	case *VariableExpr:
		if d, ok := tc.known.get(e.Name); ok {
			return d.Type
		}
		return TypeUnknown
	case *UnaryExpr:
		if e.Op == TokenMinus {
			return TypeNumber
		}
		return TypeBoolean
	case *BinaryExpr:
		switch e.Op {
		case TokenEq, TokenNeq, TokenLt, TokenLte, TokenGt, TokenGte, TokenAnd, TokenOr:
			return TypeBoolean
		case TokenPlus:
			left := tc.typeOf(e.Left)
			right := tc.typeOf(e.Right)
			if left == TypeString || right == TypeString {
				return TypeString
			}
			if left == TypeUnknown && right == TypeUnknown {
				return TypeUnknown
			}
			return TypeNumber
		default:
			return TypeNumber
		}
	case *CallExpr:
		if fn, ok := tc.library.Get(e.Name); ok {
			return typeKindOfValueKind(fn.Returns)
		}
		return TypeUnknown
	default:
		return TypeUnknown
	}
}

func (tc *typeChecker) errorf(pos Position, format string, args ...any) {
	tc.diagnostics = append(tc.diagnostics, errorAt(tc.file, pos, format, args...))
}

// checkBlock verifies one statement list.
func (tc *typeChecker) checkBlock(body []Statement) {
	for _, statement := range body {
		switch s := statement.(type) {
		case *LineStatement:
			tc.checkParts(s.Parts)
		case *OptionGroup:
			for _, option := range s.Options {
				tc.checkParts(option.Parts)
				if option.Condition != nil {
					tc.checkCondition(option.Condition)
				}
				tc.checkBlock(option.Body)
			}
		case *SetStatement:
			tc.checkSet(s)
		case *DeclareStatement:
			// Handled by gatherDeclarations.
		case *IfStatement:
			for _, clause := range s.Clauses {
				if clause.Condition != nil {
					tc.checkCondition(clause.Condition)
				}
				tc.checkBlock(clause.Body)
			}
		case *JumpStatement:
			if !tc.nodeTitles[s.Target] {
				tc.errorf(s.Pos(), "jump to unknown node %q", s.Target)
			}
		case *CommandStatement:
			tc.checkParts(s.Parts)
		}
	}
}

func (tc *typeChecker) checkParts(parts []TextPart) {
	for _, part := range parts {
		if part.Expression != nil {
			tc.checkExpr(part.Expression, TypeUnknown)
		}
	}
}

func (tc *typeChecker) checkCondition(expr Expression) {
	t := tc.checkExpr(expr, TypeBoolean)
	if t.IsConcrete() && t != TypeBoolean {
		tc.errorf(expr.Pos(), "condition must be boolean, got %s", t)
	}
}

func (tc *typeChecker) checkSet(s *SetStatement) {
	valueType := tc.checkExpr(s.Value, TypeUnknown)
	decl, ok := tc.known.get(s.Variable)
	if !ok {
		tc.errorf(s.Pos(), "cannot determine the type of %s; declare it with <<declare>>", s.Variable)
		return
	}
	if decl.Type.IsConcrete() && valueType.IsConcrete() && decl.Type != valueType {
		tc.errorf(s.Value.Pos(), "cannot assign %s to %s, which is %s", valueType, s.Variable, decl.Type)
	}
}

// checkExpr verifies an expression and returns its type. The expected type
// flows downward only far enough to resolve otherwise-unknown variables.
func (tc *typeChecker) checkExpr(expr Expression, expected TypeKind) TypeKind {
	switch e := expr.(type) {
	case *NumberLiteral:
		return TypeNumber
	case *StringLiteral:
		return TypeString
	case *BoolLiteral:
		return TypeBoolean

	case *VariableExpr:
		if d, ok := tc.known.get(e.Name); ok {
			return d.Type
		}
		if expected.IsConcrete() {
			tc.known.add(&Declaration{
				Name:       e.Name,
				Type:       expected,
				Provenance: ProvenanceInferred,
				File:       tc.file,
				Position:   e.Pos(),
			})
			return expected
		}
		tc.errorf(e.Pos(), "cannot determine the type of %s; declare it with <<declare>>", e.Name)
		return TypeUnknown

	case *UnaryExpr:
		if e.Op == TokenMinus {
			t := tc.checkExpr(e.Operand, TypeNumber)
			if t.IsConcrete() && t != TypeNumber {
				tc.errorf(e.OpPos, "operator '-' requires a number, got %s", t)
			}
			return TypeNumber
		}
		t := tc.checkExpr(e.Operand, TypeBoolean)
		if t.IsConcrete() && t != TypeBoolean {
			tc.errorf(e.OpPos, "operator 'not' requires a boolean, got %s", t)
		}
		return TypeBoolean

	case *BinaryExpr:
		return tc.checkBinary(e)

	case *CallExpr:
		return tc.checkCall(e)

	default:
		return TypeUnknown
	}
}

func (tc *typeChecker) checkBinary(e *BinaryExpr) TypeKind {
	switch e.Op {
	case TokenAnd, TokenOr:
		tc.checkOperand(e.Left, TypeBoolean, e.Op)
		tc.checkOperand(e.Right, TypeBoolean, e.Op)
		return TypeBoolean

	case TokenEq, TokenNeq:
		left := tc.checkExpr(e.Left, TypeUnknown)
		right := tc.checkExpr(e.Right, left)
		if left.IsConcrete() && right.IsConcrete() && left != right {
			tc.errorf(e.Pos(), "cannot compare %s with %s", left, right)
		}
		return TypeBoolean

	case TokenLt, TokenLte, TokenGt, TokenGte:
		left := tc.checkExpr(e.Left, TypeNumber)
		right := tc.checkExpr(e.Right, left)
		tc.requireOrdered(e.Left.Pos(), left, e.Op)
		tc.requireOrdered(e.Right.Pos(), right, e.Op)
		if left.IsConcrete() && right.IsConcrete() && left != right {
			tc.errorf(e.Pos(), "cannot compare %s with %s", left, right)
		}
		return TypeBoolean

	case TokenPlus:
		left := tc.checkExpr(e.Left, TypeNumber)
		right := tc.checkExpr(e.Right, left)
		if left == TypeString || right == TypeString {
			if left.IsConcrete() && right.IsConcrete() && left != right {
				tc.errorf(e.Pos(), "operator '+' requires both sides to be numbers or both strings")
			}
			return TypeString
		}
		tc.requireNumber(e.Left.Pos(), left, e.Op)
		tc.requireNumber(e.Right.Pos(), right, e.Op)
		return TypeNumber

	default: // - * / %
		tc.checkOperand(e.Left, TypeNumber, e.Op)
		tc.checkOperand(e.Right, TypeNumber, e.Op)
		return TypeNumber
	}
}

func (tc *typeChecker) checkOperand(expr Expression, want TypeKind, op TokenType) {
	t := tc.checkExpr(expr, want)
	if t.IsConcrete() && t != want {
		tc.errorf(expr.Pos(), "operator %q requires %s, got %s", tokenNames[op], want, t)
	}
}

func (tc *typeChecker) requireNumber(pos Position, t TypeKind, op TokenType) {
	if t.IsConcrete() && t != TypeNumber {
		tc.errorf(pos, "operator %q requires %s, got %s", tokenNames[op], TypeNumber, t)
	}
}

func (tc *typeChecker) requireOrdered(pos Position, t TypeKind, op TokenType) {
	if t == TypeBoolean {
		tc.errorf(pos, "operator %q cannot order booleans", tokenNames[op])
	}
}

// checkCall verifies a function call against the library.
func (tc *typeChecker) checkCall(e *CallExpr) TypeKind {
	fn, ok := tc.library.Get(e.Name)
	if !ok {
		tc.errorf(e.Pos(), "unknown function %q", e.Name)
		for _, arg := range e.Args {
			tc.checkExpr(arg, TypeUnknown)
		}
		return TypeUnknown
	}
	if len(e.Args) != fn.Arity() {
		tc.errorf(e.Pos(), "%s expects %d argument(s), got %d", e.Name, fn.Arity(), len(e.Args))
	}
	for i, arg := range e.Args {
		want := TypeUnknown
		if i < len(fn.Params) {
			want = typeKindOfValueKind(fn.Params[i])
		}
		got := tc.checkExpr(arg, want)
		if want.IsConcrete() && got.IsConcrete() && got != want {
			tc.errorf(arg.Pos(), "argument %d of %s must be %s, got %s", i+1, e.Name, want, got)
		}
	}
	return typeKindOfValueKind(fn.Returns)
}
