package compiler

import (
	"fmt"

	"github.com/skein-lang/skein/bytecode"
	"github.com/skein-lang/skein/runtime"
)

// ---------------------------------------------------------------------------
// Code generation: AST to bytecode
// ---------------------------------------------------------------------------

// Stack discipline mirrors the interpreter: conditional jumps and variable
// stores peek rather than pop, so the generator emits the balancing OpPop
// itself. Operators compile to library calls with an explicit argument
// count pushed last.

// codeGenerator emits bytecode for one file.
type codeGenerator struct {
	fileName    string
	node        *bytecode.Node
	labelSeq    int
	diagnostics []Diagnostic
}

// generateCode compiles a parsed file into a program. The tracked set names
// the nodes whose completions bump a visit counter.
func generateCode(file *File, tracked map[string]bool) (*bytecode.Program, []Diagnostic) {
	g := &codeGenerator{fileName: file.Name}
	program := bytecode.NewProgram()

	for _, decl := range file.Nodes {
		node := bytecode.NewNode(decl.Title)
		node.Tags = decl.Tags
		node.Headers = decl.Headers
		node.TrackingNode = tracked[decl.Title]
		node.SourceFile = file.Name
		node.SourceLine = decl.TitlePos.Line

		g.node = node
		g.labelSeq = 0
		g.genBlock(decl.Body)

		if err := program.AddNode(node); err != nil {
			g.diagnostics = append(g.diagnostics, errorAt(file.Name, decl.TitlePos, "%s", err.Error()))
		}
	}
	return program, g.diagnostics
}

// newLabel returns a label name unique within the current node.
func (g *codeGenerator) newLabel(hint string) string {
	g.labelSeq++
	return fmt.Sprintf("L%d_%s", g.labelSeq, hint)
}

func (g *codeGenerator) errorf(pos Position, format string, args ...any) {
	g.diagnostics = append(g.diagnostics, errorAt(g.fileName, pos, format, args...))
}

func (g *codeGenerator) genBlock(body []Statement) {
	for _, statement := range body {
		switch s := statement.(type) {
		case *LineStatement:
			g.genLine(s)
		case *OptionGroup:
			g.genOptionGroup(s)
		case *SetStatement:
			g.genExpr(s.Value)
			g.node.Emit(bytecode.OpStoreVariable, bytecode.StringOperand(s.Variable))
			g.node.Emit(bytecode.OpPop)
		case *DeclareStatement:
			// Defaults become initial-value registrations, not code.
		case *IfStatement:
			g.genIf(s)
		case *JumpStatement:
			g.node.Emit(bytecode.OpPushString, bytecode.StringOperand(s.Target))
			g.node.Emit(bytecode.OpRunNode)
		case *StopStatement:
			g.node.Emit(bytecode.OpStop)
		case *CommandStatement:
			g.genCommand(s)
		default:
			g.errorf(statement.Pos(), "internal: no code generation for %T", statement)
		}
	}
}

// genSubstitutions pushes each interpolated expression's value and returns
// how many were pushed.
func (g *codeGenerator) genSubstitutions(parts []TextPart) int {
	count := 0
	for _, part := range parts {
		if part.Expression != nil {
			g.genExpr(part.Expression)
			count++
		}
	}
	return count
}

func (g *codeGenerator) genLine(s *LineStatement) {
	count := g.genSubstitutions(s.Parts)
	g.node.Emit(bytecode.OpRunLine,
		bytecode.StringOperand(s.assignedID),
		bytecode.FloatOperand(float64(count)))
}

func (g *codeGenerator) genCommand(s *CommandStatement) {
	count := g.genSubstitutions(s.Parts)
	g.node.Emit(bytecode.OpRunCommand,
		bytecode.StringOperand(placeholderText(s.Parts)),
		bytecode.FloatOperand(float64(count)))
}

// genOptionGroup emits the add/show/dispatch sequence:
//
//	AddOption per option, ShowOptions, then Jump through the destination
//	label the selection handler pushed. Each destination pops that label
//	before running the option body and jumps to the shared end label.
func (g *codeGenerator) genOptionGroup(s *OptionGroup) {
	end := g.newLabel("group_end")
	destinations := make([]string, len(s.Options))

	for i, option := range s.Options {
		destinations[i] = g.newLabel(fmt.Sprintf("option_%d", i))
		count := g.genSubstitutions(option.Parts)
		hasCondition := option.Condition != nil
		if hasCondition {
			g.genExpr(option.Condition)
		}
		g.node.Emit(bytecode.OpAddOption,
			bytecode.StringOperand(option.assignedID),
			bytecode.StringOperand(destinations[i]),
			bytecode.FloatOperand(float64(count)),
			bytecode.BoolOperand(hasCondition))
	}

	g.node.Emit(bytecode.OpShowOptions)
	g.node.Emit(bytecode.OpJump)

	for i, option := range s.Options {
		g.node.AddLabel(destinations[i])
		g.node.Emit(bytecode.OpPop) // the destination label pushed at selection
		g.genBlock(option.Body)
		g.node.Emit(bytecode.OpJumpTo, bytecode.StringOperand(end))
	}
	g.node.AddLabel(end)
}

// genIf chains the clauses: each condition peeks, so both the taken and the
// not-taken path start by popping it.
func (g *codeGenerator) genIf(s *IfStatement) {
	end := g.newLabel("if_end")
	for _, clause := range s.Clauses {
		if clause.Condition == nil {
			g.genBlock(clause.Body)
			g.node.Emit(bytecode.OpJumpTo, bytecode.StringOperand(end))
			continue
		}
		next := g.newLabel("else")
		g.genExpr(clause.Condition)
		g.node.Emit(bytecode.OpJumpIfFalse, bytecode.StringOperand(next))
		g.node.Emit(bytecode.OpPop)
		g.genBlock(clause.Body)
		g.node.Emit(bytecode.OpJumpTo, bytecode.StringOperand(end))
		g.node.AddLabel(next)
		g.node.Emit(bytecode.OpPop)
	}
	g.node.AddLabel(end)
}

// operatorFunctions maps binary operator tokens to library entries.
var operatorFunctions = map[TokenType]string{
	TokenPlus:    runtime.FuncAdd,
	TokenMinus:   runtime.FuncSub,
	TokenStar:    runtime.FuncMul,
	TokenSlash:   runtime.FuncDiv,
	TokenPercent: runtime.FuncMod,
	TokenEq:      runtime.FuncEq,
	TokenNeq:     runtime.FuncNeq,
	TokenLt:      runtime.FuncLt,
	TokenLte:     runtime.FuncLte,
	TokenGt:      runtime.FuncGt,
	TokenGte:     runtime.FuncGte,
	TokenAnd:     runtime.FuncAnd,
	TokenOr:      runtime.FuncOr,
}

func (g *codeGenerator) genExpr(expr Expression) {
	switch e := expr.(type) {
	case *NumberLiteral:
		g.node.Emit(bytecode.OpPushFloat, bytecode.FloatOperand(e.Value))

	case *StringLiteral:
		g.node.Emit(bytecode.OpPushString, bytecode.StringOperand(e.Value))

	case *BoolLiteral:
		g.node.Emit(bytecode.OpPushBool, bytecode.BoolOperand(e.Value))

	case *VariableExpr:
		g.node.Emit(bytecode.OpPushVariable, bytecode.StringOperand(e.Name))

	case *UnaryExpr:
		g.genExpr(e.Operand)
		name := runtime.FuncNot
		if e.Op == TokenMinus {
			name = runtime.FuncNeg
		}
		g.genCallOp(name, 1)

	case *BinaryExpr:
		g.genExpr(e.Left)
		g.genExpr(e.Right)
		name, ok := operatorFunctions[e.Op]
		if !ok {
			g.errorf(e.Pos(), "internal: no operator function for %q", tokenNames[e.Op])
			return
		}
		g.genCallOp(name, 2)

	case *CallExpr:
		for _, arg := range e.Args {
			g.genExpr(arg)
		}
		g.genCallOp(e.Name, len(e.Args))

	default:
		g.errorf(expr.Pos(), "internal: no code generation for %T", expr)
	}
}

// genCallOp emits the argument count push and the call itself.
func (g *codeGenerator) genCallOp(name string, argc int) {
	g.node.Emit(bytecode.OpPushFloat, bytecode.FloatOperand(float64(argc)))
	g.node.Emit(bytecode.OpCallFunc, bytecode.StringOperand(name))
}
