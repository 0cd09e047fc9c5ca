package compiler

// ---------------------------------------------------------------------------
// AST: syntax tree for parsed dialogue files
// ---------------------------------------------------------------------------

// SyntaxNode is implemented by every element of the tree.
type SyntaxNode interface {
	Pos() Position
}

// File is the parsed form of one source file.
type File struct {
	Name  string
	Nodes []*NodeDecl
}

// NodeDecl is one `title: ... --- ... ===` block.
type NodeDecl struct {
	Title    string
	Headers  map[string]string // all headers, including title
	Tags     []string          // from the "tags" header, space-separated
	Body     []Statement
	TitlePos Position
}

func (n *NodeDecl) Pos() Position { return n.TitlePos }

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Statement is one executable element of a node body.
type Statement interface {
	SyntaxNode
	statementNode()
}

// TextPart is a fragment of an author-visible line: either literal text or
// an interpolated expression.
type TextPart struct {
	Literal    string
	Expression Expression // nil for literal parts
}

// LineStatement is a plain narrative line.
type LineStatement struct {
	Parts      []TextPart
	ExplicitID string   // from a #line:id hashtag, "" if implicit
	Tags       []string // remaining hashtags
	LinePos    Position

	assignedID string // filled in during string registration
}

func (s *LineStatement) Pos() Position  { return s.LinePos }
func (s *LineStatement) statementNode() {}

// OptionGroup is a run of consecutive `->` options presented together.
type OptionGroup struct {
	Options []*OptionStatement
}

func (s *OptionGroup) Pos() Position  { return s.Options[0].LinePos }
func (s *OptionGroup) statementNode() {}

// OptionStatement is one `->` choice and its indented body.
type OptionStatement struct {
	Parts      []TextPart
	ExplicitID string
	Tags       []string
	Condition  Expression // from a trailing <<if expr>>, nil if absent
	Body       []Statement
	LinePos    Position

	assignedID string // filled in during string registration
}

func (s *OptionStatement) Pos() Position  { return s.LinePos }
func (s *OptionStatement) statementNode() {}

// SetStatement is `<<set $var to expr>>`.
type SetStatement struct {
	Variable string // including the $ prefix
	Value    Expression
	SetPos   Position
}

func (s *SetStatement) Pos() Position  { return s.SetPos }
func (s *SetStatement) statementNode() {}

// DeclareStatement is `<<declare $var = literal as type>>`; the type clause
// is optional when the literal fixes it.
type DeclareStatement struct {
	Variable   string
	Default    Expression // literal expression
	TypeName   string     // "string", "number", "boolean", or ""
	DeclarePos Position
}

func (s *DeclareStatement) Pos() Position  { return s.DeclarePos }
func (s *DeclareStatement) statementNode() {}

// IfClause is one condition/body arm of an IfStatement.
type IfClause struct {
	Condition Expression // nil for the else arm
	Body      []Statement
	ClausePos Position
}

// IfStatement is `<<if>> ... <<elseif>> ... <<else>> ... <<endif>>`.
type IfStatement struct {
	Clauses []IfClause // ordered; a final nil-condition clause is the else
}

func (s *IfStatement) Pos() Position  { return s.Clauses[0].ClausePos }
func (s *IfStatement) statementNode() {}

// JumpStatement is `<<jump Node>>`.
type JumpStatement struct {
	Target  string
	JumpPos Position
}

func (s *JumpStatement) Pos() Position  { return s.JumpPos }
func (s *JumpStatement) statementNode() {}

// StopStatement is `<<stop>>`.
type StopStatement struct {
	StopPos Position
}

func (s *StopStatement) Pos() Position  { return s.StopPos }
func (s *StopStatement) statementNode() {}

// CommandStatement is any other `<<...>>` directive, delivered verbatim to
// the embedder with interpolations substituted.
type CommandStatement struct {
	Parts      []TextPart
	CommandPos Position
}

func (s *CommandStatement) Pos() Position  { return s.CommandPos }
func (s *CommandStatement) statementNode() {}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Expression is a node of the expression sublanguage.
type Expression interface {
	SyntaxNode
	expressionNode()
}

// NumberLiteral is a numeric constant.
type NumberLiteral struct {
	Value      float64
	LiteralPos Position
}

func (e *NumberLiteral) Pos() Position   { return e.LiteralPos }
func (e *NumberLiteral) expressionNode() {}

// StringLiteral is a quoted string constant.
type StringLiteral struct {
	Value      string
	LiteralPos Position
}

func (e *StringLiteral) Pos() Position   { return e.LiteralPos }
func (e *StringLiteral) expressionNode() {}

// BoolLiteral is true or false.
type BoolLiteral struct {
	Value      bool
	LiteralPos Position
}

func (e *BoolLiteral) Pos() Position   { return e.LiteralPos }
func (e *BoolLiteral) expressionNode() {}

// VariableExpr is a $variable reference.
type VariableExpr struct {
	Name        string // including the $ prefix
	VariablePos Position
}

func (e *VariableExpr) Pos() Position   { return e.VariablePos }
func (e *VariableExpr) expressionNode() {}

// UnaryExpr is `-x` or `not x`.
type UnaryExpr struct {
	Op      TokenType // TokenMinus or TokenNot
	Operand Expression
	OpPos   Position
}

func (e *UnaryExpr) Pos() Position   { return e.OpPos }
func (e *UnaryExpr) expressionNode() {}

// BinaryExpr is a binary operator application.
type BinaryExpr struct {
	Op    TokenType
	Left  Expression
	Right Expression
}

func (e *BinaryExpr) Pos() Position   { return e.Left.Pos() }
func (e *BinaryExpr) expressionNode() {}

// CallExpr is a function call `name(args...)`.
type CallExpr struct {
	Name    string
	Args    []Expression
	CallPos Position
}

func (e *CallExpr) Pos() Position   { return e.CallPos }
func (e *CallExpr) expressionNode() {}
