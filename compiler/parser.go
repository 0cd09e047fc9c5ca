package compiler

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: line-oriented recursive descent for dialogue source
// ---------------------------------------------------------------------------

// A file is a sequence of node blocks:
//
//	title: NodeName
//	tags: a b
//	---
//	body
//	===
//
// Body statements are distinguished by their first characters: "->" starts
// an option, "<<" a directive, anything else is a narrative line. Option
// bodies nest by indentation. Parse problems become Error diagnostics; the
// parser always produces as much tree as it can.

// sourceLine is one significant line of input.
type sourceLine struct {
	text   string // content with indentation stripped
	indent int    // leading whitespace width (tab = 4)
	num    int    // 1-based line number
	col    int    // 1-based column of the first content character
}

func (l sourceLine) pos() Position {
	return Position{Line: l.num, Column: l.col}
}

// Parser parses one source file.
type Parser struct {
	file        string
	lines       []sourceLine
	cursor      int
	diagnostics []Diagnostic
}

// NewParser creates a parser for the given file.
func NewParser(fileName, source string) *Parser {
	p := &Parser{file: fileName}
	for i, raw := range strings.Split(source, "\n") {
		indent := 0
		col := 1
		content := raw
		for _, r := range raw {
			if r == ' ' {
				indent++
				col++
			} else if r == '\t' {
				indent += 4
				col++
			} else {
				break
			}
		}
		content = strings.TrimRight(strings.TrimLeft(raw, " \t"), " \t\r")
		if content == "" || strings.HasPrefix(content, "//") {
			continue
		}
		p.lines = append(p.lines, sourceLine{
			text:   content,
			indent: indent,
			num:    i + 1,
			col:    col,
		})
	}
	return p
}

// Parse consumes the whole file and returns the tree plus diagnostics.
func (p *Parser) Parse() (*File, []Diagnostic) {
	file := &File{Name: p.file}
	for p.peek() != nil {
		node := p.parseNode()
		if node != nil {
			file.Nodes = append(file.Nodes, node)
		}
	}
	return file, p.diagnostics
}

func (p *Parser) peek() *sourceLine {
	if p.cursor >= len(p.lines) {
		return nil
	}
	return &p.lines[p.cursor]
}

func (p *Parser) advance() sourceLine {
	line := p.lines[p.cursor]
	p.cursor++
	return line
}

func (p *Parser) errorf(pos Position, format string, args ...any) {
	p.diagnostics = append(p.diagnostics, errorAt(p.file, pos, format, args...))
}

// parseNode parses one header block plus body. Returns nil when the block
// is malformed beyond recovery; the cursor always makes progress.
func (p *Parser) parseNode() *NodeDecl {
	node := &NodeDecl{Headers: make(map[string]string)}

	// Headers until the --- delimiter.
	sawDelimiter := false
	for p.peek() != nil {
		line := p.advance()
		if line.text == "---" {
			sawDelimiter = true
			break
		}
		key, value, ok := strings.Cut(line.text, ":")
		if !ok {
			p.errorf(line.pos(), "expected a 'key: value' header or '---', got %q", line.text)
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if _, dup := node.Headers[key]; dup {
			p.errorf(line.pos(), "duplicate header %q", key)
			continue
		}
		node.Headers[key] = value
		switch key {
		case "title":
			node.Title = value
			node.TitlePos = line.pos()
		case "tags":
			node.Tags = strings.Fields(value)
		case "tracking":
			if value != "always" && value != "never" {
				p.diagnostics = append(p.diagnostics, warningAt(p.file, line.pos(),
					"tracking header %q has no effect; use always or never", value))
			}
		}
	}

	if node.Title == "" {
		pos := Position{Line: 1, Column: 1}
		if len(p.lines) > 0 {
			pos = p.lines[0].pos()
		}
		p.errorf(pos, "node is missing a title header")
	}
	if !sawDelimiter {
		p.errorf(node.TitlePos, "node %q has no '---' body delimiter", node.Title)
		return nil
	}

	node.Body = p.parseStatements(0)

	// Consume the === terminator.
	if line := p.peek(); line != nil && line.text == "===" {
		p.advance()
	} else {
		p.errorf(node.TitlePos, "node %q has no '===' terminator", node.Title)
	}

	if node.Title == "" {
		return nil
	}
	return node
}

// blockTerminators are directives that close an enclosing construct rather
// than starting a statement.
func isBlockTerminator(text string) bool {
	switch directiveKeyword(text) {
	case "elseif", "else", "endif":
		return true
	}
	return text == "==="
}

// directiveKeyword returns the first word inside a <<...>> directive, or "".
func directiveKeyword(text string) string {
	if !strings.HasPrefix(text, "<<") {
		return ""
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(text, "<<"), ">>")
	fields := strings.Fields(inner)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// parseStatements parses statements at or beyond minIndent until a
// terminator, a dedent, or end of input.
func (p *Parser) parseStatements(minIndent int) []Statement {
	var statements []Statement
	for {
		line := p.peek()
		if line == nil || isBlockTerminator(line.text) || line.indent < minIndent {
			break
		}
		switch {
		case strings.HasPrefix(line.text, "->"):
			statements = append(statements, p.parseOptionGroup(line.indent))
		case directiveKeyword(line.text) == "if":
			statements = append(statements, p.parseIf(line.indent))
		case strings.HasPrefix(line.text, "<<"):
			if s := p.parseDirective(p.advance()); s != nil {
				statements = append(statements, s)
			}
		default:
			statements = append(statements, p.parseLine(p.advance()))
		}
	}
	return statements
}

// parseOptionGroup collects consecutive -> options at the same indent.
func (p *Parser) parseOptionGroup(indent int) *OptionGroup {
	group := &OptionGroup{}
	for {
		line := p.peek()
		if line == nil || line.indent != indent || !strings.HasPrefix(line.text, "->") {
			break
		}
		group.Options = append(group.Options, p.parseOption(p.advance()))
	}
	return group
}

// parseOption parses one `-> text <<if cond>> #tags` line and its indented
// body.
func (p *Parser) parseOption(line sourceLine) *OptionStatement {
	option := &OptionStatement{LinePos: line.pos()}

	text := strings.TrimSpace(strings.TrimPrefix(line.text, "->"))
	offset := line.col + (len(line.text) - len(text))

	text, option.ExplicitID, option.Tags = p.splitHashtags(text)

	// A trailing <<if expr>> is the option's availability condition.
	if idx := strings.LastIndex(text, "<<if "); idx >= 0 && strings.HasSuffix(strings.TrimSpace(text), ">>") {
		condition := strings.TrimSpace(text[idx:])
		condition = strings.TrimSuffix(strings.TrimPrefix(condition, "<<if "), ">>")
		option.Condition = p.parseExpressionAt(condition, Position{Line: line.num, Column: offset + idx + 5})
		text = strings.TrimSpace(text[:idx])
	}

	option.Parts = p.parseTextParts(text, Position{Line: line.num, Column: offset})
	option.Body = p.parseStatements(line.indent+1)
	return option
}

// parseIf parses an if/elseif/else/endif construct whose arms sit at the
// given indent.
func (p *Parser) parseIf(indent int) *IfStatement {
	statement := &IfStatement{}
	line := p.advance() // the <<if ...>> line
	sawElse := false

	condition := p.directiveExpression(line, "if")
	statement.Clauses = append(statement.Clauses, IfClause{
		Condition: condition,
		Body:      p.parseStatements(indent),
		ClausePos: line.pos(),
	})

	for {
		next := p.peek()
		if next == nil {
			p.errorf(line.pos(), "<<if>> has no matching <<endif>>")
			return statement
		}
		switch directiveKeyword(next.text) {
		case "elseif":
			arm := p.advance()
			if sawElse {
				p.errorf(arm.pos(), "<<elseif>> after <<else>>")
			}
			statement.Clauses = append(statement.Clauses, IfClause{
				Condition: p.directiveExpression(arm, "elseif"),
				Body:      p.parseStatements(indent),
				ClausePos: arm.pos(),
			})
		case "else":
			arm := p.advance()
			if sawElse {
				p.errorf(arm.pos(), "duplicate <<else>>")
			}
			sawElse = true
			statement.Clauses = append(statement.Clauses, IfClause{
				Condition: nil,
				Body:      p.parseStatements(indent),
				ClausePos: arm.pos(),
			})
		case "endif":
			p.advance()
			return statement
		default:
			p.errorf(next.pos(), "expected <<elseif>>, <<else>>, or <<endif>>, got %q", next.text)
			return statement
		}
	}
}

// directiveExpression parses the expression following a directive keyword.
func (p *Parser) directiveExpression(line sourceLine, keyword string) Expression {
	inner := strings.TrimSuffix(strings.TrimPrefix(line.text, "<<"), ">>")
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(inner), keyword))
	if rest == "" {
		p.errorf(line.pos(), "<<%s>> requires a condition", keyword)
		return &BoolLiteral{Value: false, LiteralPos: line.pos()}
	}
	offset := strings.Index(line.text, rest)
	return p.parseExpressionAt(rest, Position{Line: line.num, Column: line.col + offset})
}

// parseDirective parses a non-structural <<...>> line.
func (p *Parser) parseDirective(line sourceLine) Statement {
	if !strings.HasSuffix(line.text, ">>") {
		p.errorf(line.pos(), "directive is missing '>>'")
		return nil
	}
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line.text, "<<"), ">>"))
	if inner == "" {
		p.errorf(line.pos(), "empty directive")
		return nil
	}
	keyword, rest, _ := strings.Cut(inner, " ")
	rest = strings.TrimSpace(rest)

	switch keyword {
	case "set":
		return p.parseSet(line, rest)
	case "declare":
		return p.parseDeclare(line, rest)
	case "jump":
		if rest == "" {
			p.errorf(line.pos(), "<<jump>> requires a node name")
			return nil
		}
		return &JumpStatement{Target: rest, JumpPos: line.pos()}
	case "stop":
		return &StopStatement{StopPos: line.pos()}
	default:
		return &CommandStatement{
			Parts:      p.parseTextParts(inner, Position{Line: line.num, Column: line.col + 2}),
			CommandPos: line.pos(),
		}
	}
}

// parseSet parses `set $var to expr` (or `set $var = expr`).
func (p *Parser) parseSet(line sourceLine, rest string) Statement {
	variable, expr, ok := strings.Cut(rest, " ")
	if !ok || !strings.HasPrefix(variable, "$") {
		p.errorf(line.pos(), "<<set>> requires the form 'set $variable to expression'")
		return nil
	}
	expr = strings.TrimSpace(expr)
	if after, found := strings.CutPrefix(expr, "to "); found {
		expr = after
	} else if after, found := strings.CutPrefix(expr, "= "); found {
		expr = after
	} else {
		p.errorf(line.pos(), "<<set>> requires 'to' between variable and expression")
		return nil
	}
	expr = strings.TrimSpace(expr)
	offset := strings.LastIndex(line.text, expr)
	return &SetStatement{
		Variable: variable,
		Value:    p.parseExpressionAt(expr, Position{Line: line.num, Column: line.col + offset}),
		SetPos:   line.pos(),
	}
}

// parseDeclare parses `declare $var = literal as type`; the `as` clause is
// optional.
func (p *Parser) parseDeclare(line sourceLine, rest string) Statement {
	variable, tail, ok := strings.Cut(rest, "=")
	variable = strings.TrimSpace(variable)
	if !ok || !strings.HasPrefix(variable, "$") {
		p.errorf(line.pos(), "<<declare>> requires the form 'declare $variable = value as type'")
		return nil
	}
	tail = strings.TrimSpace(tail)

	typeName := ""
	if idx := strings.LastIndex(tail, " as "); idx >= 0 {
		typeName = strings.TrimSpace(tail[idx+4:])
		tail = strings.TrimSpace(tail[:idx])
	}
	offset := strings.Index(line.text, tail)
	value := p.parseExpressionAt(tail, Position{Line: line.num, Column: line.col + offset})
	return &DeclareStatement{
		Variable:   variable,
		Default:    value,
		TypeName:   typeName,
		DeclarePos: line.pos(),
	}
}

// parseLine parses a narrative text line.
func (p *Parser) parseLine(line sourceLine) *LineStatement {
	statement := &LineStatement{LinePos: line.pos()}
	text, explicitID, tags := p.splitHashtags(line.text)
	statement.ExplicitID = explicitID
	statement.Tags = tags
	statement.Parts = p.parseTextParts(text, line.pos())
	return statement
}

// splitHashtags strips trailing #hashtags, extracting a #line:id if present.
func (p *Parser) splitHashtags(text string) (remaining, explicitID string, tags []string) {
	remaining = text
	for {
		idx := strings.LastIndex(remaining, " #")
		if idx < 0 {
			break
		}
		tag := strings.TrimSpace(remaining[idx+2:])
		if tag == "" || strings.ContainsAny(tag, " {}") {
			break
		}
		if id, found := strings.CutPrefix(tag, "line:"); found {
			explicitID = "line:" + id
		} else {
			tags = append([]string{tag}, tags...)
		}
		remaining = strings.TrimRight(remaining[:idx], " \t")
	}
	return remaining, explicitID, tags
}

// parseTextParts splits text into literal fragments and {expr}
// interpolations.
func (p *Parser) parseTextParts(text string, at Position) []TextPart {
	var parts []TextPart
	var literal strings.Builder
	col := at.Column

	flush := func() {
		if literal.Len() > 0 {
			parts = append(parts, TextPart{Literal: literal.String()})
			literal.Reset()
		}
	}

	i := 0
	for i < len(text) {
		ch := text[i]
		if ch == '\\' && i+1 < len(text) && (text[i+1] == '{' || text[i+1] == '}') {
			literal.WriteByte(text[i+1])
			i += 2
			col += 2
			continue
		}
		if ch == '{' {
			end := strings.IndexByte(text[i:], '}')
			if end < 0 {
				p.errorf(Position{Line: at.Line, Column: col}, "unterminated '{' interpolation")
				literal.WriteString(text[i:])
				break
			}
			flush()
			inner := text[i+1 : i+end]
			expr := p.parseExpressionAt(inner, Position{Line: at.Line, Column: col + 1})
			parts = append(parts, TextPart{Expression: expr})
			i += end + 1
			col += end + 1
			continue
		}
		literal.WriteByte(ch)
		i++
		col++
	}
	flush()
	return parts
}

// ---------------------------------------------------------------------------
// Expression parsing (precedence climbing)
// ---------------------------------------------------------------------------

// binaryPrecedence orders the binary operators; higher binds tighter.
func binaryPrecedence(t TokenType) int {
	switch t {
	case TokenOr:
		return 1
	case TokenAnd:
		return 2
	case TokenEq, TokenNeq:
		return 3
	case TokenLt, TokenLte, TokenGt, TokenGte:
		return 4
	case TokenPlus, TokenMinus:
		return 5
	case TokenStar, TokenSlash, TokenPercent:
		return 6
	default:
		return 0
	}
}

// exprParser walks the token stream of one expression fragment.
type exprParser struct {
	parent *Parser
	lexer  *Lexer
	tok    Token
	failed bool
}

// parseExpressionAt parses a fragment located at the given position.
// A failed parse reports a diagnostic and yields a false literal so later
// passes have something well-formed to walk.
func (p *Parser) parseExpressionAt(fragment string, at Position) Expression {
	ep := &exprParser{parent: p, lexer: NewLexer(fragment, at)}
	ep.next()
	expr := ep.parseBinary(0)
	if ep.tok.Type != TokenEOF && !ep.failed {
		ep.fail(ep.tok.Pos, "unexpected %s after expression", ep.tok)
	}
	if expr == nil {
		return &BoolLiteral{Value: false, LiteralPos: at}
	}
	return expr
}

func (ep *exprParser) next() {
	ep.tok = ep.lexer.NextToken()
}

func (ep *exprParser) fail(pos Position, format string, args ...any) {
	if ep.failed {
		return
	}
	ep.failed = true
	ep.parent.errorf(pos, format, args...)
}

func (ep *exprParser) parseBinary(minPrecedence int) Expression {
	left := ep.parseUnary()
	if left == nil {
		return nil
	}
	for {
		precedence := binaryPrecedence(ep.tok.Type)
		if precedence == 0 || precedence < minPrecedence {
			return left
		}
		op := ep.tok.Type
		ep.next()
		right := ep.parseBinary(precedence + 1)
		if right == nil {
			return left
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (ep *exprParser) parseUnary() Expression {
	switch ep.tok.Type {
	case TokenMinus, TokenNot:
		op := ep.tok.Type
		pos := ep.tok.Pos
		ep.next()
		operand := ep.parseUnary()
		if operand == nil {
			return nil
		}
		return &UnaryExpr{Op: op, Operand: operand, OpPos: pos}
	default:
		return ep.parsePrimary()
	}
}

func (ep *exprParser) parsePrimary() Expression {
	tok := ep.tok
	switch tok.Type {
	case TokenNumber:
		value, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			ep.fail(tok.Pos, "invalid number %q", tok.Literal)
			return nil
		}
		ep.next()
		return &NumberLiteral{Value: value, LiteralPos: tok.Pos}

	case TokenString:
		ep.next()
		return &StringLiteral{Value: tok.Literal, LiteralPos: tok.Pos}

	case TokenTrue:
		ep.next()
		return &BoolLiteral{Value: true, LiteralPos: tok.Pos}

	case TokenFalse:
		ep.next()
		return &BoolLiteral{Value: false, LiteralPos: tok.Pos}

	case TokenVariable:
		ep.next()
		return &VariableExpr{Name: tok.Literal, VariablePos: tok.Pos}

	case TokenIdentifier:
		ep.next()
		if ep.tok.Type != TokenLParen {
			ep.fail(tok.Pos, "unexpected identifier %q; did you mean a function call or $%s?", tok.Literal, tok.Literal)
			return nil
		}
		return ep.parseCall(tok)

	case TokenLParen:
		ep.next()
		inner := ep.parseBinary(0)
		if ep.tok.Type != TokenRParen {
			ep.fail(ep.tok.Pos, "expected ')', got %s", ep.tok)
			return inner
		}
		ep.next()
		return inner

	case TokenError:
		ep.fail(tok.Pos, "%s", tok.Literal)
		return nil

	default:
		ep.fail(tok.Pos, "expected an expression, got %s", tok)
		return nil
	}
}

// parseCall parses `name(args...)`; the name token is already consumed and
// the current token is '('.
func (ep *exprParser) parseCall(name Token) Expression {
	call := &CallExpr{Name: name.Literal, CallPos: name.Pos}
	ep.next() // consume '('
	if ep.tok.Type == TokenRParen {
		ep.next()
		return call
	}
	for {
		arg := ep.parseBinary(0)
		if arg == nil {
			return call
		}
		call.Args = append(call.Args, arg)
		switch ep.tok.Type {
		case TokenComma:
			ep.next()
		case TokenRParen:
			ep.next()
			return call
		default:
			ep.fail(ep.tok.Pos, "expected ',' or ')' in argument list, got %s", ep.tok)
			return call
		}
	}
}
