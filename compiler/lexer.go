package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: tokenizer for the expression sublanguage
// ---------------------------------------------------------------------------

// The dialogue language is line-oriented; expressions only appear inside
// `{...}` interpolations and `<<...>>` directives. The lexer therefore
// tokenizes an expression fragment, carrying the fragment's position within
// its file so tokens report real source locations.

// Lexer tokenizes one expression fragment.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character

	line int // current line (1-based, fixed: fragments never span lines)
	col  int // current column (1-based)
}

// NewLexer creates a lexer for an expression fragment located at the given
// file position.
func NewLexer(input string, at Position) *Lexer {
	l := &Lexer{
		input: input,
		line:  at.Line,
		// readChar advances col before the first character is current.
		col: at.Column - 1,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
	} else {
		r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
		l.ch = r
		l.pos = l.readPos
		l.readPos += size
		l.col++
	}
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{Line: l.line, Column: l.col}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	for l.ch == ' ' || l.ch == '\t' {
		l.readChar()
	}

	pos := l.position()

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Pos: pos}

	case l.ch == '(':
		l.readChar()
		return Token{Type: TokenLParen, Literal: "(", Pos: pos}

	case l.ch == ')':
		l.readChar()
		return Token{Type: TokenRParen, Literal: ")", Pos: pos}

	case l.ch == ',':
		l.readChar()
		return Token{Type: TokenComma, Literal: ",", Pos: pos}

	case l.ch == '+':
		l.readChar()
		return Token{Type: TokenPlus, Literal: "+", Pos: pos}

	case l.ch == '-':
		l.readChar()
		return Token{Type: TokenMinus, Literal: "-", Pos: pos}

	case l.ch == '*':
		l.readChar()
		return Token{Type: TokenStar, Literal: "*", Pos: pos}

	case l.ch == '/':
		l.readChar()
		return Token{Type: TokenSlash, Literal: "/", Pos: pos}

	case l.ch == '%':
		l.readChar()
		return Token{Type: TokenPercent, Literal: "%", Pos: pos}

	case l.ch == '=':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenEq, Literal: "==", Pos: pos}
		}
		return Token{Type: TokenAssign, Literal: "=", Pos: pos}

	case l.ch == '!':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenNeq, Literal: "!=", Pos: pos}
		}
		return Token{Type: TokenNot, Literal: "!", Pos: pos}

	case l.ch == '<':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenLte, Literal: "<=", Pos: pos}
		}
		return Token{Type: TokenLt, Literal: "<", Pos: pos}

	case l.ch == '>':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenGte, Literal: ">=", Pos: pos}
		}
		return Token{Type: TokenGt, Literal: ">", Pos: pos}

	case l.ch == '&':
		l.readChar()
		if l.ch == '&' {
			l.readChar()
			return Token{Type: TokenAnd, Literal: "&&", Pos: pos}
		}
		return Token{Type: TokenError, Literal: "unexpected '&'", Pos: pos}

	case l.ch == '|':
		l.readChar()
		if l.ch == '|' {
			l.readChar()
			return Token{Type: TokenOr, Literal: "||", Pos: pos}
		}
		return Token{Type: TokenError, Literal: "unexpected '|'", Pos: pos}

	case l.ch == '"':
		return l.readString(pos)

	case l.ch == '$':
		return l.readVariable(pos)

	case unicode.IsDigit(l.ch):
		return l.readNumber(pos)

	case isIdentStart(l.ch):
		return l.readIdentifier(pos)

	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character %q", ch), Pos: pos}
	}
}

// readString reads a double-quoted string literal with backslash escapes.
func (l *Lexer) readString(pos Position) Token {
	l.readChar() // consume opening quote
	var sb strings.Builder
	for l.ch != '"' {
		if l.ch == 0 {
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '\\', '"':
				sb.WriteRune(l.ch)
			default:
				return Token{Type: TokenError, Literal: fmt.Sprintf("invalid escape \\%c", l.ch), Pos: pos}
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote
	return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
}

// readVariable reads a $name variable reference.
func (l *Lexer) readVariable(pos Position) Token {
	start := l.pos
	l.readChar() // consume '$'
	if !isIdentStart(l.ch) {
		return Token{Type: TokenError, Literal: "'$' must be followed by a variable name", Pos: pos}
	}
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return Token{Type: TokenVariable, Literal: l.input[start:l.pos], Pos: pos}
}

// readNumber reads an integer or decimal literal.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	for unicode.IsDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		l.readChar()
		for unicode.IsDigit(l.ch) {
			l.readChar()
		}
	}
	return Token{Type: TokenNumber, Literal: l.input[start:l.pos], Pos: pos}
}

// readIdentifier reads an identifier, word operator, or reserved word.
func (l *Lexer) readIdentifier(pos Position) Token {
	start := l.pos
	for isIdentPart(l.ch) {
		l.readChar()
	}
	literal := l.input[start:l.pos]
	if t, ok := reservedWords[literal]; ok {
		return Token{Type: t, Literal: literal, Pos: pos}
	}
	if t, ok := wordOperators[literal]; ok {
		return Token{Type: t, Literal: literal, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: literal, Pos: pos}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
