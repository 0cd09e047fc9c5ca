package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the expression lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of an expression token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenNumber     // 42, 3.14
	TokenString     // "hello"
	TokenTrue       // true
	TokenFalse      // false
	TokenVariable   // $name
	TokenIdentifier // visited, to, as, number

	// Operators
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenSlash   // /
	TokenPercent // %
	TokenEq      // ==
	TokenNeq     // !=
	TokenLt      // <
	TokenLte     // <=
	TokenGt      // >
	TokenGte     // >=
	TokenAnd     // && or and
	TokenOr      // || or or
	TokenNot     // ! or not
	TokenAssign  // = (in declare)

	// Delimiters
	TokenLParen // (
	TokenRParen // )
	TokenComma  // ,
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenNumber:     "NUMBER",
	TokenString:     "STRING",
	TokenTrue:       "true",
	TokenFalse:      "false",
	TokenVariable:   "VARIABLE",
	TokenIdentifier: "IDENTIFIER",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenPercent:    "%",
	TokenEq:         "==",
	TokenNeq:        "!=",
	TokenLt:         "<",
	TokenLte:        "<=",
	TokenGt:         ">",
	TokenGte:        ">=",
	TokenAnd:        "&&",
	TokenOr:         "||",
	TokenNot:        "!",
	TokenAssign:     "=",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenComma:      ",",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Position is a location in a source file.
type Position struct {
	Line   int // 1-based
	Column int // 1-based
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents one lexical token of an expression.
type Token struct {
	Type    TokenType
	Literal string // raw text; string tokens hold the unquoted value
	Pos     Position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Word operators mapped to their token types. The expression grammar
// accepts both symbolic and word forms.
var wordOperators = map[string]TokenType{
	"and": TokenAnd,
	"or":  TokenOr,
	"not": TokenNot,
}

// Reserved literal words.
var reservedWords = map[string]TokenType{
	"true":  TokenTrue,
	"false": TokenFalse,
}
