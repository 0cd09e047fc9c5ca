package compiler

import "testing"

// tokenize runs the lexer to EOF.
func tokenize(t *testing.T, input string) []Token {
	t.Helper()
	lexer := NewLexer(input, Position{Line: 1, Column: 1})
	var tokens []Token
	for {
		token := lexer.NextToken()
		if token.Type == TokenEOF {
			return tokens
		}
		tokens = append(tokens, token)
		if len(tokens) > 100 {
			t.Fatal("lexer did not terminate")
		}
	}
}

func TestLexerOperators(t *testing.T) {
	tokens := tokenize(t, "+ - * / % == != < <= > >= && || ! =")
	want := []TokenType{
		TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent,
		TokenEq, TokenNeq, TokenLt, TokenLte, TokenGt, TokenGte,
		TokenAnd, TokenOr, TokenNot, TokenAssign,
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, tt := range want {
		if tokens[i].Type != tt {
			t.Errorf("token %d = %v, want %v", i, tokens[i].Type, tt)
		}
	}
}

func TestLexerWordOperatorsAndLiterals(t *testing.T) {
	tokens := tokenize(t, `not $seen and true or false`)
	want := []TokenType{TokenNot, TokenVariable, TokenAnd, TokenTrue, TokenOr, TokenFalse}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, tt := range want {
		if tokens[i].Type != tt {
			t.Errorf("token %d = %v, want %v", i, tokens[i].Type, tt)
		}
	}
	if tokens[1].Literal != "$seen" {
		t.Errorf("variable literal = %q, want $seen", tokens[1].Literal)
	}
}

func TestLexerNumbers(t *testing.T) {
	tokens := tokenize(t, "42 3.14 0.5")
	if len(tokens) != 3 {
		t.Fatalf("got %d tokens, want 3", len(tokens))
	}
	for i, want := range []string{"42", "3.14", "0.5"} {
		if tokens[i].Type != TokenNumber || tokens[i].Literal != want {
			t.Errorf("token %d = %v %q, want NUMBER %q", i, tokens[i].Type, tokens[i].Literal, want)
		}
	}
}

func TestLexerStrings(t *testing.T) {
	tokens := tokenize(t, `"hello world" "with \"quotes\" and \n"`)
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(tokens))
	}
	if tokens[0].Literal != "hello world" {
		t.Errorf("first string = %q", tokens[0].Literal)
	}
	if tokens[1].Literal != "with \"quotes\" and \n" {
		t.Errorf("second string = %q", tokens[1].Literal)
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	tokens := tokenize(t, `"oops`)
	if len(tokens) != 1 || tokens[0].Type != TokenError {
		t.Fatalf("tokens = %v, want one error token", tokens)
	}
}

func TestLexerCall(t *testing.T) {
	tokens := tokenize(t, `visited("Cave")`)
	want := []TokenType{TokenIdentifier, TokenLParen, TokenString, TokenRParen}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	if tokens[0].Literal != "visited" || tokens[2].Literal != "Cave" {
		t.Errorf("literals = %q, %q", tokens[0].Literal, tokens[2].Literal)
	}
}

func TestLexerPositions(t *testing.T) {
	lexer := NewLexer("$a + 1", Position{Line: 7, Column: 10})
	first := lexer.NextToken()
	if first.Pos.Line != 7 || first.Pos.Column != 10 {
		t.Errorf("first token at %v, want 7:10", first.Pos)
	}
	second := lexer.NextToken()
	if second.Pos.Column != 13 {
		t.Errorf("second token at column %d, want 13", second.Pos.Column)
	}
}

func TestLexerBadVariable(t *testing.T) {
	tokens := tokenize(t, "$ 1")
	if tokens[0].Type != TokenError {
		t.Errorf("token = %v, want error for bare $", tokens[0])
	}
}
