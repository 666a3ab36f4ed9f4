package lexer

import "testing"

func TestLexerQuoteLike(t *testing.T) {
	tests := []struct {
		input string
		kind  TokenKind
	}{
		{"q(a (b) c)", TokenString},
		{"q{a}", TokenString},
		{"qq{a {nested} $x}", TokenString},
		{"qq'no $interp'", TokenString},
		{"qw/a b c/", TokenQuoteWords},
		{"qw(a b)", TokenQuoteWords},
		{"qx{ls -l}", TokenCommand},
		{"qr/a+/i", TokenRegex},
		{"m[x]i", TokenRegex},
		{"m!a/b!", TokenRegex},
		{"s/a/b/g", TokenSubstitution},
		{"s{a}{b}e", TokenSubstitution},
		{"s{a} {b}", TokenSubstitution},
		{"s(a)[b]", TokenSubstitution},
		{"s#a#b#", TokenSubstitution},
		{"tr/a-z/A-Z/", TokenTransliteration},
		{"y/a/b/", TokenTransliteration},
		{"q /spaced/", TokenString},
		{`q(a\)b)`, TokenString},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := lex(tt.input)
			if len(got) != 1 {
				t.Fatalf("lex(%q) = %v, want one token", tt.input, got)
			}
			if got[0].kind != tt.kind || got[0].text != tt.input {
				t.Errorf("lex(%q) = {%v %q}, want {%v %q}", tt.input, got[0].kind, got[0].text, tt.kind, tt.input)
			}
		})
	}
}

func TestLexerQuoteOperatorAsWord(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []lexed
	}{
		{"hash key", "$h{s}", []lexed{
			{TokenVariable, "$h"}, {TokenLBrace, "{"}, {TokenIdent, "s"}, {TokenRBrace, "}"},
		}},
		{"fat comma", "(y => 1)", []lexed{
			{TokenLParen, "("}, {TokenIdent, "y"}, {TokenFatComma, "=>"}, {TokenNumber, "1"}, {TokenRParen, ")"},
		}},
		{"followed by comma", "(q, 1)", []lexed{
			{TokenLParen, "("}, {TokenIdent, "q"}, {TokenComma, ","}, {TokenNumber, "1"}, {TokenRParen, ")"},
		}},
		{"method name", "$o->s(1)", []lexed{
			{TokenVariable, "$o"}, {TokenArrow, "->"}, {TokenIdent, "s"}, {TokenLParen, "("},
			{TokenNumber, "1"}, {TokenRParen, ")"},
		}},
		{"comment after space", "q #x\n", []lexed{
			{TokenIdent, "q"}, {TokenComment, "#x"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTokens(t, tt.input, tt.want)
		})
	}
}

func TestScanSubstitutionRejectsOtherOperators(t *testing.T) {
	for _, op := range []string{"q", "qq", "m", "qr", "tx", ""} {
		t.Run(op, func(t *testing.T) {
			l := New([]byte(op + "/a/b/"))
			start := l.Position()
			l.advanceN(len(op))
			tok := l.scanSubstitution(start, op)

			if tok.Kind != TokenError {
				t.Fatalf("Kind = %v, want Error", tok.Kind)
			}
			want := "unexpected substitution operator '" + op + "': expected 's', 'tr', or 'y' at position 0"
			if tok.Message != want {
				t.Errorf("Message = %q, want %q", tok.Message, want)
			}
			// The error covers the operator and nothing else.
			if want := max(len(op), 1); tok.End() != want {
				t.Errorf("End() = %d, want %d", tok.End(), want)
			}
		})
	}
}

func TestCheckEscapes(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`plain`, ""},
		{`\n\t\\`, ""},
		{`\x41`, ""},
		{`\x{1F600}`, ""},
		{`\N{U+263A}`, ""},
		{`\o{777}`, ""},
		{`\x{}`, `invalid escape sequence '\x{}'`},
		{`\x{12g}`, `invalid escape sequence '\x{12g}'`},
		{`\o{89}`, `invalid escape sequence '\o{89}'`},
		{`\N{abc`, `invalid escape sequence '\N{': missing closing '}'`},
		{`abc\`, "invalid escape sequence: trailing backslash"},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			if got := checkEscapes([]byte(tt.body)); got != tt.want {
				t.Errorf("checkEscapes(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestFindClose(t *testing.T) {
	tests := []struct {
		input string
		open  byte
		want  int
		ok    bool
	}{
		{"abc/", '/', 3, true},
		{`a\/b/`, '/', 4, true},
		{"a(b)c)", '(', 5, true},
		{"a<b>>", '<', 4, true},
		{"abc", '/', -1, false},
		{"a{b}", '{', -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := findClose([]byte(tt.input), 0, tt.open)
			if got != tt.want || ok != tt.ok {
				t.Errorf("findClose(%q, %q) = %d, %v; want %d, %v", tt.input, tt.open, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestValidDelimiter(t *testing.T) {
	for _, ch := range []byte("/!{([<|#'\"-") {
		if !validDelimiter(ch) {
			t.Errorf("validDelimiter(%q) = false, want true", ch)
		}
	}
	for _, ch := range []byte("a_9 ,;)]}>\n") {
		if validDelimiter(ch) {
			t.Errorf("validDelimiter(%q) = true, want false", ch)
		}
	}
	if got := closingDelimiter('('); got != ')' {
		t.Errorf("closingDelimiter('(') = %q, want ')'", got)
	}
}
