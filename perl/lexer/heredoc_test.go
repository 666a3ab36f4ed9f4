package lexer

import "testing"

func TestLexerHeredoc(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []lexed
	}{
		{"bare", "print <<EOF;\nhello\nEOF\nprint 1;", []lexed{
			{TokenIdent, "print"}, {TokenHeredoc, "<<EOF"}, {TokenSemicolon, ";"},
			{TokenHeredocBody, "hello\nEOF"},
			{TokenIdent, "print"}, {TokenNumber, "1"}, {TokenSemicolon, ";"},
		}},
		{"double quoted", "my $s = <<\"END\";\n$x\nEND\n", []lexed{
			{TokenMy, "my"}, {TokenVariable, "$s"}, {TokenAssign, "="}, {TokenHeredoc, "<<\"END\""},
			{TokenSemicolon, ";"}, {TokenHeredocBody, "$x\nEND"},
		}},
		{"single quoted", "f(<<'X');\n'\nX\n", []lexed{
			{TokenIdent, "f"}, {TokenLParen, "("}, {TokenHeredoc, "<<'X'"}, {TokenRParen, ")"},
			{TokenSemicolon, ";"}, {TokenHeredocBody, "'\nX"},
		}},
		{"indented", "my $s = <<~EOT;\n  text\n  EOT\n1;", []lexed{
			{TokenMy, "my"}, {TokenVariable, "$s"}, {TokenAssign, "="}, {TokenHeredoc, "<<~EOT"},
			{TokenSemicolon, ";"}, {TokenHeredocBody, "  text\n  EOT"},
			{TokenNumber, "1"}, {TokenSemicolon, ";"},
		}},
		{"chained", "f(<<A, <<B);\na\nA\nb\nB\n", []lexed{
			{TokenIdent, "f"}, {TokenLParen, "("}, {TokenHeredoc, "<<A"}, {TokenComma, ","},
			{TokenHeredoc, "<<B"}, {TokenRParen, ")"}, {TokenSemicolon, ";"},
			{TokenHeredocBody, "a\nA"}, {TokenHeredocBody, "b\nB"},
		}},
		{"crlf terminator", "print <<E;\r\nx\r\nE\r\n", []lexed{
			{TokenIdent, "print"}, {TokenHeredoc, "<<E"}, {TokenSemicolon, ";"},
			{TokenHeredocBody, "x\r\nE\r"},
		}},
		{"shift is not a heredoc", "$x << 2", []lexed{
			{TokenVariable, "$x"}, {TokenShl, "<<"}, {TokenNumber, "2"},
		}},
		{"terminator needs its own line", "print <<E;\nE;\nE\n", []lexed{
			{TokenIdent, "print"}, {TokenHeredoc, "<<E"}, {TokenSemicolon, ";"},
			{TokenHeredocBody, "E;\nE"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTokens(t, tt.input, tt.want)
		})
	}
}

func TestLexerHeredocPendingState(t *testing.T) {
	l := New([]byte("print <<EOF;\nbody\nEOF\n"))
	for range 3 {
		l.NextToken()
	}
	if st := l.State(); st.PendingHeredocs != 1 {
		t.Errorf("PendingHeredocs = %d, want 1", st.PendingHeredocs)
	}
	if tok := l.NextToken(); tok.Kind != TokenHeredocBody {
		t.Fatalf("NextToken() = %v, want HeredocBody", tok.Kind)
	}
	if st := l.State(); st.PendingHeredocs != 0 {
		t.Errorf("PendingHeredocs after body = %d, want 0", st.PendingHeredocs)
	}
}

func TestLexerHeredocBodyPositions(t *testing.T) {
	tokens := Tokenize([]byte("print <<E;\nab\nE\n$x"))
	var body, x Token
	for _, tok := range tokens {
		switch tok.Kind {
		case TokenHeredocBody:
			body = tok
		case TokenVariable:
			x = tok
		}
	}
	if body.Span.Start.Line != 2 || body.Span.Start.Offset != 11 {
		t.Errorf("body starts at %+v, want line 2 offset 11", body.Span.Start)
	}
	if x.Span.Start.Line != 4 || x.Span.Start.Column != 1 {
		t.Errorf("$x starts at %+v, want 4:1", x.Span.Start)
	}
}

func TestFindTerminator(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		term   string
		indent bool
		want   int
		ok     bool
	}{
		{"first line", "EOF\n", "EOF", false, 3, true},
		{"later line", "a\nb\nEOF", "EOF", false, 7, true},
		{"indented rejected", "  EOF\n", "EOF", false, 0, false},
		{"indented accepted", "  EOF\n", "EOF", true, 5, true},
		{"prefix only", "EOFX\n", "EOF", false, 0, false},
		{"empty terminator", "a\n\nb", "", false, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := findTerminator([]byte(tt.input), 0, tt.term, tt.indent)
			if got != tt.want || ok != tt.ok {
				t.Errorf("findTerminator = %d, %v; want %d, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
