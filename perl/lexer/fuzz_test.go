package lexer

import (
	"strings"
	"testing"
)

var fuzzSeeds = []string{
	"",
	"my $x = 42;",
	"print <<EOF;\nhello\nEOF\n",
	"print <<EOF;\nunterminated",
	"s{a}{b",
	"tr/a-z/",
	"q(((",
	"\"\\x{zz",
	"$h{s} / 2 % $y x 3",
	"=pod\n\nno cut",
	"__DATA__\n\xff\xfe",
	"\xf0\x9f\x99",
	"$#{$$r}->@*",
	"<<~\"A\"\n  A\n<<B",
	"}}}{{{",
}

// FuzzLexer checks that tokenization is total: it terminates, every token
// makes progress, and spans tile the input in order.
func FuzzLexer(f *testing.F) {
	for _, seed := range fuzzSeeds {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, input string) {
		src := []byte(input)
		l := New(src)
		last := 0
		for i := 0; ; i++ {
			if i > 2*len(src)+2 {
				t.Fatalf("lexer did not terminate on %q", input)
			}
			tok := l.NextToken()
			if tok.Kind == TokenEOF {
				if tok.Start() != len(src) && !l.State().DataSection {
					t.Fatalf("EOF at %d, want %d", tok.Start(), len(src))
				}
				return
			}
			if tok.Start() < last {
				t.Fatalf("token %v at %d starts before previous end %d", tok.Kind, tok.Start(), last)
			}
			if tok.End() <= tok.Start() && tok.Kind != TokenHeredocBody {
				t.Fatalf("token %v at %d is empty", tok.Kind, tok.Start())
			}
			if tok.Text != input[tok.Start():tok.End()] {
				t.Fatalf("token text %q does not match source %q", tok.Text, input[tok.Start():tok.End()])
			}
			if tok.Kind == TokenError && tok.Message == "" {
				t.Fatalf("error token %q has no message", tok.Text)
			}
			last = tok.End()
		}
	})
}

// FuzzScanSubstitution drives the substitution scanner directly, including
// with operators normal dispatch never hands it.
func FuzzScanSubstitution(f *testing.F) {
	for _, seed := range []struct{ op, body string }{
		{"s", "/a/b/g"},
		{"tr", "{a}{b}"},
		{"y", "(a"},
		{"qq", "/a/b/"},
		{"", ""},
		{"S", "#a#b#"},
	} {
		f.Add(seed.op, seed.body)
	}
	f.Fuzz(func(t *testing.T, op, body string) {
		l := New([]byte(op + body))
		start := l.Position()
		l.advanceN(len(op))
		tok := l.scanSubstitution(start, op)

		guarded := strings.HasPrefix(tok.Message, "unexpected substitution operator")
		switch op {
		case "s", "tr", "y":
			if guarded {
				t.Fatalf("valid operator %q rejected: %s", op, tok.Message)
			}
		default:
			if tok.Kind != TokenError || !guarded {
				t.Fatalf("operator %q accepted: %v %q", op, tok.Kind, tok.Message)
			}
		}
		if tok.End() < tok.Start() || tok.End() > len(op)+len(body) {
			t.Fatalf("span [%d,%d) out of bounds", tok.Start(), tok.End())
		}
	})
}
