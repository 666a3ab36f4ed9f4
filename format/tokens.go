package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dhamidi/perlsp/perl/lexer"
)

// TokenEncoder writes one tab-separated line per token: kind, category,
// range and quoted text. Error tokens carry their message as a fifth
// column.
type TokenEncoder struct {
	w      io.Writer
	tokens []lexer.Token
}

func NewTokenEncoder(w io.Writer) *TokenEncoder {
	return &TokenEncoder{w: w}
}

func (e *TokenEncoder) Encode(tokens []lexer.Token) error {
	e.tokens = tokens
	return write(e.w, e)
}

func (e *TokenEncoder) MarshalText() ([]byte, error) {
	var sb strings.Builder
	for _, tok := range e.tokens {
		fmt.Fprintf(&sb, "%s\t%s\t%s\t%s", tok.Kind, tok.Kind.Category(), tok.Span, strconv.Quote(tok.Text))
		if tok.Kind == lexer.TokenError {
			sb.WriteString("\t" + tok.Message)
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}
