package parser

import (
	"fmt"
	"strconv"

	"github.com/dhamidi/perlsp/perl/lexer"
	"github.com/dhamidi/perlsp/perl/position"
)

// ParseError is a diagnostic produced while parsing. Lexical problems and
// syntax errors share this shape.
type ParseError struct {
	Message  string
	Expected []lexer.TokenKind
	Found    string
	Range    position.Range

	// lexical errors carry absolute offsets in their messages.
	lexical bool
}

func (e *ParseError) Error() string {
	msg := e.Range.Start.String() + ": " + e.Message
	if e.Found != "" {
		msg += ", found " + e.Found
	}
	return msg
}

// describe renders a token for the Found field of a diagnostic.
func describe(tok lexer.Token) string {
	switch tok.Kind {
	case lexer.TokenEOF:
		return "end of input"
	case lexer.TokenDataSection:
		return "data section"
	}
	text := tok.Text
	if len(text) > 20 {
		text = text[:20] + "..."
	}
	return strconv.Quote(text)
}

func quoteKind(kind lexer.TokenKind) string {
	return fmt.Sprintf("'%s'", kind)
}
