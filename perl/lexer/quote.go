package lexer

import (
	"bytes"
	"fmt"

	"github.com/dhamidi/perlsp/perl/position"
)

var quoteOperators = map[string]TokenKind{
	"q":  TokenString,
	"qq": TokenString,
	"qw": TokenQuoteWords,
	"qx": TokenCommand,
	"qr": TokenRegex,
	"m":  TokenRegex,
	"s":  TokenSubstitution,
	"tr": TokenTransliteration,
	"y":  TokenTransliteration,
}

func isQuoteOperator(word string) bool {
	_, ok := quoteOperators[word]
	return ok
}

func closingDelimiter(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	case '<':
		return '>'
	}
	return open
}

// validDelimiter reports whether ch may open a quote-like body.
func validDelimiter(ch byte) bool {
	if ch <= ' ' || ch >= 0x7f || isWordByte(ch) {
		return false
	}
	switch ch {
	case ',', ';', ')', ']', '}', '>':
		return false
	}
	return true
}

// findClose returns the index of the delimiter closing a body that starts at
// from. Bracketing delimiters nest; backslash escapes the next byte.
func findClose(input []byte, from int, open byte) (int, bool) {
	closer := closingDelimiter(open)
	depth := 0
	for i := from; i < len(input); i++ {
		switch c := input[i]; {
		case c == '\\':
			i++
		case closer != open && c == open:
			depth++
		case c == closer:
			if depth == 0 {
				return i, true
			}
			depth--
		}
	}
	return -1, false
}

func (l *Lexer) unterminated(start position.Position, what string, open byte) Token {
	return l.errorToken(start, l.restOfLine(start.Offset),
		"unterminated %s: missing closing '%c'", what, closingDelimiter(open))
}

func (l *Lexer) scanString(start position.Position, kind TokenKind, interpolate bool) Token {
	open := l.peek()
	closeAt, ok := findClose(l.input, l.pos+1, open)
	if !ok {
		return l.unterminated(start, "string", open)
	}
	if interpolate {
		if msg := checkEscapes(l.input[l.pos+1 : closeAt]); msg != "" {
			return l.errorToken(start, closeAt+1, "%s", msg)
		}
	}
	l.advanceTo(closeAt + 1)
	return l.token(kind, start)
}

// scanQuoteLike scans q, qq, qw, qx, qr, m, s, tr and y. It reports false
// when the word is not followed by a usable delimiter, leaving the lexer
// just past the word.
func (l *Lexer) scanQuoteLike(start position.Position, word string) (Token, bool) {
	j := l.skipBlanks(l.pos)
	if j >= len(l.input) {
		return Token{}, false
	}
	open := l.input[j]
	if j > l.pos && open == '#' {
		return Token{}, false
	}
	if open == '=' && j+1 < len(l.input) && (l.input[j+1] == '>' || l.input[j+1] == '=' || l.input[j+1] == '~') {
		return Token{}, false
	}
	if !validDelimiter(open) {
		return Token{}, false
	}
	l.advanceTo(j)

	kind := quoteOperators[word]
	if kind == TokenSubstitution || kind == TokenTransliteration {
		return l.scanSubstitution(start, word), true
	}
	closeAt, ok := findClose(l.input, l.pos+1, open)
	if !ok {
		return l.unterminated(start, word, open), true
	}
	if (word == "qq" || word == "qx") && open != '\'' {
		if msg := checkEscapes(l.input[l.pos+1 : closeAt]); msg != "" {
			return l.errorToken(start, closeAt+1, "%s", msg), true
		}
	}
	l.advanceTo(closeAt + 1)
	if kind == TokenRegex {
		l.skipModifiers()
	}
	return l.token(kind, start), true
}

// scanMatch scans a bare /.../ match in term position.
func (l *Lexer) scanMatch(start position.Position, word string, open byte) Token {
	closeAt, ok := findClose(l.input, l.pos+1, open)
	if !ok {
		what := word
		if what == "" {
			what = "regex"
		}
		return l.unterminated(start, what, open)
	}
	l.advanceTo(closeAt + 1)
	l.skipModifiers()
	return l.token(TokenRegex, start)
}

// scanSubstitution scans the two bodies of s, tr and y. The lexer must be
// positioned on the opening delimiter.
func (l *Lexer) scanSubstitution(start position.Position, op string) Token {
	var kind TokenKind
	switch op {
	case "s":
		kind = TokenSubstitution
	case "tr", "y":
		kind = TokenTransliteration
	default:
		return l.errorToken(start, l.pos,
			"unexpected substitution operator '%s': expected 's', 'tr', or 'y' at position %d", op, start.Offset)
	}

	open := l.peek()
	first, ok := findClose(l.input, l.pos+1, open)
	if !ok {
		return l.unterminated(start, op, open)
	}

	var second int
	if closingDelimiter(open) != open {
		k := l.skipBlanks(first + 1)
		if k >= len(l.input) || !validDelimiter(l.input[k]) {
			end := max(l.restOfLine(start.Offset), first+1)
			return l.errorToken(start, end, "missing replacement part of '%s' at position %d", op, start.Offset)
		}
		second, ok = findClose(l.input, k+1, l.input[k])
		if !ok {
			return l.unterminated(start, op, l.input[k])
		}
	} else {
		second, ok = findClose(l.input, first+1, open)
		if !ok {
			return l.unterminated(start, op, open)
		}
	}
	l.advanceTo(second + 1)
	l.skipModifiers()
	return l.token(kind, start)
}

func (l *Lexer) skipModifiers() {
	for isASCIILetter(l.peek()) {
		l.advance()
	}
}

// checkEscapes validates the escapes of an interpolating body and returns a
// message describing the first malformed one.
func checkEscapes(body []byte) string {
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' {
			continue
		}
		if i+1 >= len(body) {
			return "invalid escape sequence: trailing backslash"
		}
		esc := body[i+1]
		if (esc == 'x' || esc == 'N' || esc == 'o') && i+2 < len(body) && body[i+2] == '{' {
			end := bytes.IndexByte(body[i+3:], '}')
			if end < 0 {
				return fmt.Sprintf("invalid escape sequence '\\%c{': missing closing '}'", esc)
			}
			inner := body[i+3 : i+3+end]
			if !validBracedEscape(esc, inner) {
				return fmt.Sprintf("invalid escape sequence '\\%c{%s}'", esc, inner)
			}
			i += 3 + end
			continue
		}
		i++
	}
	return ""
}

func validBracedEscape(esc byte, inner []byte) bool {
	if len(bytes.TrimSpace(inner)) == 0 {
		return false
	}
	for _, c := range inner {
		switch esc {
		case 'x':
			if !isHexDigit(c) && c != '_' && c != ' ' {
				return false
			}
		case 'o':
			if (c < '0' || c > '7') && c != '_' && c != ' ' {
				return false
			}
		case 'N':
			if c == '\n' {
				return false
			}
		}
	}
	return true
}
