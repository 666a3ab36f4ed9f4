package lexer

import (
	"bytes"
	"fmt"

	"github.com/dhamidi/perlsp/perl/position"
)

// heredocBody is a body found when its marker was scanned. It is emitted
// once the lexer reaches the newline ending the marker's line.
type heredocBody struct {
	newline int
	start   int
	end     int // end of the terminator line
}

// scanHeredoc scans <<EOF, <<"EOF", <<'EOF', <<~EOF and friends. It reports
// false when '<<' is not followed by a marker.
func (l *Lexer) scanHeredoc(start position.Position) (Token, bool) {
	i := l.pos + 2
	indent := false
	if i < len(l.input) && l.input[i] == '~' {
		indent = true
		i++
	}
	if i >= len(l.input) {
		return Token{}, false
	}

	var terminator string
	switch c := l.input[i]; {
	case c == '"' || c == '\'' || c == '`':
		j := i + 1
		for j < len(l.input) && l.input[j] != c && l.input[j] != '\n' {
			j++
		}
		if j >= len(l.input) || l.input[j] != c {
			return Token{}, false
		}
		terminator = string(l.input[i+1 : j])
		i = j + 1
	case isIdentStart(c):
		j := i
		for j < len(l.input) && isWordByte(l.input[j]) {
			j++
		}
		terminator = string(l.input[i:j])
		i = j
	default:
		return Token{}, false
	}

	newline, bodyStart := -1, 0
	if n := len(l.pending); n > 0 {
		newline = l.pending[0].newline
		bodyStart = l.pending[n-1].end + 1
	} else if nl := l.restOfLine(i); nl < len(l.input) {
		newline = nl
		bodyStart = nl + 1
	}

	l.advanceTo(i)
	end, ok := -1, false
	if newline >= 0 {
		end, ok = findTerminator(l.input, bodyStart, terminator, indent)
	}
	if !ok {
		tok := l.token(TokenError, start)
		tok.Message = fmt.Sprintf("unterminated heredoc: missing terminator line %q", terminator)
		return tok, true
	}
	l.pending = append(l.pending, heredocBody{newline: newline, start: bodyStart, end: end})
	return l.token(TokenHeredoc, start), true
}

// findTerminator returns the end offset of the first line at or after from
// that consists of terminator.
func findTerminator(input []byte, from int, terminator string, indent bool) (int, bool) {
	for i := from; i < len(input); {
		end := len(input)
		if nl := bytes.IndexByte(input[i:], '\n'); nl >= 0 {
			end = i + nl
		}
		line := bytes.TrimSuffix(input[i:end], []byte("\r"))
		if indent {
			line = bytes.TrimLeft(line, " \t")
		}
		if string(line) == terminator {
			return end, true
		}
		i = end + 1
	}
	return 0, false
}

// emitHeredocBodies consumes the newline at the lexer position and every
// body queued behind it, returning the first body token.
func (l *Lexer) emitHeredocBodies() Token {
	newline := l.pending[0].newline
	l.advance()
	var bodies []Token
	for len(l.pending) > 0 && l.pending[0].newline == newline {
		body := l.pending[0]
		l.pending = l.pending[1:]
		l.advanceTo(body.start)
		start := l.Position()
		l.advanceTo(body.end)
		bodies = append(bodies, l.token(TokenHeredocBody, start))
	}
	l.queued = append(l.queued, bodies[1:]...)
	return bodies[0]
}

func (l *Lexer) dropPassedHeredocs() {
	for len(l.pending) > 0 && l.pending[0].newline < l.pos {
		l.pending = l.pending[1:]
	}
}
