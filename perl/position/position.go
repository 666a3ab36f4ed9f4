// Package position maps between byte offsets in source text and the
// coordinates humans and editors use to talk about them.
//
// Two coordinate systems are in play. Position carries a byte offset plus a
// 1-based line and byte column for display; it is what the lexer and parser
// attach to tokens and nodes. The protocol side uses 0-based lines and
// UTF-16 code-unit columns, which OffsetToLineCol and LineColToOffset
// convert to and from without keeping any state.
package position

import (
	"bytes"
	"strconv"
)

type Position struct {
	Offset int // 0-based byte offset
	Line   int // 1-based line number
	Column int // 1-based column (in bytes, not runes)
}

func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// Range is a half-open span [Start, End).
type Range struct {
	Start Position
	End   Position
}

func (r Range) String() string {
	return r.Start.String() + "-" + r.End.String()
}

func (r Range) Len() int {
	return r.End.Offset - r.Start.Offset
}

func (r Range) IsEmpty() bool {
	return r.End.Offset <= r.Start.Offset
}

// Contains reports whether the byte offset lies inside r.
func (r Range) Contains(offset int) bool {
	return r.Start.Offset <= offset && offset < r.End.Offset
}

// ContainsRange reports whether o lies entirely within r. An empty o at
// r's end counts as contained.
func (r Range) ContainsRange(o Range) bool {
	return r.Start.Offset <= o.Start.Offset && o.End.Offset <= r.End.Offset
}

// Overlaps reports whether r and o share at least one byte. An empty range
// overlaps r when it sits strictly inside it.
func (r Range) Overlaps(o Range) bool {
	if o.IsEmpty() {
		return r.Start.Offset < o.Start.Offset && o.Start.Offset < r.End.Offset
	}
	if r.IsEmpty() {
		return o.Start.Offset < r.Start.Offset && r.Start.Offset < o.End.Offset
	}
	return r.Start.Offset < o.End.Offset && o.Start.Offset < r.End.Offset
}

// At returns the display Position of offset in text. Offsets outside the
// text are clamped.
func At(text []byte, offset int) Position {
	offset = clamp(text, offset)
	prefix := text[:offset]
	line := 1 + bytes.Count(prefix, []byte{'\n'})
	lineStart := bytes.LastIndexByte(prefix, '\n') + 1
	return Position{Offset: offset, Line: line, Column: offset - lineStart + 1}
}

// Span builds a Range from two byte offsets.
func Span(text []byte, start, end int) Range {
	if end < start {
		end = start
	}
	return Range{Start: At(text, start), End: At(text, end)}
}

func clamp(text []byte, offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(text) {
		return len(text)
	}
	return offset
}
