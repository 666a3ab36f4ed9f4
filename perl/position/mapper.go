package position

import (
	"bytes"
	"sort"
	"unicode/utf8"
)

// OffsetToLineCol converts a byte offset into a 0-based line and a 0-based
// UTF-16 column. Offsets past the end clamp to the end of text; an offset
// inside a multi-byte character (or between the \r and \n of a CRLF)
// resolves to the start of that character.
func OffsetToLineCol(text []byte, offset int) (line, col int) {
	offset = clamp(text, offset)
	prefix := text[:offset]
	line = bytes.Count(prefix, []byte{'\n'})
	lineStart := bytes.LastIndexByte(prefix, '\n') + 1
	return line, columnAt(text, lineStart, offset)
}

// LineColToOffset converts a 0-based line and UTF-16 column into a byte
// offset. Lines past the end clamp to the end of text, columns past the end
// of a line clamp to the line terminator, and a column that splits a
// surrogate pair resolves to the start of that character.
func LineColToOffset(text []byte, line, col int) int {
	if line < 0 {
		return 0
	}
	lineStart := 0
	for i := 0; i < line; i++ {
		nl := bytes.IndexByte(text[lineStart:], '\n')
		if nl < 0 {
			return len(text)
		}
		lineStart += nl + 1
	}
	return offsetIn(text, lineStart, col)
}

// Mapper answers the same questions as OffsetToLineCol and LineColToOffset
// from a precomputed line table. It is immutable once built.
type Mapper struct {
	text  []byte
	lines []int
}

func NewMapper(text []byte) *Mapper {
	lines := []int{0}
	for i, b := range text {
		if b == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Mapper{text: text, lines: lines}
}

// LineCount returns the number of lines, counting a trailing empty line.
func (m *Mapper) LineCount() int {
	return len(m.lines)
}

func (m *Mapper) OffsetToLineCol(offset int) (line, col int) {
	offset = clamp(m.text, offset)
	line = sort.Search(len(m.lines), func(i int) bool { return m.lines[i] > offset }) - 1
	return line, columnAt(m.text, m.lines[line], offset)
}

func (m *Mapper) LineColToOffset(line, col int) int {
	if line < 0 {
		return 0
	}
	if line >= len(m.lines) {
		return len(m.text)
	}
	return offsetIn(m.text, m.lines[line], col)
}

// Position returns the display Position of offset.
func (m *Mapper) Position(offset int) Position {
	offset = clamp(m.text, offset)
	line := sort.Search(len(m.lines), func(i int) bool { return m.lines[i] > offset }) - 1
	return Position{Offset: offset, Line: line + 1, Column: offset - m.lines[line] + 1}
}

// Range converts a byte range into protocol coordinates.
func (m *Mapper) Range(r Range) (startLine, startCol, endLine, endCol int) {
	startLine, startCol = m.OffsetToLineCol(r.Start.Offset)
	endLine, endCol = m.OffsetToLineCol(r.End.Offset)
	return
}

// columnAt counts UTF-16 units from lineStart up to the last character
// boundary at or before offset.
func columnAt(text []byte, lineStart, offset int) int {
	col := 0
	for i := lineStart; i < offset; {
		size, width := charAt(text, i)
		if i+size > offset {
			break
		}
		col += width
		i += size
	}
	return col
}

// offsetIn walks the line starting at lineStart until col UTF-16 units have
// been consumed.
func offsetIn(text []byte, lineStart, col int) int {
	end := lineEnd(text, lineStart)
	units := 0
	for i := lineStart; i < end; {
		if units >= col {
			return i
		}
		size, width := charAt(text, i)
		if units+width > col {
			return i
		}
		units += width
		i += size
	}
	return end
}

// lineEnd returns the offset of the terminator of the line starting at
// lineStart: the \n, the \r of a \r\n, or the end of text.
func lineEnd(text []byte, lineStart int) int {
	nl := bytes.IndexByte(text[lineStart:], '\n')
	if nl < 0 {
		return len(text)
	}
	end := lineStart + nl
	if end > lineStart && text[end-1] == '\r' {
		end--
	}
	return end
}

// charAt returns the byte size and UTF-16 width of the character at i.
// A \r\n pair is one character; invalid bytes are one unit each.
func charAt(text []byte, i int) (size, width int) {
	if text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n' {
		return 2, 1
	}
	r, size := utf8.DecodeRune(text[i:])
	if r >= 0x10000 {
		return size, 2
	}
	return size, 1
}
