package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/perlsp/perl/parser"
)

// TreeEncoder writes the indented tree followed by one line per error.
type TreeEncoder struct {
	w         io.Writer
	positions bool
	tree      *parser.Tree
}

func NewTreeEncoder(w io.Writer, positions bool) *TreeEncoder {
	return &TreeEncoder{w: w, positions: positions}
}

func (e *TreeEncoder) Encode(tree *parser.Tree) error {
	e.tree = tree
	return write(e.w, e)
}

func (e *TreeEncoder) MarshalText() ([]byte, error) {
	var sb strings.Builder
	if e.positions {
		sb.WriteString(e.tree.Root.StringWithPositions())
	} else {
		sb.WriteString(e.tree.Root.String())
	}
	for _, err := range e.tree.Errors {
		fmt.Fprintf(&sb, "error\t%s\t%s\n", err.Range.Start, err.Message)
	}
	return []byte(sb.String()), nil
}
