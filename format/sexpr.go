package format

import (
	"io"

	"github.com/dhamidi/perlsp/perl/parser"
)

// SExprEncoder writes the canonical single-line dump of a tree.
type SExprEncoder struct {
	w    io.Writer
	tree *parser.Tree
}

func NewSExprEncoder(w io.Writer) *SExprEncoder {
	return &SExprEncoder{w: w}
}

func (e *SExprEncoder) Encode(tree *parser.Tree) error {
	e.tree = tree
	return write(e.w, e)
}

func (e *SExprEncoder) MarshalText() ([]byte, error) {
	return []byte(e.tree.Dump() + "\n"), nil
}
