package format

import (
	"encoding/json"
	"io"

	"github.com/dhamidi/perlsp/perl/parser"
)

type JSONEncoder struct {
	w    io.Writer
	tree *parser.Tree
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

func (e *JSONEncoder) Encode(tree *parser.Tree) error {
	e.tree = tree
	return write(e.w, e)
}

func (e *JSONEncoder) MarshalText() ([]byte, error) {
	data, err := json.MarshalIndent(e.tree, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
