// Package format renders parse trees and token streams for people and
// tools.
package format

import (
	"encoding"
	"fmt"
	"io"

	"github.com/dhamidi/perlsp/perl/parser"
)

type Encoder interface {
	encoding.TextMarshaler
	Encode(tree *parser.Tree) error
}

// Names lists the tree formats NewEncoder accepts.
var Names = []string{"sexpr", "tree", "json", "yaml"}

// NewEncoder returns the tree encoder called name. positions only affects
// the indented tree format.
func NewEncoder(name string, w io.Writer, positions bool) (Encoder, error) {
	switch name {
	case "sexpr":
		return NewSExprEncoder(w), nil
	case "tree":
		return NewTreeEncoder(w, positions), nil
	case "json":
		return NewJSONEncoder(w), nil
	case "yaml":
		return NewYAMLEncoder(w), nil
	}
	return nil, fmt.Errorf("unknown format: %s (expected sexpr, tree, json, or yaml)", name)
}

func write(w io.Writer, m encoding.TextMarshaler) error {
	text, err := m.MarshalText()
	if err != nil {
		return err
	}
	_, err = w.Write(text)
	return err
}
