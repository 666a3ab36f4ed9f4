package format

import (
	"bytes"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dhamidi/perlsp/perl/parser"
)

type YAMLEncoder struct {
	w    io.Writer
	tree *parser.Tree
}

func NewYAMLEncoder(w io.Writer) *YAMLEncoder {
	return &YAMLEncoder{w: w}
}

func (e *YAMLEncoder) Encode(tree *parser.Tree) error {
	e.tree = tree
	return write(e.w, e)
}

type yamlTree struct {
	Generation uint64       `yaml:"generation"`
	Canceled   bool         `yaml:"canceled,omitempty"`
	Errors     []*yamlError `yaml:"errors,omitempty"`
	Root       *yamlNode    `yaml:"root"`
}

type yamlNode struct {
	ID       parser.NodeID `yaml:"id"`
	Kind     string        `yaml:"kind"`
	Span     string        `yaml:"span"`
	Token    string        `yaml:"token,omitempty"`
	Error    string        `yaml:"error,omitempty"`
	Children []*yamlNode   `yaml:"children,omitempty"`
}

type yamlError struct {
	At       string   `yaml:"at"`
	Message  string   `yaml:"message"`
	Expected []string `yaml:"expected,flow,omitempty"`
	Found    string   `yaml:"found,omitempty"`
}

func (e *YAMLEncoder) MarshalText() ([]byte, error) {
	doc := yamlTree{
		Generation: e.tree.Generation,
		Canceled:   e.tree.Canceled,
		Root:       nodeToYAML(e.tree.Root),
	}
	for _, pe := range e.tree.Errors {
		ye := &yamlError{At: pe.Range.String(), Message: pe.Message, Found: pe.Found}
		for _, exp := range pe.Expected {
			ye.Expected = append(ye.Expected, exp.String())
		}
		doc.Errors = append(doc.Errors, ye)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func nodeToYAML(n *parser.Node) *yamlNode {
	yn := &yamlNode{
		ID:   n.ID,
		Kind: n.Kind.String(),
		Span: n.Span.String(),
	}
	if n.Token != nil {
		yn.Token = n.Token.Text
	}
	if n.Error != nil {
		yn.Error = n.Error.Message
	}
	for _, child := range n.Children {
		yn.Children = append(yn.Children, nodeToYAML(child))
	}
	return yn
}
