package parser

import (
	"encoding/json"

	"github.com/dhamidi/perlsp/perl/position"
)

type jsonNode struct {
	ID       NodeID      `json:"id"`
	Kind     string      `json:"kind"`
	Span     jsonSpan    `json:"span"`
	Token    string      `json:"token,omitempty"`
	Error    *jsonError  `json:"error,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

type jsonSpan struct {
	Start jsonPosition `json:"start"`
	End   jsonPosition `json:"end"`
}

type jsonPosition struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

type jsonError struct {
	Message  string   `json:"message"`
	Expected []string `json:"expected,omitempty"`
	Found    string   `json:"found,omitempty"`
}

type jsonTree struct {
	Generation uint64       `json:"generation"`
	Canceled   bool         `json:"canceled,omitempty"`
	Errors     []*jsonError `json:"errors,omitempty"`
	Root       *jsonNode    `json:"root"`
}

func toJSONSpan(r position.Range) jsonSpan {
	return jsonSpan{
		Start: jsonPosition{Offset: r.Start.Offset, Line: r.Start.Line, Column: r.Start.Column},
		End:   jsonPosition{Offset: r.End.Offset, Line: r.End.Line, Column: r.End.Column},
	}
}

func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.toJSON())
}

func (n *Node) toJSON() *jsonNode {
	jn := &jsonNode{
		ID:   n.ID,
		Kind: n.Kind.String(),
		Span: toJSONSpan(n.Span),
	}

	if n.Token != nil {
		jn.Token = n.Token.Text
	}

	if n.Error != nil {
		jn.Error = &jsonError{
			Message: n.Error.Message,
			Found:   n.Error.Found.String(),
		}
		for _, exp := range n.Error.Expected {
			jn.Error.Expected = append(jn.Error.Expected, exp.String())
		}
	}

	if len(n.Children) > 0 {
		jn.Children = make([]*jsonNode, len(n.Children))
		for i, child := range n.Children {
			jn.Children[i] = child.toJSON()
		}
	}

	return jn
}

func (t *Tree) MarshalJSON() ([]byte, error) {
	jt := &jsonTree{
		Generation: t.Generation,
		Canceled:   t.Canceled,
		Root:       t.Root.toJSON(),
	}
	for _, e := range t.Errors {
		je := &jsonError{Message: e.Error(), Found: e.Found}
		for _, exp := range e.Expected {
			je.Expected = append(je.Expected, exp.String())
		}
		jt.Errors = append(jt.Errors, je)
	}
	return json.Marshal(jt)
}
