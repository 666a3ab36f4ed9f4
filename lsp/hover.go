package lsp

import (
	"fmt"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Hover describes the syntax at offset: the chain of node kinds from the
// program down to the innermost node, and that node's range. It returns nil
// when nothing but the program itself is there.
func Hover(doc *Document, offset int) *protocol.Hover {
	path := doc.Index().Path(offset)
	if len(path) < 2 {
		return nil
	}

	kinds := make([]string, len(path)-1)
	for i, entry := range path[1:] {
		kinds[i] = entry.Kind.String()
	}
	inner := path[len(path)-1]

	var value strings.Builder
	fmt.Fprintf(&value, "**%s**\n\n", inner.Kind)
	fmt.Fprintf(&value, "`%s`", strings.Join(kinds, " > "))
	if inner.Range.Len() > 0 && inner.Range.Len() <= 80 {
		fmt.Fprintf(&value, "\n\n```perl\n%s\n```", doc.Text[inner.Range.Start.Offset:inner.Range.End.Offset])
	}

	rng := doc.Range(inner.Range)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value.String(),
		},
		Range: &rng,
	}
}
