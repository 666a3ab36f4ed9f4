package parser

import (
	"strconv"
	"strings"
)

// Dump renders the subtree as a single-line s-expression:
//
//	(Kind [start,end) "token" !"error" children...)
//
// Offsets are bytes. IDs and line/column positions are left out so that
// dumps from different parses of the same text compare equal.
func (n *Node) Dump() string {
	var b strings.Builder
	n.dump(&b)
	return b.String()
}

func (n *Node) dump(b *strings.Builder) {
	b.WriteByte('(')
	b.WriteString(n.Kind.String())
	b.WriteString(" [")
	b.WriteString(strconv.Itoa(n.Span.Start.Offset))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(n.Span.End.Offset))
	b.WriteByte(')')
	if n.Token != nil {
		b.WriteByte(' ')
		b.WriteString(strconv.Quote(n.Token.Text))
	}
	if n.Error != nil {
		b.WriteString(" !")
		b.WriteString(strconv.Quote(n.Error.Message))
	}
	for _, child := range n.Children {
		b.WriteByte(' ')
		child.dump(b)
	}
	b.WriteByte(')')
}
