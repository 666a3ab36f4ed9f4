package parser

import (
	"sync/atomic"

	"github.com/dhamidi/perlsp/perl/position"
)

// lineages hands out one identifier per fresh parse. Reparsed trees keep
// the lineage of the tree they were derived from.
var lineages atomic.Uint64

// Tree is the result of a parse or reparse. Trees are immutable once
// returned: Reparse builds a new tree that shares unchanged subtrees with
// the old one.
type Tree struct {
	Root       *Node
	Errors     []*ParseError
	Generation uint64
	Canceled   bool

	lineage   uint64
	nextID    NodeID
	nodeCount int
	// claims are the spans from a heredoc marker to the end of its body.
	claims []position.Range
}

func (t *Tree) Dump() string {
	return t.Root.Dump()
}

func (t *Tree) String() string {
	return t.Root.String()
}

func (t *Tree) HasErrors() bool {
	return len(t.Errors) > 0
}

func (t *Tree) NodeCount() int {
	return t.nodeCount
}

// NextID is the ID the next newly created node will receive.
func (t *Tree) NextID() NodeID {
	return t.nextID
}
