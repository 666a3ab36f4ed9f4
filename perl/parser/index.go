package parser

import (
	"slices"

	"github.com/dhamidi/perlsp/perl/position"
)

// IndexEntry is one node of a tree, flattened. Parent is the position of
// the parent entry in the index, or -1 for the root.
type IndexEntry struct {
	ID     NodeID
	Kind   NodeKind
	Range  position.Range
	Parent int
	Depth  int
}

// Index is a flat, pre-order table of a tree's nodes. It holds no
// pointers into the tree, so it can outlive it and be rebuilt cheaply.
type Index struct {
	Generation uint64
	lineage    uint64
	entries    []IndexEntry
	byID       map[NodeID]int
}

func NewIndex(t *Tree) *Index {
	ix := &Index{
		Generation: t.Generation,
		lineage:    t.lineage,
		entries:    make([]IndexEntry, 0, t.NodeCount()),
		byID:       make(map[NodeID]int, t.NodeCount()),
	}
	ix.add(t.Root, -1, 0)
	return ix
}

func (ix *Index) add(n *Node, parent, depth int) {
	at := len(ix.entries)
	ix.entries = append(ix.entries, IndexEntry{
		ID:     n.ID,
		Kind:   n.Kind,
		Range:  n.Span,
		Parent: parent,
		Depth:  depth,
	})
	ix.byID[n.ID] = at
	for _, child := range n.Children {
		ix.add(child, at, depth+1)
	}
}

func (ix *Index) Len() int {
	return len(ix.entries)
}

func (ix *Index) Entries() []IndexEntry {
	return ix.entries
}

func (ix *Index) Lookup(id NodeID) (IndexEntry, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return IndexEntry{}, false
	}
	return ix.entries[i], true
}

// At returns the deepest entry containing offset. The root also claims the
// offset just past the end of the text.
func (ix *Index) At(offset int) (IndexEntry, bool) {
	i := ix.at(offset)
	if i < 0 {
		return IndexEntry{}, false
	}
	return ix.entries[i], true
}

func (ix *Index) at(offset int) int {
	if len(ix.entries) == 0 {
		return -1
	}
	root := ix.entries[0].Range
	if offset < root.Start.Offset || offset > root.End.Offset {
		return -1
	}
	// In pre-order a later containing entry is always deeper.
	found := 0
	for i := 1; i < len(ix.entries); i++ {
		if ix.entries[i].Range.Contains(offset) {
			found = i
		}
	}
	return found
}

// Path returns the entries from the root down to the deepest entry
// containing offset.
func (ix *Index) Path(offset int) []IndexEntry {
	var path []IndexEntry
	for i := ix.at(offset); i >= 0; i = ix.entries[i].Parent {
		path = append(path, ix.entries[i])
	}
	slices.Reverse(path)
	return path
}

// Stale reports whether the index was built from another tree than t:
// an older generation of the same document, or an unrelated parse.
func (ix *Index) Stale(t *Tree) bool {
	return ix.lineage != t.lineage || ix.Generation != t.Generation
}
