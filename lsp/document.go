package lsp

import (
	"fmt"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/perlsp/perl/parser"
	"github.com/dhamidi/perlsp/perl/position"
)

// Document is one open file. Documents are replaced, never mutated, so a
// Document obtained from the store stays consistent.
type Document struct {
	URI     string
	Version int32
	Text    []byte
	Tree    *parser.Tree

	mapper    *position.Mapper
	indexOnce sync.Once
	index     *parser.Index
}

func newDocument(uri string, version int32, text []byte, tree *parser.Tree) *Document {
	return &Document{
		URI:     uri,
		Version: version,
		Text:    text,
		Tree:    tree,
		mapper:  position.NewMapper(text),
	}
}

// Index returns the node index of the document's tree, building it on
// first use.
func (d *Document) Index() *parser.Index {
	d.indexOnce.Do(func() {
		d.index = parser.NewIndex(d.Tree)
	})
	return d.index
}

// Offset converts a protocol position into a byte offset.
func (d *Document) Offset(p protocol.Position) int {
	return d.mapper.LineColToOffset(int(p.Line), int(p.Character))
}

// Range converts a byte range into a protocol range.
func (d *Document) Range(r position.Range) protocol.Range {
	sl, sc, el, ec := d.mapper.Range(r)
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(sl), Character: protocol.UInteger(sc)},
		End:   protocol.Position{Line: protocol.UInteger(el), Character: protocol.UInteger(ec)},
	}
}

// apply applies one content change and reparses. Ranged changes go through
// the incremental reparser; whole-document changes replace everything.
func (d *Document) apply(version int32, change any) (*Document, parser.Metrics, error) {
	var start, end int
	var text string
	switch c := change.(type) {
	case protocol.TextDocumentContentChangeEvent:
		text = c.Text
		if c.Range == nil {
			start, end = 0, len(d.Text)
		} else {
			start, end = d.Offset(c.Range.Start), d.Offset(c.Range.End)
		}
	case protocol.TextDocumentContentChangeEventWhole:
		start, end, text = 0, len(d.Text), c.Text
	default:
		return nil, parser.Metrics{}, fmt.Errorf("unsupported content change %T", change)
	}

	edit, newText := parser.NewEdit(d.Text, start, end, []byte(text))
	tree, m := parser.Reparse(d.Tree, d.Text, edit, newText)
	return newDocument(d.URI, version, newText, tree), m, nil
}

// Store holds the open documents.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

func NewStore() *Store {
	return &Store{docs: make(map[string]*Document)}
}

func (s *Store) Open(uri string, version int32, text []byte) *Document {
	doc := newDocument(uri, version, text, parser.Parse(text))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = doc
	return doc
}

// Change applies changes in order and returns the resulting document along
// with the metrics of every reparse.
func (s *Store) Change(uri string, version int32, changes []any) (*Document, []parser.Metrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[uri]
	if !ok {
		return nil, nil, fmt.Errorf("document not open: %s", uri)
	}
	metrics := make([]parser.Metrics, 0, len(changes))
	for _, change := range changes {
		next, m, err := doc.apply(version, change)
		if err != nil {
			return nil, nil, fmt.Errorf("apply change to %s: %w", uri, err)
		}
		doc = next
		metrics = append(metrics, m)
	}
	s.docs[uri] = doc
	return doc, metrics, nil
}

func (s *Store) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

func (s *Store) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}
