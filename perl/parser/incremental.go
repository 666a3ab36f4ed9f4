package parser

import (
	"bytes"
	"slices"
	"time"

	"github.com/dhamidi/perlsp/perl/lexer"
	"github.com/dhamidi/perlsp/perl/position"
)

// Edit describes a single text replacement: bytes [Start, OldEnd) of the
// old text became bytes [Start, NewEnd) of the new text. Positions are
// recomputed by Reparse, so callers only need the offsets.
type Edit struct {
	Start  int
	OldEnd int
	NewEnd int

	StartPosition  position.Position
	OldEndPosition position.Position
	NewEndPosition position.Position
}

// NewEdit replaces oldText[start:oldEnd] with replacement and returns the
// edit together with the resulting text. Offsets are clamped to the text.
func NewEdit(oldText []byte, start, oldEnd int, replacement []byte) (Edit, []byte) {
	start = min(max(start, 0), len(oldText))
	oldEnd = min(max(oldEnd, start), len(oldText))

	newText := make([]byte, 0, len(oldText)-(oldEnd-start)+len(replacement))
	newText = append(newText, oldText[:start]...)
	newText = append(newText, replacement...)
	newText = append(newText, oldText[oldEnd:]...)

	newEnd := start + len(replacement)
	return Edit{
		Start:          start,
		OldEnd:         oldEnd,
		NewEnd:         newEnd,
		StartPosition:  position.At(oldText, start),
		OldEndPosition: position.At(oldText, oldEnd),
		NewEndPosition: position.At(newText, newEnd),
	}, newText
}

// Delta is the change in length.
func (e Edit) Delta() int {
	return e.NewEnd - e.OldEnd
}

// shift maps a position at or after OldEnd in the old text to the new
// text. Only positions on the edit's last line change column.
func (e Edit) shift(p position.Position) position.Position {
	if p.Line == e.OldEndPosition.Line {
		p.Column = e.NewEndPosition.Column + (p.Column - e.OldEndPosition.Column)
	}
	p.Line += e.NewEndPosition.Line - e.OldEndPosition.Line
	p.Offset += e.Delta()
	return p
}

func (e Edit) shiftRange(r position.Range) position.Range {
	return position.Range{Start: e.shift(r.Start), End: e.shift(r.End)}
}

// shiftNode returns a copy of n with every span moved by the edit. n must
// lie entirely after the edit.
func (e Edit) shiftNode(n *Node) *Node {
	cp := *n
	cp.Span = e.shiftRange(n.Span)
	if n.Token != nil {
		tok := *n.Token
		tok.Span = e.shiftRange(tok.Span)
		cp.Token = &tok
	}
	if len(n.Children) > 0 {
		cp.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			cp.Children[i] = e.shiftNode(child)
		}
	}
	return &cp
}

// validate checks that the edit turns prevText into newText and fills in
// its positions.
func (e Edit) validate(prevText, newText []byte) (Edit, bool) {
	if e.Start < 0 || e.Start > e.OldEnd || e.OldEnd > len(prevText) ||
		e.NewEnd < e.Start || e.NewEnd > len(newText) {
		return e, false
	}
	if len(newText)-e.NewEnd != len(prevText)-e.OldEnd {
		return e, false
	}
	if !bytes.Equal(prevText[:e.Start], newText[:e.Start]) ||
		!bytes.Equal(prevText[e.OldEnd:], newText[e.NewEnd:]) {
		return e, false
	}
	e.StartPosition = position.At(prevText, e.Start)
	e.OldEndPosition = position.At(prevText, e.OldEnd)
	e.NewEndPosition = position.At(newText, e.NewEnd)
	return e, true
}

type Strategy int

const (
	StrategyFull Strategy = iota
	StrategyToken
	StrategyStatement
)

func (s Strategy) String() string {
	switch s {
	case StrategyToken:
		return "token"
	case StrategyStatement:
		return "statement"
	case StrategyFull:
		return "full"
	}
	return "Unknown"
}

// Metrics describes how much of the previous tree a reparse kept.
type Metrics struct {
	Reused   int
	Rebuilt  int
	Elapsed  time.Duration
	Strategy Strategy
}

func (m Metrics) ReuseRatio() float64 {
	total := m.Reused + m.Rebuilt
	if total == 0 {
		return 0
	}
	return float64(m.Reused) / float64(total)
}

// Reparse produces the tree for newText from prev, the tree of prevText,
// and the edit between them. The result is indistinguishable from
// Parse(newText) apart from node IDs, which are kept for reused nodes and
// fresh for rebuilt ones. prev is not modified.
//
// The smallest safe unit around the edit is rebuilt: a single token, then
// a single statement, and otherwise the whole document.
func Reparse(prev *Tree, prevText []byte, edit Edit, newText []byte, opts ...Option) (*Tree, Metrics) {
	started := time.Now()
	cfg := newParser(newText, opts)

	if prev == nil {
		t := Parse(newText, opts...)
		return t, Metrics{Rebuilt: t.nodeCount, Elapsed: time.Since(started), Strategy: StrategyFull}
	}

	edit, ok := edit.validate(prevText, newText)
	canceled := cfg.ctx != nil && cfg.ctx.Err() != nil
	if ok && !prev.Canceled && !canceled && prev.Root.Span.End.Offset == len(prevText) {
		r := &reparser{
			prev:     prev,
			prevText: prevText,
			newText:  newText,
			edit:     edit,
			maxDepth: cfg.maxDepth,
		}
		r.locate()
		if t, m, ok := r.reparseToken(); ok {
			m.Elapsed = time.Since(started)
			return t, m
		}
		if t, m, ok := r.reparseStatement(); ok {
			m.Elapsed = time.Since(started)
			return t, m
		}
	}

	opts = append(slices.Clone(opts), withFirstID(prev.nextID))
	t := Parse(newText, opts...)
	t.Generation = prev.Generation + 1
	t.lineage = prev.lineage
	return t, Metrics{Rebuilt: t.nodeCount, Elapsed: time.Since(started), Strategy: StrategyFull}
}

type reparser struct {
	prev     *Tree
	prevText []byte
	newText  []byte
	edit     Edit
	maxDepth int

	// path runs from the root to the deepest node containing the edit;
	// index[k] is the position of path[k+1] among path[k]'s children.
	path  []*Node
	index []int
}

func (r *reparser) locate() {
	n := r.prev.Root
	r.path = append(r.path, n)
	for {
		next := -1
		for i, child := range n.Children {
			if child.Span.IsEmpty() {
				continue
			}
			if child.Span.Start.Offset <= r.edit.Start && r.edit.OldEnd <= child.Span.End.Offset {
				next = i
				break
			}
		}
		if next < 0 {
			return
		}
		n = n.Children[next]
		r.path = append(r.path, n)
		r.index = append(r.index, next)
	}
}

// errorsTouch reports whether any previous error could change when
// [start, end] of the old text is rebuilt. A lexical error anywhere counts:
// an unterminated construct before the edit may end inside it, and one
// after it carries absolute offsets.
func (r *reparser) errorsTouch(start, end int) bool {
	for _, e := range r.prev.Errors {
		if e.lexical {
			return true
		}
		if e.Range.Start.Offset <= end && e.Range.End.Offset >= start {
			return true
		}
	}
	for _, c := range r.prev.claims {
		if c.Start.Offset <= end && c.End.Offset >= start {
			return true
		}
	}
	return false
}

func (r *reparser) reparseToken() (*Tree, Metrics, bool) {
	leaf := r.path[len(r.path)-1]
	if len(r.path) < 2 || len(leaf.Children) > 0 || leaf.Token == nil {
		return nil, Metrics{}, false
	}
	switch leaf.Token.Kind {
	case lexer.TokenNumber, lexer.TokenString, lexer.TokenVariable:
	default:
		return nil, Metrics{}, false
	}
	start, end := leaf.Span.Start.Offset, leaf.Span.End.Offset
	if start >= len(r.newText) || r.errorsTouch(start, end) {
		return nil, Metrics{}, false
	}

	first, now := r.prevText[start], r.newText[start]
	switch {
	case isDigit(first):
		if !isDigit(now) {
			return nil, Metrics{}, false
		}
	case first == '$' || first == '@' || first == '"' || first == '\'':
		if now != first {
			return nil, Metrics{}, false
		}
	default:
		return nil, Metrics{}, false
	}
	if r.edit.Start == start && start > 0 && isWordByte(r.newText[start-1]) {
		return nil, Metrics{}, false
	}

	newEnd := end + r.edit.Delta()
	toks := lexer.Tokenize(r.newText, lexer.WithRange(start, newEnd))
	if len(toks) != 2 || toks[0].Kind != leaf.Token.Kind || toks[0].Span.End.Offset != newEnd {
		return nil, Metrics{}, false
	}

	tok := toks[0]
	node := &Node{
		ID:    r.prev.nextID,
		Kind:  leaf.Kind,
		Span:  tok.Span,
		Token: &tok,
	}
	t := r.splice(node, r.prev.nextID+1, 1, 1)
	return t, Metrics{Reused: r.prev.nodeCount - 1, Rebuilt: 1, Strategy: StrategyToken}, true
}

func (r *reparser) reparseStatement() (*Tree, Metrics, bool) {
	for k := len(r.path) - 1; k >= 1; k-- {
		parent := r.path[k-1]
		if parent.Kind != KindProgram && parent.Kind != KindBlock {
			continue
		}
		unit := r.path[k]
		if t, m, ok := r.tryStatement(k, unit); ok {
			return t, m, true
		}
	}
	return nil, Metrics{}, false
}

func (r *reparser) tryStatement(k int, unit *Node) (*Tree, Metrics, bool) {
	start, end := unit.Span.Start.Offset, unit.Span.End.Offset
	if start >= r.edit.Start || r.edit.OldEnd >= end {
		return nil, Metrics{}, false
	}
	if unit.HasErrors() || r.errorsBefore(end) || r.errorsTouch(start, end) {
		return nil, Metrics{}, false
	}

	newEnd := end + r.edit.Delta()
	oldLx := lexer.New(r.prevText, lexer.WithRange(start, end))
	oldToks := drain(oldLx)
	newLx := lexer.New(r.newText, lexer.WithRange(start, newEnd))
	newToks := drain(newLx)
	if !cleanWindow(newToks, newEnd) || oldLx.State() != newLx.State() {
		return nil, Metrics{}, false
	}
	if st := newLx.State(); st.Depth != 0 || st.Underflow != 0 || st.PendingHeredocs != 0 || st.DataSection {
		return nil, Metrics{}, false
	}
	if lastKind(oldToks) != lastKind(newToks) {
		return nil, Metrics{}, false
	}
	// A lone word right after '{' is lexed as a hash key in context, which
	// a window starting at the word cannot see.
	if significant(newToks) == 1 && precededByBrace(r.newText, start) {
		return nil, Metrics{}, false
	}

	newLx.Reset()
	node, ok := r.parseWindow(newLx)
	if !ok || node.Kind != unit.Kind || node.Span.Start.Offset != start || node.Span.End.Offset != newEnd {
		return nil, Metrics{}, false
	}
	// Nesting limits apply to the statement in context.
	if k+node.height() >= r.maxDepth/2 {
		return nil, Metrics{}, false
	}

	r.path = r.path[:k+1]
	r.index = r.index[:k]
	next, rebuilt := assignIDs(node, r.prev.nextID)
	old := unit.NodeCount()
	t := r.splice(node, next, old, rebuilt)
	return t, Metrics{Reused: r.prev.nodeCount - old, Rebuilt: rebuilt, Strategy: StrategyStatement}, true
}

// parseWindow parses the tokens of lx as exactly one error-free statement.
func (r *reparser) parseWindow(lx *lexer.Lexer) (node *Node, ok bool) {
	defer func() {
		if recover() != nil {
			node, ok = nil, false
		}
	}()
	p := newParser(r.newText, []Option{WithMaxDepth(r.maxDepth)})
	p.tokenize(lx)
	node = p.parseStatement()
	if len(p.errors) > 0 || !p.check(lexer.TokenEOF) || node.HasErrors() {
		return nil, false
	}
	return node, true
}

// errorsBefore reports whether any error starts before offset. Recovery
// from an earlier error may look arbitrarily far ahead.
func (r *reparser) errorsBefore(offset int) bool {
	for _, e := range r.prev.Errors {
		if e.Range.Start.Offset <= offset {
			return true
		}
	}
	return false
}

func drain(lx *lexer.Lexer) []lexer.Token {
	var toks []lexer.Token
	for {
		tok := lx.NextToken()
		toks = append(toks, tok)
		if tok.Kind == lexer.TokenEOF {
			return toks
		}
	}
}

func cleanWindow(toks []lexer.Token, end int) bool {
	for _, tok := range toks {
		switch tok.Kind {
		case lexer.TokenError, lexer.TokenHeredoc, lexer.TokenHeredocBody, lexer.TokenDataSection:
			return false
		}
		if tok.Span.End.Offset > end {
			return false
		}
	}
	return true
}

func lastKind(toks []lexer.Token) lexer.TokenKind {
	for i := len(toks) - 1; i >= 0; i-- {
		if k := toks[i].Kind; k != lexer.TokenEOF && !k.IsTrivia() {
			return k
		}
	}
	return lexer.TokenEOF
}

func significant(toks []lexer.Token) int {
	n := 0
	for _, tok := range toks {
		if tok.Kind != lexer.TokenEOF && !tok.Kind.IsTrivia() {
			n++
		}
	}
	return n
}

func precededByBrace(text []byte, offset int) bool {
	for i := offset - 1; i >= 0; i-- {
		switch text[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return true
		}
		return false
	}
	return false
}

// splice builds the new tree around replacement, which takes the place of
// the last node on the path. Earlier siblings are shared, later ones are
// cloned with shifted spans, and ancestors are copied.
func (r *reparser) splice(replacement *Node, nextID NodeID, removed, added int) *Tree {
	e := r.edit
	node := replacement
	for k := len(r.path) - 2; k >= 0; k-- {
		old := r.path[k]
		cp := *old
		cp.Span.End = e.shift(old.Span.End)
		if old.Token != nil && old.Token.Span.Start.Offset >= e.OldEnd {
			tok := *old.Token
			tok.Span = e.shiftRange(tok.Span)
			cp.Token = &tok
		}
		i := r.index[k]
		cp.Children = make([]*Node, len(old.Children))
		copy(cp.Children[:i], old.Children[:i])
		cp.Children[i] = node
		for j := i + 1; j < len(old.Children); j++ {
			cp.Children[j] = e.shiftNode(old.Children[j])
		}
		node = &cp
	}

	errs := make([]*ParseError, 0, len(r.prev.Errors))
	for _, pe := range r.prev.Errors {
		if pe.Range.Start.Offset >= e.OldEnd {
			cp := *pe
			cp.Range = e.shiftRange(pe.Range)
			pe = &cp
		}
		errs = append(errs, pe)
	}
	claims := make([]position.Range, 0, len(r.prev.claims))
	for _, c := range r.prev.claims {
		if c.Start.Offset >= e.OldEnd {
			c = e.shiftRange(c)
		}
		claims = append(claims, c)
	}

	return &Tree{
		Root:       node,
		Errors:     errs,
		Generation: r.prev.Generation + 1,
		lineage:    r.prev.lineage,
		nextID:     nextID,
		nodeCount:  r.prev.nodeCount - removed + added,
		claims:     claims,
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || isDigit(c) || c >= 0x80
}
