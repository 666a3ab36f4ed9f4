package parser

import (
	"context"
	"fmt"
	"slices"

	"github.com/dhamidi/perlsp/perl/lexer"
	"github.com/dhamidi/perlsp/perl/position"
)

// DefaultMaxDepth bounds how deeply statements and expressions may nest
// before the parser gives up on a construct.
const DefaultMaxDepth = 512

type Option func(*Parser)

// WithContext makes the parse cancelable. The context is checked between
// top-level statements.
func WithContext(ctx context.Context) Option {
	return func(p *Parser) {
		p.ctx = ctx
	}
}

func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		if depth > 0 {
			p.maxDepth = depth
		}
	}
}

func withFirstID(id NodeID) Option {
	return func(p *Parser) {
		p.firstID = id
	}
}

type Parser struct {
	ctx      context.Context
	maxDepth int
	firstID  NodeID
	input    []byte
	tokens   []lexer.Token
	pos      int
	depth    int
	errors   []*ParseError
	claims   []position.Range
	canceled bool
}

func newParser(input []byte, opts []Option) *Parser {
	p := &Parser{
		maxDepth: DefaultMaxDepth,
		firstID:  1,
		input:    input,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses a complete Perl document. It is total: every input yields a
// Program tree, and problems are reported in Tree.Errors and as Error and
// Missing nodes.
func Parse(text []byte, opts ...Option) *Tree {
	p := newParser(text, opts)
	p.tokenize(lexer.New(text))
	root := p.parseProgram()
	return p.newTree(root)
}

func (p *Parser) newTree(root *Node) *Tree {
	next, count := assignIDs(root, p.firstID)
	sortErrors(p.errors)
	return &Tree{
		Root:       root,
		Errors:     p.errors,
		Generation: 1,
		Canceled:   p.canceled,
		lineage:    lineages.Add(1),
		nextID:     next,
		nodeCount:  count,
		claims:     p.claims,
	}
}

func assignIDs(root *Node, id NodeID) (NodeID, int) {
	count := 0
	root.Walk(func(n *Node) bool {
		n.ID = id
		id++
		count++
		return true
	})
	return id, count
}

func sortErrors(errs []*ParseError) {
	slices.SortStableFunc(errs, func(a, b *ParseError) int {
		return a.Range.Start.Offset - b.Range.Start.Offset
	})
}

// tokenize drains lx, dropping trivia. Lexical errors are recorded here,
// once each, and heredoc markers are paired with their bodies.
func (p *Parser) tokenize(lx *lexer.Lexer) {
	var markers []lexer.Token
	for {
		tok := lx.NextToken()
		switch tok.Kind {
		case lexer.TokenComment, lexer.TokenPod:
			continue
		case lexer.TokenHeredocBody:
			if len(markers) > 0 {
				p.claims = append(p.claims, position.Range{Start: markers[0].Span.Start, End: tok.Span.End})
				markers = markers[1:]
			}
			continue
		case lexer.TokenHeredoc:
			markers = append(markers, tok)
		case lexer.TokenError:
			p.errors = append(p.errors, &ParseError{
				Message: tok.Message,
				Found:   describe(tok),
				Range:   tok.Span,
				lexical: true,
			})
		}
		p.tokens = append(p.tokens, tok)
		if tok.Kind == lexer.TokenEOF {
			break
		}
	}
	eof := p.tokens[len(p.tokens)-1].Span.End
	for _, m := range markers {
		p.claims = append(p.claims, position.Range{Start: m.Span.Start, End: eof})
	}
}

func (p *Parser) peek() lexer.Token {
	return p.peekN(0)
}

func (p *Parser) peekN(n int) lexer.Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) advance() lexer.Token {
	tok := p.peek()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind lexer.TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) match(kinds ...lexer.TokenKind) bool {
	for _, kind := range kinds {
		if p.check(kind) {
			return true
		}
	}
	return false
}

// atEnd reports whether no statement can follow: the input is exhausted or
// a data section begins.
func (p *Parser) atEnd() bool {
	return p.match(lexer.TokenEOF, lexer.TokenDataSection)
}

// mustProgress returns a function that checks if the parser has advanced.
// Call it at the start of a loop iteration and call the returned function
// at the end. Without progress it reports and skips the current token.
func (p *Parser) mustProgress() func() bool {
	saved := p.pos
	return func() bool {
		if p.pos != saved {
			return true
		}
		if !p.check(lexer.TokenEOF) {
			tok := p.advance()
			p.report(fmt.Sprintf("unexpected %s", describe(tok)), tok)
		}
		return false
	}
}

// enter tracks nesting depth. Callers must defer leave.
func (p *Parser) enter() bool {
	p.depth++
	return p.depth <= p.maxDepth
}

func (p *Parser) leave() {
	p.depth--
}

// nested runs parse one level deeper. Right-recursive operands go through
// it so that long chains hit the depth limit.
func (p *Parser) nested(parse func() *Node) *Node {
	defer p.leave()
	if !p.enter() {
		return p.errorNode("nesting too deep", nil, syncExpression)
	}
	return parse()
}

func (p *Parser) startNode(kind NodeKind) *Node {
	return &Node{
		Kind: kind,
		Span: position.Range{Start: p.peek().Span.Start},
	}
}

// wrapNode starts a node whose first child is already parsed.
func wrapNode(kind NodeKind, first *Node) *Node {
	node := &Node{Kind: kind, Span: position.Range{Start: first.Span.Start}}
	node.AddChild(first)
	return node
}

// finishNode ends n at the last consumed token or its last child, whichever
// is later.
func (p *Parser) finishNode(n *Node) *Node {
	end := n.Span.Start
	if p.pos > 0 {
		if e := p.tokens[p.pos-1].Span.End; e.Offset > end.Offset {
			end = e
		}
	}
	if k := len(n.Children); k > 0 {
		if e := n.Children[k-1].Span.End; e.Offset > end.Offset {
			end = e
		}
	}
	n.Span.End = end
	return n
}

func (p *Parser) leaf(kind NodeKind) *Node {
	tok := p.advance()
	return &Node{Kind: kind, Span: tok.Span, Token: &tok}
}

// report records a diagnostic at tok. Lexical error tokens were reported
// when they were scanned, so they are not reported again.
func (p *Parser) report(msg string, tok lexer.Token, expected ...lexer.TokenKind) {
	if tok.Kind == lexer.TokenError {
		return
	}
	p.errors = append(p.errors, &ParseError{
		Message:  msg,
		Expected: expected,
		Found:    describe(tok),
		Range:    tok.Span,
	})
}

// missing handles an absent construct: it reports and returns a zero-width
// node without consuming input.
func (p *Parser) missing(kind NodeKind, msg string, expected ...lexer.TokenKind) *Node {
	tok := p.peek()
	p.report(msg, tok, expected...)
	return &Node{Kind: kind, Span: position.Range{Start: tok.Span.Start, End: tok.Span.Start}}
}

type syncLevel int

const (
	syncExpression syncLevel = iota
	syncStatement
)

// errorNode handles malformed input: it reports, skips to the next
// synchronization point and wraps partial, if any, in an Error node.
func (p *Parser) errorNode(msg string, partial *Node, level syncLevel, expected ...lexer.TokenKind) *Node {
	tok := p.peek()
	p.report(msg, tok, expected...)
	node := &Node{
		Kind:  KindError,
		Span:  position.Range{Start: tok.Span.Start},
		Error: &Error{Message: msg, Expected: expected, Found: tok.Kind},
	}
	if partial != nil {
		node.Span.Start = partial.Span.Start
		node.AddChild(partial)
	}
	p.synchronize(level)
	return p.finishNode(node)
}

// unclosed handles a missing closing delimiter in front of a sync point:
// it reports and wraps partial in an Error node without skipping input.
func (p *Parser) unclosed(msg string, partial *Node, expected ...lexer.TokenKind) *Node {
	tok := p.peek()
	p.report(msg, tok, expected...)
	node := &Node{
		Kind:  KindError,
		Span:  partial.Span,
		Error: &Error{Message: msg, Expected: expected, Found: tok.Kind},
	}
	node.AddChild(partial)
	return node
}

// synchronize skips tokens until a synchronization point. Statement level
// stops after ';' or before '}'; expression level stops before any of
// ; , => ) ] }. Nested brackets are skipped as a whole.
func (p *Parser) synchronize(level syncLevel) {
	braces, parens := 0, 0
	for !p.atEnd() {
		switch p.peek().Kind {
		case lexer.TokenLBrace:
			braces++
		case lexer.TokenRBrace:
			if braces == 0 {
				return
			}
			braces--
		case lexer.TokenLParen, lexer.TokenLBracket:
			if braces == 0 {
				parens++
			}
		case lexer.TokenRParen, lexer.TokenRBracket:
			if braces == 0 {
				if parens == 0 && level == syncExpression {
					return
				}
				if parens > 0 {
					parens--
				}
			}
		case lexer.TokenSemicolon:
			if braces == 0 {
				if level == syncStatement {
					p.advance()
				}
				return
			}
		case lexer.TokenComma, lexer.TokenFatComma:
			if braces == 0 && parens == 0 && level == syncExpression {
				return
			}
		}
		p.advance()
	}
}

// isSync reports whether kind ends the construct being parsed in most
// contexts.
func isSync(kind lexer.TokenKind) bool {
	switch kind {
	case lexer.TokenSemicolon, lexer.TokenRBrace, lexer.TokenRParen, lexer.TokenRBracket,
		lexer.TokenEOF, lexer.TokenDataSection:
		return true
	}
	return false
}

// isAbsence reports whether a term that should start at kind is simply
// missing rather than malformed.
func isAbsence(kind lexer.TokenKind) bool {
	return isSync(kind) || kind == lexer.TokenComma || kind == lexer.TokenFatComma || kind == lexer.TokenColon
}

func (p *Parser) parseProgram() *Node {
	node := &Node{Kind: KindProgram, Span: position.Span(p.input, 0, len(p.input))}

	for !p.check(lexer.TokenEOF) {
		if p.ctx != nil && p.ctx.Err() != nil {
			p.canceled = true
			break
		}
		progress := p.mustProgress()
		switch p.peek().Kind {
		case lexer.TokenDataSection:
			node.AddChild(p.leaf(KindDataSection))
		case lexer.TokenRBrace:
			tok := p.advance()
			msg := "unmatched '}'"
			p.report(msg, tok)
			node.AddChild(&Node{
				Kind:  KindError,
				Span:  tok.Span,
				Token: &tok,
				Error: &Error{Message: msg, Found: tok.Kind},
			})
		default:
			node.AddChild(p.parseTopLevel())
		}
		progress()
	}

	return node
}

// parseTopLevel parses one top-level statement. A panic inside the grammar
// is a bug, but it still becomes an Error node for the statement instead of
// taking the caller down.
func (p *Parser) parseTopLevel() (node *Node) {
	start := p.pos
	defer func() {
		if r := recover(); r != nil {
			p.depth = 0
			node = p.internalError(start, r)
		}
	}()
	return p.parseStatement()
}

func (p *Parser) internalError(start int, r any) *Node {
	tok := p.tokens[start]
	msg := fmt.Sprintf("internal parser error: %v", r)
	p.errors = append(p.errors, &ParseError{Message: msg, Found: describe(tok), Range: tok.Span})
	node := &Node{
		Kind:  KindError,
		Span:  position.Range{Start: tok.Span.Start},
		Error: &Error{Message: msg, Found: tok.Kind},
	}
	if p.pos <= start {
		p.pos = start
		p.advance()
	}
	p.synchronize(syncStatement)
	return p.finishNode(node)
}
