package parser

import (
	"fmt"

	"github.com/dhamidi/perlsp/perl/lexer"
	"github.com/dhamidi/perlsp/perl/position"
)

var specialBlocks = map[string]bool{
	"BEGIN":     true,
	"END":       true,
	"INIT":      true,
	"CHECK":     true,
	"UNITCHECK": true,
	"ADJUST":    true,
}

func (p *Parser) parseStatement() *Node {
	defer p.leave()
	if !p.enter() {
		return p.errorNode("nesting too deep", nil, syncStatement)
	}

	tok := p.peek()
	switch tok.Kind {
	case lexer.TokenSemicolon:
		return p.leaf(KindEmptyStatement)
	case lexer.TokenLBrace:
		return p.parseBlock()
	case lexer.TokenSub:
		if p.peekN(1).Kind == lexer.TokenIdent {
			return p.parseSubroutine()
		}
	case lexer.TokenPackage:
		return p.parsePackage()
	case lexer.TokenUse, lexer.TokenNo:
		return p.parseUse()
	case lexer.TokenIf, lexer.TokenUnless:
		return p.parseIf()
	case lexer.TokenWhile, lexer.TokenUntil:
		return p.parseWhile()
	case lexer.TokenFor, lexer.TokenForeach:
		return p.parseFor()
	case lexer.TokenIdent:
		next := p.peekN(1).Kind
		if next == lexer.TokenColon {
			return p.parseLabeled()
		}
		if specialBlocks[tok.Text] && next == lexer.TokenLBrace {
			return p.parseSpecialBlock()
		}
	case lexer.TokenRBrace, lexer.TokenEOF, lexer.TokenDataSection:
		return p.missing(KindMissingStatement, "expected statement")
	}

	if !startsTerm(tok.Kind) {
		return p.errorNode(fmt.Sprintf("unexpected %s", describe(tok)), nil, syncStatement)
	}
	return p.parseSimpleStatement()
}

// parseSimpleStatement parses an expression statement with an optional
// trailing modifier. Declarations, return and loop control stand for the
// statement themselves.
func (p *Parser) parseSimpleStatement() *Node {
	expr := p.parseExpression()
	stmt := expr
	switch expr.Kind {
	case KindVariableDeclaration, KindReturn, KindLoopControl:
	default:
		stmt = wrapNode(KindExpressionStatement, expr)
	}
	if isModifier(p.peek().Kind) {
		stmt.AddChild(p.parseModifier())
	}
	return p.endStatement(stmt)
}

func isModifier(kind lexer.TokenKind) bool {
	switch kind {
	case lexer.TokenIf, lexer.TokenUnless, lexer.TokenWhile, lexer.TokenUntil,
		lexer.TokenFor, lexer.TokenForeach:
		return true
	}
	return false
}

func (p *Parser) parseModifier() *Node {
	node := p.startNode(KindStatementModifier)
	tok := p.advance()
	node.Token = &tok
	node.AddChild(p.parseExpression())
	return p.finishNode(node)
}

// endStatement consumes the terminating ';'. It may be omitted before '}'
// and at the end of input.
func (p *Parser) endStatement(stmt *Node) *Node {
	switch {
	case p.check(lexer.TokenSemicolon):
		p.advance()
	case p.check(lexer.TokenRBrace), p.atEnd():
	default:
		return p.errorNode("expected ';'", p.finishNode(stmt), syncStatement, lexer.TokenSemicolon)
	}
	return p.finishNode(stmt)
}

func (p *Parser) parseBlock() *Node {
	node := p.startNode(KindBlock)
	p.advance()

	for !p.check(lexer.TokenRBrace) && !p.atEnd() {
		progress := p.mustProgress()
		node.AddChild(p.parseStatement())
		progress()
	}

	if !p.check(lexer.TokenRBrace) {
		p.report("expected '}' to close block", p.peek(), lexer.TokenRBrace)
		return p.finishNode(node)
	}
	p.advance()
	return p.finishNode(node)
}

// parseBody parses a required block, standing in a MissingBlock when the
// '{' is absent.
func (p *Parser) parseBody() *Node {
	if p.check(lexer.TokenLBrace) {
		return p.parseBlock()
	}
	return p.missing(KindMissingBlock, "expected '{'", lexer.TokenLBrace)
}

// parseCondition parses a parenthesized condition. An absent ')' wraps the
// condition in an Error without skipping, so the block that follows still
// parses.
func (p *Parser) parseCondition(allowEmpty bool) *Node {
	if !p.check(lexer.TokenLParen) {
		return p.missing(KindMissingExpression, "expected '('", lexer.TokenLParen)
	}
	open := p.advance()
	if p.check(lexer.TokenRParen) && allowEmpty {
		node := &Node{Kind: KindList, Span: position.Range{Start: open.Span.Start}, Token: &open}
		p.advance()
		return p.finishNode(node)
	}
	cond := p.parseExpression()
	if !p.check(lexer.TokenRParen) {
		return p.unclosed("expected ')' to close '('", cond, lexer.TokenRParen)
	}
	p.advance()
	return cond
}

func (p *Parser) parseIf() *Node {
	node := p.startNode(KindIf)
	tok := p.advance()
	node.Token = &tok
	node.AddChild(p.parseCondition(false))
	node.AddChild(p.parseBody())

	for p.check(lexer.TokenElsif) {
		clause := p.startNode(KindElsifClause)
		kw := p.advance()
		clause.Token = &kw
		clause.AddChild(p.parseCondition(false))
		clause.AddChild(p.parseBody())
		node.AddChild(p.finishNode(clause))
	}

	if p.check(lexer.TokenElse) {
		clause := p.startNode(KindElseClause)
		kw := p.advance()
		clause.Token = &kw
		clause.AddChild(p.parseBody())
		node.AddChild(p.finishNode(clause))
	}

	return p.finishNode(node)
}

func (p *Parser) parseWhile() *Node {
	node := p.startNode(KindWhile)
	tok := p.advance()
	node.Token = &tok
	node.AddChild(p.parseCondition(true))
	node.AddChild(p.parseBody())
	node.AddChild(p.parseContinue())
	return p.finishNode(node)
}

func (p *Parser) parseContinue() *Node {
	if !p.check(lexer.TokenContinue) {
		return nil
	}
	node := p.startNode(KindContinueClause)
	tok := p.advance()
	node.Token = &tok
	node.AddChild(p.parseBody())
	return p.finishNode(node)
}

func (p *Parser) parseFor() *Node {
	node := p.startNode(KindForeach)
	tok := p.advance()
	node.Token = &tok

	if p.check(lexer.TokenLParen) && p.isCStyleFor() {
		node.Kind = KindFor
		p.parseForHeader(node)
		node.AddChild(p.parseBody())
		return p.finishNode(node)
	}

	switch p.peek().Kind {
	case lexer.TokenMy, lexer.TokenOur, lexer.TokenState:
		decl := p.startNode(KindVariableDeclaration)
		kw := p.advance()
		decl.Token = &kw
		if p.check(lexer.TokenVariable) {
			decl.AddChild(p.leaf(KindVariable))
		} else {
			decl.AddChild(p.missing(KindMissingIdentifier, "expected loop variable", lexer.TokenVariable))
		}
		node.AddChild(p.finishNode(decl))
	case lexer.TokenVariable:
		node.AddChild(p.leaf(KindVariable))
	}

	if p.check(lexer.TokenLParen) {
		node.AddChild(p.parseDelimited(KindList, lexer.TokenRParen))
	} else {
		node.AddChild(p.missing(KindMissingExpression, "expected '('", lexer.TokenLParen))
	}
	node.AddChild(p.parseBody())
	node.AddChild(p.parseContinue())
	return p.finishNode(node)
}

// isCStyleFor looks ahead from '(' for a ';' at the top nesting level.
func (p *Parser) isCStyleFor() bool {
	depth := 0
	for i := p.pos; i < len(p.tokens); i++ {
		switch p.tokens[i].Kind {
		case lexer.TokenLParen, lexer.TokenLBracket, lexer.TokenLBrace:
			depth++
		case lexer.TokenRParen, lexer.TokenRBracket, lexer.TokenRBrace:
			depth--
			if depth <= 0 {
				return false
			}
		case lexer.TokenSemicolon:
			if depth == 1 {
				return true
			}
		case lexer.TokenEOF:
			return false
		}
	}
	return false
}

// parseForHeader parses (init; cond; step). Empty parts become zero-width
// List nodes.
func (p *Parser) parseForHeader(node *Node) {
	p.advance()
	for _, closer := range []lexer.TokenKind{lexer.TokenSemicolon, lexer.TokenSemicolon, lexer.TokenRParen} {
		if p.check(closer) {
			at := p.peek().Span.Start
			node.AddChild(&Node{Kind: KindList, Span: position.Range{Start: at, End: at}})
		} else {
			node.AddChild(p.parseExpression())
		}
		if p.check(closer) {
			p.advance()
			continue
		}
		msg := "expected ';'"
		if closer == lexer.TokenRParen {
			msg = "expected ')' to close '('"
		}
		p.report(msg, p.peek(), closer)
		if !p.check(lexer.TokenSemicolon) {
			return
		}
		p.advance()
	}
}

func (p *Parser) parseSubroutine() *Node {
	node := p.startNode(KindSubroutine)
	tok := p.advance()
	node.Token = &tok
	node.AddChild(p.leaf(KindIdentifier))
	return p.parseSubTail(node, true)
}

func (p *Parser) parseAnonymousSub() *Node {
	node := p.startNode(KindAnonymousSub)
	tok := p.advance()
	node.Token = &tok
	return p.parseSubTail(node, false)
}

// parseSubTail parses what follows sub or sub NAME: an optional signature
// or prototype, attributes, and the body. Named subs may be forward
// declarations ending in ';'.
func (p *Parser) parseSubTail(node *Node, named bool) *Node {
	if p.check(lexer.TokenLParen) {
		node.AddChild(p.parseSignature())
	}
	for p.check(lexer.TokenColon) {
		p.advance()
		if p.check(lexer.TokenIdent) {
			p.advance()
			if p.check(lexer.TokenLParen) {
				p.skipBalanced()
			}
		}
	}
	if named && p.check(lexer.TokenSemicolon) {
		p.advance()
		return p.finishNode(node)
	}
	node.AddChild(p.parseBody())
	return p.finishNode(node)
}

// skipBalanced consumes a bracketed group starting at the current token.
func (p *Parser) skipBalanced() {
	depth := 0
	for !p.atEnd() {
		switch p.advance().Kind {
		case lexer.TokenLParen, lexer.TokenLBracket, lexer.TokenLBrace:
			depth++
		case lexer.TokenRParen, lexer.TokenRBracket, lexer.TokenRBrace:
			depth--
		}
		if depth <= 0 {
			return
		}
	}
}

// parseSignature keeps the parameter variables of a signature or
// prototype. Default values are skipped.
func (p *Parser) parseSignature() *Node {
	node := p.startNode(KindSignature)
	p.advance()
	depth := 0

loop:
	for !p.atEnd() {
		switch p.peek().Kind {
		case lexer.TokenLParen, lexer.TokenLBracket:
			depth++
		case lexer.TokenRParen, lexer.TokenRBracket:
			if depth == 0 {
				break loop
			}
			depth--
		case lexer.TokenLBrace:
			if depth == 0 {
				break loop
			}
		case lexer.TokenVariable:
			if depth == 0 {
				node.AddChild(p.leaf(KindVariable))
				continue
			}
		}
		p.advance()
	}

	if p.check(lexer.TokenRParen) {
		p.advance()
	} else {
		p.report("expected ')' to close '('", p.peek(), lexer.TokenRParen)
	}
	return p.finishNode(node)
}

func (p *Parser) parsePackage() *Node {
	node := p.startNode(KindPackage)
	tok := p.advance()
	node.Token = &tok

	if p.check(lexer.TokenIdent) {
		node.AddChild(p.leaf(KindIdentifier))
	} else {
		node.AddChild(p.missing(KindMissingIdentifier, "expected package name", lexer.TokenIdent))
	}
	if p.check(lexer.TokenNumber) {
		node.AddChild(p.leaf(KindLiteral))
	}
	if p.check(lexer.TokenLBrace) {
		node.AddChild(p.parseBlock())
		return p.finishNode(node)
	}
	return p.endStatement(node)
}

func (p *Parser) parseUse() *Node {
	node := p.startNode(KindUse)
	tok := p.advance()
	node.Token = &tok

	switch {
	case p.check(lexer.TokenNumber):
		node.AddChild(p.leaf(KindLiteral))
	case p.check(lexer.TokenIdent):
		node.AddChild(p.leaf(KindIdentifier))
		if p.check(lexer.TokenNumber) {
			switch p.peekN(1).Kind {
			case lexer.TokenComma, lexer.TokenFatComma:
			default:
				node.AddChild(p.leaf(KindLiteral))
			}
		}
	default:
		node.AddChild(p.missing(KindMissingIdentifier, fmt.Sprintf("expected module name after '%s'", tok.Text), lexer.TokenIdent))
	}

	if startsTerm(p.peek().Kind) {
		node.AddChild(p.parseCommaList())
	}
	return p.endStatement(node)
}

func (p *Parser) parseSpecialBlock() *Node {
	node := p.startNode(KindSpecialBlock)
	tok := p.advance()
	node.Token = &tok
	node.AddChild(p.parseBlock())
	return p.finishNode(node)
}

func (p *Parser) parseLabeled() *Node {
	node := p.startNode(KindLabeled)
	node.AddChild(p.leaf(KindIdentifier))
	p.advance()
	node.AddChild(p.parseStatement())
	return p.finishNode(node)
}
