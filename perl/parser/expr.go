package parser

import (
	"fmt"

	"github.com/dhamidi/perlsp/perl/lexer"
)

// binaryLevels lists the left-associative binary operators from loosest to
// tightest, between the range operators and the unary operators.
var binaryLevels = [][]lexer.TokenKind{
	{lexer.TokenOr, lexer.TokenDefinedOr},
	{lexer.TokenAnd},
	{lexer.TokenBitOr, lexer.TokenBitXor},
	{lexer.TokenBitAnd},
	{lexer.TokenEQ, lexer.TokenNE, lexer.TokenSpaceship, lexer.TokenStrEQ, lexer.TokenStrNE,
		lexer.TokenStrCmp, lexer.TokenSmartMatch},
	{lexer.TokenLT, lexer.TokenGT, lexer.TokenLE, lexer.TokenGE, lexer.TokenStrLT,
		lexer.TokenStrGT, lexer.TokenStrLE, lexer.TokenStrGE},
	{lexer.TokenShl, lexer.TokenShr},
	{lexer.TokenPlus, lexer.TokenMinus, lexer.TokenDot},
	{lexer.TokenStar, lexer.TokenSlash, lexer.TokenPercent, lexer.TokenRepeat},
	{lexer.TokenMatch, lexer.TokenNotMatch},
}

// shiftLevel is where the operand of a named unary operator starts: it
// binds tighter than comparison.
const shiftLevel = 6

// blockFunctions take a leading block argument.
var blockFunctions = map[string]bool{
	"map":  true,
	"grep": true,
	"sort": true,
	"eval": true,
}

// startsTerm reports whether a token of this kind can begin an expression.
func startsTerm(kind lexer.TokenKind) bool {
	switch kind {
	case lexer.TokenVariable, lexer.TokenCast, lexer.TokenNumber, lexer.TokenString,
		lexer.TokenQuoteWords, lexer.TokenCommand, lexer.TokenHeredoc, lexer.TokenRegex,
		lexer.TokenSubstitution, lexer.TokenTransliteration, lexer.TokenReadline,
		lexer.TokenFileTest, lexer.TokenIdent, lexer.TokenError,
		lexer.TokenLParen, lexer.TokenLBracket, lexer.TokenLBrace,
		lexer.TokenBackslash, lexer.TokenNot, lexer.TokenBitNot, lexer.TokenMinus, lexer.TokenPlus,
		lexer.TokenIncrement, lexer.TokenDecrement, lexer.TokenWordNot,
		lexer.TokenMy, lexer.TokenOur, lexer.TokenLocal, lexer.TokenState,
		lexer.TokenSub, lexer.TokenDo, lexer.TokenReturn,
		lexer.TokenLast, lexer.TokenNext, lexer.TokenRedo:
		return true
	}
	return false
}

// startsArgs reports whether a bareword followed by kind is a call with
// arguments. A sign or a brace after an unknown word is an operator or a
// subscript, not the start of its argument list.
func startsArgs(kind lexer.TokenKind) bool {
	switch kind {
	case lexer.TokenMinus, lexer.TokenPlus, lexer.TokenLBrace, lexer.TokenIncrement,
		lexer.TokenDecrement:
		return false
	}
	return startsTerm(kind)
}

func isAssignOp(kind lexer.TokenKind) bool {
	switch kind {
	case lexer.TokenAssign, lexer.TokenPlusAssign, lexer.TokenMinusAssign, lexer.TokenStarAssign,
		lexer.TokenSlashAssign, lexer.TokenPercentAssign, lexer.TokenPowerAssign, lexer.TokenDotAssign,
		lexer.TokenAndAssign, lexer.TokenOrAssign, lexer.TokenDefinedOrAssign,
		lexer.TokenBitAndAssign, lexer.TokenBitOrAssign, lexer.TokenBitXorAssign,
		lexer.TokenShlAssign, lexer.TokenShrAssign, lexer.TokenRepeatAssign:
		return true
	}
	return false
}

// parseExpression parses a full expression including comma lists and the
// low-precedence logical operators.
func (p *Parser) parseExpression() *Node {
	return p.parseLowOr(true)
}

// binary builds a binary node from left, the operator at the cursor and
// the operand parsed by next.
func (p *Parser) binary(left *Node, next func() *Node) *Node {
	node := wrapNode(KindBinaryExpression, left)
	tok := p.advance()
	node.Token = &tok
	node.AddChild(next())
	return p.finishNode(node)
}

func (p *Parser) parseLowOr(commas bool) *Node {
	left := p.parseLowAnd(commas)
	for p.match(lexer.TokenWordOr, lexer.TokenWordXor) {
		left = p.binary(left, func() *Node { return p.parseLowAnd(commas) })
	}
	return left
}

func (p *Parser) parseLowAnd(commas bool) *Node {
	left := p.parseLowNot(commas)
	for p.check(lexer.TokenWordAnd) {
		left = p.binary(left, func() *Node { return p.parseLowNot(commas) })
	}
	return left
}

func (p *Parser) parseLowNot(commas bool) *Node {
	if p.check(lexer.TokenWordNot) {
		defer p.leave()
		if !p.enter() {
			return p.errorNode("nesting too deep", nil, syncExpression)
		}
		node := p.startNode(KindUnaryExpression)
		tok := p.advance()
		node.Token = &tok
		node.AddChild(p.parseLowNot(commas))
		return p.finishNode(node)
	}
	if commas {
		return p.parseCommaList()
	}
	return p.parseAssign()
}

// parseCommaList parses comma-separated assignments. A single element is
// returned as is; trailing and doubled commas are allowed.
func (p *Parser) parseCommaList() *Node {
	first := p.parseAssign()
	if !p.match(lexer.TokenComma, lexer.TokenFatComma) {
		return first
	}
	list := wrapNode(KindList, first)
	for p.match(lexer.TokenComma, lexer.TokenFatComma) {
		p.advance()
		if p.match(lexer.TokenComma, lexer.TokenFatComma) {
			continue
		}
		if !startsTerm(p.peek().Kind) {
			break
		}
		list.AddChild(p.parseAssign())
	}
	return p.finishNode(list)
}

// parseAssign parses right-associative assignment. An initializer of a
// single my/our/state/local declaration becomes the declaration's second
// child.
func (p *Parser) parseAssign() *Node {
	left := p.parseTernary()
	if !isAssignOp(p.peek().Kind) {
		return left
	}
	tok := p.advance()
	right := p.nested(p.parseAssign)
	if left.Kind == KindVariableDeclaration && tok.Kind == lexer.TokenAssign && len(left.Children) == 1 {
		left.AddChild(right)
		return p.finishNode(left)
	}
	node := wrapNode(KindAssignment, left)
	node.Token = &tok
	node.AddChild(right)
	return p.finishNode(node)
}

func (p *Parser) parseTernary() *Node {
	cond := p.parseRange()
	if !p.check(lexer.TokenQuestion) {
		return cond
	}
	node := wrapNode(KindTernary, cond)
	tok := p.advance()
	node.Token = &tok
	node.AddChild(p.nested(p.parseAssign))
	if p.check(lexer.TokenColon) {
		p.advance()
		node.AddChild(p.nested(p.parseTernary))
	} else {
		node.AddChild(p.missing(KindMissingExpression, "expected ':' in conditional expression", lexer.TokenColon))
	}
	return p.finishNode(node)
}

func (p *Parser) parseRange() *Node {
	left := p.parseBinary(0)
	if p.match(lexer.TokenRange, lexer.TokenEllipsis) {
		left = p.binary(left, func() *Node { return p.parseBinary(0) })
	}
	return left
}

func (p *Parser) parseBinary(level int) *Node {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}
	left := p.parseBinary(level + 1)
	for p.match(binaryLevels[level]...) {
		left = p.binary(left, func() *Node { return p.parseBinary(level + 1) })
	}
	return left
}

func (p *Parser) parseUnary() *Node {
	defer p.leave()
	if !p.enter() {
		return p.errorNode("nesting too deep", nil, syncExpression)
	}

	switch p.peek().Kind {
	case lexer.TokenNot, lexer.TokenBitNot, lexer.TokenBackslash, lexer.TokenMinus, lexer.TokenPlus:
		node := p.startNode(KindUnaryExpression)
		tok := p.advance()
		node.Token = &tok
		node.AddChild(p.parseUnary())
		return p.finishNode(node)
	case lexer.TokenFileTest:
		node := p.startNode(KindUnaryExpression)
		tok := p.advance()
		node.Token = &tok
		if startsArgs(p.peek().Kind) {
			node.AddChild(p.parseBinary(shiftLevel))
		}
		return p.finishNode(node)
	}
	return p.parsePower()
}

func (p *Parser) parsePower() *Node {
	base := p.parseIncDec()
	if !p.check(lexer.TokenPower) {
		return base
	}
	return p.binary(base, p.parseUnary)
}

func (p *Parser) parseIncDec() *Node {
	if p.match(lexer.TokenIncrement, lexer.TokenDecrement) {
		node := p.startNode(KindUnaryExpression)
		tok := p.advance()
		node.Token = &tok
		node.AddChild(p.parseUnary())
		return p.finishNode(node)
	}
	term := p.parsePostfix()
	if p.match(lexer.TokenIncrement, lexer.TokenDecrement) {
		node := wrapNode(KindPostfixExpression, term)
		tok := p.advance()
		node.Token = &tok
		return p.finishNode(node)
	}
	return term
}

// parsePostfix parses a primary followed by any chain of subscripts,
// arrow operations and calls.
func (p *Parser) parsePostfix() *Node {
	node := p.parsePrimary()
	for {
		switch p.peek().Kind {
		case lexer.TokenArrow:
			node = p.parseArrow(node)
		case lexer.TokenLBracket:
			if !subscriptable(node) && !isParenList(node) {
				return node
			}
			node = p.parseSubscript(node)
		case lexer.TokenLBrace:
			if !subscriptable(node) {
				return node
			}
			node = p.parseSubscript(node)
		case lexer.TokenLParen:
			if !callable(node) {
				return node
			}
			node = p.parseCall(node, nil)
		default:
			return node
		}
	}
}

func subscriptable(n *Node) bool {
	switch n.Kind {
	case KindVariable, KindSubscript, KindDeref:
		return true
	}
	return false
}

func isParenList(n *Node) bool {
	return n.Kind == KindList && n.Token != nil && n.Token.Kind == lexer.TokenLParen
}

func callable(n *Node) bool {
	switch n.Kind {
	case KindVariable:
		return n.Token != nil && n.Token.Text[0] == '&'
	case KindSubscript, KindDeref:
		return true
	}
	return false
}

func (p *Parser) parseSubscript(base *Node) *Node {
	node := wrapNode(KindSubscript, base)
	open := p.advance()
	node.Token = &open
	closeKind := lexer.TokenRBracket
	if open.Kind == lexer.TokenLBrace {
		closeKind = lexer.TokenRBrace
	}
	node.AddChild(p.parseExpression())
	return p.closeWith(node, closeKind, open)
}

func (p *Parser) parseCall(callee *Node, arrow *lexer.Token) *Node {
	node := wrapNode(KindFunctionCall, callee)
	node.Token = arrow
	node.AddChild(p.parseDelimited(KindList, lexer.TokenRParen))
	return p.finishNode(node)
}

// parseArrow parses what follows '->': a subscript through a reference, a
// code reference call, a method call or a postfix dereference.
func (p *Parser) parseArrow(base *Node) *Node {
	arrow := p.advance()
	switch p.peek().Kind {
	case lexer.TokenLBracket, lexer.TokenLBrace:
		deref := wrapNode(KindDeref, base)
		deref.Token = &arrow
		return p.parseSubscript(p.finishNode(deref))
	case lexer.TokenLParen:
		return p.parseCall(base, &arrow)
	case lexer.TokenIdent, lexer.TokenVariable:
		node := wrapNode(KindMethodCall, base)
		node.Token = &arrow
		if p.check(lexer.TokenIdent) {
			node.AddChild(p.leaf(KindIdentifier))
		} else {
			node.AddChild(p.leaf(KindVariable))
		}
		if p.check(lexer.TokenLParen) {
			node.AddChild(p.parseDelimited(KindList, lexer.TokenRParen))
		}
		return p.finishNode(node)
	case lexer.TokenCast:
		deref := wrapNode(KindDeref, base)
		tok := p.advance()
		deref.Token = &tok
		return p.finishNode(deref)
	}

	msg := "expected method name or subscript after '->'"
	if isAbsence(p.peek().Kind) {
		node := wrapNode(KindMethodCall, base)
		node.Token = &arrow
		node.AddChild(p.missing(KindMissingIdentifier, msg, lexer.TokenIdent))
		return p.finishNode(node)
	}
	return p.errorNode(msg, p.finishNode(wrapNode(KindMethodCall, base)), syncExpression, lexer.TokenIdent)
}

// parseDelimited parses a bracketed, comma-separated list. Stray tokens are
// skipped one at a time and a missing separator is reported without
// consuming anything.
func (p *Parser) parseDelimited(kind NodeKind, closeKind lexer.TokenKind) *Node {
	node := p.startNode(kind)
	open := p.advance()
	node.Token = &open

	for !p.check(closeKind) && !p.atEnd() {
		progress := p.mustProgress()
		tok := p.peek()
		switch {
		case tok.Kind == lexer.TokenComma || tok.Kind == lexer.TokenFatComma:
			p.advance()
		case startsTerm(tok.Kind):
			node.AddChild(p.parseLowOr(false))
			next := p.peek().Kind
			if next != closeKind && next != lexer.TokenComma && next != lexer.TokenFatComma && startsTerm(next) {
				p.report(fmt.Sprintf("expected ',' or %s", quoteKind(closeKind)), p.peek(), lexer.TokenComma, closeKind)
			}
		case isSync(tok.Kind):
			return p.closeWith(node, closeKind, open)
		default:
			p.advance()
			p.report(fmt.Sprintf("unexpected %s in list", describe(tok)), tok)
		}
		progress()
	}

	return p.closeWith(node, closeKind, open)
}

// closeWith consumes the closing delimiter of node. Otherwise the partial
// node is wrapped in an Error, and the parser resyncs unless the closer is
// simply absent.
func (p *Parser) closeWith(node *Node, closeKind lexer.TokenKind, open lexer.Token) *Node {
	if p.check(closeKind) {
		p.advance()
		return p.finishNode(node)
	}
	msg := fmt.Sprintf("expected %s to close %s", quoteKind(closeKind), quoteKind(open.Kind))
	if isSync(p.peek().Kind) || p.check(lexer.TokenLBrace) {
		return p.unclosed(msg, p.finishNode(node), closeKind)
	}
	errNode := p.errorNode(msg, p.finishNode(node), syncExpression, closeKind)
	if p.check(closeKind) {
		p.advance()
		errNode = p.finishNode(errNode)
	}
	return errNode
}

func (p *Parser) parsePrimary() *Node {
	tok := p.peek()
	switch tok.Kind {
	case lexer.TokenVariable:
		return p.leaf(KindVariable)
	case lexer.TokenNumber, lexer.TokenString, lexer.TokenQuoteWords, lexer.TokenCommand,
		lexer.TokenHeredoc, lexer.TokenRegex, lexer.TokenSubstitution, lexer.TokenTransliteration,
		lexer.TokenReadline:
		return p.leaf(KindLiteral)
	case lexer.TokenError:
		p.advance()
		return &Node{
			Kind:  KindError,
			Span:  tok.Span,
			Token: &tok,
			Error: &Error{Message: tok.Message, Found: lexer.TokenError},
		}
	case lexer.TokenCast:
		return p.parseCastDeref()
	case lexer.TokenLParen:
		return p.parseDelimited(KindList, lexer.TokenRParen)
	case lexer.TokenLBracket:
		return p.parseDelimited(KindArrayRef, lexer.TokenRBracket)
	case lexer.TokenLBrace:
		return p.parseDelimited(KindHashRef, lexer.TokenRBrace)
	case lexer.TokenSub:
		return p.parseAnonymousSub()
	case lexer.TokenDo:
		return p.parseDo()
	case lexer.TokenMy, lexer.TokenOur, lexer.TokenLocal, lexer.TokenState:
		return p.parseDeclaration()
	case lexer.TokenReturn:
		node := p.startNode(KindReturn)
		kw := p.advance()
		node.Token = &kw
		if startsTerm(p.peek().Kind) {
			node.AddChild(p.parseCommaList())
		}
		return p.finishNode(node)
	case lexer.TokenLast, lexer.TokenNext, lexer.TokenRedo:
		node := p.startNode(KindLoopControl)
		kw := p.advance()
		node.Token = &kw
		if p.check(lexer.TokenIdent) {
			node.AddChild(p.leaf(KindIdentifier))
		}
		return p.finishNode(node)
	case lexer.TokenIdent:
		return p.parseBareword()
	}

	if isAbsence(tok.Kind) {
		return p.missing(KindMissingExpression, "expected expression")
	}
	return p.errorNode(fmt.Sprintf("unexpected %s, expected expression", describe(tok)), nil, syncExpression)
}

// parseCastDeref parses a sigil applied to a block, as in @{$ref}.
func (p *Parser) parseCastDeref() *Node {
	tok := p.peek()
	if p.peekN(1).Kind != lexer.TokenLBrace {
		return p.errorNode(fmt.Sprintf("unexpected %s, expected expression", describe(tok)), nil, syncExpression)
	}
	node := p.startNode(KindDeref)
	p.advance()
	node.Token = &tok
	node.AddChild(p.parseBlock())
	return p.finishNode(node)
}

func (p *Parser) parseDo() *Node {
	tok := p.peek()
	if p.peekN(1).Kind == lexer.TokenLBrace {
		node := p.startNode(KindDoBlock)
		p.advance()
		node.Token = &tok
		node.AddChild(p.parseBlock())
		return p.finishNode(node)
	}
	node := p.startNode(KindFunctionCall)
	p.advance()
	node.Token = &tok
	if startsArgs(p.peek().Kind) {
		node.AddChild(p.parseBinary(shiftLevel))
	} else {
		node.AddChild(p.missing(KindMissingExpression, "expected block or file name after 'do'", lexer.TokenLBrace))
	}
	return p.finishNode(node)
}

func (p *Parser) parseDeclaration() *Node {
	node := p.startNode(KindVariableDeclaration)
	tok := p.advance()
	node.Token = &tok

	msg := fmt.Sprintf("expected variable after '%s'", tok.Text)
	switch next := p.peek().Kind; {
	case tok.Kind == lexer.TokenLocal && startsTerm(next):
		node.AddChild(p.parsePostfix())
	case next == lexer.TokenVariable:
		node.AddChild(p.leaf(KindVariable))
	case next == lexer.TokenLParen:
		node.AddChild(p.parseDelimited(KindList, lexer.TokenRParen))
	case isAbsence(next) || isAssignOp(next):
		node.AddChild(p.missing(KindMissingIdentifier, msg, lexer.TokenVariable))
	default:
		return p.errorNode(msg, p.finishNode(node), syncExpression, lexer.TokenVariable)
	}
	return p.finishNode(node)
}

// parseBareword parses a statement-level or expression-level word: a
// function call, a class name, a hash key or a plain identifier.
func (p *Parser) parseBareword() *Node {
	tok := p.peek()
	next := p.peekN(1).Kind

	switch next {
	case lexer.TokenFatComma, lexer.TokenArrow:
		return p.leaf(KindIdentifier)
	case lexer.TokenLParen:
		node := p.startNode(KindFunctionCall)
		p.advance()
		node.Token = &tok
		node.AddChild(p.parseDelimited(KindList, lexer.TokenRParen))
		return p.finishNode(node)
	}

	name := tok.Text
	switch {
	case lexer.IsNamedUnary(name):
		node := p.startNode(KindFunctionCall)
		p.advance()
		node.Token = &tok
		if startsArgs(p.peek().Kind) {
			node.AddChild(p.parseBinary(shiftLevel))
		}
		return p.finishNode(node)

	case blockFunctions[name] && next == lexer.TokenLBrace:
		node := p.startNode(KindFunctionCall)
		p.advance()
		node.Token = &tok
		node.AddChild(p.parseBlock())
		if p.check(lexer.TokenComma) {
			p.advance()
		}
		if startsTerm(p.peek().Kind) {
			node.AddChild(p.parseCommaList())
		}
		return p.finishNode(node)

	case lexer.IsListOperator(name):
		node := p.startNode(KindFunctionCall)
		p.advance()
		node.Token = &tok
		if name == "print" || name == "printf" || name == "say" {
			node.AddChild(p.parseFileHandle())
		}
		if startsTerm(p.peek().Kind) {
			node.AddChild(p.parseCommaList())
		}
		return p.finishNode(node)

	case next == lexer.TokenLBrace:
		// try { ... } catch { ... } and similar block-taking functions.
		node := p.startNode(KindFunctionCall)
		p.advance()
		node.Token = &tok
		node.AddChild(p.parseBlock())
		if startsTerm(p.peek().Kind) && !p.check(lexer.TokenLBrace) {
			node.AddChild(p.parseCommaList())
		}
		return p.finishNode(node)

	case startsArgs(next):
		node := p.startNode(KindFunctionCall)
		p.advance()
		node.Token = &tok
		node.AddChild(p.parseCommaList())
		return p.finishNode(node)
	}

	return p.leaf(KindIdentifier)
}

// parseFileHandle parses the optional filehandle of print, printf and say:
// {$fh}, STDERR or a scalar directly followed by the first argument.
func (p *Parser) parseFileHandle() *Node {
	tok := p.peek()
	next := p.peekN(1).Kind
	switch {
	case tok.Kind == lexer.TokenLBrace:
		return p.parseBlock()
	case tok.Kind == lexer.TokenIdent && isHandleName(tok.Text) && startsHandleArg(next):
		return p.leaf(KindIdentifier)
	case tok.Kind == lexer.TokenIdent && isHandleName(tok.Text) && isSync(next):
		return p.leaf(KindIdentifier)
	case tok.Kind == lexer.TokenVariable && tok.Text[0] == '$' && startsHandleArg(next):
		return p.leaf(KindVariable)
	}
	return nil
}

func isHandleName(name string) bool {
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !(c >= 'A' && c <= 'Z' || c == '_' || c >= '0' && c <= '9' && i > 0) {
			return false
		}
	}
	return name != ""
}

func startsHandleArg(kind lexer.TokenKind) bool {
	switch kind {
	case lexer.TokenString, lexer.TokenNumber, lexer.TokenVariable, lexer.TokenHeredoc,
		lexer.TokenQuoteWords, lexer.TokenIdent, lexer.TokenCast, lexer.TokenCommand:
		return true
	}
	return false
}
