package lexer

import (
	"fmt"
	"iter"
	"unicode"
	"unicode/utf8"

	"github.com/dhamidi/perlsp/perl/position"
)

// Mode is the lexer's guess about what the parser expects next. It decides
// how ambiguous symbols such as '/', '%', '<<' and 'x' are scanned.
type Mode int

const (
	ModeTerm Mode = iota
	ModeOperator
)

func (m Mode) String() string {
	if m == ModeOperator {
		return "operator"
	}
	return "term"
}

type braceKind uint8

const (
	braceBlock braceKind = iota
	braceSubscript
	braceHash
)

// State is the part of the lexer that crosses token boundaries.
type State struct {
	Mode            Mode
	Depth           int // braces still open
	Underflow       int // closing braces that had no opener
	PendingHeredocs int
	DataSection     bool
}

// Clean reports whether the state is the one a fresh lexer starts with.
func (s State) Clean() bool {
	return s.Mode == ModeTerm && s.Depth == 0 && s.Underflow == 0 &&
		s.PendingHeredocs == 0 && !s.DataSection
}

type Option func(*Lexer)

// WithRange restricts tokenization to input[start:end]. Scanning may look
// past end to classify a token, but no token starts at or after end.
func WithRange(start, end int) Option {
	return func(l *Lexer) {
		l.start = start
		l.limit = end
	}
}

type Lexer struct {
	input  []byte
	start  int
	limit  int
	pos    int
	line   int
	column int

	mode      Mode
	prev      TokenKind
	prev2     TokenKind
	label     bool
	braces    []braceKind
	lastClose braceKind
	underflow int
	pending   []heredocBody
	queued    []Token
	done      bool
}

func New(input []byte, opts ...Option) *Lexer {
	l := &Lexer{input: input, limit: len(input)}
	for _, opt := range opts {
		opt(l)
	}
	if l.start < 0 {
		l.start = 0
	}
	if l.limit > len(input) || l.limit < 0 {
		l.limit = len(input)
	}
	if l.start > l.limit {
		l.start = l.limit
	}
	l.Reset()
	return l
}

// Reset restarts scanning from the beginning of the input (or range).
func (l *Lexer) Reset() {
	p := position.At(l.input, l.start)
	l.pos = p.Offset
	l.line = p.Line
	l.column = p.Column
	l.mode = ModeTerm
	l.prev = TokenSemicolon
	l.prev2 = TokenSemicolon
	l.label = false
	l.braces = l.braces[:0]
	l.lastClose = braceBlock
	l.underflow = 0
	l.pending = nil
	l.queued = nil
	l.done = false
}

func (l *Lexer) State() State {
	return State{
		Mode:            l.mode,
		Depth:           len(l.braces),
		Underflow:       l.underflow,
		PendingHeredocs: len(l.pending),
		DataSection:     l.done,
	}
}

// Tokenize scans all of input, including the final EOF token.
func Tokenize(input []byte, opts ...Option) []Token {
	l := New(input, opts...)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens
		}
	}
}

// Tokens yields every token of input up to, but not including, EOF.
func Tokens(input []byte, opts ...Option) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		l := New(input, opts...)
		for {
			tok := l.NextToken()
			if tok.Kind == TokenEOF || !yield(tok) {
				return
			}
		}
	}
}

func (l *Lexer) Position() position.Position {
	return position.Position{Offset: l.pos, Line: l.line, Column: l.column}
}

func (l *Lexer) peek() byte {
	return l.peekN(0)
}

func (l *Lexer) peekN(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	ch := l.input[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

func (l *Lexer) advanceTo(offset int) {
	if offset > len(l.input) {
		offset = len(l.input)
	}
	for l.pos < offset {
		l.advance()
	}
}

func (l *Lexer) atLineStart() bool {
	return l.pos == 0 || l.input[l.pos-1] == '\n'
}

func (l *Lexer) token(kind TokenKind, start position.Position) Token {
	end := l.Position()
	return Token{
		Kind: kind,
		Span: position.Range{Start: start, End: end},
		Text: string(l.input[start.Offset:end.Offset]),
	}
}

// errorToken consumes input up to end and reports it as a single error.
func (l *Lexer) errorToken(start position.Position, end int, format string, args ...any) Token {
	l.advanceTo(end)
	if l.pos == start.Offset && l.pos < len(l.input) {
		l.advance()
	}
	tok := l.token(TokenError, start)
	tok.Message = fmt.Sprintf(format, args...)
	return tok
}

// restOfLine returns the offset of the next newline at or after from, or the
// end of input. Unterminated constructs resume there.
func (l *Lexer) restOfLine(from int) int {
	for i := from; i < len(l.input); i++ {
		if l.input[i] == '\n' {
			return i
		}
	}
	return len(l.input)
}

func (l *Lexer) NextToken() Token {
	if len(l.queued) > 0 {
		tok := l.queued[0]
		l.queued = l.queued[1:]
		return tok
	}
	if tok, ok := l.skipTrivia(); ok {
		return tok
	}
	startPos := l.Position()
	if l.done || l.pos >= l.limit {
		return Token{Kind: TokenEOF, Span: position.Range{Start: startPos, End: startPos}}
	}
	tok := l.scan(startPos)
	l.update(tok)
	return tok
}

// skipTrivia skips whitespace and returns the next comment-like token, if
// any. Reaching the newline that owns pending heredocs emits their bodies.
func (l *Lexer) skipTrivia() (Token, bool) {
	for l.pos < l.limit && !l.done {
		l.dropPassedHeredocs()
		startPos := l.Position()
		switch ch := l.peek(); {
		case ch == '\n':
			if len(l.pending) > 0 && l.pending[0].newline == l.pos {
				return l.emitHeredocBodies(), true
			}
			l.advance()
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f' || ch == '\v':
			l.advance()
		case ch == '#':
			l.advanceTo(l.restOfLine(l.pos))
			return l.token(TokenComment, startPos), true
		case ch == '=' && l.atLineStart() && isASCIILetter(l.peekN(1)):
			return l.scanPod(startPos), true
		case ch == '_' && l.atLineStart() && l.atDataMarker():
			l.advanceTo(len(l.input))
			l.done = true
			return l.token(TokenDataSection, startPos), true
		default:
			return Token{}, false
		}
	}
	return Token{}, false
}

func (l *Lexer) atDataMarker() bool {
	for _, marker := range []string{"__END__", "__DATA__"} {
		end := l.pos + len(marker)
		if end <= len(l.input) && string(l.input[l.pos:end]) == marker &&
			(end == len(l.input) || !isWordByte(l.input[end])) {
			return true
		}
	}
	return false
}

func (l *Lexer) scanPod(start position.Position) Token {
	for i := l.pos; i < len(l.input); {
		end := l.restOfLine(i)
		line := l.input[i:end]
		if len(line) >= 4 && string(line[:4]) == "=cut" && (len(line) == 4 || !isWordByte(line[4])) {
			l.advanceTo(end)
			return l.token(TokenPod, start)
		}
		i = end + 1
	}
	l.advanceTo(len(l.input))
	return l.token(TokenPod, start)
}

func (l *Lexer) scan(start position.Position) Token {
	ch := l.peek()

	switch {
	case isIdentStart(ch) || ch >= utf8.RuneSelf && l.unicodeLetterAt(l.pos):
		return l.scanWord(start)
	case ch == ':' && l.peekN(1) == ':' && isIdentStart(l.peekN(2)):
		return l.scanWord(start)
	case isDigit(ch):
		return l.scanNumber(start)
	case ch == '.' && isDigit(l.peekN(1)) && l.mode == ModeTerm:
		return l.scanNumber(start)
	case ch == '$':
		return l.scanScalar(start)
	case ch == '@':
		return l.scanArray(start)
	case ch == '\'':
		return l.scanString(start, TokenString, false)
	case ch == '"':
		return l.scanString(start, TokenString, true)
	case ch == '`':
		return l.scanString(start, TokenCommand, true)
	case ch >= utf8.RuneSelf:
		_, size := utf8.DecodeRune(l.input[l.pos:])
		return l.errorToken(start, l.pos+size, "unexpected character %q", l.input[l.pos:l.pos+size])
	}

	if l.mode == ModeTerm {
		if tok, ok := l.scanTermSymbol(start); ok {
			return tok
		}
	}
	return l.scanOperator(start)
}

// scanTermSymbol handles symbols whose meaning changes in term position.
func (l *Lexer) scanTermSymbol(start position.Position) (Token, bool) {
	switch l.peek() {
	case '/':
		return l.scanMatch(start, "", '/'), true
	case '%', '&', '*':
		return l.scanSigil(start)
	case '<':
		if l.peekN(1) == '<' {
			return l.scanHeredoc(start)
		}
		return l.scanReadline(start)
	case '-':
		if isFileTest(l.peekN(1)) && !isWordByte(l.peekN(2)) && !l.fatCommaAt(l.pos+2) {
			l.advanceN(2)
			return l.token(TokenFileTest, start), true
		}
	}
	return Token{}, false
}

// update recomputes the mode after tok and tracks brace nesting.
func (l *Lexer) update(tok Token) {
	switch tok.Kind {
	case TokenLBrace:
		l.braces = append(l.braces, l.classifyBrace())
		l.mode = ModeTerm
	case TokenRBrace:
		kind := braceBlock
		if n := len(l.braces); n > 0 {
			kind = l.braces[n-1]
			l.braces = l.braces[:n-1]
		} else {
			l.underflow++
		}
		l.lastClose = kind
		if kind == braceBlock {
			l.mode = ModeTerm
		} else {
			l.mode = ModeOperator
		}
	case TokenVariable, TokenNumber, TokenString, TokenQuoteWords, TokenCommand,
		TokenHeredoc, TokenRegex, TokenSubstitution, TokenTransliteration,
		TokenReadline, TokenRParen, TokenRBracket, TokenError:
		l.mode = ModeOperator
	case TokenCast:
		if tok.Text == "@*" || tok.Text == "$*" || tok.Text == "%*" || tok.Text == "$#*" {
			l.mode = ModeOperator
		} else {
			l.mode = ModeTerm
		}
	case TokenIdent:
		// use Module LIST
		if IsListOperator(tok.Text) || IsNamedUnary(tok.Text) || l.prev == TokenUse || l.prev == TokenNo {
			l.mode = ModeTerm
		} else {
			l.mode = ModeOperator
		}
	case TokenColon:
		// LABEL: at the start of a statement.
		l.label = l.prev == TokenIdent &&
			(l.prev2 == TokenSemicolon || l.prev2 == TokenLBrace || l.prev2 == TokenRBrace)
		l.mode = ModeTerm
	default:
		l.mode = ModeTerm
	}
	l.prev2 = l.prev
	l.prev = tok.Kind
}

// classifyBrace decides what an opening brace introduces from the token
// before it.
func (l *Lexer) classifyBrace() braceKind {
	switch l.prev {
	case TokenVariable, TokenArrow, TokenRBracket, TokenCast:
		return braceSubscript
	case TokenRBrace:
		if l.lastClose != braceBlock {
			return braceSubscript
		}
		return braceBlock
	case TokenSemicolon, TokenLBrace, TokenRParen, TokenIdent, TokenSub,
		TokenDo, TokenElse, TokenContinue, TokenPackage, TokenEOF:
		return braceBlock
	case TokenColon:
		if l.label {
			return braceBlock
		}
	}
	return braceHash
}

func (l *Lexer) scanWord(start position.Position) Token {
	l.consumeIdent()
	word := string(l.input[start.Offset:l.pos])

	if l.prev == TokenArrow || l.fatCommaAt(l.pos) || l.bracedKeyAt(l.pos) {
		return l.token(TokenIdent, start)
	}

	if l.mode == ModeOperator && word[0] == 'x' {
		if word == "x" || allDigits(word[1:]) {
			l.pos, l.line, l.column = start.Offset, start.Line, start.Column
			l.advance()
			if l.peek() == '=' && l.peekN(1) != '=' && l.peekN(1) != '~' && l.peekN(1) != '>' {
				l.advance()
				return l.token(TokenRepeatAssign, start)
			}
			return l.token(TokenRepeat, start)
		}
	}

	if l.mode == ModeTerm && isQuoteOperator(word) {
		if tok, ok := l.scanQuoteLike(start, word); ok {
			return tok
		}
	}

	if word[0] == 'v' && allDigits(word[1:]) && len(word) > 1 {
		for l.peek() == '.' && isDigit(l.peekN(1)) {
			l.advance()
			for isDigit(l.peek()) {
				l.advance()
			}
		}
		return l.token(TokenNumber, start)
	}

	return l.token(LookupKeyword(word), start)
}

// consumeIdent reads an identifier including package separators.
func (l *Lexer) consumeIdent() {
	for {
		switch {
		case isWordByte(l.peek()):
			l.advance()
		case l.peek() >= utf8.RuneSelf && l.unicodeLetterAt(l.pos):
			_, size := utf8.DecodeRune(l.input[l.pos:])
			l.advanceN(size)
		case l.peek() == ':' && l.peekN(1) == ':':
			l.advanceN(2)
		default:
			return
		}
	}
}

func (l *Lexer) unicodeLetterAt(i int) bool {
	r, _ := utf8.DecodeRune(l.input[i:])
	return r != utf8.RuneError && unicode.IsLetter(r)
}

// fatCommaAt reports whether only blanks separate i from a '=>'.
func (l *Lexer) fatCommaAt(i int) bool {
	i = l.skipBlanks(i)
	return i+1 < len(l.input) && l.input[i] == '=' && l.input[i+1] == '>'
}

// bracedKeyAt reports whether a bareword sits alone inside a subscript
// brace, as in $h{key}.
func (l *Lexer) bracedKeyAt(i int) bool {
	if l.prev != TokenLBrace {
		return false
	}
	i = l.skipBlanks(i)
	return i < len(l.input) && l.input[i] == '}'
}

func (l *Lexer) skipBlanks(i int) int {
	for i < len(l.input) && (l.input[i] == ' ' || l.input[i] == '\t' || l.input[i] == '\n' || l.input[i] == '\r') {
		i++
	}
	return i
}

func (l *Lexer) scanNumber(start position.Position) Token {
	if l.peek() == '0' && (l.peekN(1) == 'x' || l.peekN(1) == 'X') {
		l.advanceN(2)
		for isHexDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
		return l.token(TokenNumber, start)
	}
	if l.peek() == '0' && (l.peekN(1) == 'b' || l.peekN(1) == 'B') {
		l.advanceN(2)
		for l.peek() == '0' || l.peek() == '1' || l.peek() == '_' {
			l.advance()
		}
		return l.token(TokenNumber, start)
	}
	for isDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekN(1)) {
		l.advance()
		for isDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		switch {
		case isDigit(l.peekN(1)):
			l.advance()
		case (l.peekN(1) == '+' || l.peekN(1) == '-') && isDigit(l.peekN(2)):
			l.advanceN(2)
		}
		for isDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
	}
	return l.token(TokenNumber, start)
}

const scalarSpecials = "&`'+!@/\\,;.<>()[]|\"-=~^:?%0"

func (l *Lexer) scanScalar(start position.Position) Token {
	l.advance()
	switch ch := l.peek(); {
	case ch == '#':
		next := l.peekN(1)
		switch {
		case next == '{':
			l.advance()
			return l.token(TokenCast, start)
		case next == '*' && l.prev == TokenArrow:
			l.advanceN(2)
			return l.token(TokenCast, start)
		case next == '$' || isIdentStart(next):
			l.advance()
			return l.scanVariableName(start)
		}
		l.advance()
		return l.token(TokenVariable, start)
	case ch == '{':
		return l.token(TokenCast, start)
	case ch == '*' && l.prev == TokenArrow:
		l.advance()
		return l.token(TokenCast, start)
	case ch == '$':
		return l.scanVariableName(start)
	case isIdentStart(ch) || ch == ':' && l.peekN(1) == ':' || ch >= utf8.RuneSelf && l.unicodeLetterAt(l.pos):
		l.consumeIdent()
		return l.token(TokenVariable, start)
	case isDigit(ch):
		for isDigit(l.peek()) {
			l.advance()
		}
		return l.token(TokenVariable, start)
	case ch == '^' && (isUpper(l.peekN(1)) || l.peekN(1) == '_'):
		l.advanceN(2)
		return l.token(TokenVariable, start)
	case ch != 0 && indexByte(scalarSpecials, ch):
		l.advance()
		return l.token(TokenVariable, start)
	}
	return l.errorToken(start, l.pos, "stray '$' at position %d", start.Offset)
}

// scanVariableName handles the deref forms $$x, $$$x and ${...} that follow
// a sigil.
func (l *Lexer) scanVariableName(start position.Position) Token {
	for l.peek() == '$' {
		l.advance()
	}
	switch ch := l.peek(); {
	case ch == '{':
		return l.token(TokenCast, start)
	case isIdentStart(ch) || ch == ':' && l.peekN(1) == ':':
		l.consumeIdent()
	}
	return l.token(TokenVariable, start)
}

func (l *Lexer) scanArray(start position.Position) Token {
	l.advance()
	switch ch := l.peek(); {
	case ch == '{':
		return l.token(TokenCast, start)
	case (ch == '*' || ch == '[') && l.prev == TokenArrow:
		if ch == '*' {
			l.advance()
		}
		return l.token(TokenCast, start)
	case ch == '$':
		return l.scanVariableName(start)
	case isIdentStart(ch) || ch == ':' && l.peekN(1) == ':' || ch >= utf8.RuneSelf && l.unicodeLetterAt(l.pos):
		l.consumeIdent()
		return l.token(TokenVariable, start)
	case ch == '-' || ch == '+':
		l.advance()
		return l.token(TokenVariable, start)
	case ch == ')' || ch == ';':
		// A bare @ in a prototype such as ($;@).
		return l.token(TokenVariable, start)
	}
	return l.errorToken(start, l.pos, "stray '@' at position %d", start.Offset)
}

// scanSigil scans %, & and * as sigils in term position. It falls back to
// the operator reading when no name follows.
func (l *Lexer) scanSigil(start position.Position) (Token, bool) {
	sigil := l.peek()
	next := l.peekN(1)
	switch {
	case sigil == '&' && next == '&':
		return Token{}, false
	case sigil == '*' && next == '*':
		return Token{}, false
	case next == '{':
		l.advance()
		return l.token(TokenCast, start), true
	case next == '*' && l.prev == TokenArrow && sigil != '*':
		l.advanceN(2)
		return l.token(TokenCast, start), true
	case next == '$':
		l.advance()
		return l.scanVariableName(start), true
	case isIdentStart(next) || next == ':' && l.peekN(2) == ':':
		l.advance()
		l.consumeIdent()
		return l.token(TokenVariable, start), true
	case sigil == '%' && (next == '+' || next == '-' || next == '!'):
		l.advanceN(2)
		return l.token(TokenVariable, start), true
	case sigil == '%' && next == '^' && isUpper(l.peekN(2)):
		l.advanceN(3)
		return l.token(TokenVariable, start), true
	}
	return Token{}, false
}

// scanReadline scans <FH>, <$fh>, <> and simple globs in term position.
func (l *Lexer) scanReadline(start position.Position) (Token, bool) {
	for i := l.pos + 1; i < len(l.input); i++ {
		switch c := l.input[i]; c {
		case '>':
			l.advanceTo(i + 1)
			return l.token(TokenReadline, start), true
		case '<', ' ', '\t', '\n', ';', '=', '(', ')':
			return Token{}, false
		}
	}
	return Token{}, false
}

type operatorSpelling struct {
	text string
	kind TokenKind
}

// operators is ordered so that longer spellings win.
var operators = []operatorSpelling{
	{"<=>", TokenSpaceship}, {"**=", TokenPowerAssign}, {"||=", TokenOrAssign},
	{"&&=", TokenAndAssign}, {"//=", TokenDefinedOrAssign}, {"<<=", TokenShlAssign},
	{">>=", TokenShrAssign}, {"...", TokenEllipsis},
	{"=>", TokenFatComma}, {"->", TokenArrow}, {"==", TokenEQ}, {"!=", TokenNE},
	{"<=", TokenLE}, {">=", TokenGE}, {"=~", TokenMatch}, {"!~", TokenNotMatch},
	{"~~", TokenSmartMatch}, {"++", TokenIncrement}, {"--", TokenDecrement},
	{"**", TokenPower}, {"&&", TokenAnd}, {"||", TokenOr}, {"//", TokenDefinedOr},
	{"<<", TokenShl}, {">>", TokenShr}, {"..", TokenRange}, {"+=", TokenPlusAssign},
	{"-=", TokenMinusAssign}, {"*=", TokenStarAssign}, {"/=", TokenSlashAssign},
	{".=", TokenDotAssign}, {"%=", TokenPercentAssign}, {"&=", TokenBitAndAssign},
	{"|=", TokenBitOrAssign}, {"^=", TokenBitXorAssign},
	{"(", TokenLParen}, {")", TokenRParen}, {"{", TokenLBrace}, {"}", TokenRBrace},
	{"[", TokenLBracket}, {"]", TokenRBracket}, {";", TokenSemicolon}, {",", TokenComma},
	{"=", TokenAssign}, {"<", TokenLT}, {">", TokenGT}, {"+", TokenPlus},
	{"-", TokenMinus}, {"*", TokenStar}, {"/", TokenSlash}, {"%", TokenPercent},
	{"!", TokenNot}, {"~", TokenBitNot}, {"\\", TokenBackslash}, {"?", TokenQuestion},
	{":", TokenColon}, {"&", TokenBitAnd}, {"|", TokenBitOr}, {"^", TokenBitXor},
	{".", TokenDot},
}

func (l *Lexer) scanOperator(start position.Position) Token {
	rest := l.input[l.pos:]
	for _, op := range operators {
		if len(rest) >= len(op.text) && string(rest[:len(op.text)]) == op.text {
			l.advanceN(len(op.text))
			return l.token(op.kind, start)
		}
	}
	return l.errorToken(start, l.pos+1, "unexpected character %q at position %d", l.peek(), start.Offset)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || ch >= 'a' && ch <= 'f' || ch >= 'A' && ch <= 'F'
}

func isASCIILetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

func isUpper(ch byte) bool {
	return ch >= 'A' && ch <= 'Z'
}

func isIdentStart(ch byte) bool {
	return isASCIILetter(ch) || ch == '_'
}

func isWordByte(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isFileTest(ch byte) bool {
	return ch != 0 && indexByte("rwxoRWXOezsfdlpSbcugktTBAMC", ch)
}

func indexByte(s string, ch byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == ch {
			return true
		}
	}
	return false
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
