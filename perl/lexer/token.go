package lexer

import "github.com/dhamidi/perlsp/perl/position"

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenError

	// Trivia
	TokenComment
	TokenPod
	TokenHeredocBody
	TokenDataSection

	// Names and literals
	TokenIdent
	TokenVariable
	TokenCast
	TokenNumber
	TokenString
	TokenQuoteWords
	TokenCommand
	TokenHeredoc
	TokenRegex
	TokenSubstitution
	TokenTransliteration
	TokenReadline
	TokenFileTest

	// Keywords
	TokenMy
	TokenOur
	TokenLocal
	TokenState
	TokenSub
	TokenIf
	TokenElsif
	TokenElse
	TokenUnless
	TokenWhile
	TokenUntil
	TokenFor
	TokenForeach
	TokenContinue
	TokenReturn
	TokenLast
	TokenNext
	TokenRedo
	TokenPackage
	TokenUse
	TokenNo
	TokenDo

	// Word operators
	TokenWordAnd
	TokenWordOr
	TokenWordNot
	TokenWordXor
	TokenStrEQ
	TokenStrNE
	TokenStrLT
	TokenStrGT
	TokenStrLE
	TokenStrGE
	TokenStrCmp
	TokenRepeat
	TokenRepeatAssign

	// Delimiters
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenSemicolon
	TokenComma
	TokenFatComma

	// Operators
	TokenArrow
	TokenDot
	TokenRange
	TokenEllipsis
	TokenAssign
	TokenEQ
	TokenNE
	TokenSpaceship
	TokenLT
	TokenGT
	TokenLE
	TokenGE
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenPercent
	TokenPower
	TokenIncrement
	TokenDecrement
	TokenNot
	TokenBitNot
	TokenBackslash
	TokenQuestion
	TokenColon
	TokenAnd
	TokenOr
	TokenDefinedOr
	TokenBitAnd
	TokenBitOr
	TokenBitXor
	TokenShl
	TokenShr
	TokenMatch
	TokenNotMatch
	TokenSmartMatch
	TokenPlusAssign
	TokenMinusAssign
	TokenStarAssign
	TokenSlashAssign
	TokenDotAssign
	TokenPercentAssign
	TokenPowerAssign
	TokenAndAssign
	TokenOrAssign
	TokenDefinedOrAssign
	TokenBitAndAssign
	TokenBitOrAssign
	TokenBitXorAssign
	TokenShlAssign
	TokenShrAssign
)

var tokenKindNames = map[TokenKind]string{
	TokenEOF:             "EOF",
	TokenError:           "Error",
	TokenComment:         "Comment",
	TokenPod:             "Pod",
	TokenHeredocBody:     "HeredocBody",
	TokenDataSection:     "DataSection",
	TokenIdent:           "Identifier",
	TokenVariable:        "Variable",
	TokenCast:            "Cast",
	TokenNumber:          "Number",
	TokenString:          "String",
	TokenQuoteWords:      "QuoteWords",
	TokenCommand:         "Command",
	TokenHeredoc:         "Heredoc",
	TokenRegex:           "Regex",
	TokenSubstitution:    "Substitution",
	TokenTransliteration: "Transliteration",
	TokenReadline:        "Readline",
	TokenFileTest:        "FileTest",
	TokenMy:              "my",
	TokenOur:             "our",
	TokenLocal:           "local",
	TokenState:           "state",
	TokenSub:             "sub",
	TokenIf:              "if",
	TokenElsif:           "elsif",
	TokenElse:            "else",
	TokenUnless:          "unless",
	TokenWhile:           "while",
	TokenUntil:           "until",
	TokenFor:             "for",
	TokenForeach:         "foreach",
	TokenContinue:        "continue",
	TokenReturn:          "return",
	TokenLast:            "last",
	TokenNext:            "next",
	TokenRedo:            "redo",
	TokenPackage:         "package",
	TokenUse:             "use",
	TokenNo:              "no",
	TokenDo:              "do",
	TokenWordAnd:         "and",
	TokenWordOr:          "or",
	TokenWordNot:         "not",
	TokenWordXor:         "xor",
	TokenStrEQ:           "eq",
	TokenStrNE:           "ne",
	TokenStrLT:           "lt",
	TokenStrGT:           "gt",
	TokenStrLE:           "le",
	TokenStrGE:           "ge",
	TokenStrCmp:          "cmp",
	TokenRepeat:          "x",
	TokenRepeatAssign:    "x=",
	TokenLParen:          "(",
	TokenRParen:          ")",
	TokenLBrace:          "{",
	TokenRBrace:          "}",
	TokenLBracket:        "[",
	TokenRBracket:        "]",
	TokenSemicolon:       ";",
	TokenComma:           ",",
	TokenFatComma:        "=>",
	TokenArrow:           "->",
	TokenDot:             ".",
	TokenRange:           "..",
	TokenEllipsis:        "...",
	TokenAssign:          "=",
	TokenEQ:              "==",
	TokenNE:              "!=",
	TokenSpaceship:       "<=>",
	TokenLT:              "<",
	TokenGT:              ">",
	TokenLE:              "<=",
	TokenGE:              ">=",
	TokenPlus:            "+",
	TokenMinus:           "-",
	TokenStar:            "*",
	TokenSlash:           "/",
	TokenPercent:         "%",
	TokenPower:           "**",
	TokenIncrement:       "++",
	TokenDecrement:       "--",
	TokenNot:             "!",
	TokenBitNot:          "~",
	TokenBackslash:       "\\",
	TokenQuestion:        "?",
	TokenColon:           ":",
	TokenAnd:             "&&",
	TokenOr:              "||",
	TokenDefinedOr:       "//",
	TokenBitAnd:          "&",
	TokenBitOr:           "|",
	TokenBitXor:          "^",
	TokenShl:             "<<",
	TokenShr:             ">>",
	TokenMatch:           "=~",
	TokenNotMatch:        "!~",
	TokenSmartMatch:      "~~",
	TokenPlusAssign:      "+=",
	TokenMinusAssign:     "-=",
	TokenStarAssign:      "*=",
	TokenSlashAssign:     "/=",
	TokenDotAssign:       ".=",
	TokenPercentAssign:   "%=",
	TokenPowerAssign:     "**=",
	TokenAndAssign:       "&&=",
	TokenOrAssign:        "||=",
	TokenDefinedOrAssign: "//=",
	TokenBitAndAssign:    "&=",
	TokenBitOrAssign:     "|=",
	TokenBitXorAssign:    "^=",
	TokenShlAssign:       "<<=",
	TokenShrAssign:       ">>=",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Category groups token kinds into the coarse classes editors care about.
type Category int

const (
	CategoryError Category = iota
	CategoryEOF
	CategoryComment
	CategoryKeyword
	CategoryIdentifier
	CategoryVariable
	CategoryNumber
	CategoryString
	CategoryRegex
	CategoryOperator
	CategoryDelimiter
)

var categoryNames = [...]string{
	CategoryError:      "error",
	CategoryEOF:        "eof",
	CategoryComment:    "comment",
	CategoryKeyword:    "keyword",
	CategoryIdentifier: "identifier",
	CategoryVariable:   "variable",
	CategoryNumber:     "number",
	CategoryString:     "string",
	CategoryRegex:      "regex",
	CategoryOperator:   "operator",
	CategoryDelimiter:  "delimiter",
}

func (c Category) String() string {
	if c >= 0 && int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

func (k TokenKind) Category() Category {
	switch {
	case k == TokenEOF:
		return CategoryEOF
	case k == TokenError:
		return CategoryError
	case k >= TokenComment && k <= TokenDataSection:
		return CategoryComment
	case k == TokenIdent:
		return CategoryIdentifier
	case k == TokenVariable || k == TokenCast:
		return CategoryVariable
	case k == TokenNumber:
		return CategoryNumber
	case k == TokenString, k == TokenQuoteWords, k == TokenCommand, k == TokenHeredoc, k == TokenReadline:
		return CategoryString
	case k == TokenRegex, k == TokenSubstitution, k == TokenTransliteration:
		return CategoryRegex
	case k >= TokenMy && k <= TokenDo:
		return CategoryKeyword
	case k >= TokenLParen && k <= TokenFatComma:
		return CategoryDelimiter
	case k == TokenFileTest, k >= TokenWordAnd && k <= TokenRepeatAssign, k >= TokenArrow && k <= TokenShrAssign:
		return CategoryOperator
	}
	return CategoryError
}

// IsTrivia reports whether tokens of this kind carry no code of their own.
func (k TokenKind) IsTrivia() bool {
	return k >= TokenComment && k <= TokenDataSection
}

type Token struct {
	Kind    TokenKind
	Span    position.Range
	Text    string
	Message string // set on TokenError
}

func (t Token) Start() int { return t.Span.Start.Offset }
func (t Token) End() int   { return t.Span.End.Offset }

var keywords = map[string]TokenKind{
	"my":       TokenMy,
	"our":      TokenOur,
	"local":    TokenLocal,
	"state":    TokenState,
	"sub":      TokenSub,
	"if":       TokenIf,
	"elsif":    TokenElsif,
	"else":     TokenElse,
	"unless":   TokenUnless,
	"while":    TokenWhile,
	"until":    TokenUntil,
	"for":      TokenFor,
	"foreach":  TokenForeach,
	"continue": TokenContinue,
	"return":   TokenReturn,
	"last":     TokenLast,
	"next":     TokenNext,
	"redo":     TokenRedo,
	"package":  TokenPackage,
	"use":      TokenUse,
	"no":       TokenNo,
	"do":       TokenDo,
	"and":      TokenWordAnd,
	"or":       TokenWordOr,
	"not":      TokenWordNot,
	"xor":      TokenWordXor,
	"eq":       TokenStrEQ,
	"ne":       TokenStrNE,
	"lt":       TokenStrLT,
	"gt":       TokenStrGT,
	"le":       TokenStrLE,
	"ge":       TokenStrGE,
	"cmp":      TokenStrCmp,
}

func LookupKeyword(ident string) TokenKind {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return TokenIdent
}

// listOperators are builtins that take a list and after which a term is
// expected, so `split /,/` starts a regex instead of dividing.
var listOperators = map[string]bool{
	"print": true, "printf": true, "say": true, "push": true, "unshift": true,
	"split": true, "join": true, "grep": true, "map": true, "sort": true,
	"reverse": true, "die": true, "warn": true, "sprintf": true, "open": true,
	"close": true, "binmode": true, "bless": true, "splice": true, "unlink": true,
	"chomp": true, "chop": true, "chdir": true, "mkdir": true, "rmdir": true,
	"system": true, "exec": true, "kill": true, "eval": true,
	"when": true, "pack": true, "unpack": true,
}

// IsListOperator reports whether name is a builtin list operator.
func IsListOperator(name string) bool {
	return listOperators[name]
}

// namedUnary are builtins parsed with named-unary precedence: they take at
// most one argument, which binds tighter than comparison operators.
var namedUnary = map[string]bool{
	"defined": true, "ref": true, "scalar": true, "lc": true, "uc": true,
	"lcfirst": true, "ucfirst": true, "length": true, "exists": true,
	"delete": true, "each": true, "keys": true, "values": true, "shift": true,
	"pop": true, "chr": true, "ord": true, "int": true, "abs": true, "hex": true,
	"oct": true, "sqrt": true, "log": true, "exp": true, "undef": true,
	"exit": true, "rand": true, "srand": true, "quotemeta": true, "readline": true,
	"chroot": true, "readlink": true, "lock": true, "caller": true, "umask": true,
	"sleep": true, "require": true, "fc": true,
}

// IsNamedUnary reports whether name is a named unary builtin.
func IsNamedUnary(name string) bool {
	return namedUnary[name]
}
