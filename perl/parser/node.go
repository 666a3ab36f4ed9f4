package parser

import (
	"strings"

	"github.com/dhamidi/perlsp/perl/lexer"
	"github.com/dhamidi/perlsp/perl/position"
)

type NodeKind int

const (
	KindError NodeKind = iota

	// Program level
	KindProgram
	KindBlock
	KindDataSection

	// Statements
	KindEmptyStatement
	KindExpressionStatement
	KindVariableDeclaration
	KindSubroutine
	KindAnonymousSub
	KindSignature
	KindPackage
	KindUse
	KindIf
	KindElsifClause
	KindElseClause
	KindWhile
	KindFor
	KindForeach
	KindContinueClause
	KindReturn
	KindLoopControl
	KindLabeled
	KindSpecialBlock
	KindStatementModifier

	// Expressions
	KindBinaryExpression
	KindUnaryExpression
	KindPostfixExpression
	KindAssignment
	KindTernary
	KindLiteral
	KindVariable
	KindIdentifier
	KindFunctionCall
	KindMethodCall
	KindSubscript
	KindDeref
	KindList
	KindArrayRef
	KindHashRef
	KindDoBlock

	// Absent constructs
	KindMissingExpression
	KindMissingStatement
	KindMissingIdentifier
	KindMissingBlock
)

var nodeKindNames = map[NodeKind]string{
	KindError:               "Error",
	KindProgram:             "Program",
	KindBlock:               "Block",
	KindDataSection:         "DataSection",
	KindEmptyStatement:      "EmptyStatement",
	KindExpressionStatement: "ExpressionStatement",
	KindVariableDeclaration: "VariableDeclaration",
	KindSubroutine:          "Subroutine",
	KindAnonymousSub:        "AnonymousSub",
	KindSignature:           "Signature",
	KindPackage:             "Package",
	KindUse:                 "Use",
	KindIf:                  "If",
	KindElsifClause:         "ElsifClause",
	KindElseClause:          "ElseClause",
	KindWhile:               "While",
	KindFor:                 "For",
	KindForeach:             "Foreach",
	KindContinueClause:      "ContinueClause",
	KindReturn:              "Return",
	KindLoopControl:         "LoopControl",
	KindLabeled:             "Labeled",
	KindSpecialBlock:        "SpecialBlock",
	KindStatementModifier:   "StatementModifier",
	KindBinaryExpression:    "BinaryExpression",
	KindUnaryExpression:     "UnaryExpression",
	KindPostfixExpression:   "PostfixExpression",
	KindAssignment:          "Assignment",
	KindTernary:             "Ternary",
	KindLiteral:             "Literal",
	KindVariable:            "Variable",
	KindIdentifier:          "Identifier",
	KindFunctionCall:        "FunctionCall",
	KindMethodCall:          "MethodCall",
	KindSubscript:           "Subscript",
	KindDeref:               "Deref",
	KindList:                "List",
	KindArrayRef:            "ArrayRef",
	KindHashRef:             "HashRef",
	KindDoBlock:             "DoBlock",
	KindMissingExpression:   "MissingExpression",
	KindMissingStatement:    "MissingStatement",
	KindMissingIdentifier:   "MissingIdentifier",
	KindMissingBlock:        "MissingBlock",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// IsMissing reports whether k stands in for a construct absent from the
// source.
func (k NodeKind) IsMissing() bool {
	return k >= KindMissingExpression && k <= KindMissingBlock
}

// NodeID identifies a node across incremental updates. IDs are handed out
// in pre-order and never reused within a document's lifetime.
type NodeID int

type Error struct {
	Message  string
	Expected []lexer.TokenKind
	Found    lexer.TokenKind
}

type Node struct {
	ID       NodeID
	Kind     NodeKind
	Span     position.Range
	Children []*Node
	Token    *lexer.Token
	Error    *Error
}

func (n *Node) AddChild(child *Node) {
	if child != nil {
		n.Children = append(n.Children, child)
	}
}

func (n *Node) IsError() bool {
	return n.Kind == KindError
}

func (n *Node) IsMissing() bool {
	return n.Kind.IsMissing()
}

// Partial returns the partially recovered subtree an Error node wraps.
func (n *Node) Partial() *Node {
	if n.Kind != KindError || len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

func (n *Node) FirstChildOfKind(kind NodeKind) *Node {
	for _, child := range n.Children {
		if child.Kind == kind {
			return child
		}
	}
	return nil
}

func (n *Node) ChildrenOfKind(kind NodeKind) []*Node {
	var result []*Node
	for _, child := range n.Children {
		if child.Kind == kind {
			result = append(result, child)
		}
	}
	return result
}

func (n *Node) TokenText() string {
	if n.Token != nil {
		return n.Token.Text
	}
	return ""
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the node just visited.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

func (n *Node) NodeCount() int {
	count := 0
	n.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}

// HasErrors reports whether the subtree contains Error or Missing nodes.
func (n *Node) HasErrors() bool {
	found := false
	n.Walk(func(c *Node) bool {
		if c.IsError() || c.IsMissing() {
			found = true
		}
		return !found
	})
	return found
}

func (n *Node) height() int {
	h := 0
	for _, child := range n.Children {
		h = max(h, child.height())
	}
	return h + 1
}

func (n *Node) String() string {
	var b strings.Builder
	n.writeIndent(&b, 0, false)
	return b.String()
}

func (n *Node) StringWithPositions() string {
	var b strings.Builder
	n.writeIndent(&b, 0, true)
	return b.String()
}

func (n *Node) writeIndent(b *strings.Builder, indent int, showPositions bool) {
	b.WriteString(strings.Repeat("  ", indent))
	b.WriteString(n.Kind.String())
	if showPositions {
		b.WriteString(" [" + n.Span.String() + "]")
	}
	if n.Token != nil {
		b.WriteString(" " + n.Token.Text)
	}
	if n.Error != nil {
		b.WriteString(" ERROR: " + n.Error.Message)
	}
	b.WriteByte('\n')

	for _, child := range n.Children {
		child.writeIndent(b, indent+1, showPositions)
	}
}
