package parser

import (
	"strings"
	"testing"

	"github.com/dhamidi/perlsp/perl/lexer"
)

func TestNodeKindString(t *testing.T) {
	tests := []struct {
		kind NodeKind
		want string
	}{
		{KindError, "Error"},
		{KindProgram, "Program"},
		{KindBlock, "Block"},
		{KindVariableDeclaration, "VariableDeclaration"},
		{KindSubroutine, "Subroutine"},
		{KindIf, "If"},
		{KindForeach, "Foreach"},
		{KindBinaryExpression, "BinaryExpression"},
		{KindFunctionCall, "FunctionCall"},
		{KindLiteral, "Literal"},
		{KindMissingExpression, "MissingExpression"},
		{KindMissingBlock, "MissingBlock"},
		{NodeKind(9999), "Unknown"},
		{NodeKind(-1), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("NodeKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
			}
		})
	}
}

func TestNodeKindNamesComplete(t *testing.T) {
	for k := KindError; k <= KindMissingBlock; k++ {
		if k.String() == "Unknown" {
			t.Errorf("NodeKind(%d) has no name", k)
		}
	}
}

func TestNodeKindIsMissing(t *testing.T) {
	missing := []NodeKind{KindMissingExpression, KindMissingStatement, KindMissingIdentifier, KindMissingBlock}
	for _, k := range missing {
		if !k.IsMissing() {
			t.Errorf("%v.IsMissing() = false", k)
		}
	}
	for _, k := range []NodeKind{KindError, KindProgram, KindLiteral, KindDoBlock} {
		if k.IsMissing() {
			t.Errorf("%v.IsMissing() = true", k)
		}
	}
}

func TestNodeAddChild(t *testing.T) {
	parent := &Node{Kind: KindBlock}
	child1 := &Node{Kind: KindExpressionStatement}
	child2 := &Node{Kind: KindEmptyStatement}

	parent.AddChild(child1)
	parent.AddChild(child2)
	parent.AddChild(nil)

	if len(parent.Children) != 2 {
		t.Errorf("Expected 2 children, got %d", len(parent.Children))
	}
	if parent.Children[0] != child1 {
		t.Error("First child mismatch")
	}
	if parent.Children[1] != child2 {
		t.Error("Second child mismatch")
	}
}

func TestNodeIsError(t *testing.T) {
	errorNode := &Node{Kind: KindError}
	normalNode := &Node{Kind: KindBlock}

	if !errorNode.IsError() {
		t.Error("Expected IsError() to be true for error node")
	}
	if normalNode.IsError() {
		t.Error("Expected IsError() to be false for non-error node")
	}
}

func TestNodePartial(t *testing.T) {
	stmt := &Node{Kind: KindExpressionStatement}
	errNode := &Node{Kind: KindError, Children: []*Node{stmt}}
	if errNode.Partial() != stmt {
		t.Error("Partial() should return the wrapped subtree")
	}
	if (&Node{Kind: KindError}).Partial() != nil {
		t.Error("Partial() of an empty Error node should be nil")
	}
	if (&Node{Kind: KindBlock, Children: []*Node{stmt}}).Partial() != nil {
		t.Error("Partial() of a non-error node should be nil")
	}
}

func TestNodeFirstChildOfKind(t *testing.T) {
	first := &Node{Kind: KindVariable, Token: &lexer.Token{Text: "$a"}}
	second := &Node{Kind: KindVariable, Token: &lexer.Token{Text: "$b"}}
	lit := &Node{Kind: KindLiteral}

	parent := &Node{Kind: KindList, Children: []*Node{lit, first, second}}

	if got := parent.FirstChildOfKind(KindVariable); got != first {
		t.Errorf("FirstChildOfKind(Variable) = %v, want first variable", got)
	}
	if got := parent.FirstChildOfKind(KindBlock); got != nil {
		t.Errorf("FirstChildOfKind(Block) = %v, want nil", got)
	}
	if got := parent.ChildrenOfKind(KindVariable); len(got) != 2 {
		t.Errorf("ChildrenOfKind(Variable) returned %d nodes, want 2", len(got))
	}
	if got := parent.ChildrenOfKind(KindHashRef); got != nil {
		t.Errorf("ChildrenOfKind(HashRef) = %v, want nil", got)
	}
}

func TestNodeTokenText(t *testing.T) {
	t.Run("with token", func(t *testing.T) {
		node := &Node{Kind: KindVariable, Token: &lexer.Token{Text: "$x"}}
		if got := node.TokenText(); got != "$x" {
			t.Errorf("TokenText() = %q, want %q", got, "$x")
		}
	})

	t.Run("without token", func(t *testing.T) {
		node := &Node{Kind: KindBlock}
		if got := node.TokenText(); got != "" {
			t.Errorf("TokenText() = %q, want empty string", got)
		}
	})
}

func TestNodeWalk(t *testing.T) {
	tree := Parse([]byte("my $x = 1; print $x;"))

	var kinds []string
	tree.Root.Walk(func(n *Node) bool {
		kinds = append(kinds, n.Kind.String())
		return n.Kind != KindVariableDeclaration
	})
	want := "Program VariableDeclaration ExpressionStatement FunctionCall Variable"
	if got := strings.Join(kinds, " "); got != want {
		t.Errorf("Walk visited %q, want %q", got, want)
	}
	if got := tree.Root.NodeCount(); got != 7 {
		t.Errorf("NodeCount() = %d, want 7", got)
	}
	if tree.NodeCount() != tree.Root.NodeCount() {
		t.Errorf("Tree.NodeCount() = %d, Root.NodeCount() = %d", tree.NodeCount(), tree.Root.NodeCount())
	}
}

func TestNodeIDsArePreOrder(t *testing.T) {
	tree := Parse([]byte("sub f { return 1 + 2; }"))
	want := NodeID(1)
	tree.Root.Walk(func(n *Node) bool {
		if n.ID != want {
			t.Errorf("%v has ID %d, want %d", n.Kind, n.ID, want)
		}
		want++
		return true
	})
	if tree.NextID() != want {
		t.Errorf("NextID() = %d, want %d", tree.NextID(), want)
	}
}

func TestNodeString(t *testing.T) {
	tree := Parse([]byte("$x = 1;"))
	want := "Program\n" +
		"  ExpressionStatement\n" +
		"    Assignment =\n" +
		"      Variable $x\n" +
		"      Literal 1\n"
	if got := tree.Root.String(); got != want {
		t.Errorf("String() =\n%s\nwant:\n%s", got, want)
	}

	withPos := tree.Root.StringWithPositions()
	if !strings.Contains(withPos, "Literal [1:6-1:7] 1") {
		t.Errorf("StringWithPositions() missing literal position:\n%s", withPos)
	}
}

func TestNodeStringShowsErrors(t *testing.T) {
	tree := Parse([]byte("print 1 2;"))
	if got := tree.Root.String(); !strings.Contains(got, "Error ERROR: expected ';'") {
		t.Errorf("String() should include the error message:\n%s", got)
	}
}

func TestHasErrors(t *testing.T) {
	if Parse([]byte("my $x = 1;")).Root.HasErrors() {
		t.Error("clean tree reports errors")
	}
	if !Parse([]byte("my $x = ;")).Root.HasErrors() {
		t.Error("tree with a missing expression reports no errors")
	}
}
