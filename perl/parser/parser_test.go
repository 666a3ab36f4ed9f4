package parser

import (
	"context"
	"strings"
	"testing"
)

// shape renders the kinds of a subtree as Kind(child,child).
func shape(n *Node) string {
	if len(n.Children) == 0 {
		return n.Kind.String()
	}
	parts := make([]string, len(n.Children))
	for i, child := range n.Children {
		parts[i] = shape(child)
	}
	return n.Kind.String() + "(" + strings.Join(parts, ",") + ")"
}

func parseClean(t *testing.T, input string) *Tree {
	t.Helper()
	tree := Parse([]byte(input))
	for _, err := range tree.Errors {
		t.Errorf("unexpected error: %v", err)
	}
	return tree
}

func TestParseDump(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "declaration",
			input: "my $x = 42;",
			want:  `(Program [0,11) (VariableDeclaration [0,11) "my" (Variable [3,5) "$x") (Literal [8,10) "42")))`,
		},
		{
			name:  "precedence",
			input: "1 + 2 * 3;",
			want: `(Program [0,10) (ExpressionStatement [0,10) (BinaryExpression [0,9) "+" (Literal [0,1) "1") ` +
				`(BinaryExpression [4,9) "*" (Literal [4,5) "2") (Literal [8,9) "3")))))`,
		},
		{
			name:  "missing initializer",
			input: "my $x = ;",
			want:  `(Program [0,9) (VariableDeclaration [0,9) "my" (Variable [3,5) "$x") (MissingExpression [8,8))))`,
		},
		{
			name:  "empty",
			input: "",
			want:  `(Program [0,0))`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Parse([]byte(tt.input))
			if got := tree.Dump(); got != tt.want {
				t.Errorf("Dump() =\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestParseShapes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"!$x =~ /y/;", "ExpressionStatement(BinaryExpression(UnaryExpression(Variable),Literal))"},
		{"not $a || $b;", "ExpressionStatement(UnaryExpression(BinaryExpression(Variable,Variable)))"},
		{"$x = 1, $y = 2;", "ExpressionStatement(List(Assignment(Variable,Literal),Assignment(Variable,Literal)))"},
		{"defined $x && $y;", "ExpressionStatement(BinaryExpression(FunctionCall(Variable),Variable))"},
		{"$h{a}{b}[0];", "ExpressionStatement(Subscript(Subscript(Subscript(Variable,Identifier),Identifier),Literal))"},
		{"$r->[0];", "ExpressionStatement(Subscript(Deref(Variable),Literal))"},
		{"$obj->method(1, 2);", "ExpressionStatement(MethodCall(Variable,Identifier,List(Literal,Literal)))"},
		{"$code->(1);", "ExpressionStatement(FunctionCall(Variable,List(Literal)))"},
		{"@{$r};", "ExpressionStatement(Deref(Block(ExpressionStatement(Variable))))"},
		{"my $h = { a => 1 };", "VariableDeclaration(Variable,HashRef(Identifier,Literal))"},
		{"print STDERR 'x';", "ExpressionStatement(FunctionCall(Identifier,Literal))"},
		{"print $fh 'x';", "ExpressionStatement(FunctionCall(Variable,Literal))"},
		{"map { $_ } @x;", "ExpressionStatement(FunctionCall(Block(ExpressionStatement(Variable)),Variable))"},
		{"sub { 1 };", "ExpressionStatement(AnonymousSub(Block(ExpressionStatement(Literal))))"},
		{"do { 1 };", "ExpressionStatement(DoBlock(Block(ExpressionStatement(Literal))))"},
		{"$x++;", "ExpressionStatement(PostfixExpression(Variable))"},
		{"-$x;", "ExpressionStatement(UnaryExpression(Variable))"},
		{"return 1, 2;", "Return(List(Literal,Literal))"},
		{"my ($a, $b) = @_;", "VariableDeclaration(List(Variable,Variable),Variable)"},
		{"foo 1, 2;", "ExpressionStatement(FunctionCall(List(Literal,Literal)))"},
		{"Foo->new;", "ExpressionStatement(MethodCall(Identifier,Identifier))"},
		{"print \"a\" if $x;", "ExpressionStatement(FunctionCall(Literal),StatementModifier(Variable))"},
		{"2 ** 3 ** 2;", "ExpressionStatement(BinaryExpression(Literal,BinaryExpression(Literal,Literal)))"},
		{"$a = $b = 1;", "ExpressionStatement(Assignment(Variable,Assignment(Variable,Literal)))"},
		{"$x ? 1 : 0;", "ExpressionStatement(Ternary(Variable,Literal,Literal))"},
		{"1..10;", "ExpressionStatement(BinaryExpression(Literal,Literal))"},
		{"use POSIX qw(floor ceil);", "Use(Identifier,Literal)"},
		{"next OUTER;", "LoopControl(Identifier)"},
		{"local $_ = shift;", "VariableDeclaration(Variable,FunctionCall)"},
		{"return unless defined $x;", "Return(StatementModifier(FunctionCall(Variable)))"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tree := parseClean(t, tt.input)
			if len(tree.Root.Children) != 1 {
				t.Fatalf("got %d statements, want 1:\n%s", len(tree.Root.Children), tree)
			}
			if got := shape(tree.Root.Children[0]); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseStatements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  NodeKind
	}{
		{"use", "use strict;\nuse warnings;\n", KindUse},
		{"use version", "use 5.010;", KindUse},
		{"no", "no warnings 'once';", KindUse},
		{"package", "package Foo::Bar;", KindPackage},
		{"package block", "package Foo { sub new { } }", KindPackage},
		{"sub with signature", "sub add($x, $y) { $x + $y }", KindSubroutine},
		{"sub with prototype", "sub max($;@) { }", KindSubroutine},
		{"sub forward declaration", "sub later;", KindSubroutine},
		{"sub body", "sub greet { my ($name) = @_; print \"Hello, $name\\n\"; }", KindSubroutine},
		{"if chain", "if ($x) { 1 } elsif ($y) { 2 } else { 3 }", KindIf},
		{"unless", "unless ($x) { die 'no'; }", KindIf},
		{"while readline", "while (my $line = <STDIN>) { chomp $line; }", KindWhile},
		{"until", "until ($done) { $done = 1; }", KindWhile},
		{"c-style for", "for (my $i = 0; $i < 10; $i++) { print $i; }", KindFor},
		{"foreach my", "foreach my $item (@list) { print $item; }", KindForeach},
		{"foreach range", "for my $i (1..10) { }", KindForeach},
		{"foreach topic", "for (@list) { }", KindForeach},
		{"hash", "my %h = (a => 1, b => 2);", KindVariableDeclaration},
		{"sort block", "my @sorted = sort { $a <=> $b } @list;", KindVariableDeclaration},
		{"heredoc", "my $s = <<\"EOT\";\nhello\nEOT\nprint $s;\n", KindVariableDeclaration},
		{"pod", "=pod\n\ndoc\n\n=cut\nmy $x = 1;\n", KindVariableDeclaration},
		{"comment", "# leading\nmy $x = 1; # trailing\n", KindVariableDeclaration},
		{"try catch", "try { risky(); } catch { warn $_; };", KindExpressionStatement},
		{"label", "OUTER: for my $x (@a) { next OUTER; }", KindLabeled},
		{"special block", "BEGIN { require Foo; }", KindSpecialBlock},
		{"chained subscripts", "my $r = $obj->{items}[0]{name};", KindVariableDeclaration},
		{"ternary", "my $x = $y ? 1 : 0;", KindVariableDeclaration},
		{"print block handle", "print {$fh} \"x\";", KindExpressionStatement},
		{"regex", "my $re = qr/^\\d+$/;", KindVariableDeclaration},
		{"substitution", "s/foo/bar/g for @list;", KindExpressionStatement},
		{"bare block", "{ my $x = 1; }", KindBlock},
		{"empty statement", ";", KindEmptyStatement},
		{"data section", "__END__\nanything goes here", KindDataSection},
		{"last statement without semicolon", "print 1", KindExpressionStatement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parseClean(t, tt.input)
			if len(tree.Root.Children) == 0 {
				t.Fatal("no statements parsed")
			}
			if got := tree.Root.Children[0].Kind; got != tt.want {
				t.Errorf("first statement is %v, want %v:\n%s", got, tt.want, tree)
			}
			if tree.Root.HasErrors() {
				t.Errorf("tree contains error nodes:\n%s", tree)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		errors   int
		contains string
	}{
		{"unclosed call", "foo(1, 2;", 1, "expected ')' to close '('"},
		{"missing operand", "my $x = 1 +;", 1, "expected expression"},
		{"missing semicolon", "print 1 2;", 1, "expected ';'"},
		{"unclosed condition", "if ($x == 1 { print 1; }", 1, "expected ')' to close '('"},
		{"unmatched brace", "}", 1, "unmatched '}'"},
		{"unterminated string", "$x = \"unterminated", 1, "unterminated"},
		{"stray else", "else { }", 1, "unexpected \"else\""},
		{"missing block", "if ($x) print 1;", 1, "expected '{'"},
		{"missing module", "use ;", 1, "expected module name after 'use'"},
		{"missing method", "$obj->;", 1, "expected method name or subscript after '->'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Parse([]byte(tt.input))
			if len(tree.Errors) != tt.errors {
				t.Fatalf("got %d errors, want %d: %v", len(tree.Errors), tt.errors, tree.Errors)
			}
			if !strings.Contains(tree.Errors[0].Message, tt.contains) {
				t.Errorf("error %q does not contain %q", tree.Errors[0].Message, tt.contains)
			}
			if !tree.Root.HasErrors() {
				t.Errorf("tree has no Error or Missing node:\n%s", tree)
			}
		})
	}
}

func TestParseUnclosedParenWrapsPartial(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		partial NodeKind
		next    NodeKind
	}{
		{"call arguments", "foo(1, 2;", KindList, 0},
		{"condition", "if ($x == 1 { print 1; }", KindBinaryExpression, KindBlock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Parse([]byte(tt.input))
			var errNode *Node
			tree.Root.Walk(func(n *Node) bool {
				if errNode == nil && n.IsError() {
					errNode = n
				}
				return errNode == nil
			})
			if errNode == nil {
				t.Fatalf("no Error node:\n%s", tree)
			}
			if p := errNode.Partial(); p == nil || p.Kind != tt.partial {
				t.Errorf("Partial() = %v, want %v", p, tt.partial)
			} else if errNode.Span != p.Span {
				t.Errorf("Error spans %v, partial spans %v", errNode.Span, p.Span)
			}
			if tt.next != 0 {
				stmt := tree.Root.Children[0]
				if stmt.FirstChildOfKind(tt.next) == nil {
					t.Errorf("%v after the unclosed paren did not parse:\n%s", tt.next, tree)
				}
			}
		})
	}
}

func TestParseErrorDetails(t *testing.T) {
	tree := Parse([]byte("my $x = ;"))
	if len(tree.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(tree.Errors))
	}
	err := tree.Errors[0]
	if err.Found != `";"` {
		t.Errorf("Found = %q, want %q", err.Found, `";"`)
	}
	if err.Range.Start.Offset != 8 {
		t.Errorf("error starts at %d, want 8", err.Range.Start.Offset)
	}
	if got, want := err.Error(), `1:9: expected expression, found ";"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestParseUnclosedBlock(t *testing.T) {
	tree := Parse([]byte("sub foo { my $x = 1; print $x"))
	if len(tree.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(tree.Errors), tree.Errors)
	}
	err := tree.Errors[0]
	if err.Message != "expected '}' to close block" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Found != "end of input" {
		t.Errorf("Found = %q, want %q", err.Found, "end of input")
	}
	if err.Range.Start.Offset != 29 || err.Range.End.Offset != 29 {
		t.Errorf("Range = [%d,%d), want [29,29)", err.Range.Start.Offset, err.Range.End.Offset)
	}

	sub := tree.Root.FirstChildOfKind(KindSubroutine)
	if sub == nil {
		t.Fatalf("no subroutine:\n%s", tree)
	}
	body := sub.FirstChildOfKind(KindBlock)
	if body == nil || len(body.Children) != 2 {
		t.Errorf("partial body should keep both statements:\n%s", tree)
	}
}

func TestParseRecovery(t *testing.T) {
	t.Run("error node wraps partial statement", func(t *testing.T) {
		tree := Parse([]byte("print 1 2;\nmy $y = 2;"))
		if len(tree.Root.Children) != 2 {
			t.Fatalf("got %d statements, want 2:\n%s", len(tree.Root.Children), tree)
		}
		errNode := tree.Root.Children[0]
		if !errNode.IsError() {
			t.Fatalf("first statement is %v, want Error", errNode.Kind)
		}
		if p := errNode.Partial(); p == nil || p.Kind != KindExpressionStatement {
			t.Errorf("Partial() = %v, want ExpressionStatement", p)
		}
		if second := tree.Root.Children[1]; second.Kind != KindVariableDeclaration || second.HasErrors() {
			t.Errorf("statement after the error did not recover:\n%s", tree)
		}
	})

	t.Run("stray brace between statements", func(t *testing.T) {
		tree := Parse([]byte("my $x = 1;\n}\nmy $y = 2;"))
		got := make([]string, len(tree.Root.Children))
		for i, child := range tree.Root.Children {
			got[i] = child.Kind.String()
		}
		want := "VariableDeclaration Error VariableDeclaration"
		if strings.Join(got, " ") != want {
			t.Errorf("got %v, want %s", got, want)
		}
	})

	t.Run("missing expression then clean statement", func(t *testing.T) {
		tree := Parse([]byte("my $x = ;\nmy $y = 2;"))
		if len(tree.Errors) != 1 {
			t.Fatalf("got %d errors, want 1", len(tree.Errors))
		}
		if len(tree.Root.Children) != 2 {
			t.Fatalf("got %d statements, want 2", len(tree.Root.Children))
		}
		if tree.Root.Children[1].HasErrors() {
			t.Errorf("second statement has errors:\n%s", tree)
		}
	})

	t.Run("lexical error becomes error node", func(t *testing.T) {
		tree := Parse([]byte("$x = \"unterminated"))
		found := false
		tree.Root.Walk(func(n *Node) bool {
			if n.IsError() && n.Token != nil {
				found = true
			}
			return true
		})
		if !found {
			t.Errorf("no Error node for the bad token:\n%s", tree)
		}
	})

	t.Run("errors are sorted", func(t *testing.T) {
		tree := Parse([]byte("my $a = ;\nfoo(1;\n}\nmy $b = 1 +;\n"))
		if len(tree.Errors) < 3 {
			t.Fatalf("got %d errors, want at least 3", len(tree.Errors))
		}
		for i := 1; i < len(tree.Errors); i++ {
			if tree.Errors[i].Range.Start.Offset < tree.Errors[i-1].Range.Start.Offset {
				t.Errorf("errors out of order: %v before %v", tree.Errors[i-1], tree.Errors[i])
			}
		}
	})
}

func TestParseSpansCoverInput(t *testing.T) {
	input := "sub f {\n  my ($a, $b) = @_;\n  return $a + $b;\n}\nprint f(1, 2);\n"
	tree := parseClean(t, input)
	if tree.Root.Span.Start.Offset != 0 || tree.Root.Span.End.Offset != len(input) {
		t.Errorf("root spans [%d,%d), want [0,%d)", tree.Root.Span.Start.Offset, tree.Root.Span.End.Offset, len(input))
	}
	checkContainment(t, tree.Root)

	sub := tree.Root.Children[0]
	if sub.Span.End.Line != 4 || sub.Span.End.Column != 2 {
		t.Errorf("sub ends at %v, want 4:2", sub.Span.End)
	}
}

func checkContainment(t *testing.T, n *Node) {
	t.Helper()
	prevEnd := n.Span.Start.Offset
	for _, child := range n.Children {
		if !n.Span.ContainsRange(child.Span) {
			t.Errorf("%v %v is outside its parent %v %v", child.Kind, child.Span, n.Kind, n.Span)
		}
		if child.Span.Start.Offset < prevEnd {
			t.Errorf("%v %v overlaps its previous sibling", child.Kind, child.Span)
		}
		prevEnd = child.Span.End.Offset
		checkContainment(t, child)
	}
}

func TestParseCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tree := Parse([]byte("my $x = 1;\nmy $y = 2;\n"), WithContext(ctx))
	if !tree.Canceled {
		t.Error("Canceled = false, want true")
	}
	if len(tree.Root.Children) != 0 {
		t.Errorf("canceled parse produced %d statements", len(tree.Root.Children))
	}
}

func TestParseMaxDepth(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  []Option
	}{
		{
			name:  "nested parens",
			input: strings.Repeat("(", 100) + "1" + strings.Repeat(")", 100) + ";",
			opts:  []Option{WithMaxDepth(16)},
		},
		{
			name:  "nested blocks",
			input: strings.Repeat("{", 100) + strings.Repeat("}", 100),
			opts:  []Option{WithMaxDepth(16)},
		},
		{
			name:  "default limit",
			input: strings.Repeat("(", 5000) + "1" + strings.Repeat(")", 5000) + ";",
		},
		{
			name:  "assignment chain",
			input: strings.Repeat("$a = ", 100) + "1;",
			opts:  []Option{WithMaxDepth(16)},
		},
		{
			name:  "ternary else chain",
			input: strings.Repeat("$a ? 1 : ", 100) + "1;",
			opts:  []Option{WithMaxDepth(16)},
		},
		{
			name:  "long assignment chain",
			input: strings.Repeat("$a=", 200000) + "1;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Parse([]byte(tt.input), tt.opts...)
			if len(tree.Errors) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(tree.Errors), tree.Errors)
			}
			if tree.Errors[0].Message != "nesting too deep" {
				t.Errorf("Message = %q, want %q", tree.Errors[0].Message, "nesting too deep")
			}
		})
	}
}

func TestParseShallowNestingWithinLimit(t *testing.T) {
	input := strings.Repeat("(", 5) + "1" + strings.Repeat(")", 5) + ";"
	parseClean(t, input)
}
