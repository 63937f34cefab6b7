package grammar

import (
	"reflect"
	"testing"

	"star-core/internal/ast"
	"star-core/internal/parser"
)

func TestGrammarMatchesHandParser(t *testing.T) {
	samples := []string{
		"x = 1 + 2 * 3",
		"y = 2 ^ 3 ^ 2",
		"z = -(-a)",
		"plot(close)",
		`strategy.entry("L", qty=2)`,
		`strategy.entry("L", { qty: 2, price: close })`,
		"h = ta.hma(close, 12)[2]",
		"arr = [1, 2, [3]]",
		`s = "a\"b"`,
		"q = request.security('SPY', 'D', close)",
		"c = color.rgb(1, 2, 3)",
		"g = (a + b)[1]",
		"e = [1, 2][0][1]",
		"n = -x[1]",
	}
	for _, src := range samples {
		t.Run(src, func(t *testing.T) {
			stmt, err := ParseStatement(src)
			if err != nil {
				t.Fatalf("grammar parse failed: %v", err)
			}
			gen, ok := Adapt(stmt)
			if !ok {
				t.Fatalf("adapter rejected statement")
			}
			hand, ok := parser.ParseStatement(src)
			if !ok {
				t.Fatalf("hand parser rejected statement")
			}
			if !reflect.DeepEqual(gen, hand) {
				t.Fatalf("trees differ:\n gen  %#v\n hand %#v", gen, hand)
			}
		})
	}
}

func TestGrammarParseProgram(t *testing.T) {
	src := "indicator('x')\n\n// c\nx = 1\n1 + 1\nplot(x)\n"
	prog := Parse(src)
	want := &ast.Program{
		Indicators: []string{"indicator('x')"},
		Assignments: []ast.Assignment{
			{ID: "x", Expr: ast.Number{Value: 1}},
			{ID: ast.CallSentinel, Expr: ast.Call{Callee: "plot", Args: []ast.Expr{ast.Identifier{Name: "x"}}}},
		},
	}
	if !reflect.DeepEqual(prog, want) {
		t.Fatalf("got %#v", prog)
	}
}

func TestAdaptRejectsDottedTarget(t *testing.T) {
	stmt, err := ParseStatement("a.b = 1")
	if err != nil {
		t.Fatalf("grammar parse failed: %v", err)
	}
	if _, ok := Adapt(stmt); ok {
		t.Fatalf("expected dotted target to be rejected")
	}
}
