package transform

import (
	"reflect"
	"testing"

	"star-core/internal/ast"
	"star-core/internal/parser"
)

func TestNormalizeCallee(t *testing.T) {
	cases := map[string]string{
		"plot":              "star.plot",
		"input":             "star.input",
		"input.int":         "star.input.int",
		"ta.sma":            "star.ta.sma",
		"request.security":  "star.request.security",
		"star.plot":         "star.plot",
		"star.ta.rsi":       "star.ta.rsi",
		"sma":               "star.ta.sma",
		"min":               "star.ta.min",
		"strategy.entry":    "strategy.entry",
		"math.avg":          "math.avg",
		"color.rgb":         "color.rgb",
		"plotshape":         "plotshape",
	}
	for in, want := range cases {
		if got := NormalizeCallee(in); got != want {
			t.Errorf("NormalizeCallee(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProgramEndToEnd(t *testing.T) {
	p := parser.Parse("indicator(\"t\")\na = sma(close, 14)\nplot(a)\n")
	out := Program(p)
	if len(out.Indicators) != 1 || len(out.Assignments) != 2 {
		t.Fatalf("unexpected program shape: %#v", out)
	}
	if c := out.Assignments[0].Expr.(ast.Call); c.Callee != "star.ta.sma" {
		t.Fatalf("expected star.ta.sma, got %q", c.Callee)
	}
	if c := out.Assignments[1].Expr.(ast.Call); c.Callee != "star.plot" || !out.Assignments[1].IsCall() {
		t.Fatalf("expected star.plot call, got %#v", out.Assignments[1])
	}
	// input untouched
	if c := p.Assignments[0].Expr.(ast.Call); c.Callee != "sma" {
		t.Fatalf("input program was mutated: %q", c.Callee)
	}
}

func TestProgramIdempotent(t *testing.T) {
	p := parser.Parse(`x = (sma(close, 3) + ta.ema(close, 5)[1]) * -max(1, 2)
y = [input(2), request.security("SPY", "D", close)]
plot(x, title="x")`)
	once := Program(p)
	twice := Program(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("transform is not idempotent:\n%#v\n%#v", once, twice)
	}
}

func TestProgramNestedCalls(t *testing.T) {
	p := parser.Parse("v = math.avg(sma(close, 2), [rsi(close, 14)])")
	got := Program(p).Assignments[0].Expr
	want := ast.Call{Callee: "math.avg", Args: []ast.Expr{
		ast.Call{Callee: "star.ta.sma", Args: []ast.Expr{ast.Identifier{Name: "close"}, ast.Number{Value: 2}}},
		ast.Array{Items: []ast.Expr{
			ast.Call{Callee: "star.ta.rsi", Args: []ast.Expr{ast.Identifier{Name: "close"}, ast.Number{Value: 14}}},
		}},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}
}

func TestProgramNil(t *testing.T) {
	if Program(nil) != nil {
		t.Fatalf("expected nil")
	}
}
