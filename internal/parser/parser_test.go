package parser

import (
	"reflect"
	"testing"

	"star-core/internal/ast"
)

func num(v float64) ast.Expr     { return ast.Number{Value: v} }
func ident(name string) ast.Expr { return ast.Identifier{Name: name} }

func TestParseAssignmentsAndCalls(t *testing.T) {
	src := `
// header comment
indicator("Demo", overlay=true)
/* block start
len = 14
ma = ta.sma(close, len)
plot(ma)
1 + 2
`
	prog := Parse(src)
	if len(prog.Indicators) != 1 || prog.Indicators[0] != `indicator("Demo", overlay=true)` {
		t.Fatalf("unexpected indicators: %#v", prog.Indicators)
	}
	if len(prog.Assignments) != 3 {
		t.Fatalf("expected 3 assignments, got %d: %#v", len(prog.Assignments), prog.Assignments)
	}
	if prog.Assignments[0].ID != "len" || !reflect.DeepEqual(prog.Assignments[0].Expr, num(14)) {
		t.Fatalf("unexpected first assignment: %#v", prog.Assignments[0])
	}
	wantMA := ast.Call{Callee: "ta.sma", Args: []ast.Expr{ident("close"), ident("len")}}
	if !reflect.DeepEqual(prog.Assignments[1].Expr, wantMA) {
		t.Fatalf("unexpected ma expr: %#v", prog.Assignments[1].Expr)
	}
	if !prog.Assignments[2].IsCall() {
		t.Fatalf("expected bare call sentinel, got %q", prog.Assignments[2].ID)
	}
}

func TestParsePrecedence(t *testing.T) {
	cases := []struct {
		src  string
		want ast.Expr
	}{
		{"1 + 2 * 3", ast.Binary{Op: "+", Left: num(1), Right: ast.Binary{Op: "*", Left: num(2), Right: num(3)}}},
		{"(1 + 2) * 3", ast.Binary{Op: "*", Left: ast.Binary{Op: "+", Left: num(1), Right: num(2)}, Right: num(3)}},
		{"2 ^ 3 ^ 2", ast.Binary{Op: "^", Left: num(2), Right: ast.Binary{Op: "^", Left: num(3), Right: num(2)}}},
		{"10 - 4 - 3", ast.Binary{Op: "-", Left: ast.Binary{Op: "-", Left: num(10), Right: num(4)}, Right: num(3)}},
		{"-x", ast.Unary{Op: "-", Expr: ident("x")}},
		{"--1", ast.Unary{Op: "-", Expr: ast.Unary{Op: "-", Expr: num(1)}}},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			got, err := ParseExpr(tc.src)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestParseIndexAndArrays(t *testing.T) {
	got, err := ParseExpr("ta.hma(close, 12)[2]")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := ast.Index{
		Target: ast.Call{Callee: "ta.hma", Args: []ast.Expr{ident("close"), num(12)}},
		Index:  num(2),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}

	got, err = ParseExpr("(a + b)[1]")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	wantGroup := ast.Index{Target: ast.Binary{Op: "+", Left: ident("a"), Right: ident("b")}, Index: num(1)}
	if !reflect.DeepEqual(got, wantGroup) {
		t.Fatalf("got %#v", got)
	}

	got, err = ParseExpr("[1, 2][0]")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	wantLit := ast.Index{Target: ast.Array{Items: []ast.Expr{num(1), num(2)}}, Index: num(0)}
	if !reflect.DeepEqual(got, wantLit) {
		t.Fatalf("got %#v", got)
	}

	got, err = ParseExpr("[1, 'a', []]")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	wantArr := ast.Array{Items: []ast.Expr{num(1), ast.String{Value: "a"}, ast.Array{Items: []ast.Expr{}}}}
	if !reflect.DeepEqual(got, wantArr) {
		t.Fatalf("got %#v", got)
	}
}

func TestParseNamedArguments(t *testing.T) {
	eq, err := ParseExpr(`strategy.entry("L", qty=2)`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	grp, err := ParseExpr(`strategy.entry("L", { qty: 2 })`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !reflect.DeepEqual(eq, grp) {
		t.Fatalf("named forms differ: %#v vs %#v", eq, grp)
	}
	want := ast.Call{Callee: "strategy.entry", Args: []ast.Expr{ast.String{Value: "L"}, ident("qty"), num(2)}}
	if !reflect.DeepEqual(eq, want) {
		t.Fatalf("got %#v", eq)
	}
}

func TestParseStrings(t *testing.T) {
	got, err := ParseExpr(`"a\"b\n"`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got != (ast.String{Value: "a\"b\n"}) {
		t.Fatalf("got %#v", got)
	}
	if _, err := ParseExpr(`"open`); err == nil {
		t.Fatalf("expected error for unterminated string")
	}
}

func TestParseDropsInvalidLines(t *testing.T) {
	lines := []string{
		"a.b = 1",
		"x = ",
		"x = 1 +",
		"foo bar",
		"x = 1 # 2",
		"_call = plot(1)",
		"a + b",
	}
	for _, l := range lines {
		if a, ok := ParseStatement(l); ok {
			t.Fatalf("expected %q to be dropped, got %#v", l, a)
		}
	}
}

func TestParseTrailingComment(t *testing.T) {
	a, ok := ParseStatement("x = 1 // note")
	if !ok || a.ID != "x" || !reflect.DeepEqual(a.Expr, num(1)) {
		t.Fatalf("unexpected result %#v ok=%v", a, ok)
	}
}

func TestIsIndicatorLine(t *testing.T) {
	cases := map[string]bool{
		`indicator("x")`:    true,
		"indicator":         true,
		"indicators = 1":    false,
		"indicator.foo(1)":  false,
		`indicator ("x")`:   true,
	}
	for line, want := range cases {
		if got := IsIndicatorLine(line); got != want {
			t.Fatalf("IsIndicatorLine(%q) = %v, want %v", line, got, want)
		}
	}
}

func TestParseDepthGuard(t *testing.T) {
	src := ""
	for i := 0; i < 400; i++ {
		src += "("
	}
	src += "1"
	for i := 0; i < 400; i++ {
		src += ")"
	}
	if _, err := ParseExpr(src); err == nil {
		t.Fatalf("expected nesting error")
	}
}
