package runtime

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"star-core/internal/ast"
	"star-core/internal/parser"
	"star-core/internal/transform"
)

func mustRun(t *testing.T, src string) *Result {
	t.Helper()
	res, err := Run(src, DefaultConfig())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	return res
}

func binding(t *testing.T, res *Result, name string) Value {
	t.Helper()
	_, values := res.Env.Bindings()
	v, ok := values[name]
	if !ok {
		t.Fatalf("binding %q not found", name)
	}
	return v
}

func TestPrecedence(t *testing.T) {
	res := mustRun(t, "a = 1 + 2 * 3\nb = (1 + 2) * 3\nc = 2 ^ 3 ^ 2\nd = -2 ^ 2\ne = 10 - 4 - 3")
	tests := map[string]float64{"a": 7, "b": 9, "c": 512, "d": 4, "e": 3}
	for name, want := range tests {
		if got := binding(t, res, name); got != want {
			t.Fatalf("%s=%v, expected %v", name, got, want)
		}
	}
}

func TestOperationLimit(t *testing.T) {
	lines := make([]string, 20)
	for i := range lines {
		lines[i] = fmt.Sprintf("a%d = 1", i)
	}
	src := strings.Join(lines, "\n")

	res, err := Run(src, Config{OpLimit: 5})
	if err == nil {
		t.Fatalf("expected operation limit error")
	}
	if !errors.Is(err, ErrOpLimitExceeded) {
		t.Fatalf("expected ErrOpLimitExceeded, got %v", err)
	}
	if !strings.Contains(err.Error(), "operation limit (5)") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	var rerr *RuntimeError
	if !errors.As(err, &rerr) || rerr.Kind() != "op_limit" {
		t.Fatalf("expected RuntimeError of kind op_limit, got %#v", err)
	}
	if names, _ := res.Env.Bindings(); len(names) != 5 {
		t.Fatalf("partial bindings=%v, expected 5", names)
	}

	if _, err := Run(src, Config{OpLimit: 10000}); err != nil {
		t.Fatalf("Run with budget 10000 returned error: %v", err)
	}
}

func TestEndToEnd(t *testing.T) {
	src := "indicator(\"t\")\na = sma(close, 14)\nplot(a)\n"
	prog := parser.Parse(src)
	if len(prog.Indicators) != 1 || len(prog.Assignments) != 2 || prog.Assignments[0].ID != "a" || !prog.Assignments[1].IsCall() {
		t.Fatalf("unexpected program: %#v", prog)
	}

	res, err := RunProgram(transform.Program(prog), DefaultConfig())
	if err != nil {
		t.Fatalf("RunProgram returned error: %v", err)
	}
	if len(res.Plots) != 1 || res.Plots[0].Callee != "plot" {
		t.Fatalf("plots=%#v, expected one plot", res.Plots)
	}
	// mean of closes 186..199 is 100 + 192.5*0.5
	if got := binding(t, res, "a"); got != 196.25 {
		t.Fatalf("a=%v, expected 196.25", got)
	}

	direct := mustRun(t, src)
	if len(direct.Plots) != 1 || len(direct.Indicators) != 1 {
		t.Fatalf("direct run plots=%d indicators=%d", len(direct.Plots), len(direct.Indicators))
	}
}

func TestSecurityDiffersPerSymbol(t *testing.T) {
	res := mustRun(t, `a = request.security("SPY", "D", close)
b = request.security("QQQ", "D", close)`)
	a, ok := binding(t, res, "a").(Series)
	if !ok {
		t.Fatalf("a is not a series")
	}
	b, ok := binding(t, res, "b").(Series)
	if !ok {
		t.Fatalf("b is not a series")
	}
	if a[0] == b[0] {
		t.Fatalf("expected different first elements, both %v", a[0])
	}
	again := mustRun(t, `a = request.security("SPY", "D", close)`)
	if binding(t, again, "a").(Series)[0] != a[0] {
		t.Fatalf("security offset is not deterministic")
	}
}

func TestStrategyFillArithmetic(t *testing.T) {
	res := mustRun(t, `strategy.order("x", "buy", 10)
p = strategy.position()
strategy.order("x", "sell", 10)
q = strategy.position()`)
	p := binding(t, res, "p").(Object)
	if p["size"] != 10.0 || p["avg"] != 199.5 {
		t.Fatalf("position after buy=%v", p)
	}
	q := binding(t, res, "q").(Object)
	if q["size"] != 0.0 || q["avg"] != 0.0 {
		t.Fatalf("position after sell=%v", q)
	}
	if got := res.Env.Strategy().RealizedPnL(); got != 0 {
		t.Fatalf("RealizedPnL=%v, expected 0", got)
	}
}

func TestStrategyOptions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		qty  float64
	}{
		{"named pair", `strategy.order("p1", "buy", 10, fillPercent=0.5)`, 5},
		{"option group", `strategy.order("p1", "buy", 10, { fillPercent: 0.5 })`, 5},
		{"entry default", `strategy.entry("long1")`, 1},
		{"entry named qty", `strategy.entry("long1", qty=3)`, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustRun(t, tt.src)
			orders := res.Env.Strategy().Orders()
			if len(orders) != 1 || orders[0].FilledQty != tt.qty {
				t.Fatalf("orders=%+v, expected one fill of %v", orders, tt.qty)
			}
		})
	}
}

func TestSlippageChangesTradePrice(t *testing.T) {
	plain := mustRun(t, `strategy.entry("long1", 10)`).Env.Strategy().Trades()
	slipped := mustRun(t, `strategy.order("long2", "buy", 10, slippage=0.01)`).Env.Strategy().Trades()
	if len(plain) != 1 || len(slipped) != 1 {
		t.Fatalf("trades plain=%d slipped=%d", len(plain), len(slipped))
	}
	if plain[0].Price == slipped[0].Price {
		t.Fatalf("slippage did not change price %v", plain[0].Price)
	}
	if math.Abs(slipped[0].Price-199.5*1.01) > 1e-9 {
		t.Fatalf("slipped price=%v", slipped[0].Price)
	}
}

func TestOptionNamesIgnoreBindings(t *testing.T) {
	res := mustRun(t, "fillPercent = 1\nstrategy.order(\"x\", \"buy\", 10, { fillPercent: 0.5 })")
	if orders := res.Env.Strategy().Orders(); len(orders) != 1 || orders[0].FilledQty != 5 {
		t.Fatalf("orders=%+v, expected one fill of 5", orders)
	}

	res = mustRun(t, "slippage = 0.5\nstrategy.order(\"s\", \"buy\", 10, slippage=0.01)")
	trades := res.Env.Strategy().Trades()
	if len(trades) != 1 || math.Abs(trades[0].Price-201.495) > 1e-9 {
		t.Fatalf("trades=%+v, expected price 201.495", trades)
	}

	res = mustRun(t, "a = close\nplot(a, color=color.red)")
	if len(res.Plots) != 1 || res.Plots[0].Title != "" {
		t.Fatalf("plots=%#v", res.Plots)
	}
	args := res.Plots[0].Args
	if len(args) != 3 || args[1] != (OptionName{Name: "color"}) || args[2] != "#FF5252" {
		t.Fatalf("plot args=%#v", args)
	}
}

func TestInputLeadingOptions(t *testing.T) {
	res := mustRun(t, `a = input.int(defval=14, title="L")
defval = 3
b = input.int(defval, "T")`)
	if got := binding(t, res, "a"); got != 14.0 {
		t.Fatalf("a=%#v, expected 14", got)
	}
	if got := binding(t, res, "b"); got != 3.0 {
		t.Fatalf("b=%#v, expected 3", got)
	}
	inputs := res.Env.Inputs()
	if inputs["L"] != 14.0 || inputs["T"] != 3.0 {
		t.Fatalf("inputs=%v", inputs)
	}
}

func TestStrategyEntryAndPnL(t *testing.T) {
	res := mustRun(t, `a = request.security("SPY", "D", close)
strategy.entry("long1", 2)
pnl = strategy.pnl()
plot(a, title="sec")`)
	eng := res.Env.Strategy()
	if len(eng.Entries()) != 1 || eng.Position().Size < 2 {
		t.Fatalf("entries=%v position=%+v", eng.Entries(), eng.Position())
	}
	if binding(t, res, "pnl") != 0.0 {
		t.Fatalf("pnl at entry price should be 0")
	}
	if len(res.Plots) != 1 || res.Plots[0].Title != "sec" {
		t.Fatalf("plots=%#v", res.Plots)
	}
}

func TestLeniency(t *testing.T) {
	res := mustRun(t, "u = foo.bar\nc = nothing(1, 2)\nt = true")
	if got := binding(t, res, "u"); got != (Unresolved{Name: "foo.bar"}) {
		t.Fatalf("u=%#v", got)
	}
	ph, ok := binding(t, res, "c").(*Placeholder)
	if !ok || ph.Callee != "nothing" || len(ph.Args) != 2 {
		t.Fatalf("c=%#v", binding(t, res, "c"))
	}
	if binding(t, res, "t") != true {
		t.Fatalf("t should be true")
	}
}

func TestArithmeticMixes(t *testing.T) {
	res := mustRun(t, `s = "a" + 1
n = foo + "x"
b = true + 1
z = 1 / 0
bad = "a" * 2
d = close - low`)
	if binding(t, res, "s") != "a1" || binding(t, res, "n") != "foox" || binding(t, res, "b") != 2.0 {
		t.Fatalf("unexpected string/bool arithmetic")
	}
	if z := binding(t, res, "z").(float64); !math.IsInf(z, 1) {
		t.Fatalf("z=%v, expected +Inf", z)
	}
	if bad := binding(t, res, "bad").(float64); !math.IsNaN(bad) {
		t.Fatalf("bad=%v, expected NaN", bad)
	}
	d := binding(t, res, "d").(Series)
	if len(d) != 200 || d[0] != 1 || d[199] != 1 {
		t.Fatalf("d=%v", d[:3])
	}
}

func TestIndex(t *testing.T) {
	res := mustRun(t, "a = close[0]\nb = close[500]\nc = close[1.5]\nd = [1, 2, 3][2]\ne = ta.hma(close, 12)[0]")
	if binding(t, res, "a") != 100.0 {
		t.Fatalf("a=%v", binding(t, res, "a"))
	}
	if binding(t, res, "b") != nil || binding(t, res, "c") != nil || binding(t, res, "e") != nil {
		t.Fatalf("out of range or non-indexable must be nil")
	}
	// array literal indexing is not part of the grammar, so d is dropped
	if names, _ := res.Env.Bindings(); len(names) != 4 {
		t.Fatalf("bindings=%v", names)
	}
}

func TestHostNamespaces(t *testing.T) {
	res := mustRun(t, `len = input.int(14.7, title="Length")
x = input(5)
avg = math.avg(1, 3, 5)
col = color.rgb(10, 20, 30)
hi = ta.highest(high, 5)
lo = ta.lowest(low, 5)
r = ta.rsi(close, 14)
r2 = ta.rsi(5, 14)
star_sma = star.ta.sma(close, 1)`)
	want := map[string]Value{
		"len": 14.0, "x": 5.0, "avg": 3.0, "col": "rgb(10,20,30)",
		"hi": 200.5, "lo": 196.5, "r2": 50.0, "star_sma": 199.5,
	}
	for name, w := range want {
		if got := binding(t, res, name); got != w {
			t.Fatalf("%s=%v, expected %v", name, got, w)
		}
	}
	if r := binding(t, res, "r").(float64); r < 99.99 || r > 100 {
		t.Fatalf("r=%v, expected close to 100 on a rising series", r)
	}
	if inputs := res.Env.Inputs(); inputs["Length"] != 14.0 {
		t.Fatalf("inputs=%v", inputs)
	}
}

func TestUnsupportedOperator(t *testing.T) {
	env := NewBareEnv(0)
	_, err := Evaluate(ast.Binary{Op: "%", Left: ast.Number{Value: 1}, Right: ast.Number{Value: 2}}, env)
	if !errors.Is(err, ErrUnsupportedOperator) {
		t.Fatalf("expected ErrUnsupportedOperator, got %v", err)
	}
	_, err = Evaluate(ast.Unary{Op: "!", Expr: ast.Number{Value: 1}}, env)
	var rerr *RuntimeError
	if !errors.As(err, &rerr) || rerr.Kind() != "unsupported_operator" {
		t.Fatalf("expected unsupported_operator, got %v", err)
	}
}

func TestExportSanitizes(t *testing.T) {
	out := Export(Array{math.NaN(), Series{1, math.Inf(1)}, Unresolved{Name: "x"}, &Placeholder{Callee: "f"}})
	list := out.([]any)
	if list[0] != nil || list[1].([]any)[1] != nil || list[2] != "x" {
		t.Fatalf("unexpected export %#v", list)
	}
}
