// Package transform rewrites callee names of a parsed program into the star.* namespace.
package transform

import (
	"strings"

	"star-core/internal/ast"
)

const starPrefix = "star."

// taBuiltins are bare function names that resolve to star.ta.<name>.
var taBuiltins = map[string]struct{}{
	"sma": {}, "ema": {}, "rsi": {}, "wma": {}, "ma": {},
	"stdev": {}, "sum": {}, "avg": {}, "max": {}, "min": {},
}

// Program returns a normalized deep copy of p. The input is never modified.
func Program(p *ast.Program) *ast.Program {
	if p == nil {
		return nil
	}
	out := &ast.Program{
		Indicators:  append([]string{}, p.Indicators...),
		Assignments: make([]ast.Assignment, 0, len(p.Assignments)),
	}
	for _, a := range p.Assignments {
		out.Assignments = append(out.Assignments, ast.Assignment{ID: a.ID, Expr: Expr(a.Expr)})
	}
	return out
}

// Expr rebuilds e with every call callee normalized.
func Expr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case ast.Call:
		return ast.Call{Callee: NormalizeCallee(n.Callee), Args: exprs(n.Args)}
	case ast.Array:
		return ast.Array{Items: exprs(n.Items)}
	case ast.Index:
		return ast.Index{Target: Expr(n.Target), Index: Expr(n.Index)}
	case ast.Binary:
		return ast.Binary{Op: n.Op, Left: Expr(n.Left), Right: Expr(n.Right)}
	case ast.Unary:
		return ast.Unary{Op: n.Op, Expr: Expr(n.Expr)}
	default:
		// leaves are values
		return e
	}
}

func exprs(in []ast.Expr) []ast.Expr {
	out := make([]ast.Expr, len(in))
	for i, e := range in {
		out[i] = Expr(e)
	}
	return out
}

// NormalizeCallee applies the namespace rules in order; the first match wins.
func NormalizeCallee(callee string) string {
	switch {
	case callee == "":
		return callee
	case callee == "plot":
		return starPrefix + "plot"
	case strings.HasPrefix(callee, "input"):
		return starPrefix + callee
	case strings.HasPrefix(callee, "ta."), strings.HasPrefix(callee, "request."):
		return starPrefix + callee
	case strings.HasPrefix(callee, starPrefix):
		return callee
	}
	if _, ok := taBuiltins[callee]; ok {
		return starPrefix + "ta." + callee
	}
	return callee
}
