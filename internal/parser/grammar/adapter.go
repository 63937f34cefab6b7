package grammar

import (
	"regexp"
	"strconv"
	"strings"

	"star-core/internal/ast"
)

var indicatorLine = regexp.MustCompile(`^indicator\b`)

// Parse parses a whole script with the grammar parser and adapts the result to the
// shape produced by the hand-written parser. Lines the grammar rejects are dropped.
func Parse(source string) *ast.Program {
	prog := &ast.Program{Indicators: []string{}}
	for _, raw := range strings.Split(source, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "/*") {
			continue
		}
		if indicatorLine.MatchString(line) && !strings.HasPrefix(line, "indicator.") {
			prog.Indicators = append(prog.Indicators, line)
			continue
		}
		stmt, err := ParseStatement(line)
		if err != nil {
			continue
		}
		if a, ok := Adapt(stmt); ok {
			prog.Assignments = append(prog.Assignments, a)
		}
	}
	return prog
}

// Adapt converts a grammar statement into an assignment. Bare statements are only
// kept when they are calls; targets must be plain identifiers.
func Adapt(stmt *Statement) (ast.Assignment, bool) {
	if stmt == nil || stmt.Value == nil {
		return ast.Assignment{}, false
	}
	expr, ok := adaptAdditive(stmt.Value)
	if !ok {
		return ast.Assignment{}, false
	}
	if stmt.Target != nil {
		id := *stmt.Target
		if strings.Contains(id, ".") || id == ast.CallSentinel {
			return ast.Assignment{}, false
		}
		return ast.Assignment{ID: id, Expr: expr}, true
	}
	call, isCall := expr.(ast.Call)
	if !isCall {
		return ast.Assignment{}, false
	}
	return ast.Assignment{ID: ast.CallSentinel, Expr: call}, true
}

func adaptAdditive(n *Additive) (ast.Expr, bool) {
	left, ok := adaptMultiplicative(n.Head)
	if !ok {
		return nil, false
	}
	for _, t := range n.Tail {
		right, ok := adaptMultiplicative(t.Operand)
		if !ok {
			return nil, false
		}
		left = ast.Binary{Op: t.Op, Left: left, Right: right}
	}
	return left, true
}

func adaptMultiplicative(n *Multiplicative) (ast.Expr, bool) {
	left, ok := adaptPower(n.Head)
	if !ok {
		return nil, false
	}
	for _, t := range n.Tail {
		right, ok := adaptPower(t.Operand)
		if !ok {
			return nil, false
		}
		left = ast.Binary{Op: t.Op, Left: left, Right: right}
	}
	return left, true
}

func adaptPower(n *Power) (ast.Expr, bool) {
	base, ok := adaptUnary(n.Base)
	if !ok {
		return nil, false
	}
	if n.Exponent == nil {
		return base, true
	}
	exp, ok := adaptPower(n.Exponent)
	if !ok {
		return nil, false
	}
	return ast.Binary{Op: "^", Left: base, Right: exp}, true
}

func adaptUnary(n *Unary) (ast.Expr, bool) {
	expr, ok := adaptPostfix(n.Operand)
	if !ok {
		return nil, false
	}
	for i := len(n.Signs) - 1; i >= 0; i-- {
		expr = ast.Unary{Op: n.Signs[i], Expr: expr}
	}
	return expr, true
}

func adaptPostfix(n *Postfix) (ast.Expr, bool) {
	if n == nil {
		return nil, false
	}
	expr, ok := adaptPrimary(n.Primary)
	if !ok {
		return nil, false
	}
	for _, idx := range n.Indexes {
		i, ok := adaptAdditive(idx)
		if !ok {
			return nil, false
		}
		expr = ast.Index{Target: expr, Index: i}
	}
	return expr, true
}

func adaptPrimary(n *Primary) (ast.Expr, bool) {
	switch {
	case n == nil:
		return nil, false
	case n.Number != nil:
		v, err := strconv.ParseFloat(*n.Number, 64)
		if err != nil {
			return nil, false
		}
		return ast.Number{Value: v}, true
	case n.String != nil:
		return ast.String{Value: unquote(*n.String)}, true
	case n.Array != nil:
		items, ok := adaptList(n.Array.Items)
		if !ok {
			return nil, false
		}
		return ast.Array{Items: items}, true
	case n.Group != nil:
		return adaptAdditive(n.Group)
	case n.Ref != nil:
		return adaptReference(n.Ref)
	}
	return nil, false
}

func adaptReference(n *Reference) (ast.Expr, bool) {
	var expr ast.Expr = ast.Identifier{Name: n.Name}
	if n.Call != nil {
		args := []ast.Expr{}
		for _, a := range n.Call.Args {
			flat, ok := adaptArgument(a)
			if !ok {
				return nil, false
			}
			args = append(args, flat...)
		}
		expr = ast.Call{Callee: n.Name, Args: args}
	}
	return expr, true
}

func adaptArgument(a *Argument) ([]ast.Expr, bool) {
	if a.Options != nil {
		var out []ast.Expr
		for _, opt := range a.Options.Entries {
			v, ok := adaptAdditive(opt.Value)
			if !ok {
				return nil, false
			}
			out = append(out, ast.Identifier{Name: opt.Name}, v)
		}
		return out, true
	}
	v, ok := adaptAdditive(a.Value)
	if !ok {
		return nil, false
	}
	if a.Name != nil {
		return []ast.Expr{ast.Identifier{Name: *a.Name}, v}, true
	}
	return []ast.Expr{v}, true
}

func adaptList(items []*Additive) ([]ast.Expr, bool) {
	out := []ast.Expr{}
	for _, it := range items {
		e, ok := adaptAdditive(it)
		if !ok {
			return nil, false
		}
		out = append(out, e)
	}
	return out, true
}

// unquote strips the quotes of a String token and resolves its escapes.
func unquote(tok string) string {
	if len(tok) < 2 {
		return tok
	}
	body := tok[1 : len(tok)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}
