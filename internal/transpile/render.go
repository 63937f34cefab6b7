// Package transpile renders normalized programs back to Star text and packs them
// into self-contained modules that replay without the parser.
package transpile

import (
	"strconv"
	"strings"

	"star-core/internal/ast"
	"star-core/internal/parser"
	"star-core/internal/transform"
)

// PineToStar parses source, normalizes callees and renders the result as Star text.
func PineToStar(source string) string {
	return Render(transform.Program(parser.Parse(source)))
}

// Render prints a program one statement per line, indicator lines first.
func Render(p *ast.Program) string {
	lines := make([]string, 0, len(p.Indicators)+len(p.Assignments))
	lines = append(lines, p.Indicators...)
	for _, a := range p.Assignments {
		if a.IsCall() {
			lines = append(lines, RenderExpr(a.Expr))
			continue
		}
		lines = append(lines, a.ID+" = "+RenderExpr(a.Expr))
	}
	return strings.Join(lines, "\n")
}

const (
	precAdditive = iota + 1
	precMultiplicative
	precPower
	precUnary
	precPrimary
)

func precedence(e ast.Expr) int {
	switch n := e.(type) {
	case ast.Binary:
		switch n.Op {
		case "+", "-":
			return precAdditive
		case "*", "/":
			return precMultiplicative
		default:
			return precPower
		}
	case ast.Unary:
		return precUnary
	}
	return precPrimary
}

// RenderExpr prints one expression so that parsing the output yields the same tree.
func RenderExpr(e ast.Expr) string {
	var b strings.Builder
	renderTo(&b, e)
	return b.String()
}

func renderTo(b *strings.Builder, e ast.Expr) {
	switch n := e.(type) {
	case ast.Number:
		b.WriteString(strconv.FormatFloat(n.Value, 'f', -1, 64))
	case ast.String:
		b.WriteString(quote(n.Value))
	case ast.Identifier:
		b.WriteString(n.Name)
	case ast.Array:
		b.WriteByte('[')
		renderList(b, n.Items)
		b.WriteByte(']')
	case ast.Index:
		renderOperand(b, n.Target, precPrimary)
		b.WriteByte('[')
		renderTo(b, n.Index)
		b.WriteByte(']')
	case ast.Unary:
		b.WriteString(n.Op)
		renderOperand(b, n.Expr, precUnary)
	case ast.Binary:
		p := precedence(n)
		left, right := p, p+1
		if p == precPower {
			// right associative
			left, right = p+1, p
		}
		renderOperand(b, n.Left, left)
		b.WriteString(" " + n.Op + " ")
		renderOperand(b, n.Right, right)
	case ast.Call:
		renderCall(b, n)
	}
}

// renderOperand wraps e in parentheses when it binds looser than minPrec.
func renderOperand(b *strings.Builder, e ast.Expr, minPrec int) {
	if precedence(e) >= minPrec {
		renderTo(b, e)
		return
	}
	b.WriteByte('(')
	renderTo(b, e)
	b.WriteByte(')')
}

func renderList(b *strings.Builder, items []ast.Expr) {
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		renderTo(b, item)
	}
}

// renderCall prints trailing named pairs as a { name: value } group.
func renderCall(b *strings.Builder, c ast.Call) {
	positional, named := c.SplitArgs()
	b.WriteString(c.Callee)
	b.WriteByte('(')
	renderList(b, positional)
	if len(named) > 0 {
		if len(positional) > 0 {
			b.WriteString(", ")
		}
		b.WriteString("{ ")
		for i, n := range named {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(n.Name + ": ")
			renderTo(b, n.Value)
		}
		b.WriteString(" }")
	}
	b.WriteByte(')')
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}
