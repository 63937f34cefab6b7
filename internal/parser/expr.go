package parser

import (
	"fmt"
	"strconv"

	"star-core/internal/ast"
)

const maxDepth = 256

type exprParser struct {
	tokens []token
	pos    int
	depth  int
}

// ParseExpr parses a single expression; the whole input must be consumed.
func ParseExpr(raw string) (ast.Expr, error) {
	toks, err := tokenize(raw)
	if err != nil {
		return nil, err
	}
	return parseTokens(toks)
}

func parseTokens(toks []token) (ast.Expr, error) {
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	p := &exprParser{tokens: toks}
	expr, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected token %q", p.peek().lit)
	}
	return expr, nil
}

func (p *exprParser) peek() token {
	return p.peekAt(0)
}

func (p *exprParser) peekAt(n int) token {
	if p.pos+n >= len(p.tokens) {
		return token{kind: tokEOF}
	}
	return p.tokens[p.pos+n]
}

func (p *exprParser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *exprParser) expect(punct string) error {
	if t := p.next(); !t.is(punct) {
		return fmt.Errorf("expected %q, got %q", punct, t.lit)
	}
	return nil
}

func (p *exprParser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return fmt.Errorf("expression nesting too deep near token %q", p.peek().lit)
	}
	return nil
}

func (p *exprParser) parseAdditive() (ast.Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek().is("+") || p.peek().is("-") {
		op := p.next().lit
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for p.peek().is("*") || p.peek().is("/") {
		op := p.next().lit
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parsePower is right-recursive so 2^3^2 groups as 2^(3^2).
func (p *exprParser) parsePower() (ast.Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	base, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if !p.peek().is("^") {
		return base, nil
	}
	p.next()
	exp, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	return ast.Binary{Op: "^", Left: base, Right: exp}, nil
}

func (p *exprParser) parseUnary() (ast.Expr, error) {
	if p.peek().is("+") || p.peek().is("-") {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer func() { p.depth-- }()
		op := p.next().lit
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Op: op, Expr: operand}, nil
	}
	return p.parsePrimary()
}

// parsePrimary reads one primary and any [expr] subscripts after it.
func (p *exprParser) parsePrimary() (ast.Expr, error) {
	expr, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return p.parseIndexSuffix(expr)
}

func (p *exprParser) parseOperand() (ast.Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(t.lit, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t.lit)
		}
		return ast.Number{Value: v}, nil
	case tokString:
		return ast.String{Value: t.lit}, nil
	case tokIdent:
		var expr ast.Expr = ast.Identifier{Name: t.lit}
		if p.peek().is("(") {
			p.next()
			args, err := p.parseArgs()
			if err != nil {
				return nil, fmt.Errorf("call %s: %w", t.lit, err)
			}
			expr = ast.Call{Callee: t.lit, Args: args}
		}
		return expr, nil
	case tokPunct:
		switch t.lit {
		case "(":
			e, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return e, nil
		case "[":
			items, err := p.parseList("]")
			if err != nil {
				return nil, err
			}
			return ast.Array{Items: items}, nil
		}
	}
	if t.kind == tokEOF {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	return nil, fmt.Errorf("unexpected token %q", t.lit)
}

// parseIndexSuffix applies zero or more [expr] subscripts, e.g. ta.hma(close, 12)[2]
// or (a + b)[1].
func (p *exprParser) parseIndexSuffix(expr ast.Expr) (ast.Expr, error) {
	for p.peek().is("[") {
		p.next()
		idx, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		expr = ast.Index{Target: expr, Index: idx}
	}
	return expr, nil
}

func (p *exprParser) parseList(closer string) ([]ast.Expr, error) {
	items := []ast.Expr{}
	if p.peek().is(closer) {
		p.next()
		return items, nil
	}
	for {
		e, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		items = append(items, e)
		if p.peek().is(",") {
			p.next()
			continue
		}
		if err := p.expect(closer); err != nil {
			return nil, err
		}
		return items, nil
	}
}

// parseArgs reads a call's argument list after the opening parenthesis. Named
// arguments (name = expr) and { name: expr, ... } groups both flatten into an
// Identifier followed by the value.
func (p *exprParser) parseArgs() ([]ast.Expr, error) {
	args := []ast.Expr{}
	if p.peek().is(")") {
		p.next()
		return args, nil
	}
	for {
		switch {
		case p.peek().kind == tokIdent && p.peekAt(1).is("="):
			name := p.next().lit
			p.next()
			v, err := p.parseAdditive()
			if err != nil {
				return nil, fmt.Errorf("named argument %s: %w", name, err)
			}
			args = append(args, ast.Identifier{Name: name}, v)
		case p.peek().is("{"):
			p.next()
			pairs, err := p.parseNamedGroup()
			if err != nil {
				return nil, err
			}
			args = append(args, pairs...)
		default:
			v, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		if p.peek().is(",") {
			p.next()
			continue
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return args, nil
	}
}

func (p *exprParser) parseNamedGroup() ([]ast.Expr, error) {
	var out []ast.Expr
	if p.peek().is("}") {
		p.next()
		return out, nil
	}
	for {
		name := p.next()
		if name.kind != tokIdent {
			return nil, fmt.Errorf("expected option name, got %q", name.lit)
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		v, err := p.parseAdditive()
		if err != nil {
			return nil, fmt.Errorf("option %s: %w", name.lit, err)
		}
		out = append(out, ast.Identifier{Name: name.lit}, v)
		if p.peek().is(",") {
			p.next()
			continue
		}
		if err := p.expect("}"); err != nil {
			return nil, err
		}
		return out, nil
	}
}
