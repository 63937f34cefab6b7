// Package ast defines the syntax tree produced by the Star Script parsers.
//
// Nodes are immutable values: transformation and rendering always build new trees.
package ast

// CallSentinel is the assignment id used for bare call statements such as plot(...).
const CallSentinel = "_call"

// Program is the result of parsing one script. Assignment order is evaluation order.
type Program struct {
	Indicators  []string
	Assignments []Assignment
}

type Assignment struct {
	ID   string
	Expr Expr
}

// IsCall reports whether the assignment is a bare call statement with no binding.
func (a Assignment) IsCall() bool {
	return a.ID == CallSentinel
}

// Expr is the closed set of expression nodes.
type Expr interface {
	isExpr()
}

type Number struct {
	Value float64
}

func (Number) isExpr() {}

type String struct {
	Value string
}

func (String) isExpr() {}

type Identifier struct {
	Name string
}

func (Identifier) isExpr() {}

type Array struct {
	Items []Expr
}

func (Array) isExpr() {}

// Index is a series subscript such as close[12].
type Index struct {
	Target Expr
	Index  Expr
}

func (Index) isExpr() {}

type Unary struct {
	Op   string
	Expr Expr
}

func (Unary) isExpr() {}

type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

func (Binary) isExpr() {}

// Call invokes a dotted callee. Named arguments are encoded as an Identifier
// immediately followed by the value expression.
type Call struct {
	Callee string
	Args   []Expr
}

func (Call) isExpr() {}

// NamedArg is one name=value pair recovered from a call's argument list.
type NamedArg struct {
	Name  string
	Value Expr
}

// SplitArgs separates positional arguments from trailing named pairs. A pair is a
// simple Identifier followed by a value that is not itself a simple name. A pair in
// first position is named only when another pair follows it. The split is lossless:
// joining the positional args with the flattened pairs yields the original slice.
func (c Call) SplitArgs() ([]Expr, []NamedArg) {
	return c.SplitArgsFunc(func(string) bool { return c.pairAt(2) })
}

// SplitArgsFunc is SplitArgs with the decision for a pair in first position left to
// leading, which receives the pair's name.
func (c Call) SplitArgsFunc(leading func(name string) bool) ([]Expr, []NamedArg) {
	var positional []Expr
	var named []NamedArg
	for i := 0; i < len(c.Args); i++ {
		arg := c.Args[i]
		if c.pairAt(i) && (i > 0 || leading(arg.(Identifier).Name)) {
			named = append(named, NamedArg{Name: arg.(Identifier).Name, Value: c.Args[i+1]})
			i++
			continue
		}
		if len(named) > 0 {
			// Positional args after a named pair keep their place by folding the
			// pairs back in; only a trailing run of pairs is named.
			for _, n := range named {
				positional = append(positional, Identifier{Name: n.Name}, n.Value)
			}
			named = nil
		}
		positional = append(positional, arg)
	}
	return positional, named
}

func (c Call) pairAt(i int) bool {
	if i+1 >= len(c.Args) {
		return false
	}
	id, ok := c.Args[i].(Identifier)
	if !ok || !isSimpleName(id.Name) {
		return false
	}
	if next, ok := c.Args[i+1].(Identifier); ok && isSimpleName(next.Name) {
		return false
	}
	return true
}

func isSimpleName(name string) bool {
	if name == "" || name == "true" || name == "false" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
