package runtime

import (
	"math"

	"star-core/internal/ast"
)

// Evaluate walks one expression against env. Every node visit counts against the
// environment's operation budget.
func Evaluate(node ast.Expr, env *Env) (Value, error) {
	if err := env.tick(); err != nil {
		return nil, err
	}
	switch n := node.(type) {
	case nil:
		return nil, nil
	case ast.Number:
		return n.Value, nil
	case ast.String:
		return n.Value, nil
	case ast.Identifier:
		switch n.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		if v, ok := env.Lookup(n.Name); ok {
			return v, nil
		}
		return Unresolved{Name: n.Name}, nil
	case ast.Array:
		items, err := evalList(n.Items, env)
		if err != nil {
			return nil, err
		}
		return Array(items), nil
	case ast.Index:
		target, err := Evaluate(n.Target, env)
		if err != nil {
			return nil, err
		}
		idx, err := Evaluate(n.Index, env)
		if err != nil {
			return nil, err
		}
		return index(target, idx), nil
	case ast.Unary:
		v, err := Evaluate(n.Expr, env)
		if err != nil {
			return nil, err
		}
		return unary(n.Op, v)
	case ast.Binary:
		left, err := Evaluate(n.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := Evaluate(n.Right, env)
		if err != nil {
			return nil, err
		}
		return binary(n.Op, left, right)
	case ast.Call:
		fn, _ := env.Lookup(n.Callee)
		f, takesOptions, ok := callable(fn)
		var args []Value
		var err error
		if takesOptions {
			args, err = evalOptionArgs(n, env)
		} else {
			args, err = evalList(n.Args, env)
		}
		if err != nil {
			return nil, err
		}
		if ok {
			return f(args)
		}
		return &Placeholder{Callee: n.Callee, Args: args}, nil
	default:
		return nil, nodeError(node)
	}
}

// selfCall is the member under which a callable namespace keeps its function.
const selfCall = "()"

// callable unwraps a function value. takesOptions reports an OptionFunc.
func callable(v Value) (fn Func, takesOptions bool, ok bool) {
	if obj, isObj := v.(Object); isObj {
		v = obj[selfCall]
	}
	switch f := v.(type) {
	case Func:
		return f, false, true
	case OptionFunc:
		return Func(f), true, true
	}
	return nil, false, false
}

// evalOptionArgs evaluates the arguments of an OptionFunc call. Trailing name=value
// pairs pass their name as an OptionName; a pair in first position counts only when
// its name is not bound.
func evalOptionArgs(n ast.Call, env *Env) ([]Value, error) {
	positional, named := n.SplitArgsFunc(func(name string) bool {
		_, bound := env.Lookup(name)
		return !bound
	})
	args, err := evalList(positional, env)
	if err != nil {
		return nil, err
	}
	for _, opt := range named {
		// the name node still counts against the budget
		if err := env.tick(); err != nil {
			return nil, err
		}
		v, err := Evaluate(opt.Value, env)
		if err != nil {
			return nil, err
		}
		args = append(args, OptionName{Name: opt.Name}, v)
	}
	return args, nil
}

func evalList(items []ast.Expr, env *Env) ([]Value, error) {
	out := make([]Value, 0, len(items))
	for _, item := range items {
		v, err := Evaluate(item, env)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// index returns the element at an integral position, or nil.
func index(target, idx Value) Value {
	f, ok := ToNumber(idx)
	if !ok || f != math.Trunc(f) || f < 0 {
		return nil
	}
	i := int(f)
	switch t := target.(type) {
	case Series:
		if i < len(t) {
			return t[i]
		}
	case Array:
		if i < len(t) {
			return t[i]
		}
	}
	return nil
}

func unary(op string, v Value) (Value, error) {
	var f func(float64) float64
	switch op {
	case "+":
		f = func(x float64) float64 { return x }
	case "-":
		f = func(x float64) float64 { return -x }
	default:
		return nil, operatorError("unary", op)
	}
	if s, ok := v.(Series); ok {
		out := make(Series, len(s))
		for i, x := range s {
			out[i] = f(x)
		}
		return out, nil
	}
	if x, ok := ToNumber(v); ok {
		return f(x), nil
	}
	return math.NaN(), nil
}

func arith(op string, a, b float64) float64 {
	switch op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	case "/":
		return a / b
	default:
		return math.Pow(a, b)
	}
}

func binary(op string, left, right Value) (Value, error) {
	switch op {
	case "+", "-", "*", "/", "^":
	default:
		return nil, operatorError("binary", op)
	}

	ln, lnum := ToNumber(left)
	rn, rnum := ToNumber(right)
	if lnum && rnum {
		return arith(op, ln, rn), nil
	}

	ls, lser := left.(Series)
	rs, rser := right.(Series)
	switch {
	case lser && rser:
		n := min(len(ls), len(rs))
		out := make(Series, n)
		// align on the most recent bar
		lo, ro := len(ls)-n, len(rs)-n
		for i := range out {
			out[i] = arith(op, ls[lo+i], rs[ro+i])
		}
		return out, nil
	case lser && rnum:
		out := make(Series, len(ls))
		for i, x := range ls {
			out[i] = arith(op, x, rn)
		}
		return out, nil
	case lnum && rser:
		out := make(Series, len(rs))
		for i, x := range rs {
			out[i] = arith(op, ln, x)
		}
		return out, nil
	}

	if op == "+" && (isText(left) || isText(right)) {
		return ToString(left) + ToString(right), nil
	}
	return math.NaN(), nil
}

func isText(v Value) bool {
	switch v.(type) {
	case string, Unresolved:
		return true
	}
	return false
}
