package runtime

import (
	"math"
	"strconv"
	"strings"
)

// Value is anything a script expression can produce: float64, string, bool, Series,
// Array, Object, Func, OptionFunc, Unresolved, *Placeholder or nil (na).
type Value any

// Series is a price-like sequence, oldest first.
type Series []float64

// Array is a literal list of values.
type Array []Value

// Object is a namespace or record keyed by member name.
type Object map[string]Value

// Func is a host function callable from scripts.
type Func func(args []Value) (Value, error)

// OptionFunc is a host function that takes trailing name=value options. Each option
// reaches it as an OptionName followed by the evaluated value; the name itself is
// never looked up in the environment.
type OptionFunc func(args []Value) (Value, error)

// OptionName marks the name half of a name=value option argument.
type OptionName struct {
	Name string
}

// Unresolved is the value of an identifier that names nothing in the environment.
type Unresolved struct {
	Name string
}

// Placeholder is the result of calling something that is not a function.
type Placeholder struct {
	Callee string
	Args   []Value
}

// Plot is one recorded plot call.
type Plot struct {
	Callee string
	Args   []Value
	Title  string
}

// ToNumber coerces numeric values; bools count as 0/1.
func ToNumber(v Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// ToString renders a value for concatenation and labels.
func ToString(v Value) string {
	switch s := v.(type) {
	case nil:
		return "na"
	case string:
		return s
	case Unresolved:
		return s.Name
	case OptionName:
		return s.Name
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return formatNumber(s)
	case Series:
		parts := make([]string, len(s))
		for i, f := range s {
			parts[i] = formatNumber(f)
		}
		return strings.Join(parts, ",")
	case Array:
		parts := make([]string, len(s))
		for i, item := range s {
			parts[i] = ToString(item)
		}
		return strings.Join(parts, ",")
	case *Placeholder:
		return s.Callee + "(...)"
	case Func, OptionFunc:
		return "[function]"
	case Object:
		return "[object]"
	}
	return ""
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Export converts a value into plain data that encoding/json can always marshal.
// Non-finite numbers become nil.
func Export(v Value) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case Series:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = Export(f)
		}
		return out
	case Array:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Export(item)
		}
		return out
	case Object:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = Export(item)
		}
		return out
	case Unresolved:
		return x.Name
	case OptionName:
		return x.Name
	case *Placeholder:
		return map[string]any{"callee": x.Callee, "args": Export(Array(x.Args))}
	case Func, OptionFunc:
		return "[function]"
	}
	return v
}

// ExportPlot converts a plot record into plain data.
func ExportPlot(p Plot) map[string]any {
	return map[string]any{
		"callee": p.Callee,
		"title":  p.Title,
		"args":   Export(Array(p.Args)),
	}
}
