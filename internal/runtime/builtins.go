package runtime

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"star-core/internal/indicators"
	"star-core/internal/strategy"
)

func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func numArg(args []Value, i int, def float64) float64 {
	if n, ok := ToNumber(arg(args, i)); ok && !math.IsNaN(n) {
		return n
	}
	return def
}

// splitOptions separates the arguments from index from into positional values and
// named options. An OptionName, or an unresolved simple name, followed by a value is
// a name/value pair; an Object argument contributes all of its members.
func splitOptions(args []Value, from int) ([]Value, map[string]Value) {
	var positional []Value
	named := map[string]Value{}
	for i := from; i < len(args); i++ {
		switch v := args[i].(type) {
		case Object:
			for k, item := range v {
				named[k] = item
			}
			continue
		case OptionName:
			if i+1 < len(args) {
				named[v.Name] = args[i+1]
				i++
				continue
			}
		case Unresolved:
			if i+1 < len(args) && !strings.Contains(v.Name, ".") {
				named[v.Name] = args[i+1]
				i++
				continue
			}
		}
		positional = append(positional, args[i])
	}
	return positional, named
}

// option returns the named option, or the positional value at i.
func option(named map[string]Value, key string, positional []Value, i int) Value {
	if v, ok := named[key]; ok {
		return v
	}
	return arg(positional, i)
}

func asSeries(v Value) (Series, bool) {
	switch s := v.(type) {
	case Series:
		return s, true
	case Array:
		out := make(Series, 0, len(s))
		for _, item := range s {
			n, ok := ToNumber(item)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	}
	return nil, false
}

// numbers flattens numeric arguments, series and arrays into one list.
func numbers(args []Value) []float64 {
	var out []float64
	for _, a := range args {
		switch v := a.(type) {
		case Series:
			out = append(out, v...)
		case Array:
			out = append(out, numbers(v)...)
		default:
			if n, ok := ToNumber(v); ok {
				out = append(out, n)
			}
		}
	}
	return out
}

// windowFunc adapts a series indicator. Non-series sources go through scalar.
func windowFunc(fn func([]float64, int) float64, scalar func(Value) Value) Func {
	return func(args []Value) (Value, error) {
		src, ok := asSeries(arg(args, 0))
		if !ok {
			return scalar(arg(args, 0)), nil
		}
		n := int(math.Floor(numArg(args, 1, 14)))
		return fn(src, n), nil
	}
}

func identity(v Value) Value { return v }

func reduceFunc(fn func([]float64) float64) Func {
	return func(args []Value) (Value, error) {
		nums := numbers(args)
		if len(nums) == 0 {
			return math.NaN(), nil
		}
		return fn(nums), nil
	}
}

func mean(nums []float64) float64 {
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums))
}

func maxOf(nums []float64) float64 {
	out := math.Inf(-1)
	for _, n := range nums {
		out = math.Max(out, n)
	}
	return out
}

func minOf(nums []float64) float64 {
	out := math.Inf(1)
	for _, n := range nums {
		out = math.Min(out, n)
	}
	return out
}

// mapFunc applies f to a number or to every element of a series.
func mapFunc(f func(float64) float64) Func {
	return func(args []Value) (Value, error) {
		switch v := arg(args, 0).(type) {
		case Series:
			out := make(Series, len(v))
			for i, x := range v {
				out[i] = f(x)
			}
			return out, nil
		default:
			if n, ok := ToNumber(v); ok {
				return f(n), nil
			}
		}
		return math.NaN(), nil
	}
}

func taNamespace() Object {
	sma := windowFunc(indicators.SMA, identity)
	return Object{
		"sma":     sma,
		"ma":      sma,
		"ema":     windowFunc(indicators.EMA, identity),
		"wma":     windowFunc(indicators.WMA, identity),
		"hma":     windowFunc(indicators.HMA, identity),
		"stdev":   windowFunc(indicators.Stdev, func(Value) Value { return 0.0 }),
		"sum":     windowFunc(indicators.Sum, identity),
		"highest": windowFunc(indicators.Highest, identity),
		"lowest":  windowFunc(indicators.Lowest, identity),
		"rsi":     windowFunc(indicators.RSI, func(Value) Value { return indicators.NeutralRSI }),
		"avg":     reduceFunc(mean),
		"max":     reduceFunc(maxOf),
		"min":     reduceFunc(minOf),
	}
}

func mathNamespace() Object {
	return Object{
		"avg":   reduceFunc(mean),
		"max":   reduceFunc(maxOf),
		"min":   reduceFunc(minOf),
		"abs":   mapFunc(math.Abs),
		"sqrt":  mapFunc(math.Sqrt),
		"round": mapFunc(math.Round),
		"floor": mapFunc(math.Floor),
		"ceil":  mapFunc(math.Ceil),
		"log":   mapFunc(math.Log),
		"pow": Func(func(args []Value) (Value, error) {
			return binary("^", arg(args, 0), arg(args, 1))
		}),
	}
}

func colorNamespace() Object {
	return Object{
		"rgb": Func(func(args []Value) (Value, error) {
			r, g, b := numArg(args, 0, 0), numArg(args, 1, 0), numArg(args, 2, 0)
			if len(args) > 3 {
				alpha := (100 - numArg(args, 3, 0)) / 100
				return fmt.Sprintf("rgba(%s,%s,%s,%s)", formatNumber(r), formatNumber(g), formatNumber(b), formatNumber(alpha)), nil
			}
			return fmt.Sprintf("rgb(%s,%s,%s)", formatNumber(r), formatNumber(g), formatNumber(b)), nil
		}),
		"red":    "#FF5252",
		"green":  "#4CAF50",
		"blue":   "#2962FF",
		"orange": "#FF9800",
		"yellow": "#FFEB3B",
		"purple": "#9C27B0",
		"teal":   "#089981",
		"aqua":   "#00BCD4",
		"gray":   "#787B86",
		"white":  "#FFFFFF",
		"black":  "#363A45",
	}
}

func (e *Env) inputFunc(conv func(Value) Value) OptionFunc {
	return func(args []Value) (Value, error) {
		from := 1
		if _, ok := arg(args, 0).(OptionName); ok {
			from = 0
		}
		positional, named := splitOptions(args, from)
		var def Value
		if v, ok := named["defval"]; ok {
			def = conv(v)
		} else if from == 1 {
			def = conv(arg(args, 0))
		}
		title := ""
		if t, ok := named["title"]; ok {
			title = ToString(t)
		} else if s, ok := arg(positional, 0).(string); ok {
			title = s
		}
		if title != "" {
			e.inputs[title] = def
		}
		return def, nil
	}
}

func (e *Env) inputNamespace() Object {
	toInt := func(v Value) Value {
		if n, ok := ToNumber(v); ok {
			return math.Trunc(n)
		}
		return v
	}
	toFloat := func(v Value) Value {
		if n, ok := ToNumber(v); ok {
			return n
		}
		return v
	}
	toBool := func(v Value) Value {
		if n, ok := ToNumber(v); ok {
			return n != 0
		}
		return v
	}
	toString := func(v Value) Value { return ToString(v) }
	return Object{
		"int":    e.inputFunc(toInt),
		"float":  e.inputFunc(toFloat),
		"bool":   e.inputFunc(toBool),
		"string": e.inputFunc(toString),
		"source": e.inputFunc(identity),
	}
}

// securityOffset derives a stable per-symbol price offset in [0, 10).
func securityOffset(symbol, timeframe string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol + "|" + timeframe))
	return float64(h.Sum32()%1000) / 100
}

func (e *Env) requestNamespace() Object {
	return Object{
		"security": Func(func(args []Value) (Value, error) {
			src, ok := arg(args, 2).(Series)
			if !ok {
				v, _ := e.Lookup("close")
				if src, ok = v.(Series); !ok {
					return arg(args, 2), nil
				}
			}
			offset := securityOffset(ToString(arg(args, 0)), ToString(arg(args, 1)))
			out := make(Series, len(src))
			for i, x := range src {
				out[i] = x + offset
			}
			return out, nil
		}),
	}
}

func (e *Env) plotFunc() OptionFunc {
	return func(args []Value) (Value, error) {
		positional, named := splitOptions(args, 1)
		title := ""
		if t, ok := named["title"]; ok {
			title = ToString(t)
		} else if s, ok := arg(positional, 0).(string); ok {
			title = s
		}
		e.plots = append(e.plots, Plot{Callee: "plot", Args: args, Title: title})
		return nil, nil
	}
}

func (e *Env) strategyNamespace(eng *strategy.Engine) Object {
	commission := Object{"percent": eng.Commission()}
	// picks up a rate changed by the host between calls
	syncCommission := func() {
		if rate, ok := ToNumber(commission["percent"]); ok {
			eng.SetCommission(rate)
		}
	}
	return Object{
		"long":       strategy.ActionBuy,
		"short":      strategy.ActionSell,
		"commission": commission,
		"entry": OptionFunc(func(args []Value) (Value, error) {
			syncCommission()
			positional, named := splitOptions(args, 1)
			qty := 1.0
			for _, v := range positional {
				if n, ok := ToNumber(v); ok {
					qty = n
					break
				}
			}
			if n, ok := ToNumber(named["qty"]); ok {
				qty = n
			}
			eng.Entry(ToString(arg(args, 0)), qty)
			return nil, nil
		}),
		"exit": Func(func(args []Value) (Value, error) {
			syncCommission()
			eng.Exit(ToString(arg(args, 0)))
			return nil, nil
		}),
		"order": OptionFunc(func(args []Value) (Value, error) {
			syncCommission()
			positional, named := splitOptions(args, 1)
			action := strings.ToLower(ToString(option(named, "action", positional, 0)))
			qty, _ := ToNumber(option(named, "qty", positional, 1))
			opts := strategy.DefaultOptions()
			if n, ok := ToNumber(named["slippage"]); ok {
				opts.Slippage = n
			}
			if n, ok := ToNumber(named["fillPercent"]); ok {
				opts.FillPercent = n
			}
			eng.Order(ToString(arg(args, 0)), action, qty, opts)
			return nil, nil
		}),
		"position": Func(func([]Value) (Value, error) {
			pos := eng.Position()
			return Object{"size": pos.Size, "avg": pos.AvgPrice}, nil
		}),
		"pnl": Func(func([]Value) (Value, error) {
			return eng.PnL(), nil
		}),
	}
}
