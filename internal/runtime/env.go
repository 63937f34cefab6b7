package runtime

import (
	"strings"

	"star-core/internal/strategy"
)

// DefaultOpLimit bounds node visits per environment when nothing else is configured.
const DefaultOpLimit = 1_000_000

// starNamespaces are re-exported under star.* by BindStarAlias.
var starNamespaces = []string{"plot", "ta", "math", "color", "input", "request", "strategy"}

// Env is the state of one script execution: bindings, namespaces and the
// side effects collected so far. An Env must not be shared between runs.
type Env struct {
	root    Object
	bound   []string
	opLimit int
	ops     int

	plots    []Plot
	inputs   map[string]Value
	strategy *strategy.Engine
}

// NewBareEnv returns an environment with no namespaces.
func NewBareEnv(opLimit int) *Env {
	if opLimit <= 0 {
		opLimit = DefaultOpLimit
	}
	return &Env{
		root:    Object{},
		opLimit: opLimit,
		inputs:  map[string]Value{},
	}
}

// Lookup resolves a dotted path segment by segment.
func (e *Env) Lookup(path string) (Value, bool) {
	var cur Value = e.root
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(Object)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Define installs a top-level value without recording it as a script binding.
func (e *Env) Define(name string, v Value) {
	e.root[name] = v
}

// Set binds a script assignment.
func (e *Env) Set(name string, v Value) {
	if !e.isBound(name) {
		e.bound = append(e.bound, name)
	}
	e.root[name] = v
}

func (e *Env) isBound(name string) bool {
	for _, b := range e.bound {
		if b == name {
			return true
		}
	}
	return false
}

// Bindings returns the script's assignments in first-bound order.
func (e *Env) Bindings() ([]string, map[string]Value) {
	out := make(map[string]Value, len(e.bound))
	for _, name := range e.bound {
		out[name] = e.root[name]
	}
	return append([]string(nil), e.bound...), out
}

// StarNamespaces lists the namespaces BindStarAlias exposes by default.
func StarNamespaces() []string {
	return append([]string(nil), starNamespaces...)
}

// BindStarAlias exposes host namespaces under star.* so normalized callees resolve.
// With no names the default namespaces are used.
func (e *Env) BindStarAlias(names ...string) {
	if len(names) == 0 {
		names = starNamespaces
	}
	star, ok := e.root["star"].(Object)
	if !ok {
		star = Object{}
	}
	for _, ns := range names {
		if v, ok := e.root[ns]; ok {
			star[ns] = v
		}
	}
	e.root["star"] = star
}

// Ops is the number of nodes visited so far.
func (e *Env) Ops() int { return e.ops }

// OpLimit is the node budget of this environment.
func (e *Env) OpLimit() int { return e.opLimit }

// Plots returns the plot calls recorded so far.
func (e *Env) Plots() []Plot { return append([]Plot(nil), e.plots...) }

// Inputs returns declared inputs keyed by title.
func (e *Env) Inputs() map[string]Value {
	out := make(map[string]Value, len(e.inputs))
	for k, v := range e.inputs {
		out[k] = v
	}
	return out
}

// Strategy returns the order engine, or nil for a bare environment.
func (e *Env) Strategy() *strategy.Engine { return e.strategy }

// tick counts one node visit against the budget.
func (e *Env) tick() error {
	e.ops++
	if e.ops > e.opLimit {
		return opLimitError(e.opLimit)
	}
	return nil
}

// lastClose is the latest value of the close binding.
func (e *Env) lastClose() float64 {
	v, _ := e.Lookup("close")
	switch c := v.(type) {
	case Series:
		if len(c) > 0 {
			return c[len(c)-1]
		}
	case float64:
		return c
	}
	return 0
}
