// Package runtime evaluates Star Script programs against a host environment of
// synthetic series, indicator functions and a strategy engine.
package runtime

import (
	"star-core/internal/ast"
	"star-core/internal/parser"
	"star-core/internal/strategy"
)

// Config controls one run.
type Config struct {
	OpLimit        int
	CommissionRate float64
	SeriesLength   int
	SeriesBase     float64
	SeriesStep     float64
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		OpLimit:      DefaultOpLimit,
		SeriesLength: 200,
		SeriesBase:   100,
		SeriesStep:   0.5,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.OpLimit <= 0 {
		c.OpLimit = def.OpLimit
	}
	if c.SeriesLength <= 0 {
		c.SeriesLength = def.SeriesLength
	}
	if c.SeriesBase == 0 {
		c.SeriesBase = def.SeriesBase
	}
	if c.SeriesStep == 0 {
		c.SeriesStep = def.SeriesStep
	}
	if c.CommissionRate < 0 {
		c.CommissionRate = 0
	}
	return c
}

// NewEnv builds the default environment: synthetic OHLCV series and the ta, math,
// color, input, request and strategy namespaces, also reachable as star.*.
func NewEnv(cfg Config) *Env {
	cfg = cfg.WithDefaults()
	e := NewBareEnv(cfg.OpLimit)

	closes := make(Series, cfg.SeriesLength)
	opens := make(Series, cfg.SeriesLength)
	highs := make(Series, cfg.SeriesLength)
	lows := make(Series, cfg.SeriesLength)
	volumes := make(Series, cfg.SeriesLength)
	for i := range closes {
		closes[i] = cfg.SeriesBase + float64(i)*cfg.SeriesStep
		highs[i] = closes[i] + 1
		lows[i] = closes[i] - 1
		opens[i] = closes[i]
		if i > 0 {
			opens[i] = closes[i-1]
		}
		volumes[i] = 1000 + float64(i%10)*100
	}
	e.Define("open", opens)
	e.Define("high", highs)
	e.Define("low", lows)
	e.Define("close", closes)
	e.Define("volume", volumes)

	e.strategy = strategy.NewEngine(e.lastClose, cfg.CommissionRate)

	e.Define("plot", e.plotFunc())
	e.Define("ta", taNamespace())
	e.Define("math", mathNamespace())
	e.Define("color", colorNamespace())
	inputs := e.inputNamespace()
	// input(...) is callable as well as a namespace
	inputs[selfCall] = e.inputFunc(identity)
	e.Define("input", inputs)
	e.Define("request", e.requestNamespace())
	e.Define("strategy", e.strategyNamespace(e.strategy))
	e.BindStarAlias()
	return e
}

// Result is the outcome of running a program.
type Result struct {
	Env        *Env
	Plots      []Plot
	Indicators []string
}

// Run parses source and runs it with cfg.
func Run(source string, cfg Config) (*Result, error) {
	return RunProgram(parser.Parse(source), cfg)
}

// RunProgram evaluates assignments in order in a fresh environment. On failure the
// partial result holds whatever was bound before the failing statement.
func RunProgram(prog *ast.Program, cfg Config) (*Result, error) {
	env := NewEnv(cfg)
	res := &Result{Env: env, Indicators: append([]string{}, prog.Indicators...)}
	err := Exec(prog, env)
	res.Plots = env.Plots()
	return res, err
}

// Exec evaluates every assignment of prog against env, binding non-call results.
func Exec(prog *ast.Program, env *Env) error {
	for _, a := range prog.Assignments {
		v, err := Evaluate(a.Expr, env)
		if err != nil {
			return err
		}
		if !a.IsCall() {
			env.Set(a.ID, v)
		}
	}
	return nil
}

// Host exposes environment construction and evaluation to code that replays
// programs without the parser.
type Host struct {
	Config Config
}

func (h Host) NewEnv() *Env {
	return NewEnv(h.Config)
}

func (h Host) Evaluate(expr ast.Expr, env *Env) (Value, error) {
	return Evaluate(expr, env)
}
