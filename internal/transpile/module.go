package transpile

import (
	"encoding/json"
	"errors"
	"fmt"

	"star-core/internal/ast"
	"star-core/internal/parser"
	"star-core/internal/runtime"
	"star-core/internal/transform"
)

const (
	ModuleFormat  = "star-module"
	ModuleVersion = 1
)

// ErrInvalidModule is returned for bundles with a wrong format or version.
var ErrInvalidModule = errors.New("invalid star module")

// Runtime is what a module needs to replay: a fresh environment and an evaluator.
type Runtime interface {
	NewEnv() *runtime.Env
	Evaluate(expr ast.Expr, env *runtime.Env) (runtime.Value, error)
}

// Module is a normalized program plus the namespaces it expects under star.*.
type Module struct {
	Format  string       `json:"format"`
	Version int          `json:"version"`
	Aliases []string     `json:"aliases"`
	Program *ast.Program `json:"program"`
}

// ToModule parses and normalizes source and encodes it as a module bundle.
func ToModule(source string) ([]byte, error) {
	m := Module{
		Format:  ModuleFormat,
		Version: ModuleVersion,
		Aliases: runtime.StarNamespaces(),
		Program: transform.Program(parser.Parse(source)),
	}
	return json.MarshalIndent(m, "", "  ")
}

// LoadModule decodes a bundle produced by ToModule.
func LoadModule(data []byte) (*Module, error) {
	var m Module
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode module: %w", err)
	}
	if m.Format != ModuleFormat || m.Version != ModuleVersion {
		return nil, fmt.Errorf("%w: format %q version %d", ErrInvalidModule, m.Format, m.Version)
	}
	if m.Program == nil {
		return nil, fmt.Errorf("%w: missing program", ErrInvalidModule)
	}
	return &m, nil
}

// Run replays the program against a fresh environment from rt. On failure the
// partial result is returned with the error.
func (m *Module) Run(rt Runtime) (*runtime.Result, error) {
	env := rt.NewEnv()
	env.BindStarAlias(m.Aliases...)
	res := &runtime.Result{Env: env, Indicators: append([]string{}, m.Program.Indicators...)}
	for _, a := range m.Program.Assignments {
		v, err := rt.Evaluate(a.Expr, env)
		if err != nil {
			res.Plots = env.Plots()
			return res, err
		}
		if !a.IsCall() {
			env.Set(a.ID, v)
		}
	}
	res.Plots = env.Plots()
	return res, nil
}
