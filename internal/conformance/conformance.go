// Package conformance compares the hand-written parser with the grammar-generated
// one over a set of sample scripts.
package conformance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"star-core/internal/ast"
	"star-core/internal/parser"
	"star-core/internal/parser/grammar"
	"star-core/internal/transform"
)

// ParseFunc turns source text into a program.
type ParseFunc func(source string) *ast.Program

// Sample is one named script.
type Sample struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// Mismatch records a sample whose canonical trees differ.
type Mismatch struct {
	Name   string `json:"name"`
	Sample string `json:"sample"`
	Hand   any    `json:"hand"`
	Gen    any    `json:"gen"`
	Error  string `json:"error,omitempty"`
}

// Report is the artifact written by the harness.
type Report struct {
	GeneratedAt time.Time  `json:"generatedAt"`
	Samples     int        `json:"samples"`
	Mismatches  []Mismatch `json:"mismatches"`
}

// OK reports whether every sample matched.
func (r *Report) OK() bool { return len(r.Mismatches) == 0 }

// Harness runs both parsers and compares their canonical output.
type Harness struct {
	Hand      ParseFunc
	Gen       ParseFunc
	Normalize func(*ast.Program) *ast.Program
	Now       func() time.Time
}

// Default compares parser.Parse with grammar.Parse after namespace normalization.
func Default() Harness {
	return Harness{
		Hand:      parser.Parse,
		Gen:       grammar.Parse,
		Normalize: transform.Program,
		Now:       time.Now,
	}
}

// Canonicalize converts a program into generic JSON data, dropping anything that is
// not part of the node schema.
func Canonicalize(p *ast.Program) (any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Run compares every sample and returns the report.
func (h Harness) Run(samples []Sample) *Report {
	now := h.Now
	if now == nil {
		now = time.Now
	}
	rep := &Report{GeneratedAt: now().UTC(), Samples: len(samples), Mismatches: []Mismatch{}}
	for _, s := range samples {
		if m, ok := h.compare(s); !ok {
			rep.Mismatches = append(rep.Mismatches, m)
		}
	}
	return rep
}

func (h Harness) compare(s Sample) (m Mismatch, ok bool) {
	m = Mismatch{Name: s.Name, Sample: s.Source}
	defer func() {
		if r := recover(); r != nil {
			m.Error = fmt.Sprintf("panic: %v", r)
			ok = false
		}
	}()

	hand, err := Canonicalize(h.normalize(h.Hand(s.Source)))
	if err != nil {
		m.Error = "hand: " + err.Error()
		return m, false
	}
	gen, err := Canonicalize(h.normalize(h.Gen(s.Source)))
	if err != nil {
		m.Error = "gen: " + err.Error()
		return m, false
	}
	m.Hand, m.Gen = hand, gen
	return m, reflect.DeepEqual(hand, gen)
}

func (h Harness) normalize(p *ast.Program) *ast.Program {
	if h.Normalize == nil || p == nil {
		return p
	}
	return h.Normalize(p)
}

// WriteReport writes r as indented JSON, creating the parent directory.
func WriteReport(path string, r *Report) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// LoadSamples reads every *.pine file in dir, sorted by name.
func LoadSamples(dir string) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".pine") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	samples := make([]Sample, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		samples = append(samples, Sample{Name: strings.TrimSuffix(name, ".pine"), Source: string(data)})
	}
	return samples, nil
}

// BuiltinSamples are the fixtures used when no sample directory is given.
func BuiltinSamples() []Sample {
	return []Sample{
		{Name: "ma_simple", Source: "indicator(\"MA\", overlay=true)\nlen = input.int(14, title=\"Length\")\nsma_v = ta.sma(close, len)\nplot(sma_v, title=\"SMA\")\n"},
		{Name: "rsi_example", Source: "indicator(\"RSI\")\nrsi_v = ta.rsi(close, 14)\nplot(rsi_v, color=color.rgb(10, 20, 30))\n"},
		{Name: "precedence", Source: "a = 1 + 2 * 3\nb = (1 + 2) * 3\nc = 2 ^ 3 ^ 2\nd = -x + +y\n"},
		{Name: "index_chain", Source: "h = ta.hma(close, 12)[2]\nprev = close[1] - close[2]\n"},
		{Name: "named_group", Source: "strategy.order(\"p1\", \"buy\", 10, { fillPercent: 0.5, slippage: 0.01 })\n"},
		{Name: "security", Source: "a = request.security(\"SPY\", \"D\", close)\nb = request.security('QQQ', 'D', close)\n"},
		{Name: "arrays_strings", Source: "xs = [1, 2, [3, 'a\\'b']]\ns = \"line\\n\"\n"},
		{Name: "comments", Source: "// header\n/* block\nx = 1 // trailing\n\n1 + 1\n"},
	}
}
