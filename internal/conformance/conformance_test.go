package conformance

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"star-core/internal/ast"
	"star-core/internal/parser"
	"star-core/internal/runtime"
	"star-core/internal/transform"
)

func fixedNow() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

func TestBuiltinSamplesAgree(t *testing.T) {
	h := Default()
	h.Now = fixedNow
	rep := h.Run(BuiltinSamples())
	if !rep.OK() {
		pretty, _ := json.MarshalIndent(rep.Mismatches, "", "  ")
		t.Fatalf("parsers disagree:\n%s", pretty)
	}
	if rep.Samples != len(BuiltinSamples()) || !rep.GeneratedAt.Equal(fixedNow()) {
		t.Fatalf("unexpected report header: %+v", rep)
	}
}

func TestMismatchIsReported(t *testing.T) {
	h := Harness{
		Hand: parser.Parse,
		Gen: func(source string) *ast.Program {
			p := parser.Parse(source)
			p.Assignments = p.Assignments[:0]
			return p
		},
		Now: fixedNow,
	}
	rep := h.Run([]Sample{{Name: "one", Source: "x = 1"}, {Name: "empty", Source: ""}})
	if len(rep.Mismatches) != 1 || rep.Mismatches[0].Name != "one" {
		t.Fatalf("mismatches=%+v", rep.Mismatches)
	}
	if rep.Mismatches[0].Hand == nil || rep.Mismatches[0].Gen == nil {
		t.Fatalf("mismatch must carry both canonical trees")
	}
}

func TestPanicIsCaptured(t *testing.T) {
	h := Harness{
		Hand: parser.Parse,
		Gen:  func(string) *ast.Program { panic("boom") },
	}
	rep := h.Run([]Sample{{Name: "p", Source: "x = 1"}})
	if len(rep.Mismatches) != 1 || rep.Mismatches[0].Error != "panic: boom" {
		t.Fatalf("mismatches=%+v", rep.Mismatches)
	}
}

func TestCanonicalize(t *testing.T) {
	got, err := Canonicalize(parser.Parse("plot(close)"))
	if err != nil {
		t.Fatalf("Canonicalize returned error: %v", err)
	}
	root := got.(map[string]any)
	assignments := root["assignments"].([]any)
	expr := assignments[0].(map[string]any)["expr"].(map[string]any)
	if expr["type"] != "Call" || expr["callee"] != "plot" {
		t.Fatalf("unexpected canonical form: %#v", expr)
	}
}

func TestWriteReportAndLoadSamples(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b.pine"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.pine"), []byte("plot(close)\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	samples, err := LoadSamples(dir)
	if err != nil {
		t.Fatalf("LoadSamples returned error: %v", err)
	}
	if len(samples) != 2 || samples[0].Name != "a" || samples[1].Name != "b" {
		t.Fatalf("samples=%+v", samples)
	}

	h := Default()
	h.Now = fixedNow
	out := filepath.Join(dir, "out", "parser-diff.json")
	if err := WriteReport(out, h.Run(samples)); err != nil {
		t.Fatalf("WriteReport returned error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var decoded struct {
		GeneratedAt string `json:"generatedAt"`
		Mismatches  []any  `json:"mismatches"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if decoded.GeneratedAt != "2024-01-02T03:04:05Z" || decoded.Mismatches == nil || len(decoded.Mismatches) != 0 {
		t.Fatalf("unexpected report %s", data)
	}
}

func TestExampleScripts(t *testing.T) {
	samples, err := LoadSamples(filepath.Join("..", "..", "examples"))
	if err != nil {
		t.Fatalf("LoadSamples: %v", err)
	}
	if len(samples) < 3 {
		t.Fatalf("expected example scripts, got %d", len(samples))
	}

	h := Default()
	h.Now = fixedNow
	if rep := h.Run(samples); !rep.OK() {
		pretty, _ := json.MarshalIndent(rep.Mismatches, "", "  ")
		t.Fatalf("parsers disagree on examples:\n%s", pretty)
	}

	for _, s := range samples {
		t.Run(s.Name, func(t *testing.T) {
			res, err := runtime.RunProgram(transform.Program(parser.Parse(s.Source)), runtime.DefaultConfig())
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if len(res.Plots) == 0 {
				t.Fatalf("expected plots")
			}
		})
	}
}
