package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"star-core/internal/runtime"
	"star-core/internal/transpile"
)

func writeScript(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.pine")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestMissingInExitsTwo(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(nil, &out, &errOut); code != 2 {
		t.Fatalf("exit=%d, expected 2", code)
	}
	if !strings.Contains(errOut.String(), "--in") {
		t.Fatalf("usage not printed: %q", errOut.String())
	}
}

func TestPrintsToStdout(t *testing.T) {
	in := writeScript(t, "m = sma(close, 3)\nplot(m)\n")
	var out, errOut bytes.Buffer
	if code := run([]string{"--in", in}, &out, &errOut); code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, errOut.String())
	}
	if got := strings.TrimSpace(out.String()); got != "m = star.ta.sma(close, 3)\nstar.plot(m)" {
		t.Fatalf("stdout=%q", got)
	}
}

func TestWritesOutputs(t *testing.T) {
	in := writeScript(t, "a = 1 + 2\nplot(a)\n")
	dir := t.TempDir()
	starPath := filepath.Join(dir, "out.star")
	modPath := filepath.Join(dir, "out.json")

	var out, errOut bytes.Buffer
	code := run([]string{"--in", in, "--out-star", starPath, "--out-module", modPath}, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, errOut.String())
	}

	star, err := os.ReadFile(starPath)
	if err != nil || strings.TrimSpace(string(star)) != "a = 1 + 2\nstar.plot(a)" {
		t.Fatalf("star=%q err=%v", star, err)
	}

	data, err := os.ReadFile(modPath)
	if err != nil {
		t.Fatalf("read module: %v", err)
	}
	mod, err := transpile.LoadModule(data)
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	res, err := mod.Run(runtime.Host{Config: runtime.DefaultConfig()})
	if err != nil {
		t.Fatalf("module run: %v", err)
	}
	if len(res.Plots) != 1 {
		t.Fatalf("plots=%d, expected 1", len(res.Plots))
	}
}

func TestMissingFile(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"--in", filepath.Join(t.TempDir(), "nope.pine")}, &out, &errOut); code != 1 {
		t.Fatalf("exit=%d, expected 1", code)
	}
}
