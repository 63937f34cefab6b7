package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinReport(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports", "parser-diff.json")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--out", out}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit=%d stdout=%s stderr=%s", code, stdout.String(), stderr.String())
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report struct {
		GeneratedAt string `json:"generatedAt"`
		Samples     int    `json:"samples"`
		Mismatches  []any  `json:"mismatches"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.GeneratedAt == "" || report.Samples == 0 || len(report.Mismatches) != 0 {
		t.Fatalf("report=%+v", report)
	}
}

func TestSampleDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "one.pine"), []byte("x = ta.sma(close, 3)\nplot(x)\n"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}
	out := filepath.Join(dir, "report.json")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--dir", dir, "--out", out}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, stderr.String())
	}
	if !bytes.Contains(stdout.Bytes(), []byte("1 samples, 0 mismatches")) {
		t.Fatalf("stdout=%q", stdout.String())
	}
}

func TestMissingDirectory(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--dir", filepath.Join(t.TempDir(), "missing"), "--out", filepath.Join(t.TempDir(), "r.json")}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("exit=%d, expected 2", code)
	}
}
