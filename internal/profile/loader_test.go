package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"star-core/internal/runtime"
)

const sample = `
profiles:
  - name: strict
    op_limit: 5000
    commission_rate: 0.001
    series: { length: 300, base: 50, step: 0.25 }
  - name: cheap
    op_limit: 100
`

func TestLoadAndMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	set, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if names := set.Names(); len(names) != 2 || names[0] != "strict" || names[1] != "cheap" {
		t.Fatalf("Names=%v", names)
	}

	base := runtime.DefaultConfig()
	cfg, err := set.Config("strict", base)
	if err != nil {
		t.Fatalf("Config returned error: %v", err)
	}
	if cfg.OpLimit != 5000 || cfg.CommissionRate != 0.001 || cfg.SeriesLength != 300 || cfg.SeriesBase != 50 || cfg.SeriesStep != 0.25 {
		t.Fatalf("unexpected merged config: %+v", cfg)
	}

	cfg, err = set.Config("cheap", base)
	if err != nil {
		t.Fatalf("Config returned error: %v", err)
	}
	if cfg.OpLimit != 100 || cfg.SeriesLength != base.SeriesLength || cfg.SeriesStep != base.SeriesStep {
		t.Fatalf("fallback not kept: %+v", cfg)
	}
}

func TestUnknownProfile(t *testing.T) {
	set, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if _, err := set.Config("missing", runtime.DefaultConfig()); !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty name": "profiles:\n  - op_limit: 1\n",
		"duplicate":  "profiles:\n  - name: a\n  - name: a\n",
		"negative":   "profiles:\n  - name: a\n    op_limit: -1\n",
		"bad yaml":   "profiles: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
