// Package profile loads named run profiles from YAML.
package profile

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"star-core/internal/runtime"
)

// ErrUnknownProfile is returned when a requested profile is not defined.
var ErrUnknownProfile = errors.New("unknown profile")

// Series configures the synthetic price series of a run.
type Series struct {
	Length int     `yaml:"length"`
	Base   float64 `yaml:"base"`
	Step   float64 `yaml:"step"`
}

// Profile is one named run configuration entry in YAML.
type Profile struct {
	Name           string  `yaml:"name"`
	OpLimit        int     `yaml:"op_limit"`
	CommissionRate float64 `yaml:"commission_rate"`
	Series         Series  `yaml:"series"`
}

// File represents the top-level YAML structure.
type File struct {
	Profiles []Profile `yaml:"profiles"`
}

// Set is a validated collection of profiles indexed by name.
type Set struct {
	byName map[string]Profile
	order  []string
}

// Load reads profiles from a YAML file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a YAML profile document.
func Parse(data []byte) (*Set, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	set := &Set{byName: make(map[string]Profile, len(file.Profiles))}
	for i, p := range file.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile %d: name is required", i)
		}
		if _, dup := set.byName[p.Name]; dup {
			return nil, fmt.Errorf("profile %s: duplicate name", p.Name)
		}
		if p.OpLimit < 0 || p.CommissionRate < 0 || p.Series.Length < 0 {
			return nil, fmt.Errorf("profile %s: negative values are not allowed", p.Name)
		}
		set.byName[p.Name] = p
		set.order = append(set.order, p.Name)
	}
	return set, nil
}

// Names lists profile names in file order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Config merges the named profile over fallback. Zero profile fields keep the fallback value.
func (s *Set) Config(name string, fallback runtime.Config) (runtime.Config, error) {
	if s == nil {
		return fallback, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	p, ok := s.byName[name]
	if !ok {
		return fallback, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	cfg := fallback
	if p.OpLimit > 0 {
		cfg.OpLimit = p.OpLimit
	}
	if p.CommissionRate > 0 {
		cfg.CommissionRate = p.CommissionRate
	}
	if p.Series.Length > 0 {
		cfg.SeriesLength = p.Series.Length
	}
	if p.Series.Base != 0 {
		cfg.SeriesBase = p.Series.Base
	}
	if p.Series.Step != 0 {
		cfg.SeriesStep = p.Series.Step
	}
	return cfg, nil
}
