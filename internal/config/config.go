// Package config loads the cmd/avida terminal harness's run configuration
// from a YAML file. The simulation core itself takes no configuration
// files; WorldConfig is a convenience layer that only ever sets the
// mutable fields world.World already exposes.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dnesting/avida/world"
)

// WorldConfig mirrors world.World's mutable configuration fields plus the
// handful of harness-only knobs (seed, ticks, task-capable ancestor) that
// have no place on World itself.
type WorldConfig struct {
	Seed            int64 `yaml:"seed"`
	Ticks           int   `yaml:"ticks"`
	UseTaskAncestor bool  `yaml:"use_task_ancestor"`

	CopyMutationRate float64 `yaml:"copy_mutation_rate"`
	InsertionRate    float64 `yaml:"insertion_rate"`
	DeletionRate     float64 `yaml:"deletion_rate"`
	DeathMethod      int     `yaml:"death_method"`
	AgeLimit         uint64  `yaml:"age_limit"`
	PreferEmpty      bool    `yaml:"prefer_empty"`
}

// Default returns the harness defaults: world.NewSeeded's default
// configuration, Seed 0 (which cmd/avida replaces with a clock-derived
// seed) and Ticks 0 (an unbounded run).
func Default() WorldConfig {
	return WorldConfig{
		Seed:             0,
		Ticks:            0,
		CopyMutationRate: 0.0075,
		InsertionRate:    0,
		DeletionRate:     0,
		DeathMethod:      2,
		AgeLimit:         20,
		PreferEmpty:      true,
	}
}

// Load reads and parses a YAML configuration file. A missing or malformed
// file is reported to the caller, not absorbed silently, because it's a
// one-time startup decision, not a recoverable-intra-simulation fault.
func Load(path string) (WorldConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %q", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %q", path)
	}
	return cfg, nil
}

// Apply copies the World-facing fields of cfg onto w. It never touches the
// grid, the RNG seed (already consumed at World construction) or
// population; those are the harness's responsibility at startup.
func (c WorldConfig) Apply(w *world.World) {
	w.CopyMutationRate = c.CopyMutationRate
	w.InsertionRate = c.InsertionRate
	w.DeletionRate = c.DeletionRate
	w.DeathMethod = c.DeathMethod
	w.AgeLimit = c.AgeLimit
	w.PreferEmpty = c.PreferEmpty
}
