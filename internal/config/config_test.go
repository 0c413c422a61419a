package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnesting/avida/world"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "avida.yaml")
	const body = `
seed: 42
ticks: 1000
copy_mutation_rate: 0.02
death_method: 1
age_limit: 50
prefer_empty: false
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 1000, cfg.Ticks)
	assert.Equal(t, 0.02, cfg.CopyMutationRate)
	assert.Equal(t, 1, cfg.DeathMethod)
	assert.EqualValues(t, 50, cfg.AgeLimit)
	assert.False(t, cfg.PreferEmpty)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplySetsWorldFields(t *testing.T) {
	cfg := Default()
	cfg.CopyMutationRate = 0.5
	cfg.DeathMethod = 1
	cfg.AgeLimit = 99
	cfg.PreferEmpty = false

	w := world.NewSeeded(1)
	cfg.Apply(w)

	assert.Equal(t, 0.5, w.CopyMutationRate)
	assert.Equal(t, 1, w.DeathMethod)
	assert.EqualValues(t, 99, w.AgeLimit)
	assert.False(t, w.PreferEmpty)
}
