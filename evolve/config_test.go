package evolve

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evolve-config")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Policy.NumInputs)
	assert.Equal(t, 8, cfg.Policy.NumHidden)
	assert.Equal(t, 2, cfg.Policy.NumOutputs)
	assert.Equal(t, 0.1, cfg.Policy.MutationStdev)
	assert.Equal(t, FallbackUniform, cfg.Fitness.ZeroScoreFallback)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[Evolve]
pop_size         = 250
mutation_rate    = 0.05
seed             = 99
max_steps        = 5000
parallel_predict = true
max_workers      = 4

[Policy]
num_inputs     = 4
num_hidden     = 16
num_outputs    = 1
activation     = hard_sigmoid   # piecewise linear
mutation_stdev = 0.2

[Fitness]
zero_score_fallback = Error
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Evolve.PopSize)
	assert.Equal(t, 0.05, cfg.Evolve.MutationRate)
	assert.Equal(t, int64(99), cfg.Evolve.Seed)
	assert.Equal(t, 5000, cfg.Evolve.MaxSteps)
	assert.True(t, cfg.Evolve.ParallelPredict)
	assert.Equal(t, 4, cfg.Evolve.MaxWorkers)
	assert.Equal(t, 4, cfg.Policy.NumInputs)
	assert.Equal(t, 16, cfg.Policy.NumHidden)
	assert.Equal(t, 1, cfg.Policy.NumOutputs)
	assert.Equal(t, "hard_sigmoid", cfg.Policy.Activation)
	assert.Equal(t, 0.2, cfg.Policy.MutationStdev)
	assert.Equal(t, FallbackError, cfg.Fitness.ZeroScoreFallback)
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[Evolve]
pop_size = 12
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	want := DefaultConfig()
	want.Evolve.PopSize = 12
	assert.Equal(t, want, cfg)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"pop size":      "[Evolve]\npop_size = 0\n",
		"mutation rate": "[Evolve]\nmutation_rate = 1.5\n",
		"max steps":     "[Evolve]\nmax_steps = -1\n",
		"inputs":        "[Policy]\nnum_inputs = 0\n",
		"hidden":        "[Policy]\nnum_hidden = -3\n",
		"outputs":       "[Policy]\nnum_outputs = 0\n",
		"stdev":         "[Policy]\nmutation_stdev = -0.1\n",
		"activation":    "[Policy]\nactivation = relu\n",
		"fallback":      "[Fitness]\nzero_score_fallback = skip\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, contents))
			assert.Error(t, err)
		})
	}
}

func TestPolicyConfigNewPolicy(t *testing.T) {
	pc := DefaultConfig().Policy
	pc.NumHidden = 3

	a, err := pc.NewPolicy(rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	defer a.Dispose()
	b, err := pc.NewPolicy(rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	defer b.Dispose()

	in, hidden, out := a.Shape()
	assert.Equal(t, []int{5, 3, 2}, []int{in, hidden, out})

	pa, err := a.Parameters()
	require.NoError(t, err)
	pb, err := b.Parameters()
	require.NoError(t, err)
	assert.Equal(t, pa, pb, "same seed gives the same initialization")
}
