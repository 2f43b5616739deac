package evolve

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/neuroevo-go/evolve/nn"
)

func TestWeightedRandomSelectionDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	weights := []float64{0.1, 0.0, 0.3, 0.6}
	counts := make([]int, len(weights))

	const draws = 20000
	for i := 0; i < draws; i++ {
		idx, err := WeightedRandomSelection(rng, weights)
		require.NoError(t, err)
		counts[idx]++
	}

	assert.Zero(t, counts[1], "zero-weight entries are never drawn")
	for i, w := range weights {
		assert.InDelta(t, w, float64(counts[i])/draws, 0.02, "index %d", i)
	}
}

func TestWeightedRandomSelectionUnnormalized(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 100; i++ {
		idx, err := WeightedRandomSelection(rng, []float64{0, 0, 7})
		require.NoError(t, err)
		assert.Equal(t, 2, idx)
	}
}

func TestWeightedRandomSelectionErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	_, err := WeightedRandomSelection(rng, nil)
	assert.ErrorIs(t, err, ErrEmptyGeneration)

	_, err = WeightedRandomSelection(rng, []float64{0, 0})
	assert.ErrorIs(t, err, ErrDegenerateGeneration)

	_, err = WeightedRandomSelection(rng, []float64{0.5, -0.1})
	assert.ErrorIs(t, err, ErrDegenerateGeneration)

	_, err = WeightedRandomSelection(rng, []float64{0.5, math.NaN()})
	assert.ErrorIs(t, err, ErrDegenerateGeneration)
}

func TestProliferateSize(t *testing.T) {
	for _, n := range []int{1, 3, 8} {
		scores := make([]float64, n)
		for i := range scores {
			scores[i] = float64(i + 1)
		}
		pop, err := retireWithScores(testConfig(), scores...)
		require.NoError(t, err)
		require.NoError(t, pop.CalculateFitness())

		next, err := Proliferate(pop.Config, pop.Retired(), rand.New(rand.NewSource(int64(n))))
		require.NoError(t, err)
		assert.Equal(t, n, next.Size())
		assert.Equal(t, n, next.NumActive())
		assert.Equal(t, 0, next.NumRetired())

		require.NoError(t, pop.Dispose())
		disposeAll(t, next)
	}
}

func TestProliferateCopiesOnlySelectedParent(t *testing.T) {
	cfg := testConfig()
	cfg.Evolve.MutationRate = 0
	pop, err := retireWithScores(cfg, 0, 0, 5, 0)
	require.NoError(t, err)
	defer pop.Dispose()
	require.NoError(t, pop.CalculateFitness())

	parent := pop.Retired()[2].(*testAgent).policy
	want, err := parent.Predict(sensorInput)
	require.NoError(t, err)

	next, err := pop.Proliferate()
	require.NoError(t, err)
	defer disposeAll(t, next)

	next.ForEach(func(_ int, a Agent) {
		child := a.(*testAgent)
		assert.NotSame(t, parent, child.policy)
		got, err := child.policy.Predict(sensorInput)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Zero(t, child.Score(), "offspring start with fresh task state")
	})
}

func TestProliferateMutatesOffspringWithoutTouchingParents(t *testing.T) {
	cfg := testConfig()
	cfg.Evolve.MutationRate = 1
	pop, err := retireWithScores(cfg, 1, 1, 1)
	require.NoError(t, err)
	defer pop.Dispose()
	require.NoError(t, pop.CalculateFitness())

	before := make([][]float64, pop.NumRetired())
	for i, a := range pop.Retired() {
		out, err := a.(*testAgent).policy.Predict(sensorInput)
		require.NoError(t, err)
		before[i] = out
	}

	next, err := pop.Proliferate()
	require.NoError(t, err)
	defer disposeAll(t, next)

	for i, a := range pop.Retired() {
		out, err := a.(*testAgent).policy.Predict(sensorInput)
		require.NoError(t, err)
		assert.Equal(t, before[i], out)
	}
	next.ForEach(func(_ int, a Agent) {
		out, err := a.(*testAgent).policy.Predict(sensorInput)
		require.NoError(t, err)
		assert.NotContains(t, before, out, "every offspring is perturbed")
	})
}

func TestProliferateEmpty(t *testing.T) {
	_, err := Proliferate(testConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrEmptyGeneration)
}

func TestProliferateZeroFitnessReleasesNothingExtra(t *testing.T) {
	pop, err := retireWithScores(testConfig(), 1, 2)
	require.NoError(t, err)
	defer pop.Dispose()

	start := nn.Live()
	_, err = pop.Proliferate() // fitness never computed, all weights zero
	assert.ErrorIs(t, err, ErrDegenerateGeneration)
	assert.Equal(t, start, nn.Live())
}

// copyLimitAgent fails to copy once its budget is spent.
type copyLimitAgent struct {
	*testAgent
	remaining *int
}

func (a copyLimitAgent) Copy() (Agent, error) {
	if *a.remaining == 0 {
		return nil, errFactory
	}
	*a.remaining--
	return a.testAgent.Copy()
}

func TestProliferateCopyFailureReleasesOffspring(t *testing.T) {
	cfg := testConfig()
	parent, err := testFactory(1)(cfg.Policy, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	defer parent.Dispose()

	budget := 2
	limited := copyLimitAgent{testAgent: parent.(*testAgent), remaining: &budget}
	limited.SetFitness(1)

	start := nn.Live()
	_, err = Proliferate(cfg, []Agent{limited, limited, limited}, nil)
	assert.ErrorIs(t, err, errFactory)
	assert.Zero(t, budget, "two offspring were created before the failure")
	assert.Equal(t, start, nn.Live())
}
