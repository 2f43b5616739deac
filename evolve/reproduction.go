package evolve

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// WeightedRandomSelection draws one index with probability proportional to
// its weight. Weights must be finite and non-negative with a positive sum;
// they do not need to sum to 1.
func WeightedRandomSelection(rng *rand.Rand, weights []float64) (int, error) {
	if len(weights) == 0 {
		return -1, ErrEmptyGeneration
	}
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return -1, fmt.Errorf("%w: weight %d is %v", ErrDegenerateGeneration, i, w)
		}
	}
	total := floats.Sum(weights)
	if total <= 0 || math.IsInf(total, 0) {
		return -1, fmt.Errorf("%w: weights sum to %v", ErrDegenerateGeneration, total)
	}

	r := rng.Float64() * total
	last := -1
	for i, w := range weights {
		if w == 0 {
			continue
		}
		last = i
		if r < w {
			return i, nil
		}
		r -= w
	}
	// Rounding left r just past the final bucket.
	return last, nil
}

// Proliferate builds the next generation from agents whose fitness has been
// computed. It performs len(agents) independent fitness-proportionate draws
// with replacement; every drawn parent is copied and the copy is mutated with
// cfg.Evolve.MutationRate. No parent is carried over unchanged.
//
// The returned population owns only the offspring. The parents still belong
// to the caller's population and are released by its Dispose.
func Proliferate(cfg *Config, agents []Agent, rng *rand.Rand) (*Population, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("proliferate: %w", ErrEmptyGeneration)
	}
	if rng == nil {
		rng = newRand(cfg.Evolve.Seed)
	}

	weights := make([]float64, len(agents))
	for i, a := range agents {
		weights[i] = a.Fitness()
	}

	offspring := make([]Agent, 0, len(agents))
	release := func() {
		for _, child := range offspring {
			_ = child.Dispose()
		}
	}

	for range agents {
		idx, err := WeightedRandomSelection(rng, weights)
		if err != nil {
			release()
			return nil, fmt.Errorf("proliferate: %w", err)
		}
		child, err := agents[idx].Copy()
		if err != nil {
			release()
			return nil, fmt.Errorf("proliferate: copy agent %d: %w", idx, err)
		}
		if err := child.Mutate(cfg.Evolve.MutationRate); err != nil {
			_ = child.Dispose()
			release()
			return nil, fmt.Errorf("proliferate: mutate copy of agent %d: %w", idx, err)
		}
		offspring = append(offspring, child)
	}

	return NewPopulationFrom(cfg, offspring, rng), nil
}
