package evolve

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"slices"

	"github.com/sourcegraph/conc/pool"
)

// Population holds the agents of one generation. Agents start active and are
// moved to the retired set by Cull; they never move back. Once every agent is
// retired the generation is scored with CalculateFitness, reproduced with
// Proliferate and released with Dispose.
//
// A Population is not safe for concurrent use.
type Population struct {
	Config *Config

	size    int
	active  []Agent // Iteration order
	retired []Agent // Retirement order
	rng     *rand.Rand

	degenerate bool
	disposed   bool
}

// NewPopulation creates cfg.Evolve.PopSize fresh agents with factory. If rng
// is nil a source is derived from cfg.Evolve.Seed.
func NewPopulation(cfg *Config, factory AgentFactory, rng *rand.Rand) (*Population, error) {
	if rng == nil {
		rng = newRand(cfg.Evolve.Seed)
	}
	agents := make([]Agent, 0, cfg.Evolve.PopSize)
	for i := 0; i < cfg.Evolve.PopSize; i++ {
		a, err := factory(cfg.Policy, rng)
		if err != nil {
			for _, created := range agents {
				_ = created.Dispose()
			}
			return nil, fmt.Errorf("failed to create agent %d: %w", i, err)
		}
		agents = append(agents, a)
	}
	return NewPopulationFrom(cfg, agents, rng), nil
}

// NewPopulationFrom adopts agents as the active set. The population's size is
// len(agents) and its retired set starts empty.
func NewPopulationFrom(cfg *Config, agents []Agent, rng *rand.Rand) *Population {
	if rng == nil {
		rng = newRand(cfg.Evolve.Seed)
	}
	return &Population{
		Config:  cfg,
		size:    len(agents),
		active:  agents,
		retired: make([]Agent, 0, len(agents)),
		rng:     rng,
	}
}

// Size returns the number of agents in the generation, active or retired.
func (p *Population) Size() int { return p.size }

// NumActive returns the number of agents not yet culled.
func (p *Population) NumActive() int { return len(p.active) }

// NumRetired returns the number of culled agents.
func (p *Population) NumRetired() int { return len(p.retired) }

// Done reports whether every agent has been culled.
func (p *Population) Done() bool { return len(p.active) == 0 }

// Degenerate reports whether the last CalculateFitness fell back to uniform
// fitness because the total score was zero.
func (p *Population) Degenerate() bool { return p.degenerate }

// Active returns a copy of the active sequence.
func (p *Population) Active() []Agent { return slices.Clone(p.active) }

// Retired returns a copy of the retired sequence.
func (p *Population) Retired() []Agent { return slices.Clone(p.retired) }

// Predict asks every active agent to act on its sensor vector. Agents do not
// interact, so with ParallelPredict the calls fan out over a bounded worker
// pool and sense must then be safe for concurrent use. The error reported is
// always the one of the lowest failing index.
func (p *Population) Predict(sense SensorFunc) error {
	if !p.Config.Evolve.ParallelPredict || len(p.active) < 2 {
		for i, a := range p.active {
			if err := a.Predict(sense(a)); err != nil {
				return fmt.Errorf("predict agent %d: %w", i, err)
			}
		}
		return nil
	}

	workers := p.Config.Evolve.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	errs := make([]error, len(p.active))
	wp := pool.New().WithMaxGoroutines(workers)
	for i, a := range p.active {
		wp.Go(func() {
			if err := a.Predict(sense(a)); err != nil {
				errs[i] = fmt.Errorf("predict agent %d: %w", i, err)
			}
		})
	}
	wp.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Update advances every active agent by one step, in iteration order.
func (p *Population) Update() {
	for _, a := range p.active {
		a.Update()
	}
}

// Cull moves the active agent at index to the end of the retired sequence.
func (p *Population) Cull(index int) error {
	if index < 0 || index >= len(p.active) {
		return fmt.Errorf("cull %d of %d active agents: %w", index, len(p.active), ErrIndexOutOfRange)
	}
	a := p.active[index]
	p.active = slices.Delete(p.active, index, index+1)
	p.retired = append(p.retired, a)
	return nil
}

// CullWhere culls every active agent for which pred returns true and returns
// how many were culled. The active set is walked from the back, so agents
// culled in the same call retire in reverse iteration order.
func (p *Population) CullWhere(pred func(Agent) bool) int {
	culled := 0
	for i := len(p.active) - 1; i >= 0; i-- {
		if pred(p.active[i]) {
			_ = p.Cull(i)
			culled++
		}
	}
	return culled
}

// CalculateFitness normalizes the score of every retired agent by the total
// retired score. Still-active agents are ignored, so it is meant to run once
// the generation is Done.
//
// When the total score is zero the outcome depends on
// Config.Fitness.ZeroScoreFallback: "uniform" gives every retired agent
// 1/len(retired) and marks the generation Degenerate; "error" returns
// ErrDegenerateGeneration and leaves fitness untouched.
func (p *Population) CalculateFitness() error {
	if len(p.retired) == 0 {
		return fmt.Errorf("calculate fitness: no retired agents: %w", ErrEmptyGeneration)
	}

	totalScore := 0.0
	for i, a := range p.retired {
		score := a.Score()
		if score < 0 || math.IsNaN(score) || math.IsInf(score, 0) {
			return fmt.Errorf("calculate fitness: retired agent %d has score %v: %w", i, score, ErrInvalidScore)
		}
		totalScore += score
	}
	if math.IsInf(totalScore, 0) {
		return fmt.Errorf("calculate fitness: total score overflows: %w", ErrInvalidScore)
	}

	p.degenerate = false
	if totalScore == 0 {
		if p.Config.Fitness.ZeroScoreFallback == FallbackError {
			return fmt.Errorf("calculate fitness: total score of %d retired agents is zero: %w", len(p.retired), ErrDegenerateGeneration)
		}
		uniform := 1.0 / float64(len(p.retired))
		for _, a := range p.retired {
			a.SetFitness(uniform)
		}
		p.degenerate = true
		return nil
	}

	for _, a := range p.retired {
		a.SetFitness(a.Score() / totalScore)
	}
	return nil
}

// Proliferate reproduces the retired agents into a new population.
func (p *Population) Proliferate() (*Population, error) {
	return Proliferate(p.Config, p.retired, p.rng)
}

// Dispose releases the policy of every retired agent. It must run after
// CalculateFitness and Proliferate are done with the generation. Errors from
// individual agents are joined.
func (p *Population) Dispose() error {
	if p.disposed {
		return ErrPopulationDisposed
	}
	p.disposed = true

	var errs []error
	for i, a := range p.retired {
		if err := a.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("dispose retired agent %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// ForEach calls fn for every active agent in iteration order.
func (p *Population) ForEach(fn func(index int, a Agent)) {
	for i, a := range p.active {
		fn(i, a)
	}
}

// Stats summarizes the scores of the retired agents.
func (p *Population) Stats() GenerationStats {
	scores := make([]float64, len(p.retired))
	for i, a := range p.retired {
		scores[i] = a.Score()
	}
	stats := GenerationStats{
		Size:       p.size,
		Retired:    len(p.retired),
		Degenerate: p.degenerate,
	}
	if len(scores) > 0 {
		stats.BestScore = MaxFloat(scores)
		stats.MinScore = MinFloat(scores)
		stats.MeanScore = Mean(scores)
		stats.StdevScore = Stdev(scores)
		stats.MedianScore = Median(scores)
	}
	return stats
}
