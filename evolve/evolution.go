package evolve

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Environment is the task an Evolution runs its agents in. It owns the world
// state shared by every agent of a generation (obstacles, clock) while the
// agents own their own bodies.
type Environment interface {
	// Reset prepares a fresh world for a new generation.
	Reset()
	// Sense returns the sensor vector agent a sees in the current world.
	Sense(a Agent) []float64
	// Terminated reports whether agent a has met its termination condition.
	Terminated(a Agent) bool
	// Tick advances the shared world by one step.
	Tick()
}

// Evolution drives populations generation after generation: step the active
// agents until all are culled, score them, reproduce, release the old
// generation and start over.
type Evolution struct {
	Config     *Config
	Population *Population
	Generation int
	Steps      int     // Steps taken in the current generation
	BestScore  float64 // Best raw score seen over the run
	Reporters  *ReporterSet

	rng      *rand.Rand
	genStart time.Time
	closed   bool
}

// NewEvolution validates cfg and creates the first generation with factory.
func NewEvolution(cfg *Config, factory AgentFactory, reporters ...Reporter) (*Evolution, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := newRand(cfg.Evolve.Seed)
	pop, err := NewPopulation(cfg, factory, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial population: %w", err)
	}
	return &Evolution{
		Config:     cfg,
		Population: pop,
		Reporters:  NewReporterSet(reporters...),
		rng:        rng,
	}, nil
}

// Step runs one simulation step of the current generation: every active agent
// predicts and updates, terminated agents are culled and the world ticks.
// When Config.Evolve.MaxSteps is reached the survivors are culled as well.
// It returns true once the generation has no active agents left.
func (e *Evolution) Step(env Environment) (bool, error) {
	if e.closed {
		return false, errors.New("evolution is closed")
	}
	pop := e.Population
	if pop.Done() {
		return true, nil
	}
	if e.Steps == 0 {
		e.genStart = time.Now()
		e.Reporters.StartGeneration(e.Generation)
	}

	if err := pop.Predict(env.Sense); err != nil {
		return false, fmt.Errorf("step %d of generation %d: %w", e.Steps, e.Generation, err)
	}
	pop.Update()
	pop.CullWhere(env.Terminated)
	env.Tick()
	e.Steps++

	if limit := e.Config.Evolve.MaxSteps; limit > 0 && e.Steps >= limit {
		pop.CullWhere(func(Agent) bool { return true })
	}
	return pop.Done(), nil
}

// Advance closes the current generation: fitness is computed, the retired
// agents are reproduced into the next population and then released.
func (e *Evolution) Advance() (GenerationStats, error) {
	if e.closed {
		return GenerationStats{}, errors.New("evolution is closed")
	}
	pop := e.Population
	if !pop.Done() {
		return GenerationStats{}, fmt.Errorf("generation %d still has %d active agents", e.Generation, pop.NumActive())
	}

	if err := pop.CalculateFitness(); err != nil {
		return GenerationStats{}, fmt.Errorf("fitness evaluation failed in generation %d: %w", e.Generation, err)
	}

	stats := pop.Stats()
	stats.Generation = e.Generation
	stats.Steps = e.Steps
	if !e.genStart.IsZero() {
		stats.Duration = time.Since(e.genStart)
	}
	if stats.BestScore > e.BestScore {
		e.BestScore = stats.BestScore
	}

	next, err := Proliferate(e.Config, pop.Retired(), e.rng)
	if err != nil {
		return stats, fmt.Errorf("reproduction failed in generation %d: %w", e.Generation, err)
	}
	e.Population = next
	e.Generation++
	e.Steps = 0
	e.genStart = time.Time{}

	e.Reporters.EndGeneration(stats)

	if err := pop.Dispose(); err != nil {
		return stats, fmt.Errorf("failed to release generation %d: %w", stats.Generation, err)
	}
	return stats, nil
}

// RunGeneration resets env and steps the current generation until every agent
// is culled, then advances to the next one. ctx is checked between steps.
func (e *Evolution) RunGeneration(ctx context.Context, env Environment) (GenerationStats, error) {
	env.Reset()
	for {
		if err := ctx.Err(); err != nil {
			return GenerationStats{}, err
		}
		done, err := e.Step(env)
		if err != nil {
			return GenerationStats{}, err
		}
		if done {
			break
		}
	}
	return e.Advance()
}

// Run executes up to generations generations. It stops early once a generation
// reaches Config.Evolve.ScoreThreshold, when that threshold is positive.
func (e *Evolution) Run(ctx context.Context, env Environment, generations int) (GenerationStats, error) {
	var stats GenerationStats
	for i := 0; i < generations; i++ {
		var err error
		stats, err = e.RunGeneration(ctx, env)
		if err != nil {
			return stats, err
		}
		if e.Solved() {
			break
		}
	}
	return stats, nil
}

// Solved reports whether the best score so far meets the score threshold.
func (e *Evolution) Solved() bool {
	threshold := e.Config.Evolve.ScoreThreshold
	return threshold > 0 && e.BestScore >= threshold
}

// Close releases every policy still held by the current population, active
// or retired. The Evolution cannot be used afterwards.
func (e *Evolution) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.Population.CullWhere(func(Agent) bool { return true })
	return e.Population.Dispose()
}
