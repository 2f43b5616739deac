package evolve

import (
	"errors"
	"math/rand"
)

var (
	// ErrIndexOutOfRange is returned by Cull for a position outside the active set.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrDegenerateGeneration is returned when fitness cannot be normalized or
	// used as selection weights: zero total score under the "error" fallback,
	// or weights that are all zero.
	ErrDegenerateGeneration = errors.New("degenerate generation")
	// ErrEmptyGeneration is returned when reproduction is asked to draw from no agents.
	ErrEmptyGeneration = errors.New("empty generation")
	// ErrInvalidScore is returned when an agent reports a negative or non-finite score.
	ErrInvalidScore = errors.New("invalid score")
	// ErrPopulationDisposed is returned by a second Dispose on the same population.
	ErrPopulationDisposed = errors.New("population already disposed")
)

// Agent is a task entity that owns a policy and the task state around it.
// The engine only drives agents through this interface; how an agent senses,
// moves and scores belongs to the task.
type Agent interface {
	// Predict feeds a sensor vector to the policy and applies the resulting
	// control vector to the agent's own state.
	Predict(inputs []float64) error
	// Update advances the agent's state by one simulation step.
	Update()
	// Score is the raw score accumulated by the task.
	Score() float64
	// Fitness is only meaningful after CalculateFitness has run for the
	// agent's generation.
	Fitness() float64
	SetFitness(fitness float64)
	// Copy returns a fresh agent carrying a deep copy of the policy.
	Copy() (Agent, error)
	// Mutate forwards to the policy's Mutate.
	Mutate(rate float64) error
	// Dispose releases the policy.
	Dispose() error
}

// AgentFactory creates an agent holding a freshly initialized policy with the
// topology described by pc. rng is the population's random source.
type AgentFactory func(pc PolicyConfig, rng *rand.Rand) (Agent, error)

// SensorFunc computes the sensor vector an agent sees this step.
type SensorFunc func(a Agent) []float64
