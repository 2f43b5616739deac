package evolve

import (
	"errors"
	"math/rand"

	"github.com/baldhumanity/neuroevo-go/evolve/nn"
)

// testAgent is a minimal task: every Update adds scorePerStep to the score.
type testAgent struct {
	policy       *nn.Policy
	score        float64
	fitness      float64
	scorePerStep float64
	lastInputs   []float64
	lastOutputs  []float64
	updates      int
}

func (a *testAgent) Predict(inputs []float64) error {
	out, err := a.policy.Predict(inputs)
	if err != nil {
		return err
	}
	a.lastInputs = inputs
	a.lastOutputs = out
	return nil
}

func (a *testAgent) Update() {
	a.updates++
	a.score += a.scorePerStep
}

func (a *testAgent) Score() float64 { return a.score }
func (a *testAgent) Fitness() float64 { return a.fitness }
func (a *testAgent) SetFitness(fitness float64) { a.fitness = fitness }
func (a *testAgent) Mutate(rate float64) error { return a.policy.Mutate(rate) }
func (a *testAgent) Dispose() error { return a.policy.Dispose() }

func (a *testAgent) Copy() (Agent, error) {
	p, err := a.policy.Copy()
	if err != nil {
		return nil, err
	}
	return &testAgent{policy: p, scorePerStep: a.scorePerStep}, nil
}

func testFactory(scorePerStep float64) AgentFactory {
	return func(pc PolicyConfig, rng *rand.Rand) (Agent, error) {
		p, err := pc.NewPolicy(rng)
		if err != nil {
			return nil, err
		}
		return &testAgent{policy: p, scorePerStep: scorePerStep}, nil
	}
}

var errFactory = errors.New("factory failed")

// failingFactory fails on the n-th call (0-based).
func failingFactory(n int) AgentFactory {
	calls := 0
	inner := testFactory(1)
	return func(pc PolicyConfig, rng *rand.Rand) (Agent, error) {
		if calls == n {
			return nil, errFactory
		}
		calls++
		return inner(pc, rng)
	}
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Evolve.Seed = 42
	return cfg
}

func constantSensor(values ...float64) SensorFunc {
	return func(Agent) []float64 { return values }
}

var sensorInput = []float64{0.3, -0.1, 0.8, 0.5, 0.2}

// retireWithScores builds a fully retired population whose agents hold scores.
func retireWithScores(cfg *Config, scores ...float64) (*Population, error) {
	rng := rand.New(rand.NewSource(7))
	agents := make([]Agent, len(scores))
	for i, s := range scores {
		a, err := testFactory(1)(cfg.Policy, rng)
		if err != nil {
			return nil, err
		}
		a.(*testAgent).score = s
		agents[i] = a
	}
	pop := NewPopulationFrom(cfg, agents, rng)
	for !pop.Done() {
		if err := pop.Cull(0); err != nil {
			return nil, err
		}
	}
	return pop, nil
}
