package evolve

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/baldhumanity/neuroevo-go/evolve/nn"
)

// Zero-score fallback policies for CalculateFitness.
const (
	// FallbackUniform gives every retired agent fitness 1/len(retired).
	FallbackUniform = "uniform"
	// FallbackError makes CalculateFitness fail with ErrDegenerateGeneration.
	FallbackError = "error"
)

// Config stores the configuration parameters for an evolution run.
type Config struct {
	Evolve  EvolveConfig
	Policy  PolicyConfig
	Fitness FitnessConfig
}

// EvolveConfig holds parameters of the generational loop itself.
type EvolveConfig struct {
	PopSize         int     `ini:"pop_size"`
	MutationRate    float64 `ini:"mutation_rate"` // Per-parameter probability of perturbation
	Seed            int64   `ini:"seed"`          // 0 seeds from the clock
	MaxSteps        int     `ini:"max_steps"`     // 0 means a generation runs until every agent is culled
	ScoreThreshold  float64 `ini:"score_threshold"`
	ParallelPredict bool    `ini:"parallel_predict"`
	MaxWorkers      int     `ini:"max_workers"` // Only used with parallel_predict, 0 means one per CPU
}

// PolicyConfig holds the topology of every agent's policy.
type PolicyConfig struct {
	NumInputs     int     `ini:"num_inputs"`  // Sensor-vector width
	NumHidden     int     `ini:"num_hidden"`  // Hidden-layer width
	NumOutputs    int     `ini:"num_outputs"` // Control-vector width
	Activation    string  `ini:"activation"`
	MutationStdev float64 `ini:"mutation_stdev"` // Standard deviation of the mutation perturbation
}

// FitnessConfig holds parameters of the fitness computation.
type FitnessConfig struct {
	ZeroScoreFallback string `ini:"zero_score_fallback"` // "uniform" or "error"
}

// DefaultConfig returns the configuration of the reference bird task.
func DefaultConfig() *Config {
	return &Config{
		Evolve: EvolveConfig{
			PopSize:      5,
			MutationRate: 0.1,
		},
		Policy: PolicyConfig{
			NumInputs:     5,
			NumHidden:     8,
			NumOutputs:    2,
			Activation:    "sigmoid",
			MutationStdev: nn.DefaultMutationStdev,
		},
		Fitness: FitnessConfig{
			ZeroScoreFallback: FallbackUniform,
		},
	}
}

// LoadConfig loads configuration parameters from an INI file. Keys missing
// from the file keep their DefaultConfig values.
func LoadConfig(filePath string) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	config := DefaultConfig()
	if err := cfg.Section("Evolve").MapTo(&config.Evolve); err != nil {
		return nil, fmt.Errorf("failed to map [Evolve] section: %w", err)
	}
	if err := cfg.Section("Policy").MapTo(&config.Policy); err != nil {
		return nil, fmt.Errorf("failed to map [Policy] section: %w", err)
	}
	if err := cfg.Section("Fitness").MapTo(&config.Fitness); err != nil {
		return nil, fmt.Errorf("failed to map [Fitness] section: %w", err)
	}

	config.Policy.Activation = cleanIniString(config.Policy.Activation)
	config.Fitness.ZeroScoreFallback = strings.ToLower(cleanIniString(config.Fitness.ZeroScoreFallback))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate reports the first invalid parameter.
func (c *Config) Validate() error {
	if c.Evolve.PopSize <= 0 {
		return fmt.Errorf("config error: pop_size must be positive")
	}
	if c.Evolve.MutationRate < 0 || c.Evolve.MutationRate > 1 || math.IsNaN(c.Evolve.MutationRate) {
		return fmt.Errorf("config error: mutation_rate must be between 0 and 1")
	}
	if c.Evolve.MaxSteps < 0 {
		return fmt.Errorf("config error: max_steps cannot be negative")
	}
	if c.Evolve.MaxWorkers < 0 {
		return fmt.Errorf("config error: max_workers cannot be negative")
	}
	if c.Policy.NumInputs <= 0 {
		return fmt.Errorf("config error: num_inputs must be positive")
	}
	if c.Policy.NumHidden <= 0 {
		return fmt.Errorf("config error: num_hidden must be positive")
	}
	if c.Policy.NumOutputs <= 0 {
		return fmt.Errorf("config error: num_outputs must be positive")
	}
	if c.Policy.MutationStdev < 0 || math.IsNaN(c.Policy.MutationStdev) || math.IsInf(c.Policy.MutationStdev, 0) {
		return fmt.Errorf("config error: mutation_stdev must be a non-negative finite number")
	}
	if _, err := nn.GetActivation(c.Policy.Activation); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	switch c.Fitness.ZeroScoreFallback {
	case FallbackUniform, FallbackError:
	default:
		return fmt.Errorf("config error: invalid zero_score_fallback '%s', must be one of 'uniform', 'error'", c.Fitness.ZeroScoreFallback)
	}
	return nil
}

// NewPolicy creates a freshly initialized policy with the configured topology.
// A nil rng lets the policy seed its own source.
func (pc PolicyConfig) NewPolicy(rng *rand.Rand) (*nn.Policy, error) {
	opts := []nn.Option{
		nn.WithActivation(pc.Activation),
		nn.WithMutationStdev(pc.MutationStdev),
	}
	if rng != nil {
		opts = append(opts, nn.WithRand(rng))
	}
	return nn.New(pc.NumInputs, pc.NumHidden, pc.NumOutputs, opts...)
}

// cleanIniString removes inline comments and trims whitespace from a string read from INI.
func cleanIniString(s string) string {
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
