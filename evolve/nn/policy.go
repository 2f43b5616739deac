// Package nn implements the decision network carried by every agent: a
// fixed-topology, two-layer feedforward network whose parameters live in gonum
// matrices.
package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShapeMismatch is returned when an input vector or a parameter tensor
	// does not match the policy's widths.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInvalidShape is returned when a policy is constructed with a non-positive width.
	ErrInvalidShape = errors.New("invalid shape")
	// ErrInvalidRate is returned when a mutation rate falls outside [0, 1].
	ErrInvalidRate = errors.New("mutation rate must be within [0, 1]")
	// ErrUseAfterDispose is returned by every operation on a disposed policy,
	// including a second Dispose.
	ErrUseAfterDispose = errors.New("policy used after dispose")
)

// DefaultMutationStdev is the standard deviation of the Gaussian perturbation
// applied to a mutated parameter.
const DefaultMutationStdev = 0.1

// live counts policies whose storage has not been released yet.
var live atomic.Int64

// Live returns the number of policies created by New, FromParameters or Copy
// that have not been disposed. Tests use it to detect leaked policies.
func Live() int64 {
	return live.Load()
}

// Parameters is a snapshot of a policy's tensors.
type Parameters struct {
	HiddenWeights *mat.Dense    // nHidden x nInput
	HiddenBias    *mat.VecDense // nHidden
	OutputWeights *mat.Dense    // nOutput x nHidden
	OutputBias    *mat.VecDense // nOutput
}

// Policy is a feedforward network with one hidden layer. Both layers are
// fully connected, carry a bias and use the same bounded activation.
//
// Predict only reads parameters, so distinct goroutines may call it at the
// same time. Mutate, Copy and Dispose must not run concurrently with any other
// call on the same policy.
type Policy struct {
	nInput  int
	nHidden int
	nOutput int

	hiddenW *mat.Dense
	hiddenB *mat.VecDense
	outputW *mat.Dense
	outputB *mat.VecDense

	activation    ActivationType
	mutationStdev float64
	rng           *rand.Rand

	disposed bool
}

// Option configures a Policy at construction.
type Option func(*Policy) error

// WithRand sets the random source used for initialization and mutation.
// Copies share the source of the policy they were copied from.
func WithRand(rng *rand.Rand) Option {
	return func(p *Policy) error {
		p.rng = rng
		return nil
	}
}

// WithMutationStdev overrides DefaultMutationStdev.
func WithMutationStdev(stdev float64) Option {
	return func(p *Policy) error {
		if stdev < 0 || math.IsNaN(stdev) || math.IsInf(stdev, 0) {
			return fmt.Errorf("mutation stdev must be a non-negative finite number, got %v", stdev)
		}
		p.mutationStdev = stdev
		return nil
	}
}

// WithActivation selects the activation function by name, see ActivationFunctions.
func WithActivation(name string) Option {
	return func(p *Policy) error {
		fn, err := GetActivation(name)
		if err != nil {
			return err
		}
		p.activation = fn
		return nil
	}
}

// New creates a policy with freshly initialized parameters. Weights are drawn
// from a Glorot uniform distribution and biases start at zero.
func New(nInput, nHidden, nOutput int, opts ...Option) (*Policy, error) {
	p, err := newPolicy(nInput, nHidden, nOutput, opts)
	if err != nil {
		return nil, err
	}
	p.hiddenW = mat.NewDense(nHidden, nInput, nil)
	p.hiddenB = mat.NewVecDense(nHidden, nil)
	p.outputW = mat.NewDense(nOutput, nHidden, nil)
	p.outputB = mat.NewVecDense(nOutput, nil)
	glorotUniform(p.rng, p.hiddenW)
	glorotUniform(p.rng, p.outputW)

	live.Add(1)
	return p, nil
}

// FromParameters creates a policy holding a deep copy of params. Every tensor
// must be present and match the given widths.
func FromParameters(nInput, nHidden, nOutput int, params Parameters, opts ...Option) (*Policy, error) {
	p, err := newPolicy(nInput, nHidden, nOutput, opts)
	if err != nil {
		return nil, err
	}
	if err := checkDense("hidden weights", params.HiddenWeights, nHidden, nInput); err != nil {
		return nil, err
	}
	if err := checkVec("hidden bias", params.HiddenBias, nHidden); err != nil {
		return nil, err
	}
	if err := checkDense("output weights", params.OutputWeights, nOutput, nHidden); err != nil {
		return nil, err
	}
	if err := checkVec("output bias", params.OutputBias, nOutput); err != nil {
		return nil, err
	}
	p.hiddenW = mat.DenseCopyOf(params.HiddenWeights)
	p.hiddenB = mat.VecDenseCopyOf(params.HiddenBias)
	p.outputW = mat.DenseCopyOf(params.OutputWeights)
	p.outputB = mat.VecDenseCopyOf(params.OutputBias)

	live.Add(1)
	return p, nil
}

func newPolicy(nInput, nHidden, nOutput int, opts []Option) (*Policy, error) {
	if nInput <= 0 || nHidden <= 0 || nOutput <= 0 {
		return nil, fmt.Errorf("%w: widths must be positive, got %d-%d-%d", ErrInvalidShape, nInput, nHidden, nOutput)
	}
	p := &Policy{
		nInput:        nInput,
		nHidden:       nHidden,
		nOutput:       nOutput,
		activation:    Sigmoid,
		mutationStdev: DefaultMutationStdev,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return p, nil
}

// Shape returns the input, hidden and output widths.
func (p *Policy) Shape() (nInput, nHidden, nOutput int) {
	return p.nInput, p.nHidden, p.nOutput
}

// NumParameters returns the number of scalar parameters across both layers.
func (p *Policy) NumParameters() int {
	return p.nHidden*p.nInput + p.nHidden + p.nOutput*p.nHidden + p.nOutput
}

// Predict runs the forward pass and returns nOutput values in the range of
// the activation function.
func (p *Policy) Predict(inputs []float64) ([]float64, error) {
	if p.disposed {
		return nil, fmt.Errorf("predict: %w", ErrUseAfterDispose)
	}
	if len(inputs) != p.nInput {
		return nil, fmt.Errorf("predict: %w: got %d inputs, want %d", ErrShapeMismatch, len(inputs), p.nInput)
	}

	x := mat.NewVecDense(p.nInput, append([]float64(nil), inputs...))

	hidden := mat.NewVecDense(p.nHidden, nil)
	hidden.MulVec(p.hiddenW, x)
	hidden.AddVec(hidden, p.hiddenB)
	p.activate(hidden)

	out := mat.NewVecDense(p.nOutput, nil)
	out.MulVec(p.outputW, hidden)
	out.AddVec(out, p.outputB)
	p.activate(out)

	outputs := make([]float64, p.nOutput)
	for i := range outputs {
		outputs[i] = out.AtVec(i)
	}
	return outputs, nil
}

func (p *Policy) activate(v *mat.VecDense) {
	for i := 0; i < v.Len(); i++ {
		v.SetVec(i, p.activation(v.AtVec(i)))
	}
}

// Mutate perturbs every parameter independently: with probability rate it
// adds a sample from N(0, stdev). A rate of 0 leaves the policy untouched.
func (p *Policy) Mutate(rate float64) error {
	if p.disposed {
		return fmt.Errorf("mutate: %w", ErrUseAfterDispose)
	}
	if rate < 0 || rate > 1 || math.IsNaN(rate) {
		return fmt.Errorf("mutate: %w, got %v", ErrInvalidRate, rate)
	}
	if rate == 0 {
		return nil
	}

	perturb := func(v float64) float64 {
		if p.rng.Float64() < rate {
			return v + p.rng.NormFloat64()*p.mutationStdev
		}
		return v
	}
	for _, m := range []*mat.Dense{p.hiddenW, p.outputW} {
		m.Apply(func(_, _ int, v float64) float64 { return perturb(v) }, m)
	}
	for _, b := range []*mat.VecDense{p.hiddenB, p.outputB} {
		for i := 0; i < b.Len(); i++ {
			b.SetVec(i, perturb(b.AtVec(i)))
		}
	}
	return nil
}

// Copy returns a policy with the same topology and parameter values. The copy
// owns its own storage and must be disposed separately.
func (p *Policy) Copy() (*Policy, error) {
	if p.disposed {
		return nil, fmt.Errorf("copy: %w", ErrUseAfterDispose)
	}
	c := &Policy{
		nInput:        p.nInput,
		nHidden:       p.nHidden,
		nOutput:       p.nOutput,
		hiddenW:       mat.DenseCopyOf(p.hiddenW),
		hiddenB:       mat.VecDenseCopyOf(p.hiddenB),
		outputW:       mat.DenseCopyOf(p.outputW),
		outputB:       mat.VecDenseCopyOf(p.outputB),
		activation:    p.activation,
		mutationStdev: p.mutationStdev,
		rng:           p.rng,
	}
	live.Add(1)
	return c, nil
}

// Parameters returns a deep copy of the policy's tensors.
func (p *Policy) Parameters() (Parameters, error) {
	if p.disposed {
		return Parameters{}, fmt.Errorf("parameters: %w", ErrUseAfterDispose)
	}
	return Parameters{
		HiddenWeights: mat.DenseCopyOf(p.hiddenW),
		HiddenBias:    mat.VecDenseCopyOf(p.hiddenB),
		OutputWeights: mat.DenseCopyOf(p.outputW),
		OutputBias:    mat.VecDenseCopyOf(p.outputB),
	}, nil
}

// Dispose releases the parameter storage. The policy cannot be used afterwards.
func (p *Policy) Dispose() error {
	if p.disposed {
		return fmt.Errorf("dispose: %w", ErrUseAfterDispose)
	}
	p.hiddenW, p.hiddenB = nil, nil
	p.outputW, p.outputB = nil, nil
	p.disposed = true
	live.Add(-1)
	return nil
}

// Disposed reports whether Dispose has been called.
func (p *Policy) Disposed() bool {
	return p.disposed
}

// glorotUniform fills m with samples from U(-limit, limit) where
// limit = sqrt(6 / (fanIn + fanOut)).
func glorotUniform(rng *rand.Rand, m *mat.Dense) {
	fanOut, fanIn := m.Dims()
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	m.Apply(func(_, _ int, _ float64) float64 {
		return (rng.Float64()*2 - 1) * limit
	}, m)
}

func checkDense(name string, m *mat.Dense, rows, cols int) error {
	if m == nil {
		return fmt.Errorf("%w: %s missing", ErrShapeMismatch, name)
	}
	if r, c := m.Dims(); r != rows || c != cols {
		return fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrShapeMismatch, name, r, c, rows, cols)
	}
	return nil
}

func checkVec(name string, v *mat.VecDense, n int) error {
	if v == nil {
		return fmt.Errorf("%w: %s missing", ErrShapeMismatch, name)
	}
	if v.Len() != n {
		return fmt.Errorf("%w: %s has length %d, want %d", ErrShapeMismatch, name, v.Len(), n)
	}
	return nil
}
