package nn

import (
	"fmt"
	"math"
)

// ActivationType defines the type for activation functions.
type ActivationType func(x float64) float64

// ActivationFunctions maps function names to the actual activation functions.
// Every entry is bounded to [0, 1] so policy outputs can be read as decisions.
var ActivationFunctions = map[string]ActivationType{
	"sigmoid":      Sigmoid,
	"hard_sigmoid": HardSigmoid,
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationType, error) {
	if fn, ok := ActivationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function: %s", name)
}

// Sigmoid is the logistic function 1 / (1 + exp(-x)).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// HardSigmoid is the piecewise linear approximation of Sigmoid.
func HardSigmoid(x float64) float64 {
	return clamp(0.2*x+0.5, 0.0, 1.0)
}

// clamp restricts a value to a given range [minVal, maxVal].
func clamp(value, minVal, maxVal float64) float64 {
	return math.Max(minVal, math.Min(value, maxVal))
}
