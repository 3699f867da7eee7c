package neat

import (
	"fmt"
	"math"
	"sort"
)

// ActivationFunc maps a node's scaled input to its output.
type ActivationFunc func(x float64) float64

// activationFunctions maps the names accepted by the `activation` config key
// to their implementation. Node genes only carry the name; the evaluator
// resolves it through GetActivation.
var activationFunctions = map[string]ActivationFunc{
	"sigmoid":  Sigmoid,
	"tanh":     math.Tanh,
	"relu":     ReLU,
	"identity": Identity,
	"clamped":  Clamped,
	"gaussian": Gaussian,
	"abs":      math.Abs,
	"sin":      math.Sin,
	"exp":      Exp,
	"hat":      Hat,
	"square":   Square,
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationFunc, error) {
	if fn, ok := activationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function: %s", name)
}

// ActivationNames lists the registered activation names in sorted order.
func ActivationNames() []string {
	names := make([]string, 0, len(activationFunctions))
	for name := range activationFunctions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sigmoid is the steepened logistic curve used by classic NEAT (slope 4.9).
// The node's response is applied to the input before this is called.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-4.9*clamp(x, -60.0, 60.0)))
}

// ReLU (Rectified Linear Unit) activation function.
func ReLU(x float64) float64 {
	return math.Max(0, x)
}

// Identity activation function (linear).
func Identity(x float64) float64 {
	return x
}

// Clamped limits the output to [-1, 1].
func Clamped(x float64) float64 {
	return clamp(x, -1.0, 1.0)
}

// Gaussian activation function.
func Gaussian(x float64) float64 {
	return math.Exp(-x * x / 2.0)
}

// Exp clamps its input to avoid overflow.
func Exp(x float64) float64 {
	return math.Exp(clamp(x, -60.0, 60.0))
}

// Hat is a triangular pulse centered at 0.
func Hat(x float64) float64 {
	return math.Max(0.0, 1.0-math.Abs(x))
}

// Square activation function (x^2).
func Square(x float64) float64 {
	return x * x
}
