package activation

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknown is returned by Lookup for names outside the registry.
var ErrUnknown = errors.New("unknown activation function")

// Func is applied uniformly to every non-input layer of a network.
// Derivative receives the activated value y = Activate(x), not x.
type Func interface {
	Activate(x float64) float64
	Derivative(y float64) float64
	fmt.Stringer
}

var lookup = map[string]Func{
	"sigmoid":  Sigmoid{},
	"tanh":     Tanh{},
	"relu":     ReLU{},
	"identity": Identity{},
}

// Lookup resolves an activation by its String() name, case-insensitively.
func Lookup(name string) (Func, error) {
	f, ok := lookup[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return f, nil
}

// Names lists the registered activation names.
func Names() []string {
	return []string{"sigmoid", "tanh", "relu", "identity"}
}

type Sigmoid struct{}

func (Sigmoid) Activate(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func (Sigmoid) Derivative(y float64) float64 {
	return y * (1 - y)
}

func (Sigmoid) String() string {
	return "sigmoid"
}

type Tanh struct{}

func (Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

func (Tanh) Derivative(y float64) float64 {
	return 1 - y*y
}

func (Tanh) String() string {
	return "tanh"
}

// leak is the slope of ReLU below zero.
const leak = 0.0001

// ReLU is leaky so that neurons pushed below zero still receive a gradient.
type ReLU struct{}

func (ReLU) Activate(x float64) float64 {
	if x < 0 {
		return leak * x
	}
	return x
}

// Derivative is exact for y != 0. At y == 0 the left slope is used.
func (ReLU) Derivative(y float64) float64 {
	if y <= 0 {
		return leak
	}
	return 1
}

func (ReLU) String() string {
	return "relu"
}

// Identity leaves pre-activations untouched, for regression outputs.
type Identity struct{}

func (Identity) Activate(x float64) float64 {
	return x
}

func (Identity) Derivative(float64) float64 {
	return 1
}

func (Identity) String() string {
	return "identity"
}
