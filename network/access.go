package network

import (
	"fmt"

	"ffnet/activation"

	"gonum.org/v1/gonum/mat"
)

// Topology returns a copy of the layer layout.
func (net *Network) Topology() Topology {
	return net.topo.clone()
}

func (net *Network) Activation() activation.Func {
	return net.f
}

// Transitions is the number of weight matrices, L-1.
func (net *Network) Transitions() int {
	return len(net.weights)
}

func (net *Network) checkTransition(i int) error {
	if i < 0 || i >= len(net.weights) {
		return fmt.Errorf("%w: transition %d of %d", ErrLayerIndex, i, len(net.weights))
	}
	return nil
}

func (net *Network) checkLayer(i int) error {
	if i < 0 || i >= net.topo.L {
		return fmt.Errorf("%w: layer %d of %d", ErrLayerIndex, i, net.topo.L)
	}
	return nil
}

// Weights returns a copy of the matrix mapping layer i to layer i+1.
func (net *Network) Weights(i int) (*mat.Dense, error) {
	if err := net.checkTransition(i); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(net.weights[i]), nil
}

// Bias returns a copy of the bias added to the pre-activation of layer i+1.
func (net *Network) Bias(i int) (*mat.VecDense, error) {
	if err := net.checkTransition(i); err != nil {
		return nil, err
	}
	return mat.VecDenseCopyOf(net.biases[i]), nil
}

// SetWeights overwrites transition i with m, which must be Size[i+1] x Size[i].
func (net *Network) SetWeights(i int, m mat.Matrix) error {
	if err := net.checkTransition(i); err != nil {
		return err
	}
	r, c := m.Dims()
	wr, wc := net.weights[i].Dims()
	if r != wr || c != wc {
		return fmt.Errorf("weights %d: %w: want %dx%d, got %dx%d", i, ErrDimensionMismatch, wr, wc, r, c)
	}
	net.weights[i].Copy(m)
	return nil
}

// SetBias overwrites the bias of transition i.
func (net *Network) SetBias(i int, values []float64) error {
	if err := net.checkTransition(i); err != nil {
		return err
	}
	b := net.biases[i]
	if len(values) != b.Len() {
		return &DimensionError{What: fmt.Sprintf("bias %d", i), Want: b.Len(), Got: len(values)}
	}
	copy(raw(b), values)
	return nil
}

// Activations returns a copy of the values of layer i from the last forward pass.
func (net *Network) Activations(i int) ([]float64, error) {
	if err := net.checkLayer(i); err != nil {
		return nil, err
	}
	return append([]float64(nil), raw(net.layers[i])...), nil
}

// Errors returns a copy of the δ of layer i from the last backward pass.
func (net *Network) Errors(i int) ([]float64, error) {
	if err := net.checkLayer(i); err != nil {
		return nil, err
	}
	return append([]float64(nil), raw(net.errors[i])...), nil
}

// Output returns a copy of the output layer.
func (net *Network) Output() []float64 {
	return append([]float64(nil), raw(net.layers[net.lastIndex()])...)
}

// BiasErrors returns a copy of the flat bias gradient of the last backward pass.
func (net *Network) BiasErrors() []float64 {
	return append([]float64(nil), net.biasErrors...)
}
