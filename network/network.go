// Package network is a fully connected feedforward network trained one example
// at a time with plain gradient descent.
//
// A training step is always the sequence
//
//	SetInput -> ForwardFeed -> BackPropagation -> WeightsUpdater
//
// All buffers are allocated in New and overwritten on every call. A Network is
// not safe for concurrent use.
package network

import (
	"fmt"
	"math"

	"ffnet/activation"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type Config struct {
	Topology Topology
	// Activation defaults to activation.Sigmoid.
	Activation activation.Func
	Init       Init
	Seed       uint64
}

type Network struct {
	topo Topology
	f    activation.Func

	weights []*mat.Dense    // weights[i] is Size[i+1] x Size[i]
	biases  []*mat.VecDense // biases[i] has Size[i+1] entries

	layers       []*mat.VecDense // activated values, layers[0] is the input
	weightedSums []*mat.VecDense // pre-activations of layers[i+1]
	errors       []*mat.VecDense // δ per neuron, errors[0] stays zero

	// biasErrors holds the δ of every non-input neuron, layer after layer.
	biasErrors []float64
}

// New allocates a network for c.Topology and fills the weights according to
// c.Init, seeded with c.Seed.
func New(c Config) (*Network, error) {
	if err := c.Topology.Validate(); err != nil {
		return nil, err
	}
	if c.Activation == nil {
		c.Activation = activation.Sigmoid{}
	}
	switch c.Init {
	case InitUniform, InitNormal, InitZero:
	default:
		return nil, fmt.Errorf("unknown weight init %v", c.Init)
	}

	topo := c.Topology.clone()
	transitions := topo.L - 1
	net := &Network{
		topo:         topo,
		f:            c.Activation,
		weights:      make([]*mat.Dense, transitions),
		biases:       make([]*mat.VecDense, transitions),
		layers:       make([]*mat.VecDense, topo.L),
		weightedSums: make([]*mat.VecDense, transitions),
		errors:       make([]*mat.VecDense, topo.L),
	}

	src := rand.NewSource(c.Seed)
	for i := 0; i < transitions; i++ {
		rows, cols := topo.Size[i+1], topo.Size[i]
		net.weights[i] = mat.NewDense(rows, cols, randomArray(rows*cols, float64(cols), c.Init, src))
		net.biases[i] = mat.NewVecDense(rows, nil)
		net.weightedSums[i] = mat.NewVecDense(rows, nil)
	}
	hidden := 0
	for i, n := range topo.Size {
		net.layers[i] = mat.NewVecDense(n, nil)
		net.errors[i] = mat.NewVecDense(n, nil)
		if i > 0 {
			hidden += n
		}
	}
	net.biasErrors = make([]float64, hidden)

	return net, nil
}

func (net *Network) lastIndex() int {
	return net.topo.L - 1
}

// SetInput copies values into the input layer. On a width mismatch the
// previous input is kept.
func (net *Network) SetInput(values []float64) error {
	if len(values) != net.topo.Size[0] {
		return &DimensionError{What: "input", Want: net.topo.Size[0], Got: len(values)}
	}
	copy(raw(net.layers[0]), values)
	return nil
}

// ForwardFeed propagates the current input through every layer, applying the
// activation to the output layer too. A single-neuron output layer returns its
// value; wider output layers return the index of the largest activation.
func (net *Network) ForwardFeed() float64 {
	net.propagate(0)
	return net.result()
}

// ForwardFeedFrom loads values as the activations of layer and propagates the
// remaining transitions. ForwardFeedFrom(0, x) is SetInput(x) followed by
// ForwardFeed.
func (net *Network) ForwardFeedFrom(layer int, values []float64) (float64, error) {
	if layer < 0 || layer >= net.topo.L {
		return 0, fmt.Errorf("%w: layer %d of %d", ErrLayerIndex, layer, net.topo.L)
	}
	if len(values) != net.topo.Size[layer] {
		return 0, &DimensionError{What: fmt.Sprintf("layer %d", layer), Want: net.topo.Size[layer], Got: len(values)}
	}
	copy(raw(net.layers[layer]), values)
	net.propagate(layer)
	return net.result(), nil
}

func (net *Network) propagate(from int) {
	for i := from; i < len(net.weights); i++ {
		z := net.weightedSums[i]
		z.MulVec(net.weights[i], net.layers[i])
		z.AddVec(z, net.biases[i])

		next := raw(net.layers[i+1])
		for j, v := range raw(z) {
			next[j] = net.f.Activate(v)
		}
	}
}

func (net *Network) result() float64 {
	out := raw(net.layers[net.lastIndex()])
	if len(out) == 1 {
		return out[0]
	}
	return float64(floats.MaxIdx(out))
}

// SearchMaxIndex returns the index of the first occurrence of the largest value.
func SearchMaxIndex(values []float64) (int, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}
	return floats.MaxIdx(values), nil
}

// target is the expected value of output neuron k. A single output is
// regressed onto expect directly; wider outputs treat expect as a class index
// with a one-hot target.
func (net *Network) target(k int, expect float64) float64 {
	if net.topo.Outputs() == 1 {
		return expect
	}
	if k == int(expect) {
		return 1
	}
	return 0
}

// BackPropagation computes δ for layers 1..L-1 against expect, see target for
// how expect is read. It relies on the activations of the last ForwardFeed.
func (net *Network) BackPropagation(expect float64) {
	last := net.lastIndex()
	out := raw(net.layers[last])
	delta := raw(net.errors[last])
	for k, a := range out {
		delta[k] = (a - net.target(k, expect)) * net.f.Derivative(a)
	}
	net.backward()
}

// BackPropagationVector is BackPropagation with one explicit target per
// output neuron.
func (net *Network) BackPropagationVector(target []float64) error {
	last := net.lastIndex()
	if len(target) != net.topo.Size[last] {
		return &DimensionError{What: "target", Want: net.topo.Size[last], Got: len(target)}
	}
	out := raw(net.layers[last])
	delta := raw(net.errors[last])
	for k, a := range out {
		delta[k] = (a - target[k]) * net.f.Derivative(a)
	}
	net.backward()
	return nil
}

func (net *Network) backward() {
	for i := net.lastIndex() - 1; i > 0; i-- {
		e := net.errors[i]
		e.MulVec(net.weights[i].T(), net.errors[i+1])

		a := raw(net.layers[i])
		d := raw(e)
		for j := range d {
			d[j] *= net.f.Derivative(a[j])
		}
	}
	net.errors[0].Zero()

	off := 0
	for i := 1; i < net.topo.L; i++ {
		off += copy(net.biasErrors[off:], raw(net.errors[i]))
	}
}

// WeightsUpdater applies one gradient descent step with the δ of the last
// BackPropagation. Nothing is changed when lr is rejected.
func (net *Network) WeightsUpdater(lr float64) error {
	if !(lr > 0) || math.IsInf(lr, 1) {
		return fmt.Errorf("%w: %v", ErrInvalidLearningRate, lr)
	}

	off := 0
	for i, w := range net.weights {
		w.RankOne(w, -lr, net.errors[i+1], net.layers[i])

		b := net.biases[i]
		n := b.Len()
		b.AddScaledVec(b, -lr, mat.NewVecDense(n, net.biasErrors[off:off+n]))
		off += n
	}
	return nil
}

// SquaredError is ½·Σ(a−t)² over the output layer, with targets read as in
// BackPropagation.
func (net *Network) SquaredError(expect float64) float64 {
	var sum float64
	for k, a := range raw(net.layers[net.lastIndex()]) {
		d := a - net.target(k, expect)
		sum += d * d
	}
	return sum / 2
}

func raw(v *mat.VecDense) []float64 {
	return v.RawVector().Data
}
