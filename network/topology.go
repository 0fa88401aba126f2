package network

import (
	"fmt"
	"strconv"
	"strings"
)

// Topology is the layer count and the neuron count of every layer.
// Size[0] is the input width and Size[L-1] the output width.
type Topology struct {
	L    int
	Size []int
}

// NewTopology builds a Topology from layer widths, input first.
func NewTopology(sizes ...int) Topology {
	return Topology{L: len(sizes), Size: append([]int(nil), sizes...)}
}

func (t Topology) Validate() error {
	if t.L < 2 {
		return fmt.Errorf("%w: need at least 2 layers, got %d", ErrInvalidTopology, t.L)
	}
	if len(t.Size) != t.L {
		return fmt.Errorf("%w: %d layers declared but %d sizes given", ErrInvalidTopology, t.L, len(t.Size))
	}
	for i, n := range t.Size {
		if n <= 0 {
			return fmt.Errorf("%w: layer %d has %d neurons", ErrInvalidTopology, i, n)
		}
	}
	return nil
}

func (t Topology) Equal(o Topology) bool {
	if t.L != o.L || len(t.Size) != len(o.Size) {
		return false
	}
	for i := range t.Size {
		if t.Size[i] != o.Size[i] {
			return false
		}
	}
	return true
}

// Inputs is the width of layer 0.
func (t Topology) Inputs() int {
	return t.Size[0]
}

// Outputs is the width of the last layer.
func (t Topology) Outputs() int {
	return t.Size[t.L-1]
}

// String renders the widths as "2-3-1".
func (t Topology) String() string {
	parts := make([]string, len(t.Size))
	for i, n := range t.Size {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "-")
}

func (t Topology) clone() Topology {
	return Topology{L: t.L, Size: append([]int(nil), t.Size...)}
}
