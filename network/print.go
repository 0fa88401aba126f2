package network

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"
)

// PrintConfig writes the layer layout and activation to w.
func (net *Network) PrintConfig(w io.Writer) {
	fmt.Fprintf(w, "Network: %d layers, activation %s\n", net.topo.L, net.f)
	for i, n := range net.topo.Size {
		role := ""
		switch i {
		case 0:
			role = " (input)"
		case net.lastIndex():
			role = " (output)"
		}
		fmt.Fprintf(w, "  layer %d: %d neurons%s\n", i, n, role)
	}
}

// PrintValues writes the activations of the first layers layers to w.
func (net *Network) PrintValues(w io.Writer, layers int) {
	if layers > net.topo.L {
		layers = net.topo.L
	}
	for i := 0; i < layers; i++ {
		fmt.Fprintf(w, "layer %d: %v\n", i, mat.Formatted(net.layers[i].T(), mat.Squeeze()))
	}
}
