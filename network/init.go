package network

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Init selects how weights are filled at construction. Biases always start at zero.
type Init int

const (
	// InitUniform draws from U(-1/sqrt(fanIn), 1/sqrt(fanIn)).
	InitUniform Init = iota
	// InitNormal draws from N(0, 1/sqrt(fanIn)).
	InitNormal
	InitZero
)

func (i Init) String() string {
	switch i {
	case InitUniform:
		return "uniform"
	case InitNormal:
		return "normal"
	case InitZero:
		return "zero"
	}
	return fmt.Sprintf("Init(%d)", int(i))
}

// ParseInit maps "uniform", "normal" or "zero" to an Init. The empty string
// selects InitUniform.
func ParseInit(name string) (Init, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "uniform":
		return InitUniform, nil
	case "normal":
		return InitNormal, nil
	case "zero":
		return InitZero, nil
	}
	return 0, fmt.Errorf("unknown weight init %q", name)
}

func randomArray(size int, fanIn float64, scheme Init, src rand.Source) []float64 {
	data := make([]float64, size)
	bound := 1 / math.Sqrt(fanIn)

	var draw func() float64
	switch scheme {
	case InitUniform:
		draw = distuv.Uniform{Min: -bound, Max: bound, Src: src}.Rand
	case InitNormal:
		draw = distuv.Normal{Mu: 0, Sigma: bound, Src: src}.Rand
	default:
		return data
	}
	for i := range data {
		data[i] = draw()
	}
	return data
}
