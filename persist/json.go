package persist

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"ffnet/network"

	"gonum.org/v1/gonum/mat"
)

const jsonVersion = "1"

// WeightData is one matrix or vector with its shape and row-major data.
type WeightData struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// LayerWeight holds the weights and bias of one layer transition.
type LayerWeight struct {
	Weight *WeightData `json:"weight"`
	Bias   *WeightData `json:"bias"`
}

// ModelWeights is the JSON document written by SaveJSON.
type ModelWeights struct {
	Version    string        `json:"version"`
	Topology   []int         `json:"topology"`
	Activation string        `json:"activation"`
	Layers     []LayerWeight `json:"layers"`
}

func (s *snapshot) modelWeights() *ModelWeights {
	mw := &ModelWeights{
		Version:    jsonVersion,
		Topology:   append([]int(nil), s.topo.Size...),
		Activation: s.activation,
	}
	for i, w := range s.weights {
		r, c := w.Dims()
		b := s.biases[i]
		mw.Layers = append(mw.Layers, LayerWeight{
			Weight: &WeightData{Shape: []int{r, c}, Data: append([]float64(nil), w.RawMatrix().Data...)},
			Bias:   &WeightData{Shape: []int{b.Len()}, Data: append([]float64(nil), b.RawVector().Data...)},
		})
	}
	return mw
}

func (s *snapshot) checkFinite() error {
	for i, w := range s.weights {
		if !allFinite(w.RawMatrix().Data) {
			return fmt.Errorf("%w: weights %d", ErrNonFinite, i)
		}
		if !allFinite(s.biases[i].RawVector().Data) {
			return fmt.Errorf("%w: bias %d", ErrNonFinite, i)
		}
	}
	return nil
}

func allFinite(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (mw *ModelWeights) snapshot() (*snapshot, error) {
	if mw.Version != jsonVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, mw.Version)
	}
	s := &snapshot{
		topo:       network.NewTopology(mw.Topology...),
		activation: mw.Activation,
	}
	for i, l := range mw.Layers {
		if l.Weight == nil || l.Bias == nil {
			return nil, fmt.Errorf("%w: layer %d lacks weight or bias", ErrCorrupt, i)
		}
		if len(l.Weight.Shape) != 2 || l.Weight.Shape[0] <= 0 || l.Weight.Shape[1] <= 0 ||
			len(l.Weight.Data) != l.Weight.Shape[0]*l.Weight.Shape[1] {
			return nil, fmt.Errorf("%w: layer %d weight shape %v with %d values",
				ErrCorrupt, i, l.Weight.Shape, len(l.Weight.Data))
		}
		if len(l.Bias.Shape) != 1 || l.Bias.Shape[0] <= 0 || len(l.Bias.Data) != l.Bias.Shape[0] {
			return nil, fmt.Errorf("%w: layer %d bias shape %v with %d values",
				ErrCorrupt, i, l.Bias.Shape, len(l.Bias.Data))
		}
		s.weights = append(s.weights, mat.NewDense(l.Weight.Shape[0], l.Weight.Shape[1], l.Weight.Data))
		s.biases = append(s.biases, mat.NewVecDense(l.Bias.Shape[0], l.Bias.Data))
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	return s, nil
}

// SaveJSON writes net as an indented JSON document. Values use the shortest
// representation that parses back to the same float64. JSON has no NaN or
// infinity, so a network holding one fails with ErrNonFinite; Save keeps them.
func SaveJSON(w io.Writer, net *network.Network) error {
	s, err := snapshotOf(net)
	if err != nil {
		return err
	}
	if err := s.checkFinite(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.modelWeights()); err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	return nil
}

func decodeJSON(r io.Reader) (*snapshot, error) {
	var mw ModelWeights
	if err := json.NewDecoder(r).Decode(&mw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	return mw.snapshot()
}

// LoadJSON reads a JSON weight document into net.
func LoadJSON(r io.Reader, net *network.Network) error {
	s, err := decodeJSON(r)
	if err != nil {
		return err
	}
	return s.apply(net)
}

// ReadJSON builds a new network from a JSON weight document.
func ReadJSON(r io.Reader) (*network.Network, error) {
	s, err := decodeJSON(r)
	if err != nil {
		return nil, err
	}
	return s.build()
}
