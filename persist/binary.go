package persist

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"ffnet/activation"
	"ffnet/network"

	"gonum.org/v1/gonum/mat"
)

// snapshot is the decoded content of a weight file.
type snapshot struct {
	topo       network.Topology
	activation string
	weights    []*mat.Dense
	biases     []*mat.VecDense
}

func snapshotOf(net *network.Network) (*snapshot, error) {
	s := &snapshot{
		topo:       net.Topology(),
		activation: net.Activation().String(),
	}
	for i := 0; i < net.Transitions(); i++ {
		w, err := net.Weights(i)
		if err != nil {
			return nil, err
		}
		b, err := net.Bias(i)
		if err != nil {
			return nil, err
		}
		s.weights = append(s.weights, w)
		s.biases = append(s.biases, b)
	}
	return s, nil
}

// check verifies that every matrix and vector fits the topology.
func (s *snapshot) check() error {
	if err := s.topo.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(s.weights) != s.topo.L-1 || len(s.biases) != s.topo.L-1 {
		return fmt.Errorf("%w: %d weight matrices and %d biases for %d layers",
			ErrCorrupt, len(s.weights), len(s.biases), s.topo.L)
	}
	for i := range s.weights {
		r, c := s.weights[i].Dims()
		if r != s.topo.Size[i+1] || c != s.topo.Size[i] {
			return fmt.Errorf("%w: weights %d are %dx%d, want %dx%d",
				ErrCorrupt, i, r, c, s.topo.Size[i+1], s.topo.Size[i])
		}
		if n := s.biases[i].Len(); n != s.topo.Size[i+1] {
			return fmt.Errorf("%w: bias %d has %d values, want %d", ErrCorrupt, i, n, s.topo.Size[i+1])
		}
	}
	return nil
}

// apply copies the snapshot into net, which must have the same topology and
// activation. net is left untouched on error.
func (s *snapshot) apply(net *network.Network) error {
	if !net.Topology().Equal(s.topo) {
		return fmt.Errorf("%w: file has %s, network has %s", ErrTopologyMismatch, s.topo, net.Topology())
	}
	if got := net.Activation().String(); got != s.activation {
		return fmt.Errorf("%w: file uses %s, network uses %s", ErrTopologyMismatch, s.activation, got)
	}
	for i := range s.weights {
		if err := net.SetWeights(i, s.weights[i]); err != nil {
			return err
		}
		if err := net.SetBias(i, s.biases[i].RawVector().Data); err != nil {
			return err
		}
	}
	return nil
}

// build constructs a fresh network holding the snapshot.
func (s *snapshot) build() (*network.Network, error) {
	f, err := activation.Lookup(s.activation)
	if err != nil {
		return nil, err
	}
	net, err := network.New(network.Config{Topology: s.topo, Activation: f, Init: network.InitZero})
	if err != nil {
		return nil, err
	}
	if err := s.apply(net); err != nil {
		return nil, err
	}
	return net, nil
}

// Save writes net in the binary format.
func Save(w io.Writer, net *network.Network) error {
	s, err := snapshotOf(net)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	h := sha256.New()
	body := io.MultiWriter(bw, h)

	if _, err := io.WriteString(body, MagicBytes); err != nil {
		return fmt.Errorf("writing magic: %w", err)
	}
	header := []uint32{FormatVersion, uint32(s.topo.L)}
	for _, n := range s.topo.Size {
		header = append(header, uint32(n))
	}
	header = append(header, uint32(len(s.activation)))
	if err := binary.Write(body, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := io.WriteString(body, s.activation); err != nil {
		return fmt.Errorf("writing activation: %w", err)
	}
	for i, d := range s.weights {
		if _, err := d.MarshalBinaryTo(body); err != nil {
			return fmt.Errorf("marshalling weights %d: %w", i, err)
		}
	}
	for i, b := range s.biases {
		if _, err := b.MarshalBinaryTo(body); err != nil {
			return fmt.Errorf("marshalling bias %d: %w", i, err)
		}
	}
	if _, err := bw.Write(h.Sum(nil)); err != nil {
		return fmt.Errorf("writing checksum: %w", err)
	}
	return bw.Flush()
}

func decodeBinary(r io.Reader) (*snapshot, error) {
	br := bufio.NewReader(r)
	h := sha256.New()
	body := io.TeeReader(br, h)

	magic := make([]byte, len(MagicBytes))
	if _, err := io.ReadFull(body, magic); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if string(magic) != MagicBytes {
		return nil, ErrInvalidMagic
	}

	var version, layers uint32
	if err := binary.Read(body, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	if err := binary.Read(body, binary.LittleEndian, &layers); err != nil {
		return nil, fmt.Errorf("reading layer count: %w", err)
	}
	if layers < 2 || layers > maxLayers {
		return nil, fmt.Errorf("%w: %d layers", ErrCorrupt, layers)
	}
	sizes := make([]uint32, layers)
	if err := binary.Read(body, binary.LittleEndian, sizes); err != nil {
		return nil, fmt.Errorf("reading layer sizes: %w", err)
	}
	var nameLen uint32
	if err := binary.Read(body, binary.LittleEndian, &nameLen); err != nil {
		return nil, fmt.Errorf("reading activation: %w", err)
	}
	if nameLen > maxNameLen {
		return nil, fmt.Errorf("%w: activation name of %d bytes", ErrCorrupt, nameLen)
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(body, name); err != nil {
		return nil, fmt.Errorf("reading activation: %w", err)
	}

	s := &snapshot{activation: string(name)}
	size := make([]int, layers)
	for i, n := range sizes {
		if n == 0 || n > maxLayerWidth {
			return nil, fmt.Errorf("%w: layer %d has %d neurons", ErrCorrupt, i, n)
		}
		size[i] = int(n)
	}
	s.topo = network.NewTopology(size...)

	for i := 0; i < s.topo.L-1; i++ {
		var d mat.Dense
		if _, err := d.UnmarshalBinaryFrom(body); err != nil {
			return nil, fmt.Errorf("unmarshalling weights %d: %w", i, err)
		}
		s.weights = append(s.weights, &d)
	}
	for i := 0; i < s.topo.L-1; i++ {
		var v mat.VecDense
		if _, err := v.UnmarshalBinaryFrom(body); err != nil {
			return nil, fmt.Errorf("unmarshalling bias %d: %w", i, err)
		}
		s.biases = append(s.biases, &v)
	}

	var stored [ChecksumSize]byte
	if _, err := io.ReadFull(br, stored[:]); err != nil {
		return nil, fmt.Errorf("reading checksum: %w", err)
	}
	var computed [ChecksumSize]byte
	copy(computed[:], h.Sum(nil))
	if computed != stored {
		return nil, ErrChecksumMismatch
	}

	if err := s.check(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads a binary weight file into net. The file must describe the same
// topology and activation; net is unchanged when Load fails.
func Load(r io.Reader, net *network.Network) error {
	s, err := decodeBinary(r)
	if err != nil {
		return err
	}
	return s.apply(net)
}

// Read builds a new network from a binary weight file.
func Read(r io.Reader) (*network.Network, error) {
	s, err := decodeBinary(r)
	if err != nil {
		return nil, err
	}
	return s.build()
}
