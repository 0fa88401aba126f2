package persist

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"ffnet/activation"
	"ffnet/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func seeded(t *testing.T, seed uint64, act activation.Func, sizes ...int) *network.Network {
	t.Helper()
	net, err := network.New(network.Config{
		Topology:   network.NewTopology(sizes...),
		Activation: act,
		Init:       network.InitNormal,
		Seed:       seed,
	})
	require.NoError(t, err)
	// Non-zero biases so they take part in the round trip.
	for i := 0; i < net.Transitions(); i++ {
		b, _ := net.Bias(i)
		vals := make([]float64, b.Len())
		for j := range vals {
			vals[j] = 0.01*float64(j+1) - 0.5*float64(i)
		}
		require.NoError(t, net.SetBias(i, vals))
	}
	return net
}

func forward(t *testing.T, net *network.Network, input []float64) float64 {
	t.Helper()
	require.NoError(t, net.SetInput(input))
	return net.ForwardFeed()
}

func assertSameParameters(t *testing.T, want, got *network.Network) {
	t.Helper()
	require.True(t, want.Topology().Equal(got.Topology()))
	for i := 0; i < want.Transitions(); i++ {
		ww, _ := want.Weights(i)
		gw, _ := got.Weights(i)
		assert.True(t, mat.Equal(ww, gw), "weights %d", i)
		wb, _ := want.Bias(i)
		gb, _ := got.Bias(i)
		assert.True(t, mat.Equal(wb, gb), "bias %d", i)
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	src := seeded(t, 3, activation.Sigmoid{}, 4, 6, 3, 1)
	input := []float64{0.2, -0.4, 1.1, 0.05}

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, src))
	assert.Equal(t, MagicBytes, buf.String()[:4])

	dst := seeded(t, 99, activation.Sigmoid{}, 4, 6, 3, 1)
	require.NoError(t, Load(bytes.NewReader(buf.Bytes()), dst))
	assertSameParameters(t, src, dst)
	assert.Equal(t, forward(t, src, input), forward(t, dst, input))

	built, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "sigmoid", built.Activation().String())
	assertSameParameters(t, src, built)
}

func TestJSONRoundTrip(t *testing.T) {
	src := seeded(t, 5, activation.Tanh{}, 3, 5, 2)
	input := []float64{0.7, -0.1, 0.3}

	var buf bytes.Buffer
	require.NoError(t, SaveJSON(&buf, src))
	assert.Contains(t, buf.String(), `"activation": "tanh"`)

	dst := seeded(t, 6, activation.Tanh{}, 3, 5, 2)
	require.NoError(t, LoadJSON(bytes.NewReader(buf.Bytes()), dst))
	assertSameParameters(t, src, dst)

	built, err := ReadJSON(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, forward(t, src, input), forward(t, built, input))
}

func TestLoadTopologyMismatchLeavesNetwork(t *testing.T) {
	src := seeded(t, 1, activation.Sigmoid{}, 2, 3, 1)
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, src))

	other := seeded(t, 2, activation.Sigmoid{}, 2, 4, 1)
	before, _ := other.Weights(0)
	err := Load(bytes.NewReader(buf.Bytes()), other)
	assert.ErrorIs(t, err, ErrTopologyMismatch)
	after, _ := other.Weights(0)
	assert.True(t, mat.Equal(before, after))

	relu := seeded(t, 2, activation.ReLU{}, 2, 3, 1)
	assert.ErrorIs(t, Load(bytes.NewReader(buf.Bytes()), relu), ErrTopologyMismatch)
}

func TestBinaryCorruption(t *testing.T) {
	src := seeded(t, 1, activation.Sigmoid{}, 2, 3, 1)
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, src))
	data := buf.Bytes()

	t.Run("magic", func(t *testing.T) {
		bad := append([]byte("NOPE"), data[4:]...)
		_, err := Read(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("version", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[4] = 7
		_, err := Read(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("flipped weight bit", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[len(bad)-ChecksumSize-3] ^= 0x10
		_, err := Read(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Read(bytes.NewReader(data[:len(data)-ChecksumSize-1]))
		assert.Error(t, err)
	})
}

func TestJSONRejectsBadShapes(t *testing.T) {
	doc := `{"version":"1","topology":[2,1],"activation":"sigmoid",
		"layers":[{"weight":{"shape":[1,3],"data":[1,2,3]},"bias":{"shape":[1],"data":[0]}}]}`
	_, err := ReadJSON(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = ReadJSON(strings.NewReader(`{"version":"2"}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = ReadJSON(strings.NewReader("not valid json"))
	assert.Error(t, err)
}

func TestSaveJSONRejectsNonFinite(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		net := seeded(t, 2, activation.Sigmoid{}, 2, 3, 1)
		require.NoError(t, net.SetBias(1, []float64{bad}))

		var buf bytes.Buffer
		err := SaveJSON(&buf, net)
		assert.ErrorIs(t, err, ErrNonFinite)
		assert.Contains(t, err.Error(), "bias 1")
		assert.Zero(t, buf.Len(), "nothing written")

		buf.Reset()
		require.NoError(t, Save(&buf, net), "binary keeps non-finite values")
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := seeded(t, 8, activation.ReLU{}, 3, 4, 2)
	input := []float64{1, 0.5, -2}

	for _, name := range []string{"net.wgt", "net.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, SaveFile(path, src, FormatFor(path)))

		built, err := ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, forward(t, src, input), forward(t, built, input), name)

		dst := seeded(t, 4, activation.ReLU{}, 3, 4, 2)
		require.NoError(t, LoadFile(path, dst))
		assertSameParameters(t, src, dst)
	}

	_, err := ReadFile(filepath.Join(dir, "missing.wgt"))
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)
	f, err = ParseFormat("wgt")
	require.NoError(t, err)
	assert.Equal(t, Binary, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
	assert.Equal(t, Binary, FormatFor("weights.bin"))
}
