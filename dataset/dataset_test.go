package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const xorCSV = `# a, b, a xor b
0,0,0
0,1,1

1, 0, 1
1,1,0
`

func TestRead(t *testing.T) {
	lines, err := Read(strings.NewReader(xorCSV), 2)
	require.NoError(t, err)
	require.Len(t, lines, 4)
	assert.Equal(t, []float64{1, 0}, lines[2].Inputs)
	assert.Equal(t, 1.0, lines[2].Target)
	assert.Equal(t, 0.0, lines[3].Target)
}

func TestReadWrongWidth(t *testing.T) {
	_, err := Read(strings.NewReader("1,2,3\n4,5\n"), 2)
	var lineErr *LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, 2, lineErr.Line)
	assert.Equal(t, 2, lineErr.Fields)
	assert.Equal(t, 3, lineErr.Expected)
	assert.Contains(t, err.Error(), "at line 2, expected 3 values, got 2")
}

func TestReadBadNumber(t *testing.T) {
	_, err := Read(strings.NewReader("1,x,3\n"), 2)
	var lineErr *LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, 1, lineErr.Line)
	assert.Contains(t, err.Error(), "parsing field 2")
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xor.csv")
	require.NoError(t, os.WriteFile(path, []byte(xorCSV), 0o644))
	lines, err := ReadFile(path, 2)
	require.NoError(t, err)
	assert.Len(t, lines, 4)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"), 2)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	lines := Lines{
		{Inputs: []float64{1, 5}, Target: 0},
		{Inputs: []float64{3, 5}, Target: 1},
	}
	mean, std := lines.MeanStdDev()
	assert.Equal(t, []float64{2, 5}, mean)
	assert.Equal(t, []float64{1, 0}, std)

	norm := lines.Normalize(mean, std)
	assert.Equal(t, []float64{-1, 0}, norm[0].Inputs)
	assert.Equal(t, []float64{1, 0}, norm[1].Inputs)
	assert.Equal(t, 1.0, norm[1].Target)
	// The source is not modified.
	assert.Equal(t, []float64{1, 5}, lines[0].Inputs)

	m, s := Lines(nil).MeanStdDev()
	assert.Nil(t, m)
	assert.Nil(t, s)
}

func TestShuffleIsSeeded(t *testing.T) {
	mk := func() Lines {
		var l Lines
		for i := 0; i < 20; i++ {
			l = append(l, Line{Inputs: []float64{float64(i)}, Target: float64(i)})
		}
		return l
	}
	a, b := mk(), mk()
	a.Shuffle(3)
	b.Shuffle(3)
	assert.Equal(t, a, b)
	assert.NotEqual(t, mk(), a)
	assert.ElementsMatch(t, mk(), a)
}
