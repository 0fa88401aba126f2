package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

// Line is one example: the input features and the expected value, which is
// a class index for classifiers and the regression target otherwise.
type Line struct {
	Inputs []float64
	Target float64
}

type Lines []Line

// LineError reports a malformed record.
type LineError struct {
	Line     int
	Fields   int
	Expected int
	Err      error
}

func (e *LineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("at line %d, expected %d values, got %d", e.Line, e.Expected, e.Fields)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Read parses CSV records of inputs features followed by one target. Blank
// lines and lines starting with '#' are skipped.
func Read(r io.Reader, inputs int) (Lines, error) {
	if inputs <= 0 {
		return nil, fmt.Errorf("input width must be positive, got %d", inputs)
	}
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var lines Lines
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return lines, fmt.Errorf("reading record: %w", err)
		}
		lineNum, _ := cr.FieldPos(0)
		if len(record) != inputs+1 {
			return lines, &LineError{Line: lineNum, Fields: len(record), Expected: inputs + 1}
		}

		line := Line{Inputs: make([]float64, inputs)}
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return lines, &LineError{Line: lineNum, Err: fmt.Errorf("parsing field %d: %w", i+1, err)}
			}
			if i < inputs {
				line.Inputs[i] = v
			} else {
				line.Target = v
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string, inputs int) (Lines, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines, err := Read(f, inputs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lines, nil
}

// MeanStdDev returns the population mean and standard deviation of every
// input column.
func (lines Lines) MeanStdDev() (mean, std []float64) {
	if len(lines) == 0 {
		return nil, nil
	}
	width := len(lines[0].Inputs)
	mean = make([]float64, width)
	std = make([]float64, width)
	column := make([]float64, len(lines))
	for j := 0; j < width; j++ {
		for i, line := range lines {
			column[i] = line.Inputs[j]
		}
		mean[j], std[j] = stat.PopMeanStdDev(column, nil)
	}
	return mean, std
}

// Normalize returns a copy of lines with every input column shifted by mean
// and scaled by std. Columns with zero deviation are only shifted.
func (lines Lines) Normalize(mean, std []float64) Lines {
	out := make(Lines, len(lines))
	for i, line := range lines {
		inputs := make([]float64, len(line.Inputs))
		for j, x := range line.Inputs {
			inputs[j] = x - mean[j]
			if std[j] != 0 {
				inputs[j] /= std[j]
			}
		}
		out[i] = Line{Inputs: inputs, Target: line.Target}
	}
	return out
}

// Shuffle permutes lines in place with a generator seeded by seed.
func (lines Lines) Shuffle(seed uint64) {
	rnd := rand.New(rand.NewSource(seed))
	rnd.Shuffle(len(lines), func(i, j int) {
		lines[i], lines[j] = lines[j], lines[i]
	})
}
