package network

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTopology     = errors.New("invalid topology")
	ErrDimensionMismatch   = errors.New("dimension mismatch")
	ErrEmptyInput          = errors.New("empty input")
	ErrInvalidLearningRate = errors.New("learning rate must be positive and finite")
	ErrLayerIndex          = errors.New("layer index out of range")
)

// DimensionError reports a slice or matrix whose shape does not fit the
// topology. It matches ErrDimensionMismatch under errors.Is.
type DimensionError struct {
	What string
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: expected %d values, got %d", e.What, e.Want, e.Got)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}
