// Package persist writes and reads network weights and biases.
//
// The binary format (version 1) is
//
//	magic      "FFNW"
//	version    uint32
//	L          uint32
//	sizes      L x uint32
//	activation uint32 length + name bytes
//	weights    L-1 gonum Dense binary blobs (shape header, row-major float64)
//	biases     L-1 gonum VecDense binary blobs
//	checksum   SHA-256 of everything above
//
// All integers are little endian. The JSON format carries the same content.
package persist

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	MagicBytes    = "FFNW"
	FormatVersion = 1
	ChecksumSize  = 32

	maxLayers     = 1 << 12
	maxLayerWidth = 1 << 24
	maxNameLen    = 64
)

var (
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrTopologyMismatch   = errors.New("topology mismatch")
	ErrCorrupt            = errors.New("malformed weight file")
	ErrNonFinite          = errors.New("non-finite parameter cannot be written as JSON")
)

// Format selects the on-disk encoding.
type Format int

const (
	Binary Format = iota
	JSON
)

func (f Format) String() string {
	switch f {
	case Binary:
		return "binary"
	case JSON:
		return "json"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat accepts "binary" (or "wgt") and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binary", "bin", "wgt":
		return Binary, nil
	case "json":
		return JSON, nil
	}
	return 0, fmt.Errorf("unknown weight format %q", s)
}

// FormatFor guesses the format from a file extension: ".json" is JSON,
// anything else binary.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return Binary
}
