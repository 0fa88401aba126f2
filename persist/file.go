package persist

import (
	"fmt"
	"os"

	"ffnet/network"
)

// SaveFile writes net to path in the given format, replacing any existing file.
func SaveFile(path string, net *network.Network, format Format) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	switch format {
	case Binary:
		err = Save(f, net)
	case JSON:
		err = SaveJSON(f, net)
	default:
		err = fmt.Errorf("unknown weight format %v", format)
	}
	if err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// LoadFile reads path into net, picking the format from the extension.
func LoadFile(path string, net *network.Network) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if FormatFor(path) == JSON {
		err = LoadJSON(f, net)
	} else {
		err = Load(f, net)
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ReadFile builds a network from path, picking the format from the extension.
func ReadFile(path string) (*network.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var net *network.Network
	if FormatFor(path) == JSON {
		net, err = ReadJSON(f)
	} else {
		net, err = Read(f)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return net, nil
}
