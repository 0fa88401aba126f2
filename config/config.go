package config

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ffnet/activation"
	"ffnet/network"
	"ffnet/persist"

	"gopkg.in/yaml.v3"
)

// Config holds training configuration
type Config struct {
	Architecture []int   `yaml:"architecture"`
	Activation   string  `yaml:"activation"`
	Init         string  `yaml:"init"`
	Seed         uint64  `yaml:"seed"`
	LearningRate float64 `yaml:"learning_rate"`
	Epochs       int     `yaml:"epochs"`
	WeightsFile  string  `yaml:"weights_file"`
	Format       string  `yaml:"format"`
}

// Default is the configuration used for fields a file leaves out.
func Default() Config {
	return Config{
		Activation:   "sigmoid",
		Init:         "uniform",
		Seed:         1,
		LearningRate: 0.1,
		Epochs:       10,
	}
}

// ParseArchitecture parses architecture string into slice of integers
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.FieldsFunc(archStr, func(r rune) bool {
		return r == ',' || r == '-' || r == ' ' || r == '\t' || r == '\n'
	})
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		arch[i] = n
	}
	return arch, nil
}

// ParseFloats parses comma or space separated numbers, e.g. a CLI input vector.
func ParseFloats(s string) ([]float64, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

// Load reads a configuration file. YAML files (.yaml, .yml) fill a Config on
// top of Default; any other file is a plain topology: the layer count followed
// by that many layer sizes.
func Load(path string) (Config, error) {
	return LoadOnto(path, Default())
}

// LoadOnto is Load with base in place of Default: YAML keys override base
// and a plain topology file only replaces its Architecture.
func LoadOnto(path string, base Config) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	c := base
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		c, err = decodeYAML(f, base)
	default:
		c.Architecture, err = ReadTopology(f)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ReadYAML decodes a YAML configuration on top of Default.
func ReadYAML(r io.Reader) (Config, error) {
	return decodeYAML(r, Default())
}

func decodeYAML(r io.Reader, base Config) (Config, error) {
	c := base
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("decoding yaml: %w", err)
	}
	return c, nil
}

// ReadTopology reads "L size0 size1 ... sizeL-1", whitespace separated.
func ReadTopology(r io.Reader) ([]int, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	var nums []int
	for sc.Scan() {
		n, err := strconv.Atoi(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("parsing topology: %w", err)
		}
		nums = append(nums, n)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return nil, fmt.Errorf("%w: empty topology", network.ErrInvalidTopology)
	}
	if nums[0] != len(nums)-1 {
		return nil, fmt.Errorf("%w: %d layers declared but %d sizes given",
			network.ErrInvalidTopology, nums[0], len(nums)-1)
	}
	return nums[1:], nil
}

// Validate validates training configuration
func (c *Config) Validate() error {
	if err := c.Topology().Validate(); err != nil {
		return err
	}
	if _, err := activation.Lookup(c.Activation); err != nil {
		return err
	}
	if _, err := network.ParseInit(c.Init); err != nil {
		return err
	}
	if !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 1) {
		return fmt.Errorf("%w: %v", network.ErrInvalidLearningRate, c.LearningRate)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive")
	}
	if _, err := c.WeightsFormat(); err != nil {
		return err
	}
	return nil
}

// WeightsFormat is Format when set, otherwise the format implied by the
// extension of WeightsFile.
func (c *Config) WeightsFormat() (persist.Format, error) {
	if c.Format == "" {
		return persist.FormatFor(c.WeightsFile), nil
	}
	return persist.ParseFormat(c.Format)
}

func (c *Config) Topology() network.Topology {
	return network.NewTopology(c.Architecture...)
}

// Network builds an untrained network from the configuration.
func (c *Config) Network() (*network.Network, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	f, _ := activation.Lookup(c.Activation)
	init, _ := network.ParseInit(c.Init)
	return network.New(network.Config{
		Topology:   c.Topology(),
		Activation: f,
		Init:       init,
		Seed:       c.Seed,
	})
}
