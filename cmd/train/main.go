// ffnet-train: trains a feedforward network on a CSV dataset and saves its weights
//
// Usage:
//
//	ffnet-train --arch=2-4-1 --data=xor.csv --epochs=5000 --lr=0.5 --out=xor.wgt
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"ffnet/activation"
	"ffnet/config"
	"ffnet/dataset"
	"ffnet/persist"
	"ffnet/train"

	"github.com/klauspost/cpuid/v2"
)

var (
	configFile   = flag.String("config", "", "Config file (.yaml, or plain topology)")
	dataFile     = flag.String("data", "", "Training CSV: inputs followed by target; XOR when empty")
	arch         = flag.String("arch", "2-4-1", "Layer sizes, e.g. 2-4-1")
	act          = flag.String("act", "sigmoid", "Activation: "+strings.Join(activation.Names(), ", "))
	initScheme   = flag.String("init", "uniform", "Weight init: uniform, normal, zero")
	seed         = flag.Uint64("seed", 1, "Random seed")
	epochs       = flag.Int("epochs", 5000, "Number of training epochs")
	learningRate = flag.Float64("lr", 0.5, "Learning rate")
	outputFile   = flag.String("out", "", "Output weights file")
	format       = flag.String("format", "", "Weights format: binary, json (default from extension)")
	normalize    = flag.Bool("normalize", false, "Standardize input columns")
	verbose      = flag.Bool("verbose", false, "Log every epoch")
)

var xor = dataset.Lines{
	{Inputs: []float64{0, 0}, Target: 0},
	{Inputs: []float64{0, 1}, Target: 1},
	{Inputs: []float64{1, 0}, Target: 1},
	{Inputs: []float64{1, 1}, Target: 0},
}

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger); err != nil {
		logger.Error("training failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	net, err := cfg.Network()
	if err != nil {
		return err
	}

	fmt.Println("ffnet trainer")
	fmt.Printf("CPU: %s (%d cores, AVX2 %v)\n", cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.Supports(cpuid.AVX2))
	fmt.Printf("Epochs: %d, learning rate %.4f, init %s, seed %d\n", cfg.Epochs, cfg.LearningRate, cfg.Init, cfg.Seed)
	net.PrintConfig(os.Stdout)

	lines := xor
	if *dataFile != "" {
		lines, err = dataset.ReadFile(*dataFile, net.Topology().Inputs())
		if err != nil {
			return err
		}
	}
	logger.Info("dataset loaded", "examples", len(lines))
	if *normalize {
		mean, std := lines.MeanStdDev()
		lines = lines.Normalize(mean, std)
		logger.Info("inputs normalized", "mean", mean, "std", std)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tr := train.New(net, train.WithSeed(cfg.Seed), train.WithLogger(logger))
	rep, err := tr.Run(ctx, lines, cfg.Epochs, cfg.LearningRate)
	if err != nil {
		return err
	}
	fmt.Printf("Loss %.6f, accuracy %.2f%%\n", rep.Loss, rep.Accuracy*100)
	if *verbose {
		rep.Timing.Print(os.Stdout)
	}

	if cfg.WeightsFile == "" {
		return nil
	}
	f, err := cfg.WeightsFormat()
	if err != nil {
		return err
	}
	if err := persist.SaveFile(cfg.WeightsFile, net, f); err != nil {
		return err
	}
	logger.Info("weights saved", "path", cfg.WeightsFile, "format", f)
	return nil
}

// loadConfig starts from the flag values, lays the config file over them and
// then applies the flags the user set explicitly.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	cfg.Architecture, _ = config.ParseArchitecture(*arch)
	cfg.Activation = *act
	cfg.Init = *initScheme
	cfg.Seed = *seed
	cfg.Epochs = *epochs
	cfg.LearningRate = *learningRate

	if *configFile != "" {
		fromFile, err := config.LoadOnto(*configFile, cfg)
		if err != nil {
			return cfg, err
		}
		cfg = fromFile
	}

	var err error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "arch":
			cfg.Architecture, err = config.ParseArchitecture(*arch)
		case "act":
			cfg.Activation = *act
		case "init":
			cfg.Init = *initScheme
		case "seed":
			cfg.Seed = *seed
		case "epochs":
			cfg.Epochs = *epochs
		case "lr":
			cfg.LearningRate = *learningRate
		case "out":
			cfg.WeightsFile = *outputFile
		case "format":
			cfg.Format = *format
		}
	})
	if err != nil {
		return cfg, fmt.Errorf("-arch: %w", err)
	}
	return cfg, cfg.Validate()
}
