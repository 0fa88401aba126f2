// ffnet-infer: runs a saved network on one input, in the clear or with the
// first layer evaluated under CKKS encryption
//
// Usage:
//
//	ffnet-infer --weights=xor.wgt --input=1,0 --encrypted --dump
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"ffnet/config"
	"ffnet/network"
	"ffnet/persist"
	"ffnet/secure"
)

var (
	weightsFile = flag.String("weights", "", "Weights file")
	format      = flag.String("format", "", "Weights format: binary, json (default from extension)")
	input       = flag.String("input", "", "Comma separated input values")
	encrypted   = flag.Bool("encrypted", false, "Evaluate the first layer on an encrypted input")
	logN        = flag.Int("logN", 13, "Ring dimension log2")
	dump        = flag.Bool("dump", false, "Print every layer after the forward pass")
)

func main() {
	flag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(logger); err != nil {
		logger.Error("inference failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	if *weightsFile == "" {
		return fmt.Errorf("-weights is required")
	}
	net, err := load(*weightsFile)
	if err != nil {
		return err
	}
	net.PrintConfig(os.Stdout)

	values, err := config.ParseFloats(*input)
	if err != nil {
		return fmt.Errorf("-input: %w", err)
	}

	start := time.Now()
	var out float64
	if *encrypted {
		out, err = runEncrypted(logger, net, values)
	} else {
		out, err = runPlain(net, values)
	}
	if err != nil {
		return err
	}
	logger.Info("forward pass finished", "encrypted", *encrypted, "elapsed", time.Since(start))

	if net.Topology().Outputs() > 1 {
		fmt.Printf("Class %d\n", int(out))
	} else {
		fmt.Printf("Output %.6f\n", out)
	}
	if *dump {
		net.PrintValues(os.Stdout, net.Topology().L)
	}
	return nil
}

func load(path string) (*network.Network, error) {
	if *format == "" {
		return persist.ReadFile(path)
	}
	f, err := persist.ParseFormat(*format)
	if err != nil {
		return nil, err
	}
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if f == persist.JSON {
		return persist.ReadJSON(r)
	}
	return persist.Read(r)
}

func runPlain(net *network.Network, values []float64) (float64, error) {
	if err := net.SetInput(values); err != nil {
		return 0, err
	}
	return net.ForwardFeed(), nil
}

// runEncrypted plays both parties in one process: the model owner serves
// the first layer over an in-memory pipe and the data owner finishes locally.
func runEncrypted(logger *slog.Logger, net *network.Network, values []float64) (float64, error) {
	p := secure.DefaultParams()
	p.LogN = *logN
	p.MaxWidth = net.Topology().Inputs()

	start := time.Now()
	hc, err := secure.NewContext(p)
	if err != nil {
		return 0, err
	}
	logger.Info("HE context ready", "logN", p.LogN, "elapsed", time.Since(start))

	w, err := net.Weights(0)
	if err != nil {
		return 0, err
	}
	toServer, fromClient := io.Pipe()
	toClient, fromServer := io.Pipe()
	defer fromServer.Close()

	ctx := context.Background()
	served := make(chan error, 1)
	go func() {
		served <- secure.Serve(ctx, hc, secure.NewProtocol(toServer, fromServer), w)
	}()

	client := secure.NewProtocol(toClient, fromClient)
	out, err := secure.ForwardRemote(ctx, hc, client, 0, net, values)
	if err != nil {
		fromClient.Close()
		return 0, err
	}
	if err := client.SendDone(); err != nil {
		return 0, err
	}
	if err := <-served; err != nil {
		return 0, fmt.Errorf("model owner: %w", err)
	}
	return out, nil
}
