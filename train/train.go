// Package train drives a network.Network over a dataset with per-example
// gradient descent.
package train

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"ffnet/dataset"
	"ffnet/network"
)

type Trainer struct {
	net     *network.Network
	seed    uint64
	shuffle bool
	logger  *slog.Logger
}

type Option func(*Trainer)

// WithSeed sets the seed of the per-epoch shuffle.
func WithSeed(seed uint64) Option {
	return func(t *Trainer) { t.seed = seed }
}

// WithShuffle enables or disables reordering the examples every epoch.
func WithShuffle(on bool) Option {
	return func(t *Trainer) { t.shuffle = on }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

func New(net *network.Network, opts ...Option) *Trainer {
	t := &Trainer{
		net:     net,
		seed:    1,
		shuffle: true,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Report holds the loss and accuracy of the last epoch of a Run and the
// timings of all of them.
type Report struct {
	Epochs   int
	Loss     float64 // mean of network.SquaredError per example
	Accuracy float64
	Timing   Timing
}

// Run trains for epochs passes over lines. Loss and accuracy of each epoch
// are measured on the outputs seen before each update. The context is checked
// between examples.
func (t *Trainer) Run(ctx context.Context, lines dataset.Lines, epochs int, lr float64) (Report, error) {
	var rep Report
	if len(lines) == 0 {
		return rep, network.ErrEmptyInput
	}
	if epochs <= 0 {
		return rep, fmt.Errorf("epochs must be positive, got %d", epochs)
	}
	if !(lr > 0) || math.IsInf(lr, 1) {
		return rep, fmt.Errorf("%w: %v", network.ErrInvalidLearningRate, lr)
	}

	order := append(dataset.Lines(nil), lines...)
	for epoch := 1; epoch <= epochs; epoch++ {
		if t.shuffle {
			order.Shuffle(t.seed + uint64(epoch))
		}
		var (
			loss    float64
			correct int
			timing  Timing
		)
		start := time.Now()
		for i, line := range order {
			if err := ctx.Err(); err != nil {
				return rep, fmt.Errorf("epoch %d: %w", epoch, err)
			}
			step, err := t.step(line, lr)
			if err != nil {
				return rep, fmt.Errorf("epoch %d, example %d: %w", epoch, i, err)
			}
			loss += step.loss
			if step.hit {
				correct++
			}
			timing.add(step.timing)
		}
		timing.Total = time.Since(start)

		rep.Epochs = epoch
		rep.Loss = loss / float64(len(order))
		rep.Accuracy = float64(correct) / float64(len(order))
		rep.Timing.add(timing)

		t.logger.Debug("epoch finished",
			"epoch", epoch,
			"loss", rep.Loss,
			"accuracy", rep.Accuracy,
			"forward_us", DurationUS(timing.Forward),
			"backward_us", DurationUS(timing.Backward),
		)
	}
	t.logger.Info("training finished", "epochs", rep.Epochs, "loss", rep.Loss, "accuracy", rep.Accuracy, "elapsed", rep.Timing.Total)
	return rep, nil
}

type stepResult struct {
	loss   float64
	hit    bool
	timing Timing
}

func (t *Trainer) step(line dataset.Line, lr float64) (stepResult, error) {
	var r stepResult
	if err := t.net.SetInput(line.Inputs); err != nil {
		return r, err
	}

	start := time.Now()
	out := t.net.ForwardFeed()
	fwd := time.Now()
	r.loss = t.net.SquaredError(line.Target)
	r.hit = t.correct(out, line.Target)

	t.net.BackPropagation(line.Target)
	bwd := time.Now()
	if err := t.net.WeightsUpdater(lr); err != nil {
		return r, err
	}
	end := time.Now()

	r.timing = Timing{
		Forward:  fwd.Sub(start),
		Backward: bwd.Sub(fwd),
		Update:   end.Sub(bwd),
		Steps:    1,
	}
	return r, nil
}

// correct reports whether a ForwardFeed result matches target: the class
// index for wide outputs, within 0.5 for a single output.
func (t *Trainer) correct(out, target float64) bool {
	if t.net.Topology().Outputs() > 1 {
		return int(out) == int(target)
	}
	return math.Abs(out-target) < 0.5
}

// Evaluate runs a forward pass over every line without updating the network
// and returns the mean squared error and the accuracy.
func (t *Trainer) Evaluate(lines dataset.Lines) (loss, accuracy float64, err error) {
	if len(lines) == 0 {
		return 0, 0, network.ErrEmptyInput
	}
	correct := 0
	for i, line := range lines {
		if err := t.net.SetInput(line.Inputs); err != nil {
			return 0, 0, fmt.Errorf("example %d: %w", i, err)
		}
		out := t.net.ForwardFeed()
		loss += t.net.SquaredError(line.Target)
		if t.correct(out, line.Target) {
			correct++
		}
	}
	n := float64(len(lines))
	return loss / n, float64(correct) / n, nil
}
