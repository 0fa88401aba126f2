package train

import (
	"fmt"
	"io"
	"time"
)

// Timing accumulates the time spent in each phase of a training step.
type Timing struct {
	Total    time.Duration
	Forward  time.Duration
	Backward time.Duration
	Update   time.Duration
	Steps    int
}

func (t *Timing) add(o Timing) {
	t.Total += o.Total
	t.Forward += o.Forward
	t.Backward += o.Backward
	t.Update += o.Update
	t.Steps += o.Steps
}

// Print writes a breakdown of the collected timings to w.
func (t Timing) Print(w io.Writer) {
	fmt.Fprintln(w, "=== TIMING STATISTICS ===")
	fmt.Fprintf(w, "Total training time: %v\n", t.Total)
	fmt.Fprintf(w, "Steps completed: %d\n", t.Steps)
	if t.Steps == 0 {
		return
	}
	fmt.Fprintf(w, "Average time per step: %v\n", t.Total/time.Duration(t.Steps))
	fmt.Fprintln(w, "Breakdown by operation:")
	fmt.Fprintf(w, "  Forward pass: %v (%.1f%%)\n", t.Forward, percent(t.Forward, t.Total))
	fmt.Fprintf(w, "  Backward pass: %v (%.1f%%)\n", t.Backward, percent(t.Backward, t.Total))
	fmt.Fprintf(w, "  Weight updates: %v (%.1f%%)\n", t.Update, percent(t.Update, t.Total))
}

func percent(part, total time.Duration) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
