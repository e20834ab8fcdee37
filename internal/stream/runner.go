package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/filerstat/filerstat/internal/collector"
)

// Sink receives one cycle's derived metrics. Push failures are logged and
// the tick's data is dropped; delivery is at-most-once per tick.
type Sink interface {
	Name() string
	Push(ctx context.Context, cycle *collector.CycleResult) error
}

// Cycler runs one full collect-and-derive pass per call.
type Cycler interface {
	RunCycle(ctx context.Context) *collector.CycleResult
}

// Runner drives streaming mode: a single-threaded tick loop that performs
// one full collect-derive-push pass per interval. Ticks never overlap; a
// cycle that runs long simply delays the next tick.
type Runner struct {
	clock    clock.Clock
	interval time.Duration
	cycler   Cycler
	sinks    []Sink
	logger   *slog.Logger
}

// NewRunner creates a streaming runner. The clock is injectable so tests
// can drive ticks without wall-clock delays.
func NewRunner(clk clock.Clock, interval time.Duration, cycler Cycler, sinks []Sink, logger *slog.Logger) *Runner {
	return &Runner{
		clock:    clk,
		interval: interval,
		cycler:   cycler,
		sinks:    sinks,
		logger:   logger,
	}
}

// Run executes ticks until ctx is cancelled. The first cycle runs
// immediately rather than waiting out the first interval.
func (r *Runner) Run(ctx context.Context) error {
	ticker := r.clock.Ticker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stream runner shutdown complete")
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := r.clock.Now()
	cycle := r.cycler.RunCycle(ctx)

	for _, s := range r.sinks {
		if err := s.Push(ctx, cycle); err != nil {
			r.logger.Warn("sink push failed, tick data dropped",
				"sink", s.Name(), "error", err)
		}
	}

	r.logger.Debug("tick complete",
		"groups", len(cycle.Groups),
		"failed", cycle.Failed(),
		"elapsed", r.clock.Since(start))
}
