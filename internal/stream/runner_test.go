package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/filerstat/filerstat/internal/collector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCycler struct {
	mu     sync.Mutex
	cycles int
}

func (f *fakeCycler) RunCycle(ctx context.Context) *collector.CycleResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycles++
	return &collector.CycleResult{Time: time.Unix(int64(f.cycles), 0)}
}

func (f *fakeCycler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cycles
}

type recordingSink struct {
	mu     sync.Mutex
	pushes []*collector.CycleResult
	err    error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Push(ctx context.Context, cycle *collector.CycleResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushes = append(s.pushes, cycle)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pushes)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, time.Millisecond)
}

func TestRunnerTicks(t *testing.T) {
	mock := clock.NewMock()
	cycler := &fakeCycler{}
	sink := &recordingSink{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRunner(mock, time.Minute, cycler, []Sink{sink}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// First cycle runs immediately, before the first interval elapses.
	waitFor(t, func() bool { return cycler.count() == 1 })

	mock.Add(time.Minute)
	waitFor(t, func() bool { return cycler.count() == 2 })

	mock.Add(time.Minute)
	waitFor(t, func() bool { return cycler.count() == 3 })

	assert.Equal(t, 3, sink.count())

	cancel()
	require.NoError(t, <-done)
}

func TestRunnerSinkFailureDropsTick(t *testing.T) {
	mock := clock.NewMock()
	cycler := &fakeCycler{}
	failing := &recordingSink{err: errors.New("connection refused")}
	healthy := &recordingSink{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRunner(mock, time.Minute, cycler, []Sink{failing, healthy}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	waitFor(t, func() bool { return healthy.count() == 1 })

	// A failing sink neither stops the loop nor the other sinks.
	mock.Add(time.Minute)
	waitFor(t, func() bool { return healthy.count() == 2 })
	assert.Equal(t, 2, failing.count())

	cancel()
	require.NoError(t, <-done)
}
