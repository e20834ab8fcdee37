package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/filerstat/filerstat/internal/collector"
	"github.com/filerstat/filerstat/internal/render"
	"github.com/filerstat/filerstat/internal/threshold"
	"github.com/stretchr/testify/assert"
)

func TestRenderCheckResultTimeoutWinsOverDegradedCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cycle finishing just after the deadline carries cancellation-induced
	// group errors; it must still report as a timeout.
	cycle := &collector.CycleResult{
		Time: time.Now(),
		Groups: []collector.GroupResult{
			{Group: "system", Object: "system", Err: errors.New("context canceled")},
		},
	}

	line, status := renderCheckResult(ctx, cycle, threshold.NewEvaluator(nil, nil), 30*time.Second)
	assert.Equal(t, render.StatusUnknown, status)
	assert.Contains(t, line, "timed out")
	assert.NotContains(t, line, "no data")
}

func TestRenderCheckResultLiveContext(t *testing.T) {
	cycle := &collector.CycleResult{
		Time: time.Now(),
		Groups: []collector.GroupResult{
			{Group: "system", Object: "system"},
		},
	}

	line, status := renderCheckResult(context.Background(), cycle, threshold.NewEvaluator(nil, nil), time.Second)
	assert.Equal(t, render.StatusOK, status)
	assert.Contains(t, line, "FILERSTAT OK")
}
