package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/filerstat/filerstat/internal/collector"
	"github.com/filerstat/filerstat/internal/threshold"
)

// Status is the check-report outcome, ordered by severity.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusCritical
	StatusUnknown
)

// String returns the conventional upper-case status label.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "WARNING"
	case StatusCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ExitCode maps the status to the check-plugin process exit code.
func (s Status) ExitCode() int { return int(s) }

// Check renders one cycle plus its threshold outcome as a single
// status line followed by a |-delimited performance-data block.
func Check(cycle *collector.CycleResult, outcome threshold.Outcome) (string, Status) {
	status := StatusOK
	var reasons []string

	if failed := cycle.Failed(); len(failed) > 0 {
		status = StatusCritical
		reasons = append(reasons, fmt.Sprintf("no data from [%s]", strings.Join(failed, ", ")))
	}
	if len(outcome.Criticals) > 0 {
		status = StatusCritical
		reasons = append(reasons, outcome.Criticals...)
	}
	if len(outcome.Warnings) > 0 {
		if status < StatusWarning {
			status = StatusWarning
		}
		reasons = append(reasons, outcome.Warnings...)
	}

	metrics := cycle.Metrics()
	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("%d metrics from %d groups", len(metrics), len(cycle.Groups)))
	}

	var perfdata []string
	for _, m := range metrics {
		if m.IsText || !m.Display {
			continue
		}
		perfdata = append(perfdata,
			m.Name+"="+strconv.FormatFloat(m.Value, 'f', -1, 64)+m.Unit)
	}

	line := fmt.Sprintf("FILERSTAT %s - %s", status, strings.Join(reasons, "; "))
	if len(perfdata) > 0 {
		line += " | " + strings.Join(perfdata, " ")
	}
	return line, status
}

// Timeout renders the status line for an invocation that hit its global
// deadline before completing.
func Timeout(elapsed time.Duration) (string, Status) {
	return fmt.Sprintf("FILERSTAT UNKNOWN - check timed out after %s", elapsed.Round(time.Millisecond)),
		StatusUnknown
}
