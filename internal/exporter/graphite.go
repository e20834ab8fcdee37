package exporter

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/filerstat/filerstat/internal/collector"
)

// GraphiteSink pushes each cycle's derived metrics to a carbon endpoint
// using the plaintext line protocol. Delivery is at-most-once: a failed
// connection logs and drops the tick's data, nothing is queued or retried.
type GraphiteSink struct {
	address string
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGraphiteSink creates a graphite sink. prefix defaults to "filerstat".
func NewGraphiteSink(address, prefix string, timeout time.Duration, logger *slog.Logger) *GraphiteSink {
	if prefix == "" {
		prefix = "filerstat"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GraphiteSink{
		address: address,
		prefix:  prefix,
		timeout: timeout,
		logger:  logger,
	}
}

// Name identifies the sink in logs.
func (s *GraphiteSink) Name() string { return "graphite" }

// Push writes one cycle as "prefix.group[.instance].counter value ts"
// lines over a fresh TCP connection.
func (s *GraphiteSink) Push(ctx context.Context, cycle *collector.CycleResult) error {
	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.address)
	if err != nil {
		return fmt.Errorf("graphite connect %s: %w", s.address, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Now().Add(s.timeout))
	}

	w := bufio.NewWriter(conn)
	ts := cycle.Time.Unix()
	lines := 0

	for _, g := range cycle.Groups {
		if g.Err != nil {
			continue
		}
		for _, inst := range g.Instances {
			for _, m := range inst.Metrics {
				if m.IsText || !m.Display {
					continue
				}
				path := s.prefix + "." + graphitePath(g.Group)
				if inst.Instance != "" {
					path += "." + graphitePath(inst.Instance)
				}
				path += "." + graphitePath(m.Name)
				fmt.Fprintf(w, "%s %s %d\n", path, strconv.FormatFloat(m.Value, 'f', -1, 64), ts)
				lines++
			}
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("graphite write %s: %w", s.address, err)
	}

	s.logger.Debug("graphite push complete", "address", s.address, "lines", lines)
	return nil
}

// graphitePath makes a name safe as one dotted path segment.
func graphitePath(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
