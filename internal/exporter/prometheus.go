package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/filerstat/filerstat/internal/collector"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter serves the latest cycle's derived metrics as gauges
// on a pull endpoint. Push only swaps the cycle under a lock; the scrape
// path builds metrics from whatever cycle is current.
type PrometheusExporter struct {
	addr   string
	path   string
	host   string
	server *http.Server
	logger *slog.Logger

	mu    sync.RWMutex
	cycle *collector.CycleResult

	scrapesTotal prometheus.Counter
}

// NewPrometheusExporter creates the pull endpoint for one monitored filer.
func NewPrometheusExporter(port int, path, host string, logger *slog.Logger) *PrometheusExporter {
	addr := fmt.Sprintf(":%d", port)

	e := &PrometheusExporter{
		addr:   addr,
		path:   path,
		host:   host,
		logger: logger,
		scrapesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filerstat_scrapes_total",
			Help: "Total number of scrape requests",
		}),
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(e.scrapesTotal)
	registry.MustRegister(e)

	mux := http.NewServeMux()
	mux.Handle(path, e.instrumentedHandler(promhttp.HandlerFor(
		registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	)))

	e.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return e
}

// Name identifies the sink in logs.
func (e *PrometheusExporter) Name() string { return "prometheus" }

// Push publishes a cycle for subsequent scrapes.
func (e *PrometheusExporter) Push(ctx context.Context, cycle *collector.CycleResult) error {
	e.mu.Lock()
	e.cycle = cycle
	e.mu.Unlock()
	return nil
}

// instrumentedHandler counts scrape requests.
func (e *PrometheusExporter) instrumentedHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.scrapesTotal.Inc()
		next.ServeHTTP(w, r)
	})
}

// Start begins serving HTTP requests until ctx is cancelled.
func (e *PrometheusExporter) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		e.logger.Info("starting prometheus exporter", "addr", e.addr, "path", e.path)
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return e.Stop()
	}
}

// Stop gracefully stops the exporter.
func (e *PrometheusExporter) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e.logger.Info("shutting down prometheus exporter")
	return e.server.Shutdown(ctx)
}

// Describe sends nothing: metric names depend on the collected cycle, so
// the exporter registers as an unchecked collector.
func (e *PrometheusExporter) Describe(ch chan<- *prometheus.Desc) {}

// Collect converts the current cycle into gauge metrics on each scrape.
func (e *PrometheusExporter) Collect(ch chan<- prometheus.Metric) {
	e.mu.RLock()
	cycle := e.cycle
	e.mu.RUnlock()

	if cycle == nil {
		return
	}

	for _, g := range cycle.Groups {
		for _, inst := range g.Instances {
			for _, m := range inst.Metrics {
				if m.IsText || !m.Display {
					continue
				}
				desc := prometheus.NewDesc(
					promName("filerstat", g.Group, m.Name),
					fmt.Sprintf("%s counter %s", g.Object, m.Name),
					nil,
					prometheus.Labels{"filer": e.host, "instance": inst.Instance},
				)
				ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, m.Value)
			}
		}
	}
}

// promName joins parts into a valid prometheus metric name.
func promName(parts ...string) string {
	name := strings.Join(parts, "_")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
			return r
		default:
			return '_'
		}
	}, name)
}
