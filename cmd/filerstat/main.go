package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/filerstat/filerstat/internal/app"
	"github.com/filerstat/filerstat/internal/collector"
	"github.com/filerstat/filerstat/internal/config"
	"github.com/filerstat/filerstat/internal/exporter"
	"github.com/filerstat/filerstat/internal/monitor"
	"github.com/filerstat/filerstat/internal/render"
	"github.com/filerstat/filerstat/internal/stream"
	"github.com/filerstat/filerstat/internal/threshold"
	"github.com/filerstat/filerstat/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:    "filerstat",
		Usage:   "Derive and report performance metrics from a storage filer",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to configuration file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "run one collection cycle and report check-plugin style",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "host",
						Usage: "override the configured filer host",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "override the whole-invocation deadline",
					},
					&cli.StringSliceFlag{
						Name:    "group",
						Aliases: []string{"g"},
						Usage:   "metric group to collect (repeatable, overrides config)",
					},
					&cli.StringSliceFlag{
						Name:    "instance",
						Aliases: []string{"i"},
						Usage:   "instance name for multi-instance groups (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:    "warning",
						Aliases: []string{"w"},
						Usage:   "warning rule metric=range (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:    "critical",
						Aliases: []string{"C"},
						Usage:   "critical rule metric=range (repeatable)",
					},
				},
				Action: runCheck,
			},
			{
				Name:   "stream",
				Usage:  "run the periodic collection loop, pushing to configured sinks",
				Action: runStream,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// unknownExit emits the check-plugin UNKNOWN line for configuration
// failures that must surface before any collection work begins.
func unknownExit(err error) error {
	fmt.Printf("FILERSTAT %s - %v\n", render.StatusUnknown, err)
	return cli.Exit("", render.StatusUnknown.ExitCode())
}

func runCheck(ctx context.Context, cmd *cli.Command) error {
	logger := setupLogger(cmd.Bool("debug"))

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return unknownExit(err)
	}
	applyCheckOverrides(cfg, cmd)

	application, err := app.New(cfg, logger)
	if err != nil {
		return unknownExit(err)
	}

	evaluator, err := buildEvaluator(cfg, cmd)
	if err != nil {
		return unknownExit(err)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, cfg.Check.Timeout)
	defer cancel()

	done := make(chan *collector.CycleResult, 1)
	go func() {
		done <- application.Manager.RunCycle(ctx)
	}()

	var line string
	var status render.Status
	select {
	case cycle := <-done:
		line, status = renderCheckResult(ctx, cycle, evaluator, time.Since(start))
	case <-ctx.Done():
		line, status = render.Timeout(time.Since(start))
	}

	fmt.Println(line)
	if status != render.StatusOK {
		return cli.Exit("", status.ExitCode())
	}
	return nil
}

// renderCheckResult renders a finished cycle, unless the deadline already
// fired. A cycle racing a cancelled context carries cancellation-induced
// group errors, and those must report as a timeout, not as missing data.
func renderCheckResult(ctx context.Context, cycle *collector.CycleResult, evaluator *threshold.Evaluator, elapsed time.Duration) (string, render.Status) {
	if ctx.Err() != nil {
		return render.Timeout(elapsed)
	}
	return render.Check(cycle, evaluator.Evaluate(cycle.Metrics()))
}

func applyCheckOverrides(cfg *config.Config, cmd *cli.Command) {
	if host := cmd.String("host"); host != "" {
		cfg.Filer.Host = host
	}
	if timeout := cmd.Duration("timeout"); timeout > 0 {
		cfg.Check.Timeout = timeout
	}
	if groups := cmd.StringSlice("group"); len(groups) > 0 {
		instances := cmd.StringSlice("instance")
		cfg.Groups = nil
		for _, name := range groups {
			gc := config.GroupConfig{Name: name}
			if !singletonGroup(name) {
				gc.Instances = instances
			}
			cfg.Groups = append(cfg.Groups, gc)
		}
	}
}

func singletonGroup(name string) bool {
	g, ok := collector.BuiltinGroups()[name]
	return ok && g.Singleton
}

// buildEvaluator merges threshold rules from the config file with the
// repeatable CLI flags; flags add to, not replace, configured rules.
func buildEvaluator(cfg *config.Config, cmd *cli.Command) (*threshold.Evaluator, error) {
	warning, err := mergeRules(cfg.Check.Warning, cmd.StringSlice("warning"))
	if err != nil {
		return nil, err
	}
	critical, err := mergeRules(cfg.Check.Critical, cmd.StringSlice("critical"))
	if err != nil {
		return nil, err
	}
	return threshold.NewEvaluator(warning, critical), nil
}

func mergeRules(configured map[string]string, flags []string) ([]threshold.Rule, error) {
	var rules []threshold.Rule
	for metric, spec := range configured {
		r, err := threshold.ParseRange(spec)
		if err != nil {
			return nil, fmt.Errorf("rule for %s: %w", metric, err)
		}
		rules = append(rules, threshold.Rule{Metric: metric, Range: r})
	}
	flagRules, err := threshold.ParseRules(flags)
	if err != nil {
		return nil, err
	}
	return append(rules, flagRules...), nil
}

func runStream(ctx context.Context, cmd *cli.Command) error {
	logger := setupLogger(cmd.Bool("debug"))

	slog.Info("starting filerstat", "version", version.String(), "config", cmd.String("config"))

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	// Setup graceful shutdown
	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	errChan := make(chan error, 3)

	var sinks []stream.Sink

	if g := cfg.Stream.Graphite; g != nil && g.Enabled {
		sinks = append(sinks, exporter.NewGraphiteSink(g.Address, g.Prefix, g.Timeout, logger))
	}

	if p := cfg.Stream.Prometheus; p != nil && p.Enabled {
		promExporter := exporter.NewPrometheusExporter(p.Port, p.Path, cfg.Filer.Host, logger)
		sinks = append(sinks, promExporter)
		wg.Go(func() {
			if err := promExporter.Start(shutdownCtx); err != nil {
				errChan <- fmt.Errorf("prometheus exporter: %w", err)
			}
		})
	}

	if o := cfg.Stream.OTEL; o != nil && o.Enabled {
		otelSink, err := exporter.NewOTELSink(o, cfg.Filer.Host, logger)
		if err != nil {
			return fmt.Errorf("failed to create otel sink: %w", err)
		}
		sinks = append(sinks, otelSink)
		wg.Go(func() {
			if err := otelSink.Start(shutdownCtx); err != nil {
				errChan <- fmt.Errorf("otel exporter: %w", err)
			}
		})
	}

	if len(sinks) == 0 {
		return fmt.Errorf("stream mode needs at least one enabled sink")
	}

	if cfg.Stream.Monitor.Enabled {
		mon := monitor.New(cfg.Stream.Monitor.Interval, logger)
		if mon != nil {
			mon.Run(shutdownCtx)
			defer mon.Wait()
		}
	}

	runner := stream.NewRunner(clock.New(), cfg.Stream.Interval, application.Manager, sinks, logger)
	wg.Go(func() {
		if err := runner.Run(shutdownCtx); err != nil {
			errChan <- fmt.Errorf("stream runner: %w", err)
		}
	})

	select {
	case err := <-errChan:
		slog.Error("stream component error", "error", err)
		stop()
	case <-shutdownCtx.Done():
		// Graceful shutdown triggered
	}

	wg.Wait()

	slog.Info("shutdown complete")
	return nil
}
