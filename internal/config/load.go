package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v4"
)

// Load reads and parses a YAML configuration file, applying defaults and
// validating consistency before returning.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Filer.Timeout <= 0 {
		cfg.Filer.Timeout = DefaultFilerTimeout
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = filepath.Join(os.TempDir(), "filerstat")
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry.Attempts = DefaultRetryAttempts
	}
	if cfg.Retry.Delay <= 0 {
		cfg.Retry.Delay = DefaultRetryDelay
	}
	if len(cfg.Groups) == 0 {
		cfg.Groups = []GroupConfig{{Name: "system"}}
	}
	if cfg.Check.Timeout <= 0 {
		cfg.Check.Timeout = DefaultCheckTimeout
	}
	if cfg.Stream.Interval <= 0 {
		cfg.Stream.Interval = DefaultStreamInterval
	}
	if cfg.Stream.Monitor.Interval <= 0 {
		cfg.Stream.Monitor.Interval = DefaultMonitorInterval
	}
	if p := cfg.Stream.Prometheus; p != nil {
		if p.Port == 0 {
			p.Port = DefaultPrometheusPort
		}
		if p.Path == "" {
			p.Path = DefaultPrometheusPath
		}
	}
	if o := cfg.Stream.OTEL; o != nil {
		if o.Protocol == "" {
			o.Protocol = DefaultOTELProtocol
		}
		if o.Interval <= 0 {
			o.Interval = cfg.Stream.Interval
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Filer.Host == "" {
		return fmt.Errorf("filer host must be set")
	}
	if cfg.Filer.User == "" {
		return fmt.Errorf("filer user must be set")
	}

	for _, g := range cfg.Groups {
		if g.Name == "" {
			return fmt.Errorf("metric group without a name")
		}
	}

	if g := cfg.Stream.Graphite; g != nil && g.Enabled && g.Address == "" {
		return fmt.Errorf("graphite sink enabled without an address")
	}
	if p := cfg.Stream.Prometheus; p != nil && p.Enabled {
		if p.Port <= 0 || p.Port > 65535 {
			return fmt.Errorf("invalid prometheus port: %d", p.Port)
		}
		if !strings.HasPrefix(p.Path, "/") {
			return fmt.Errorf("prometheus path %q must start with /", p.Path)
		}
	}
	if o := cfg.Stream.OTEL; o != nil && o.Enabled {
		if o.Endpoint == "" {
			return fmt.Errorf("otel sink enabled without an endpoint")
		}
		switch o.Protocol {
		case "grpc", "http":
		default:
			return fmt.Errorf("invalid otel protocol %q (must be grpc or http)", o.Protocol)
		}
	}

	return nil
}
