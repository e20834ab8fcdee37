package config

import "time"

const (
	// Transient session drops dominate filer API failures, so retries are
	// a few quick attempts with a short fixed backoff.
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 2 * time.Second

	// Stream defaults
	DefaultStreamInterval  = 60 * time.Second
	DefaultMonitorInterval = 30 * time.Second

	// Prometheus defaults
	DefaultPrometheusPort = 9109
	DefaultPrometheusPath = "/metrics"

	// OTEL defaults
	DefaultOTELProtocol = "http"

	// Check defaults
	DefaultCheckTimeout = 30 * time.Second

	// Filer defaults
	DefaultFilerTimeout = 15 * time.Second
)

// Config holds the complete application configuration.
type Config struct {
	Filer  FilerConfig   `yaml:"filer"`
	Cache  CacheConfig   `yaml:"cache"`
	Retry  RetryConfig   `yaml:"retry"`
	Groups []GroupConfig `yaml:"groups"`
	Check  CheckConfig   `yaml:"check"`
	Stream StreamConfig  `yaml:"stream"`
}

// FilerConfig defines the monitored filer's API endpoint.
type FilerConfig struct {
	Host          string        `yaml:"host"`
	User          string        `yaml:"user"`
	Password      string        `yaml:"password"`
	Timeout       time.Duration `yaml:"timeout"`
	TLSSkipVerify bool          `yaml:"tls_skip_verify"`
}

// CacheConfig locates the metadata and snapshot cache files.
type CacheConfig struct {
	Dir string `yaml:"dir"`
}

// RetryConfig bounds API retries.
type RetryConfig struct {
	Attempts uint          `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

// GroupConfig selects one metric group and, for multi-instance object
// types, the instances to collect (empty means all).
type GroupConfig struct {
	Name      string   `yaml:"name"`
	Instances []string `yaml:"instances,omitempty"`
}

// CheckConfig holds check-report mode defaults; CLI flags override them.
type CheckConfig struct {
	Timeout  time.Duration     `yaml:"timeout"`
	Warning  map[string]string `yaml:"warning,omitempty"`
	Critical map[string]string `yaml:"critical,omitempty"`
}

// StreamConfig defines streaming mode and its sinks.
type StreamConfig struct {
	Interval   time.Duration     `yaml:"interval"`
	Graphite   *GraphiteConfig   `yaml:"graphite,omitempty"`
	Prometheus *PrometheusConfig `yaml:"prometheus,omitempty"`
	OTEL       *OTELConfig       `yaml:"otel,omitempty"`
	Monitor    MonitorConfig     `yaml:"monitor"`
}

// GraphiteConfig defines the line-protocol push sink.
type GraphiteConfig struct {
	Enabled bool          `yaml:"enabled"`
	Address string        `yaml:"address"`
	Prefix  string        `yaml:"prefix"`
	Timeout time.Duration `yaml:"timeout"`
}

// PrometheusConfig defines the pull endpoint sink.
type PrometheusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// OTELConfig defines the OTLP push sink.
type OTELConfig struct {
	Enabled  bool              `yaml:"enabled"`
	Endpoint string            `yaml:"endpoint"`
	Protocol string            `yaml:"protocol"`
	Interval time.Duration     `yaml:"interval"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Resource map[string]string `yaml:"resource,omitempty"`
}

// MonitorConfig controls the self-resource usage log in streaming mode.
type MonitorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}
