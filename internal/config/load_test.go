package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
filer:
  host: filer1.example.net
  user: monitor
  password: secret
`))
	require.NoError(t, err)

	assert.Equal(t, uint(DefaultRetryAttempts), cfg.Retry.Attempts)
	assert.Equal(t, DefaultRetryDelay, cfg.Retry.Delay)
	assert.Equal(t, DefaultCheckTimeout, cfg.Check.Timeout)
	assert.Equal(t, DefaultStreamInterval, cfg.Stream.Interval)
	assert.NotEmpty(t, cfg.Cache.Dir)
	require.Len(t, cfg.Groups, 1)
	assert.Equal(t, "system", cfg.Groups[0].Name)
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
filer:
  host: filer1.example.net
  user: monitor
  password: secret
  tls_skip_verify: true
cache:
  dir: /var/tmp/filerstat
groups:
  - name: system
  - name: volume
    instances: [vol0, vol1]
check:
  timeout: 45s
  warning:
    total_ops: "0:1000"
  critical:
    total_ops: "0:2000"
stream:
  interval: 30s
  graphite:
    enabled: true
    address: carbon.example.net:2003
    prefix: netapp
  prometheus:
    enabled: true
  otel:
    enabled: true
    endpoint: otelcol.example.net:4317
    protocol: grpc
`))
	require.NoError(t, err)

	assert.True(t, cfg.Filer.TLSSkipVerify)
	assert.Equal(t, 45*time.Second, cfg.Check.Timeout)
	assert.Equal(t, []string{"vol0", "vol1"}, cfg.Groups[1].Instances)
	assert.Equal(t, "0:1000", cfg.Check.Warning["total_ops"])
	assert.Equal(t, 30*time.Second, cfg.Stream.Interval)
	assert.Equal(t, "netapp", cfg.Stream.Graphite.Prefix)
	assert.Equal(t, DefaultPrometheusPort, cfg.Stream.Prometheus.Port)
	assert.Equal(t, DefaultPrometheusPath, cfg.Stream.Prometheus.Path)
	assert.Equal(t, "grpc", cfg.Stream.OTEL.Protocol)
	// The otel push interval follows the stream interval when unset.
	assert.Equal(t, 30*time.Second, cfg.Stream.OTEL.Interval)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing host", "filer:\n  user: monitor\n"},
		{"missing user", "filer:\n  host: filer1\n"},
		{"graphite without address", `
filer: {host: filer1, user: monitor}
stream:
  graphite:
    enabled: true
`},
		{"otel without endpoint", `
filer: {host: filer1, user: monitor}
stream:
  otel:
    enabled: true
`},
		{"bad otel protocol", `
filer: {host: filer1, user: monitor}
stream:
  otel:
    enabled: true
    endpoint: otelcol:4317
    protocol: udp
`},
		{"prometheus path without leading slash", `
filer: {host: filer1, user: monitor}
stream:
  prometheus:
    enabled: true
    path: metrics
`},
		{"unnamed group", `
filer: {host: filer1, user: monitor}
groups:
  - instances: [vol0]
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
