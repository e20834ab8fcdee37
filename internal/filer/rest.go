package filer

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RESTClient talks to the filer's management REST API over HTTPS with basic
// auth. It keeps no connection state beyond the http.Client's pool; Reconnect
// drops idle connections so the next call builds a fresh session.
type RESTClient struct {
	host     string
	baseURL  string
	user     string
	password string
	http     *http.Client
	logger   *slog.Logger
}

// RESTConfig holds connection settings for a filer REST endpoint.
type RESTConfig struct {
	Host          string
	User          string
	Password      string
	Timeout       time.Duration
	TLSSkipVerify bool
}

// NewRESTClient creates a REST client for one filer.
func NewRESTClient(cfg RESTConfig, logger *slog.Logger) *RESTClient {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.TLSSkipVerify},
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &RESTClient{
		host:     cfg.Host,
		baseURL:  fmt.Sprintf("https://%s/api", cfg.Host),
		user:     cfg.User,
		password: cfg.Password,
		logger:   logger,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Host identifies the monitored filer.
func (c *RESTClient) Host() string { return c.host }

// Reconnect drops pooled connections so the next request authenticates fresh.
func (c *RESTClient) Reconnect(ctx context.Context) error {
	c.http.CloseIdleConnections()
	return nil
}

type counterMetaResponse struct {
	Records []CounterMeta `json:"records"`
}

// ListCounterMetadata fetches the counter descriptors for one object type.
func (c *RESTClient) ListCounterMetadata(ctx context.Context, object string) ([]CounterMeta, error) {
	var resp counterMetaResponse
	path := fmt.Sprintf("/cluster/counter/tables/%s", url.PathEscape(object))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("list counter metadata for %s: %w", object, err)
	}
	return resp.Records, nil
}

type instanceResponse struct {
	Records []struct {
		Name string `json:"name"`
	} `json:"records"`
}

// ListInstances fetches the instance names of an object type.
func (c *RESTClient) ListInstances(ctx context.Context, object string) ([]string, error) {
	var resp instanceResponse
	path := fmt.Sprintf("/cluster/counter/tables/%s/rows", url.PathEscape(object))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("list instances for %s: %w", object, err)
	}
	names := make([]string, 0, len(resp.Records))
	for _, r := range resp.Records {
		names = append(names, r.Name)
	}
	return names, nil
}

type perfValuesResponse struct {
	Timestamp float64 `json:"timestamp"`
	Records   []struct {
		Instance string         `json:"instance"`
		Counters map[string]any `json:"counters"`
	} `json:"records"`
}

// GetCounterValues reads raw counter values for the named instances in a
// single batched request.
func (c *RESTClient) GetCounterValues(ctx context.Context, object string, instances []string) (*PerfValues, error) {
	path := fmt.Sprintf("/cluster/counter/tables/%s/rows", url.PathEscape(object))
	if len(instances) > 0 {
		path += "?instances=" + url.QueryEscape(strings.Join(instances, ","))
	}

	var resp perfValuesResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("get counter values for %s: %w", object, err)
	}

	values := &PerfValues{
		Timestamp: resp.Timestamp,
		Instances: make(map[string]map[string]any, len(resp.Records)),
	}
	if values.Timestamp == 0 {
		values.Timestamp = float64(time.Now().UnixNano()) / 1e9
	}
	for _, rec := range resp.Records {
		values.Instances[rec.Instance] = rec.Counters
	}
	return values, nil
}

func (c *RESTClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("filer api call",
		"path", path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("filer api %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
