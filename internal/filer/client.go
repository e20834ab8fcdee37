package filer

import "context"

// CounterMeta is one raw counter descriptor as reported by the filer's
// metadata-listing call. Properties carries the derivation kind as free text
// ("raw", "rate", "delta", "average", "percent", ...); array counters report
// one ordered label per sub-value.
type CounterMeta struct {
	Name        string   `json:"name"`
	Properties  string   `json:"properties"`
	Unit        string   `json:"unit,omitempty"`
	BaseCounter string   `json:"base_counter,omitempty"`
	Type        string   `json:"type,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}

// IsArray reports whether the counter carries one sub-value per label.
func (m CounterMeta) IsArray() bool {
	return m.Type == "array"
}

// PerfValues is one batched counter read for an object type. Scalar counter
// values are float64 or string; array counters are []float64 in label order.
type PerfValues struct {
	Timestamp float64
	Instances map[string]map[string]any
}

// Client is the capability the rest of the system uses to talk to a filer.
// All calls may fail with transport or session errors; callers treat those
// as retryable (see RetryClient).
type Client interface {
	// Host identifies the monitored filer for cache partitioning.
	Host() string

	// ListCounterMetadata returns the counter descriptors for one object type.
	ListCounterMetadata(ctx context.Context, object string) ([]CounterMeta, error)

	// ListInstances returns the instance names of a multi-instance object
	// type ("processor0", "vol0", ...). Singleton object types return a
	// single empty name.
	ListInstances(ctx context.Context, object string) ([]string, error)

	// GetCounterValues reads current raw counter values for the named
	// instances in one batched request. An empty instance list selects all
	// instances of the object type.
	GetCounterValues(ctx context.Context, object string, instances []string) (*PerfValues, error)

	// Reconnect re-establishes the API session, discarding any cached
	// authentication state.
	Reconnect(ctx context.Context) error
}
