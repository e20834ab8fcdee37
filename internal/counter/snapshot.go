package counter

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// timestampKey is the reserved key under which the snapshot timestamp is
// folded into the persisted flat document.
const timestampKey = "timestamp"

// Snapshot is one raw counter reading for a single object instance: a flat
// mapping from counter name to scalar value plus the read timestamp in
// fractional seconds.
type Snapshot struct {
	Timestamp float64
	Values    map[string]any
}

// NewSnapshot creates a snapshot for one instance reading.
func NewSnapshot(timestamp float64, values map[string]any) *Snapshot {
	if values == nil {
		values = make(map[string]any)
	}
	return &Snapshot{Timestamp: timestamp, Values: values}
}

// Empty reports whether the snapshot carries no usable prior reading. A
// timestamp of zero is a valid reading epoch; degenerate time intervals are
// handled at derivation time.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Values) == 0
}

// Float returns the named value as float64. Numeric strings are accepted;
// the second return is false when the value is absent or non-numeric.
func (s *Snapshot) Float(name string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.Values[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Get returns the named value unconverted.
func (s *Snapshot) Get(name string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.Values[name]
	return v, ok
}

// Set stores one counter value.
func (s *Snapshot) Set(name string, value any) {
	s.Values[name] = value
}

// MarshalJSON flattens the snapshot into a single JSON object with the
// timestamp folded in as a regular key, keeping the persisted document a
// flat string-to-scalar mapping.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(s.Values)+1)
	for k, v := range s.Values {
		if k == timestampKey {
			return nil, fmt.Errorf("counter name %q collides with reserved key", k)
		}
		flat[k] = v
	}
	flat[timestampKey] = s.Timestamp
	return json.Marshal(flat)
}

// UnmarshalJSON rebuilds a snapshot from the flat persisted form.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	ts, _ := flat[timestampKey].(float64)
	delete(flat, timestampKey)
	s.Timestamp = ts
	s.Values = flat
	return nil
}
