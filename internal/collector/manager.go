package collector

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/filerstat/filerstat/internal/counter"
	"github.com/filerstat/filerstat/internal/filer"
)

// InstanceResult holds the derived metrics of one object instance. Err is
// set when this instance's derivation failed; other instances of the same
// group are unaffected.
type InstanceResult struct {
	Instance string
	Err      error
	Metrics  []counter.Result
}

// GroupResult holds one metric group's outcome for a cycle. Err is set
// when the group's collection failed as a whole; other groups in the same
// cycle are unaffected.
type GroupResult struct {
	Group     string
	Object    string
	Err       error
	Instances []InstanceResult
}

// CycleResult is one full collect-and-derive pass.
type CycleResult struct {
	Time   time.Time
	Groups []GroupResult
}

// Metrics flattens the cycle into a single list, qualifying counter names
// with their instance ("vol0_read_ops") for multi-instance groups.
func (c *CycleResult) Metrics() []counter.Result {
	var out []counter.Result
	for _, g := range c.Groups {
		for _, inst := range g.Instances {
			for _, m := range inst.Metrics {
				if inst.Instance != "" {
					m.Name = inst.Instance + "_" + m.Name
				}
				out = append(out, m)
			}
		}
	}
	return out
}

// Failed returns the names of groups whose collection failed.
func (c *CycleResult) Failed() []string {
	var out []string
	for _, g := range c.Groups {
		if g.Err != nil {
			out = append(out, g.Group)
		}
	}
	return out
}

// Manager runs collection cycles over a set of metric groups. One batched
// API request is issued per object type per cycle; a failure stays scoped
// to its group.
type Manager struct {
	client    filer.Client
	meta      *counter.MetadataCache
	store     *counter.Store
	engine    *counter.Engine
	groups    []Group
	instances map[string][]string
	logger    *slog.Logger
}

// NewManager creates a cycle manager. instances selects the named
// instances per object type for multi-instance groups; an empty selection
// collects all instances.
func NewManager(
	client filer.Client,
	meta *counter.MetadataCache,
	store *counter.Store,
	engine *counter.Engine,
	groups []Group,
	instances map[string][]string,
	logger *slog.Logger,
) *Manager {
	sorted := append([]Group(nil), groups...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	return &Manager{
		client:    client,
		meta:      meta,
		store:     store,
		engine:    engine,
		groups:    sorted,
		instances: instances,
		logger:    logger,
	}
}

// RunCycle performs one collect-derive pass over all groups. Failures of
// one group never abort the others; the result carries per-group errors.
func (m *Manager) RunCycle(ctx context.Context) *CycleResult {
	cycle := &CycleResult{Time: time.Now()}

	for _, g := range m.groups {
		res := m.collectGroup(ctx, g)
		if res.Err != nil {
			m.logger.Error("metric group collection failed",
				"group", g.Name, "object", g.Object, "error", res.Err)
		}
		cycle.Groups = append(cycle.Groups, res)
	}

	return cycle
}

func (m *Manager) collectGroup(ctx context.Context, g Group) GroupResult {
	res := GroupResult{Group: g.Name, Object: g.Object}

	vals, err := m.client.GetCounterValues(ctx, g.Object, m.instances[g.Object])
	if err != nil {
		res.Err = err
		return res
	}

	snapshots, err := m.partition(ctx, g, vals)
	if err != nil {
		res.Err = err
		return res
	}

	names := make([]string, 0, len(snapshots))
	for name := range snapshots {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, instance := range names {
		inst, err := m.deriveInstance(ctx, g, instance, snapshots[instance])
		if err != nil {
			// Err stays scoped to the instance; the group's other
			// instances still report their metrics.
			m.logger.Warn("instance derivation failed",
				"group", g.Name, "instance", instance, "error", err)
			inst = InstanceResult{Instance: instance, Err: err}
		}
		res.Instances = append(res.Instances, inst)
	}
	return res
}

// partition splits one batched response into per-instance snapshots.
// Flatten groups merge every instance into a single snapshot under
// instance-prefixed counter names, splitting array counters per label.
func (m *Manager) partition(ctx context.Context, g Group, vals *filer.PerfValues) (map[string]*counter.Snapshot, error) {
	if g.Flatten {
		labels, err := m.meta.ArrayLabels(ctx, g.Object)
		if err != nil {
			return nil, err
		}
		merged := make(map[string]any)
		for instance, counters := range vals.Instances {
			for name, v := range counters {
				lbls, isArray := labels[name]
				if arr, ok := asSlice(v); isArray && ok {
					for i, sub := range arr {
						if i < len(lbls) {
							merged[instance+"_"+name+"_"+lbls[i]] = sub
						}
					}
					continue
				}
				merged[instance+"_"+name] = v
			}
		}
		return map[string]*counter.Snapshot{"": counter.NewSnapshot(vals.Timestamp, merged)}, nil
	}

	if g.Singleton {
		// Singleton objects report one instance under whatever name the
		// filer uses; fold it onto the empty instance key.
		merged := make(map[string]any)
		for _, counters := range vals.Instances {
			for name, v := range counters {
				merged[name] = v
			}
		}
		return map[string]*counter.Snapshot{"": counter.NewSnapshot(vals.Timestamp, merged)}, nil
	}

	out := make(map[string]*counter.Snapshot, len(vals.Instances))
	for instance, counters := range vals.Instances {
		values := make(map[string]any, len(counters))
		for name, v := range counters {
			values[name] = v
		}
		out[instance] = counter.NewSnapshot(vals.Timestamp, values)
	}
	return out, nil
}

func (m *Manager) deriveInstance(ctx context.Context, g Group, instance string, snap *counter.Snapshot) (InstanceResult, error) {
	key := counter.Key{Host: m.client.Host(), Object: g.Object, Instance: instance}

	prev, err := m.store.Load(key)
	if err != nil {
		return InstanceResult{}, err
	}
	// Persist before deriving so a crash later in the cycle never loses
	// the raw reading.
	if err := m.store.Save(key, snap); err != nil {
		return InstanceResult{}, err
	}

	res := InstanceResult{Instance: instance}
	for _, c := range m.groupCounters(ctx, g, snap) {
		derived, err := m.engine.Derive(ctx, g.Object, c.Name, snap, prev)
		switch {
		case errors.Is(err, counter.ErrNoPrevious):
			m.logger.Debug("first cycle, counter skipped",
				"group", g.Name, "instance", instance, "counter", c.Name)
			continue
		case err != nil:
			m.logger.Warn("counter derivation failed",
				"group", g.Name, "instance", instance, "counter", c.Name, "error", err)
			continue
		}

		if !derived.IsText && c.Factor != 0 {
			derived.Value *= c.Factor
		}
		if c.Unit != "" {
			derived.Unit = c.Unit
		}
		res.Metrics = append(res.Metrics, derived)
	}
	return res, nil
}

// groupCounters resolves the counter list for a group. AllDescribed groups
// derive every described counter present in the snapshot.
func (m *Manager) groupCounters(ctx context.Context, g Group, snap *counter.Snapshot) []Counter {
	if !g.AllDescribed {
		return g.Counters
	}

	descs, err := m.meta.Descriptions(ctx, g.Object)
	if err != nil {
		m.logger.Warn("metadata unavailable", "object", g.Object, "error", err)
		return nil
	}

	var counters []Counter
	for name := range descs {
		if _, ok := snap.Get(name); ok {
			counters = append(counters, Counter{Name: name})
		}
	}
	sort.Slice(counters, func(i, j int) bool { return counters[i].Name < counters[j].Name })
	return counters
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []float64:
		out := make([]any, len(s))
		for i, f := range s {
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}
