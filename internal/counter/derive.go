package counter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoPrevious signals that a counter needs a prior snapshot which does
// not exist yet (cold start). Callers skip the counter for the cycle.
var ErrNoPrevious = errors.New("no previous snapshot")

// ErrNoDescription signals that the filer never described the requested
// counter. The counter is omitted; the rest of the batch proceeds.
var ErrNoDescription = errors.New("no counter description")

// ErrMissingValue signals that the current snapshot lacks a usable value
// for the requested counter.
var ErrMissingValue = errors.New("counter value missing")

// Result is one derived metric. Text-kind counters carry their value in
// Text with IsText set; everything else is numeric. Display is false for
// NoDisplay-kind counters, which callers normally suppress.
type Result struct {
	Name    string
	Kind    Kind
	Unit    string
	Value   float64
	Text    string
	IsText  bool
	Display bool
}

// Engine computes derived metric values from raw snapshots according to
// each counter's description. Metadata is loaded lazily through the
// injected cache on first use per object type.
type Engine struct {
	meta   *MetadataCache
	logger *slog.Logger
}

// NewEngine creates a derivation engine backed by meta.
func NewEngine(meta *MetadataCache, logger *slog.Logger) *Engine {
	return &Engine{meta: meta, logger: logger}
}

// Derive computes the derived value of one counter from the current and
// previous snapshots of an instance. prev may be nil on the first observed
// cycle; counters whose kind needs a prior reading then return
// ErrNoPrevious and are skipped by the caller. Failures are always scoped
// to the single counter, never to the batch.
func (e *Engine) Derive(ctx context.Context, object, name string, cur, prev *Snapshot) (Result, error) {
	descs, err := e.meta.Descriptions(ctx, object)
	if err != nil {
		return Result{}, err
	}

	d, ok := descs[name]
	if !ok {
		e.logger.Warn("counter not described by filer", "object", object, "counter", name)
		return Result{}, fmt.Errorf("%w: %s/%s", ErrNoDescription, object, name)
	}

	res := Result{Name: name, Kind: d.Kind, Unit: d.Unit, Display: d.Kind != KindNoDisplay}

	switch d.Kind {
	case KindRate, KindDelta:
		if prev.Empty() {
			return Result{}, ErrNoPrevious
		}
		curV, ok1 := cur.Float(name)
		prevV, ok2 := prev.Float(name)
		if !ok1 || !ok2 {
			return Result{}, fmt.Errorf("%w: %s/%s", ErrMissingValue, object, name)
		}
		delta := curV - prevV
		if d.Kind == KindDelta {
			res.Value = delta
			return res, nil
		}
		dt := cur.Timestamp - prev.Timestamp
		if dt <= 0 {
			e.logger.Warn("non-advancing timestamps, rate forced to zero",
				"object", object, "counter", name, "dt", dt)
			return res, nil
		}
		res.Value = delta / dt
		return res, nil

	case KindAverage, KindPercent:
		if prev.Empty() {
			return Result{}, ErrNoPrevious
		}
		curV, ok1 := cur.Float(name)
		prevV, ok2 := prev.Float(name)
		if !ok1 || !ok2 {
			return Result{}, fmt.Errorf("%w: %s/%s", ErrMissingValue, object, name)
		}

		// A missing or unchanged base counter yields 0, not an error, so
		// the metric stream stays unbroken across cycles.
		curB, okB1 := cur.Float(d.Base)
		prevB, okB2 := prev.Float(d.Base)
		if !okB1 || !okB2 {
			e.logger.Warn("base counter unresolvable, value forced to zero",
				"object", object, "counter", name, "base", d.Base)
			return res, nil
		}
		baseDelta := curB - prevB
		if baseDelta == 0 {
			e.logger.Warn("base counter unchanged, value forced to zero",
				"object", object, "counter", name, "base", d.Base)
			return res, nil
		}
		res.Value = (curV - prevV) / baseDelta
		if d.Kind == KindPercent {
			res.Value *= 100
		}
		return res, nil

	case KindText:
		v, ok := cur.Get(name)
		if !ok {
			return Result{}, fmt.Errorf("%w: %s/%s", ErrMissingValue, object, name)
		}
		res.IsText = true
		res.Text = fmt.Sprint(v)
		return res, nil

	case KindRaw, KindNoDisplay, KindUnknown:
		if d.Kind == KindUnknown {
			e.logger.Warn("unrecognized counter kind, passing value through",
				"object", object, "counter", name)
		}
		v, ok := cur.Get(name)
		if !ok {
			return Result{}, fmt.Errorf("%w: %s/%s", ErrMissingValue, object, name)
		}
		// Raw values may legitimately be non-numeric.
		if f, numeric := cur.Float(name); numeric {
			res.Value = f
		} else {
			res.IsText = true
			res.Text = fmt.Sprint(v)
		}
		return res, nil

	default:
		return Result{}, fmt.Errorf("unhandled counter kind %v for %s/%s", d.Kind, object, name)
	}
}
