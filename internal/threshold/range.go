package threshold

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Range is one alerting interval in the check-plugin grammar
// "[@]start:end". A value violates the range when it falls outside the
// interval, or inside it when the spec carried a leading "@". "~" denotes
// negative infinity, an omitted bound means infinity on that side, and a
// bare number N is shorthand for [0,N].
type Range struct {
	Start  float64
	End    float64
	Inside bool
	spec   string
}

// ParseRange parses a range spec.
func ParseRange(spec string) (*Range, error) {
	r := &Range{Start: math.Inf(-1), End: math.Inf(1), spec: spec}

	s := strings.TrimSpace(spec)
	if s == "" {
		return nil, fmt.Errorf("empty range spec")
	}
	if rest, ok := strings.CutPrefix(s, "@"); ok {
		r.Inside = true
		s = rest
	}

	lo, hi, found := strings.Cut(s, ":")
	if !found {
		// Bare N is shorthand for [0,N].
		end, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", spec, err)
		}
		r.Start = 0
		r.End = end
		return r, nil
	}

	switch lo {
	case "", "~":
		// negative infinity
	default:
		start, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range start %q: %w", spec, err)
		}
		r.Start = start
	}

	if hi != "" {
		end, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range end %q: %w", spec, err)
		}
		r.End = end
	}

	if r.Start > r.End {
		return nil, fmt.Errorf("invalid range %q: start exceeds end", spec)
	}
	return r, nil
}

// Violated reports whether v triggers the range.
func (r *Range) Violated(v float64) bool {
	inside := v >= r.Start && v <= r.End
	if r.Inside {
		return inside
	}
	return !inside
}

// String returns the original spec text.
func (r *Range) String() string { return r.spec }
