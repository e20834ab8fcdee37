package counter

import "strings"

// Kind classifies how a raw counter value is turned into a displayable
// metric. The zero value is KindUnknown so that descriptions built from
// unrecognized property strings fall through to the pass-through branch
// instead of aborting a cycle.
type Kind int

const (
	// KindUnknown covers property strings the filer reports that we do not
	// recognize; the raw value passes through unchanged.
	KindUnknown Kind = iota

	// KindRaw is an instantaneous value used as-is.
	KindRaw

	// KindRate is a monotonic counter divided by elapsed time.
	KindRate

	// KindDelta is the difference between two consecutive readings.
	KindDelta

	// KindAverage divides a counter's delta by its base counter's delta.
	KindAverage

	// KindPercent is an average scaled by 100.
	KindPercent

	// KindText is a non-numeric value passed through unchanged.
	KindText

	// KindNoDisplay is a raw value not intended for direct display,
	// typically a base counter for an average.
	KindNoDisplay
)

// ParseKind maps a filer property string to a Kind, case-insensitively.
// Unrecognized strings map to KindUnknown.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raw":
		return KindRaw
	case "rate":
		return KindRate
	case "delta":
		return KindDelta
	case "average":
		return KindAverage
	case "percent":
		return KindPercent
	case "text", "string":
		return KindText
	case "nodisplay", "no-display":
		return KindNoDisplay
	default:
		return KindUnknown
	}
}

// String returns the canonical lower-case property name.
func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindRate:
		return "rate"
	case KindDelta:
		return "delta"
	case KindAverage:
		return "average"
	case KindPercent:
		return "percent"
	case KindText:
		return "text"
	case KindNoDisplay:
		return "nodisplay"
	default:
		return "unknown"
	}
}

// NeedsBase reports whether the kind requires a base counter reference.
func (k Kind) NeedsBase() bool {
	return k == KindAverage || k == KindPercent
}

// NeedsPrevious reports whether derivation requires a prior snapshot.
func (k Kind) NeedsPrevious() bool {
	switch k {
	case KindRate, KindDelta, KindAverage, KindPercent:
		return true
	default:
		return false
	}
}
