// Package traits defines population-wide traits, the conditions that
// influence them and the engine that evolves them tick by tick.
package traits

// Status is the qualitative tier derived from a trait value.
type Status uint8

const (
	NotPossessed Status = iota // Value is zero
	Unknown                    // Developing; not yet strong enough to exert influence
	Discovered                 // Possessed
	Great
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case NotPossessed:
		return "not_possessed"
	case Unknown:
		return "unknown"
	case Discovered:
		return "discovered"
	case Great:
		return "great"
	default:
		return "invalid"
	}
}

// Thresholds are the two ordered boundaries that tier a trait value.
type Thresholds struct {
	Discovered float64
	Great      float64
}

// StatusOf tiers v. Zero (or below) is always NotPossessed.
func (th Thresholds) StatusOf(v float64) Status {
	switch {
	case v <= 0:
		return NotPossessed
	case v < th.Discovered:
		return Unknown
	case v < th.Great:
		return Discovered
	default:
		return Great
	}
}
