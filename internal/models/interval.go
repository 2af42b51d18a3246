package models

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect.
// Back-to-back intervals (one ending exactly when the other starts) do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether t falls inside the interval (start inclusive, end exclusive).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// IsValid reports whether Start is strictly before End.
func (iv Interval) IsValid() bool {
	return iv.Start.Before(iv.End)
}
