package timerange

import (
	"fmt"
	"time"
)

// Range is a half-open [Start, End) interval of instants.
type Range struct {
	Start time.Time
	End   time.Time
}

// New validates that end is strictly after start.
func New(start, end time.Time) (Range, error) {
	if !end.After(start) {
		return Range{}, fmt.Errorf("timerange: end %s must be after start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Range{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open ranges intersect. Touching
// endpoints do not count as overlap. Every conflict check in the module
// goes through this predicate.
func (r Range) Overlaps(other Range) bool {
	return r.Start.Before(other.End) && r.End.After(other.Start)
}
