package recurrence

import "time"

// Pattern describes a weekly recurrence: every date between Anchor and End
// (both inclusive) whose weekday is in the Weekdays set. The pattern is
// never stored; it is always re-derived from the current occurrence list
// via Infer, so a deleted occurrence reappears after the next regeneration.
type Pattern struct {
	Anchor   time.Time
	Weekdays map[time.Weekday]bool
	End      time.Time
}

// IsZero reports whether the pattern was inferred from an empty set.
func (p Pattern) IsZero() bool {
	return p.Anchor.IsZero() && p.End.IsZero() && len(p.Weekdays) == 0
}

// Expand walks every calendar date from anchor to end inclusive and yields,
// in ascending order, the dates whose weekday is in the set. Returns nil
// when end precedes anchor or the set is empty.
func Expand(anchor time.Time, weekdays map[time.Weekday]bool, end time.Time) []time.Time {
	if len(weekdays) == 0 {
		return nil
	}

	anchor = truncateToDate(anchor)
	end = truncateToDate(end)

	var dates []time.Time
	for cur := anchor; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
		if weekdays[cur.Weekday()] {
			dates = append(dates, cur)
		}
	}
	return dates
}

// Infer reconstructs the minimal pattern covering the given occurrence
// dates: anchor = earliest date, end = latest date, weekdays = distinct
// weekdays present. The reconstruction is convex: Expand(Infer(dates))
// regenerates every matching date in the span, including occurrences that
// were deleted individually.
func Infer(dates []time.Time) Pattern {
	if len(dates) == 0 {
		return Pattern{}
	}

	p := Pattern{Weekdays: make(map[time.Weekday]bool, 7)}
	for i, d := range dates {
		d = truncateToDate(d)
		if i == 0 || d.Before(p.Anchor) {
			p.Anchor = d
		}
		if i == 0 || d.After(p.End) {
			p.End = d
		}
		p.Weekdays[d.Weekday()] = true
	}
	return p
}

// Dates applies Expand to the pattern itself.
func (p Pattern) Dates() []time.Time {
	if p.IsZero() {
		return nil
	}
	return Expand(p.Anchor, p.Weekdays, p.End)
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FormIndex converts Monday-based form numbering (0=Monday .. 6=Sunday),
// as submitted by clients, to time.Weekday.
func FormIndex(idx int) time.Weekday {
	return time.Weekday((idx + 1) % 7)
}

// ToFormIndex is the inverse of FormIndex.
func ToFormIndex(day time.Weekday) int {
	return (int(day) + 6) % 7
}
