package scheduler

import (
	"context"

	"zaalplanner/internal/models"
	"zaalplanner/internal/timerange"
)

// ExcludeKey identifies bookings to leave out of a conflict check: the
// booking being edited, or every occurrence of the series being replaced.
// The zero value excludes nothing (creation mode).
type ExcludeKey struct {
	BookingID int64
	SeriesID  string
}

func (k ExcludeKey) matches(b *models.Booking) bool {
	if k.BookingID != 0 && b.ID == k.BookingID {
		return true
	}
	if k.SeriesID != "" && b.SeriesID != nil && *b.SeriesID == k.SeriesID {
		return true
	}
	return false
}

// Detector answers whether a candidate range collides with any existing
// booking in a room. All overlap decisions go through timerange.Range.
type Detector struct {
	store Store
}

func NewDetector(store Store) *Detector {
	return &Detector{store: store}
}

// FindConflict returns the first existing booking in the room whose range
// overlaps the candidate and whose key is not excluded, or nil.
func (d *Detector) FindConflict(ctx context.Context, room string, candidate timerange.Range, exclude ExcludeKey) (*models.Booking, error) {
	bookings, err := d.store.GetRoomBookings(ctx, room)
	if err != nil {
		return nil, err
	}

	for i := range bookings {
		b := &bookings[i]
		if exclude.matches(b) {
			continue
		}
		if candidate.Overlaps(timerange.Range{Start: b.Start, End: b.End}) {
			return b, nil
		}
	}
	return nil, nil
}
