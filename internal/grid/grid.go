package grid

import (
	"sort"
	"time"

	"zaalplanner/internal/models"
)

// Grid buckets a week of bookings by room and by day. Keys of the inner map
// are dates formatted as YYYY-MM-DD; every configured room and every day of
// the week is present even when empty.
type Grid map[string]map[string][]models.Booking

// WeekStart returns the Monday of the week containing d, at midnight.
func WeekStart(d time.Time) time.Time {
	y, m, day := d.Date()
	midnight := time.Date(y, m, day, 0, 0, 0, 0, d.Location())
	// time.Weekday has Sunday=0; shift to Monday-based
	offset := (int(midnight.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -offset)
}

// Days returns the 7 dates of the week starting at weekStart.
func Days(weekStart time.Time) [7]time.Time {
	var days [7]time.Time
	for i := range days {
		days[i] = weekStart.AddDate(0, 0, i)
	}
	return days
}

// Build arranges bookings into a room-by-day grid for the week starting at
// weekStart (normalized to its Monday). A booking is bucketed by the date
// its start falls on; bookings outside the 7-day window or in a room that
// is not configured are dropped.
func Build(weekStart time.Time, rooms []string, bookings []models.Booking) Grid {
	weekStart = WeekStart(weekStart)
	days := Days(weekStart)

	g := make(Grid, len(rooms))
	for _, room := range rooms {
		buckets := make(map[string][]models.Booking, 7)
		for _, day := range days {
			buckets[day.Format(models.DateFormat)] = nil
		}
		g[room] = buckets
	}

	weekEnd := weekStart.AddDate(0, 0, 7)
	for _, b := range bookings {
		buckets, ok := g[b.Room]
		if !ok {
			continue
		}

		day := b.StartDate()
		if day.Before(weekStart) || !day.Before(weekEnd) {
			continue
		}
		key := day.Format(models.DateFormat)
		buckets[key] = append(buckets[key], b)
	}

	for _, buckets := range g {
		for _, list := range buckets {
			sort.Slice(list, func(i, j int) bool { return list[i].Start.Before(list[j].Start) })
		}
	}

	return g
}
