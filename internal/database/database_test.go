package database

import (
	"context"
	"os"
	"testing"
	"time"

	"zaalplanner/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func slot(t *testing.T, db *DB, room string, seriesID *string, start time.Time) *models.Booking {
	t.Helper()
	b := &models.Booking{
		Room:     room,
		Title:    "Sessie",
		Account:  "mumc",
		Start:    start,
		End:      start.Add(time.Hour),
		SeriesID: seriesID,
	}
	require.NoError(t, db.CreateBooking(context.Background(), b))
	return b
}

func TestCreateAndGetBooking(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	created := slot(t, db, "TMS ruimte", nil, start)
	require.NotZero(t, created.ID)

	got, err := db.GetBooking(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "TMS ruimte", got.Room)
	assert.True(t, got.Start.Equal(start))
	assert.Nil(t, got.SeriesID)
	assert.Empty(t, got.Who)
}

func TestGetBookingNotFound(t *testing.T) {
	db := setupDB(t)

	_, err := db.GetBooking(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBookingNotFound(t *testing.T) {
	db := setupDB(t)

	err := db.UpdateBooking(context.Background(), &models.Booking{ID: 42, Room: "TMS ruimte", Title: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBookingsOverlapping(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	inside := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	outside := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	slot(t, db, "TMS ruimte", nil, inside)
	slot(t, db, "TMS ruimte", nil, outside)

	windowStart := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	bookings, err := db.GetBookingsOverlapping(ctx, windowStart, windowEnd)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.True(t, bookings[0].Start.Equal(inside))
}

func TestSeriesOccurrencesOrdered(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	series := "series-a"
	later := time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)
	earlier := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	slot(t, db, "TMS ruimte", &series, later)
	slot(t, db, "TMS ruimte", &series, earlier)
	slot(t, db, "TMS ruimte", nil, earlier.Add(2*time.Hour))

	occurrences, err := db.GetSeriesOccurrences(ctx, series)
	require.NoError(t, err)
	require.Len(t, occurrences, 2)
	assert.True(t, occurrences[0].Start.Equal(earlier))
	assert.True(t, occurrences[1].Start.Equal(later))
}

func TestDeleteSeriesCountsRows(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	series := "series-b"
	base := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	slot(t, db, "TMS ruimte", &series, base)
	slot(t, db, "TMS ruimte", &series, base.AddDate(0, 0, 7))
	keep := slot(t, db, "TMS ruimte", nil, base.Add(3*time.Hour))

	count, err := db.DeleteSeries(ctx, series)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = db.GetBooking(ctx, keep.ID)
	assert.NoError(t, err)
}

func TestReplaceSeriesSwapsOccurrences(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	series := "series-c"
	base := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	slot(t, db, "TMS ruimte", &series, base)
	slot(t, db, "TMS ruimte", &series, base.AddDate(0, 0, 7))

	replacement := make([]models.Booking, 0, 3)
	for i := 0; i < 3; i++ {
		start := base.AddDate(0, 0, i*7).Add(time.Hour)
		replacement = append(replacement, models.Booking{
			Room:     "CO2 ruimte",
			Title:    "Verplaatst",
			Account:  "mumc",
			Start:    start,
			End:      start.Add(time.Hour),
			SeriesID: &series,
		})
	}

	count, err := db.ReplaceSeries(ctx, series, replacement)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	occurrences, err := db.GetSeriesOccurrences(ctx, series)
	require.NoError(t, err)
	require.Len(t, occurrences, 3)
	for _, occ := range occurrences {
		assert.Equal(t, "CO2 ruimte", occ.Room)
		assert.Equal(t, "Verplaatst", occ.Title)
	}
}

func TestWhoRoundTripsThroughNull(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	b := &models.Booking{
		Room:    "Wetlab",
		Title:   "Practicum",
		Account: "zuyd",
		Who:     "Peters",
		Start:   time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.CreateBooking(ctx, b))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Peters", got.Who)
}
