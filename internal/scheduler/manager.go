package scheduler

import (
	"context"
	"errors"
	"time"

	"zaalplanner/internal/database"
	"zaalplanner/internal/events"
	"zaalplanner/internal/metrics"
	"zaalplanner/internal/models"
	"zaalplanner/internal/recurrence"
	"zaalplanner/internal/timerange"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is the persistence collaborator consumed by the manager.
type Store interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBooking(ctx context.Context, booking *models.Booking) error
	DeleteBooking(ctx context.Context, id int64) error
	DeleteSeries(ctx context.Context, seriesID string) (int64, error)
	GetSeriesOccurrences(ctx context.Context, seriesID string) ([]models.Booking, error)
	GetRoomBookings(ctx context.Context, room string) ([]models.Booking, error)
	ReplaceSeries(ctx context.Context, seriesID string, bookings []models.Booking) (int, error)
}

// RepeatSpec describes a requested weekly recurrence. On edit, a nil spec or
// zero fields fall back to the pattern inferred from the stored series.
type RepeatSpec struct {
	Weekdays map[time.Weekday]bool
	End      time.Time
}

// CreateRequest carries the fields for a new single or recurring booking.
// Start and End are the full instants on the base date; for recurring
// bookings their clock times are reapplied to every expanded date.
type CreateRequest struct {
	Room    string
	Title   string
	Account string
	Who     string
	Start   time.Time
	End     time.Time
	Repeat  *RepeatSpec
}

// CreateResult reports how creation went: bookings persisted and candidate
// dates skipped because the room was already taken.
type CreateResult struct {
	Created  int
	Skipped  []time.Time
	SeriesID *string
}

// EditRequest carries the replacement field values for a booking. For a
// series booking, Repeat optionally overrides the inferred pattern.
type EditRequest struct {
	Room   string
	Title  string
	Who    string
	Start  time.Time
	End    time.Time
	Repeat *RepeatSpec
}

// EditResult reports how many bookings an edit touched (1 for a single
// booking, the regenerated occurrence count for a series).
type EditResult struct {
	Updated int
	Series  bool
}

// Manager orchestrates booking creation, edits and deletes. It owns no
// state beyond its collaborators; every series pattern is re-derived from
// stored occurrences on each request.
type Manager struct {
	store    Store
	detector *Detector
	bus      *events.EventBus
	logger   *zerolog.Logger
	rooms    map[string]bool
}

func NewManager(store Store, bus *events.EventBus, rooms []string, logger *zerolog.Logger) *Manager {
	roomSet := make(map[string]bool, len(rooms))
	for _, r := range rooms {
		roomSet[r] = true
	}
	return &Manager{
		store:    store,
		detector: NewDetector(store),
		bus:      bus,
		logger:   logger,
		rooms:    roomSet,
	}
}

func (m *Manager) validateFields(room, title string, start, end time.Time) (timerange.Range, error) {
	if !m.rooms[room] {
		return timerange.Range{}, validationErr("room", "unknown room")
	}
	if title == "" {
		return timerange.Range{}, validationErr("title", "title is required")
	}
	if start.IsZero() || end.IsZero() {
		return timerange.Range{}, validationErr("start", "start and end are required")
	}

	r, err := timerange.New(start, end)
	if err != nil {
		return timerange.Range{}, validationErr("end", "end must be after start")
	}
	return r, nil
}

// combineDate keeps the clock time of src and moves it onto the given date.
func combineDate(date, src time.Time) time.Time {
	y, mo, d := date.Date()
	return time.Date(y, mo, d, src.Hour(), src.Minute(), 0, 0, src.Location())
}

// CreateBooking validates the request, expands the recurrence if any, and
// persists one booking per candidate date. A date whose room slot is taken
// is skipped and reported, not fatal to the batch.
func (m *Manager) CreateBooking(ctx context.Context, req CreateRequest) (CreateResult, error) {
	if _, err := m.validateFields(req.Room, req.Title, req.Start, req.End); err != nil {
		return CreateResult{}, err
	}

	baseDate := dateOf(req.Start)

	// База всегда входит в список, даже если её день недели не выбран
	dates := []time.Time{baseDate}
	if req.Repeat != nil && len(req.Repeat.Weekdays) > 0 && !req.Repeat.End.IsZero() {
		dates = append(dates, recurrence.Expand(baseDate.AddDate(0, 0, 1), req.Repeat.Weekdays, req.Repeat.End)...)
	}

	var seriesID *string
	if len(dates) > 1 {
		id := uuid.NewString()
		seriesID = &id
	}

	result := CreateResult{SeriesID: seriesID}
	for _, date := range dates {
		r := timerange.Range{
			Start: combineDate(date, req.Start),
			End:   combineDate(date, req.End),
		}

		conflict, err := m.detector.FindConflict(ctx, req.Room, r, ExcludeKey{})
		if err != nil {
			return CreateResult{}, err
		}
		if conflict != nil {
			result.Skipped = append(result.Skipped, date)
			continue
		}

		booking := &models.Booking{
			Room:     req.Room,
			Title:    req.Title,
			Account:  req.Account,
			Who:      req.Who,
			Start:    r.Start,
			End:      r.End,
			SeriesID: seriesID,
		}
		if err := m.store.CreateBooking(ctx, booking); err != nil {
			return CreateResult{}, err
		}
		result.Created++

		_ = m.bus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{
			BookingID: booking.ID,
			Room:      booking.Room,
			Title:     booking.Title,
			Account:   booking.Account,
			Start:     booking.Start,
			End:       booking.End,
			SeriesID:  seriesIDString(seriesID),
		})
	}

	metrics.IncBookingsCreated(result.Created)
	metrics.IncConflicts("create", len(result.Skipped))

	m.logger.Info().
		Str("room", req.Room).
		Int("created", result.Created).
		Int("skipped", len(result.Skipped)).
		Msg("booking created")

	return result, nil
}

// EditBooking updates a single booking in place, or replaces a whole series
// with a regenerated occurrence set. Series replacement is all-or-nothing:
// any conflicting date rejects the edit and reports the full conflict list.
func (m *Manager) EditBooking(ctx context.Context, id int64, req EditRequest) (EditResult, error) {
	booking, err := m.store.GetBooking(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return EditResult{}, ErrNotFound
	}
	if err != nil {
		return EditResult{}, err
	}

	newRange, err := m.validateFields(req.Room, req.Title, req.Start, req.End)
	if err != nil {
		return EditResult{}, err
	}

	if !booking.InSeries() {
		return m.editSingle(ctx, booking, req, newRange)
	}
	return m.editSeries(ctx, booking, req)
}

func (m *Manager) editSingle(ctx context.Context, booking *models.Booking, req EditRequest, newRange timerange.Range) (EditResult, error) {
	conflict, err := m.detector.FindConflict(ctx, req.Room, newRange, ExcludeKey{BookingID: booking.ID})
	if err != nil {
		return EditResult{}, err
	}
	if conflict != nil {
		metrics.IncConflicts("edit", 1)
		return EditResult{}, &ConflictError{Dates: []time.Time{dateOf(newRange.Start)}}
	}

	booking.Room = req.Room
	booking.Title = req.Title
	booking.Who = req.Who
	booking.Start = newRange.Start
	booking.End = newRange.End

	if err := m.store.UpdateBooking(ctx, booking); err != nil {
		return EditResult{}, err
	}

	_ = m.bus.PublishJSON(events.EventBookingUpdated, events.BookingEventPayload{
		BookingID: booking.ID,
		Room:      booking.Room,
		Title:     booking.Title,
		Account:   booking.Account,
		Start:     booking.Start,
		End:       booking.End,
	})

	m.logger.Info().Int64("booking_id", booking.ID).Msg("booking updated")
	return EditResult{Updated: 1}, nil
}

func (m *Manager) editSeries(ctx context.Context, booking *models.Booking, req EditRequest) (EditResult, error) {
	seriesID := *booking.SeriesID

	occurrences, err := m.store.GetSeriesOccurrences(ctx, seriesID)
	if err != nil {
		return EditResult{}, err
	}

	occDates := make([]time.Time, len(occurrences))
	for i := range occurrences {
		occDates[i] = occurrences[i].StartDate()
	}
	current := recurrence.Infer(occDates)

	// Явный ввод перекрывает выведенный паттерн, пустой — нет
	weekdays := current.Weekdays
	if req.Repeat != nil && len(req.Repeat.Weekdays) > 0 {
		weekdays = req.Repeat.Weekdays
	}
	if len(weekdays) == 0 {
		return EditResult{}, validationErr("repeat_days", "at least one weekday is required")
	}

	seriesEnd := current.End
	if req.Repeat != nil && !req.Repeat.End.IsZero() {
		seriesEnd = req.Repeat.End
	}
	if seriesEnd.Before(current.Anchor) {
		return EditResult{}, validationErr("repeat_end", "series end date precedes its start")
	}

	// Anchor never moves on edit; only weekdays and end date change.
	newDates := recurrence.Expand(current.Anchor, weekdays, seriesEnd)

	var conflicts []time.Time
	for _, date := range newDates {
		r := timerange.Range{
			Start: combineDate(date, req.Start),
			End:   combineDate(date, req.End),
		}
		conflict, err := m.detector.FindConflict(ctx, req.Room, r, ExcludeKey{SeriesID: seriesID})
		if err != nil {
			return EditResult{}, err
		}
		if conflict != nil {
			conflicts = append(conflicts, date)
		}
	}
	if len(conflicts) > 0 {
		metrics.IncConflicts("edit_series", len(conflicts))
		return EditResult{}, &ConflictError{Dates: conflicts}
	}

	replacement := make([]models.Booking, 0, len(newDates))
	for _, date := range newDates {
		replacement = append(replacement, models.Booking{
			Room:     req.Room,
			Title:    req.Title,
			Account:  booking.Account,
			Who:      req.Who,
			Start:    combineDate(date, req.Start),
			End:      combineDate(date, req.End),
			SeriesID: &seriesID,
		})
	}

	count, err := m.store.ReplaceSeries(ctx, seriesID, replacement)
	if err != nil {
		return EditResult{}, err
	}

	metrics.IncSeriesReplacements()
	metrics.IncBookingsCreated(count)

	_ = m.bus.PublishJSON(events.EventSeriesReplaced, events.BookingEventPayload{
		Room:     req.Room,
		Title:    req.Title,
		Account:  booking.Account,
		SeriesID: seriesID,
		Count:    count,
	})

	m.logger.Info().Str("series_id", seriesID).Int("count", count).Msg("series replaced")
	return EditResult{Updated: count, Series: true}, nil
}

// DeleteBooking removes exactly one booking.
func (m *Manager) DeleteBooking(ctx context.Context, id int64) error {
	err := m.store.DeleteBooking(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	_ = m.bus.PublishJSON(events.EventBookingDeleted, events.BookingEventPayload{BookingID: id})
	m.logger.Info().Int64("booking_id", id).Msg("booking deleted")
	return nil
}

// DeleteSeries removes every occurrence of a series and reports the count.
func (m *Manager) DeleteSeries(ctx context.Context, seriesID string) (int64, error) {
	count, err := m.store.DeleteSeries(ctx, seriesID)
	if err != nil {
		return 0, err
	}

	_ = m.bus.PublishJSON(events.EventSeriesDeleted, events.BookingEventPayload{
		SeriesID: seriesID,
		Count:    int(count),
	})
	m.logger.Info().Str("series_id", seriesID).Int64("count", count).Msg("series deleted")
	return count, nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func seriesIDString(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}
