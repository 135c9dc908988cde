package models

import "time"

const (
	// DateFormat формат дат в формах и API (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// ClockFormat формат времени в формах (HH:MM)
	ClockFormat = "15:04"
)

// Account is one of the fixed tenant identities seeded at first run.
// Passwords are stored as bcrypt hashes and updated only out-of-band.
type Account struct {
	ID           int64     `json:"-"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Color        string    `json:"color"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// Booking is a single reserved slot in a room. SeriesID is shared by all
// occurrences of a recurring series and nil for one-off bookings.
type Booking struct {
	ID        int64     `json:"id"`
	Room      string    `json:"room"`
	Title     string    `json:"title"`
	Account   string    `json:"account"`
	Who       string    `json:"who,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	SeriesID  *string   `json:"series_id"`
	CreatedAt time.Time `json:"-"`
}

// StartDate returns the calendar date of the booking start, midnight in the
// booking's own location.
func (b *Booking) StartDate() time.Time {
	y, m, d := b.Start.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, b.Start.Location())
}

// InSeries reports whether the booking belongs to a recurring series.
func (b *Booking) InSeries() bool {
	return b.SeriesID != nil && *b.SeriesID != ""
}
