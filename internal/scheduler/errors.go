package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"zaalplanner/internal/models"
)

// ErrNotFound is returned when the target booking id does not exist.
var ErrNotFound = errors.New("scheduler: booking not found")

// ValidationError reports a malformed or missing request field. It is always
// raised before any persistence action.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError reports room double-booking. For series edits it carries
// every conflicting date and means the edit was rejected as a whole.
type ConflictError struct {
	Dates []time.Time
}

func (e *ConflictError) Error() string {
	days := make([]string, len(e.Dates))
	for i, d := range e.Dates {
		days[i] = d.Format(models.DateFormat)
	}
	return "room conflict on: " + strings.Join(days, ", ")
}
