package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"zaalplanner/internal/auth"
	"zaalplanner/internal/grid"
	"zaalplanner/internal/models"
	"zaalplanner/internal/recurrence"
	"zaalplanner/internal/scheduler"
	"zaalplanner/internal/session"
)

const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type accountResponse struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ok, err := s.sessions.CheckRateLimit(r.Context(), "login:"+clientIP(r), loginRateLimit, loginRateWindow)
	if err != nil {
		s.logger.Error().Err(err).Msg("login rate limit check failed")
	} else if !ok {
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	account, err := s.authenticator.ValidateCredentials(r.Context(), body.Username, body.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	sess := session.New(account.Username)
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		s.logger.Error().Err(err).Msg("failed to store session")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   s.cfg.Session.TTLHours * 3600,
		HttpOnly: true,
		Secure:   s.cfg.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, accountResponse{
		Username:    account.Username,
		DisplayName: account.DisplayName,
		Color:       account.Color,
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if sess := SessionFromContext(r.Context()); sess != nil {
		if err := s.sessions.Delete(r.Context(), sess.Token); err != nil {
			s.logger.Error().Err(err).Msg("failed to delete session")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}

	account, err := s.db.GetAccountByUsername(r.Context(), sess.Username)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknown account")
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{
		Username:    account.Username,
		DisplayName: account.DisplayName,
		Color:       account.Color,
	})
}

func (s *HTTPServer) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.requireSession(w, r) == nil {
		return
	}

	accounts, err := s.db.GetAllAccounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse{
			Username:    a.Username,
			DisplayName: a.DisplayName,
			Color:       a.Color,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.requireSession(w, r) == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": s.cfg.Rooms})
}

func (s *HTTPServer) handleWeek(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.requireSession(w, r) == nil {
		return
	}

	anchor := time.Now()
	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.ParseInLocation(models.DateFormat, raw, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date; expected YYYY-MM-DD")
			return
		}
		anchor = parsed
	}

	weekStart := grid.WeekStart(anchor)
	weekEnd := weekStart.AddDate(0, 0, 7)

	bookings, err := s.db.GetBookingsOverlapping(r.Context(), weekStart, weekEnd)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	g := grid.Build(weekStart, s.cfg.Rooms, bookings)
	days := grid.Days(weekStart)
	dayStrings := make([]string, len(days))
	for i, d := range days {
		dayStrings[i] = d.Format(models.DateFormat)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"week_start": weekStart.Format(models.DateFormat),
		"prev_week":  weekStart.AddDate(0, 0, -7).Format(models.DateFormat),
		"next_week":  weekEnd.Format(models.DateFormat),
		"days":       dayStrings,
		"rooms":      s.cfg.Rooms,
		"grid":       g,
	})
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleBookingsFeed(w, r)
	case http.MethodPost:
		s.handleBookingCreate(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleBookingsFeed(w http.ResponseWriter, r *http.Request) {
	if s.requireSession(w, r) == nil {
		return
	}

	start := time.Time{}
	end := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start; expected RFC 3339")
			return
		}
		start = parsed
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end; expected RFC 3339")
			return
		}
		end = parsed
	}

	bookings, err := s.db.GetBookingsOverlapping(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

type bookingBody struct {
	Room      string      `json:"room"`
	Title     string      `json:"title"`
	Who       string      `json:"who"`
	Date      string      `json:"date"`
	StartTime string      `json:"start_time"`
	EndTime   string      `json:"end_time"`
	Repeat    *repeatBody `json:"repeat"`
}

type repeatBody struct {
	Days []int  `json:"days"`
	End  string `json:"end"`
}

// parseSlot converts date + clock strings into full instants in local time.
func parseSlot(date, startClock, endClock string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(models.DateFormat, date, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	startT, err := time.ParseInLocation(models.ClockFormat, startClock, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endT, err := time.ParseInLocation(models.ClockFormat, endClock, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	y, m, d := day.Date()
	start := time.Date(y, m, d, startT.Hour(), startT.Minute(), 0, 0, time.Local)
	end := time.Date(y, m, d, endT.Hour(), endT.Minute(), 0, 0, time.Local)
	return start, end, nil
}

// parseRepeat converts the Monday-based 0..6 wire weekdays into a RepeatSpec.
func parseRepeat(body *repeatBody) (*scheduler.RepeatSpec, error) {
	if body == nil {
		return nil, nil
	}

	spec := &scheduler.RepeatSpec{Weekdays: make(map[time.Weekday]bool, len(body.Days))}
	for _, idx := range body.Days {
		if idx < 0 || idx > 6 {
			return nil, errors.New("repeat day out of range")
		}
		spec.Weekdays[recurrence.FormIndex(idx)] = true
	}

	if body.End != "" {
		end, err := time.ParseInLocation(models.DateFormat, body.End, time.Local)
		if err != nil {
			return nil, err
		}
		spec.End = end
	}
	return spec, nil
}

func (s *HTTPServer) handleBookingCreate(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}

	var body bookingBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start, end, err := parseSlot(body.Date, body.StartTime, body.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date or time format")
		return
	}

	repeat, err := parseRepeat(body.Repeat)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.manager.CreateBooking(r.Context(), scheduler.CreateRequest{
		Room:    body.Room,
		Title:   body.Title,
		Account: sess.Username,
		Who:     body.Who,
		Start:   start,
		End:     end,
		Repeat:  repeat,
	})
	if err != nil {
		s.writeSchedulerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"created":   result.Created,
		"skipped":   formatDates(result.Skipped),
		"series_id": result.SeriesID,
	})
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	if s.requireSession(w, r) == nil {
		return
	}

	id, ok := pathID(w, r, "/api/v1/bookings/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.handleBookingEdit(w, r, id)
	case http.MethodDelete:
		s.handleBookingDelete(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleBookingEdit(w http.ResponseWriter, r *http.Request, id int64) {
	var body bookingBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start, end, err := parseSlot(body.Date, body.StartTime, body.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date or time format")
		return
	}

	repeat, err := parseRepeat(body.Repeat)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.manager.EditBooking(r.Context(), id, scheduler.EditRequest{
		Room:   body.Room,
		Title:  body.Title,
		Who:    body.Who,
		Start:  start,
		End:    end,
		Repeat: repeat,
	})
	if err != nil {
		s.writeSchedulerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"updated": result.Updated,
		"series":  result.Series,
	})
}

func (s *HTTPServer) handleBookingDelete(w http.ResponseWriter, r *http.Request, id int64) {
	if err := s.manager.DeleteBooking(r.Context(), id); err != nil {
		s.writeSchedulerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *HTTPServer) handleSeriesByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.requireSession(w, r) == nil {
		return
	}

	const prefix = "/api/v1/series/"
	seriesID := strings.TrimPrefix(r.URL.Path, prefix)
	if seriesID == "" || strings.Contains(seriesID, "/") {
		writeError(w, http.StatusBadRequest, "series id is required")
		return
	}

	count, err := s.manager.DeleteSeries(r.Context(), seriesID)
	if err != nil {
		s.writeSchedulerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": count})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.requireSession(w, r) == nil {
		return
	}

	anchor := time.Now()
	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.ParseInLocation(models.DateFormat, raw, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date; expected YYYY-MM-DD")
			return
		}
		anchor = parsed
	}

	path, err := s.exporter.ExportWeek(r.Context(), anchor)
	if err != nil {
		s.logger.Error().Err(err).Msg("export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\"weekrooster.xlsx\"")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
}

// writeSchedulerError maps scheduler errors onto HTTP status codes.
func (s *HTTPServer) writeSchedulerError(w http.ResponseWriter, err error) {
	var validation *scheduler.ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": validation.Reason,
			"field": validation.Field,
		})
		return
	}

	var conflict *scheduler.ConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "booking conflict",
			"conflicts": formatDates(conflict.Dates),
		})
		return
	}

	if errors.Is(err, scheduler.ErrNotFound) {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}

	s.logger.Error().Err(err).Msg("scheduler error")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func pathID(w http.ResponseWriter, r *http.Request, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(r.URL.Path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		writeError(w, http.StatusBadRequest, "id is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func formatDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(models.DateFormat))
	}
	return out
}
