package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"zaalplanner/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a booking or account id does not exist.
var ErrNotFound = errors.New("database: not found")

type DB struct {
	db     *sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	// Создаем директорию для БД, если её нет
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{db: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Таблица аккаунтов
		`CREATE TABLE IF NOT EXISTS accounts (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT UNIQUE NOT NULL,
            display_name TEXT NOT NULL,
            color TEXT NOT NULL,
            password_hash TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		// Таблица бронирований
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            room TEXT NOT NULL,
            title TEXT NOT NULL,
            account TEXT NOT NULL,
            who TEXT,
            start_at DATETIME NOT NULL,
            end_at DATETIME NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            series_id TEXT
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_room ON bookings(room)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_start_at ON bookings(start_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_series_id ON bookings(series_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

const bookingColumns = `id, room, title, account, who, start_at, end_at, created_at, series_id`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	var who sql.NullString
	var seriesID sql.NullString

	err := row.Scan(
		&b.ID,
		&b.Room,
		&b.Title,
		&b.Account,
		&who,
		&b.Start,
		&b.End,
		&b.CreatedAt,
		&seriesID,
	)
	if err != nil {
		return nil, err
	}

	if who.Valid {
		b.Who = who.String
	}
	if seriesID.Valid && seriesID.String != "" {
		s := seriesID.String
		b.SeriesID = &s
	}
	return &b, nil
}

func collectBookings(rows *sql.Rows) ([]models.Booking, error) {
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableSeries(seriesID *string) sql.NullString {
	if seriesID == nil {
		return sql.NullString{}
	}
	return nullable(*seriesID)
}

// CreateBooking создает новое бронирование
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now()
	}

	query := `
        INSERT INTO bookings (room, title, account, who, start_at, end_at, created_at, series_id)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `

	result, err := db.db.ExecContext(ctx, query,
		booking.Room,
		booking.Title,
		booking.Account,
		nullable(booking.Who),
		booking.Start,
		booking.End,
		booking.CreatedAt,
		nullableSeries(booking.SeriesID),
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	booking.ID = id
	return nil
}

// GetBooking возвращает бронирование по ID
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`

	b, err := scanBooking(db.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBooking обновляет поля существующего бронирования на месте
func (db *DB) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	query := `
        UPDATE bookings
        SET room = ?, title = ?, who = ?, start_at = ?, end_at = ?
        WHERE id = ?
    `

	result, err := db.db.ExecContext(ctx, query,
		booking.Room,
		booking.Title,
		nullable(booking.Who),
		booking.Start,
		booking.End,
		booking.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBooking удаляет одно бронирование
func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	result, err := db.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSeries удаляет все бронирования серии и возвращает их количество
func (db *DB) DeleteSeries(ctx context.Context, seriesID string) (int64, error) {
	result, err := db.db.ExecContext(ctx, `DELETE FROM bookings WHERE series_id = ?`, seriesID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetSeriesOccurrences возвращает все бронирования серии по возрастанию начала
func (db *DB) GetSeriesOccurrences(ctx context.Context, seriesID string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE series_id = ? ORDER BY start_at ASC`

	rows, err := db.db.QueryContext(ctx, query, seriesID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// GetRoomBookings возвращает все бронирования комнаты по возрастанию начала
func (db *DB) GetRoomBookings(ctx context.Context, room string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE room = ? ORDER BY start_at ASC`

	rows, err := db.db.QueryContext(ctx, query, room)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// GetBookingsOverlapping возвращает бронирования, пересекающие период [start, end]
func (db *DB) GetBookingsOverlapping(ctx context.Context, start, end time.Time) ([]models.Booking, error) {
	query := `
        SELECT ` + bookingColumns + `
        FROM bookings
        WHERE start_at <= ? AND end_at >= ?
        ORDER BY start_at ASC
    `

	rows, err := db.db.QueryContext(ctx, query, end, start)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ReplaceSeries атомарно заменяет все бронирования серии новым набором.
// Caller has already validated the replacement; within the transaction the
// series is deleted and reinserted so readers never observe a partial swap.
func (db *DB) ReplaceSeries(ctx context.Context, seriesID string, bookings []models.Booking) (int, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE series_id = ?`, seriesID); err != nil {
		return 0, err
	}

	insert := `
        INSERT INTO bookings (room, title, account, who, start_at, end_at, created_at, series_id)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	now := time.Now()
	for i := range bookings {
		b := &bookings[i]
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if _, err := tx.ExecContext(ctx, insert,
			b.Room, b.Title, b.Account, nullable(b.Who), b.Start, b.End, b.CreatedAt, nullableSeries(b.SeriesID),
		); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(bookings), nil
}

func (db *DB) Close() error {
	return db.db.Close()
}
