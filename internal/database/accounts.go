package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"zaalplanner/internal/models"
)

const accountColumns = `id, username, display_name, color, password_hash, created_at`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.DisplayName,
		&a.Color,
		&a.PasswordHash,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAccount создает аккаунт (используется только при первичном заполнении)
func (db *DB) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}

	query := `
        INSERT INTO accounts (username, display_name, color, password_hash, created_at)
        VALUES (?, ?, ?, ?, ?)
    `

	result, err := db.db.ExecContext(ctx, query,
		account.Username,
		account.DisplayName,
		account.Color,
		account.PasswordHash,
		account.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	account.ID = id
	return nil
}

// GetAccountByUsername возвращает аккаунт по имени пользователя
func (db *DB) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = ?`

	a, err := scanAccount(db.db.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAllAccounts возвращает все аккаунты в порядке создания
func (db *DB) GetAllAccounts(ctx context.Context) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY id ASC`

	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// CountAccounts возвращает количество аккаунтов
func (db *DB) CountAccounts(ctx context.Context) (int, error) {
	var count int
	err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)
	return count, err
}

// UpdateAccountPassword обновляет хэш пароля аккаунта (out-of-band)
func (db *DB) UpdateAccountPassword(ctx context.Context, username, passwordHash string) error {
	result, err := db.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ? WHERE username = ?`, passwordHash, username)
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
