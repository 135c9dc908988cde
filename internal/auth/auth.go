package auth

import (
	"context"
	"errors"
	"os"

	"zaalplanner/internal/config"
	"zaalplanner/internal/database"
	"zaalplanner/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials покрывает и неизвестное имя, и неверный пароль
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// AccountStore is the subset of the database the authenticator needs.
type AccountStore interface {
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	GetAllAccounts(ctx context.Context) ([]models.Account, error)
	CountAccounts(ctx context.Context) (int, error)
	CreateAccount(ctx context.Context, account *models.Account) error
}

type Authenticator struct {
	store  AccountStore
	logger *zerolog.Logger
}

func NewAuthenticator(store AccountStore, logger *zerolog.Logger) *Authenticator {
	return &Authenticator{store: store, logger: logger}
}

// ValidateCredentials verifies the password against the stored bcrypt hash.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (a *Authenticator) ValidateCredentials(ctx context.Context, username, password string) (*models.Account, error) {
	account, err := a.store.GetAccountByUsername(ctx, username)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// HashPassword генерирует bcrypt-хэш со стандартной стоимостью
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// SeedAccounts creates the configured accounts on an empty database. Accounts
// whose password env var is unset are skipped with a warning so a partial
// deployment still comes up. Re-running against a seeded database is a no-op.
func SeedAccounts(ctx context.Context, store AccountStore, defs []config.AccountDef, logger *zerolog.Logger) error {
	count, err := store.CountAccounts(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Debug().Int("accounts", count).Msg("accounts already seeded")
		return nil
	}

	seeded := 0
	for _, def := range defs {
		password := os.Getenv(def.PasswordEnv)
		if password == "" {
			logger.Warn().
				Str("username", def.Username).
				Str("env", def.PasswordEnv).
				Msg("password env var not set, skipping account")
			continue
		}

		hash, err := HashPassword(password)
		if err != nil {
			return err
		}

		account := &models.Account{
			Username:     def.Username,
			DisplayName:  def.DisplayName,
			Color:        def.Color,
			PasswordHash: hash,
		}
		if err := store.CreateAccount(ctx, account); err != nil {
			return err
		}
		seeded++
	}

	logger.Info().Int("seeded", seeded).Msg("accounts seeded")
	return nil
}
