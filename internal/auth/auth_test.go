package auth

import (
	"context"
	"os"
	"testing"

	"zaalplanner/internal/config"
	"zaalplanner/internal/database"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedDefs() []config.AccountDef {
	return []config.AccountDef{
		{Username: "mumc", DisplayName: "MUMC+", Color: "#1f77b4", PasswordEnv: "TEST_PASS_MUMC"},
		{Username: "zuyd", DisplayName: "Zuyd Hogeschool", Color: "#ff7f0e", PasswordEnv: "TEST_PASS_ZUYD"},
	}
}

func TestSeedAndValidate(t *testing.T) {
	db := setupDB(t)
	logger := zerolog.New(os.Stdout)
	ctx := context.Background()

	t.Setenv("TEST_PASS_MUMC", "geheim123")
	t.Setenv("TEST_PASS_ZUYD", "wachtwoord")

	require.NoError(t, SeedAccounts(ctx, db, seedDefs(), &logger))

	auth := NewAuthenticator(db, &logger)

	account, err := auth.ValidateCredentials(ctx, "mumc", "geheim123")
	require.NoError(t, err)
	assert.Equal(t, "MUMC+", account.DisplayName)
	assert.Equal(t, "#1f77b4", account.Color)

	_, err = auth.ValidateCredentials(ctx, "mumc", "verkeerd")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.ValidateCredentials(ctx, "onbekend", "geheim123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSeedSkipsMissingPasswordEnv(t *testing.T) {
	db := setupDB(t)
	logger := zerolog.New(os.Stdout)
	ctx := context.Background()

	t.Setenv("TEST_PASS_MUMC", "geheim123")
	// TEST_PASS_ZUYD intentionally unset
	os.Unsetenv("TEST_PASS_ZUYD")

	require.NoError(t, SeedAccounts(ctx, db, seedDefs(), &logger))

	accounts, err := db.GetAllAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "mumc", accounts[0].Username)
}

func TestSeedIsIdempotent(t *testing.T) {
	db := setupDB(t)
	logger := zerolog.New(os.Stdout)
	ctx := context.Background()

	t.Setenv("TEST_PASS_MUMC", "geheim123")
	t.Setenv("TEST_PASS_ZUYD", "wachtwoord")

	require.NoError(t, SeedAccounts(ctx, db, seedDefs(), &logger))
	require.NoError(t, SeedAccounts(ctx, db, seedDefs(), &logger))

	accounts, err := db.GetAllAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestUpdatePasswordTakesEffect(t *testing.T) {
	db := setupDB(t)
	logger := zerolog.New(os.Stdout)
	ctx := context.Background()

	t.Setenv("TEST_PASS_MUMC", "geheim123")
	t.Setenv("TEST_PASS_ZUYD", "wachtwoord")
	require.NoError(t, SeedAccounts(ctx, db, seedDefs(), &logger))

	hash, err := HashPassword("nieuw-wachtwoord")
	require.NoError(t, err)
	require.NoError(t, db.UpdateAccountPassword(ctx, "mumc", hash))

	auth := NewAuthenticator(db, &logger)

	_, err = auth.ValidateCredentials(ctx, "mumc", "geheim123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.ValidateCredentials(ctx, "mumc", "nieuw-wachtwoord")
	assert.NoError(t, err)
}
