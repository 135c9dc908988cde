package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
app:
  name: zaalplanner
  environment: test
database:
  path: /tmp/test.db
rooms:
  - "TMS ruimte"
  - "CO2 ruimte"
accounts:
  - username: mumc
    display_name: MUMC+
    color: "#8e24aa"
    password_env: PASS_MUMC
`

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, []string{"TMS ruimte", "CO2 ruimte"}, cfg.Rooms)
	require.Len(t, cfg.Accounts, 1)
	assert.Equal(t, "PASS_MUMC", cfg.Accounts[0].PasswordEnv)

	// Defaults
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "zp_session", cfg.Session.CookieName)
	assert.Equal(t, 12, cfg.Session.TTLHours)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/data/bookings.db")

	path := writeConfig(t, `
database:
  path: ${TEST_DB_PATH}
rooms: ["Wetlab"]
accounts:
  - username: mumc
    password_env: PASS_MUMC
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/bookings.db", cfg.Database.Path)
}

func TestLoadRejectsMissingDatabasePath(t *testing.T) {
	path := writeConfig(t, `
rooms: ["Wetlab"]
accounts:
  - username: mumc
    password_env: PASS_MUMC
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "database path")
}

func TestValidateRooms(t *testing.T) {
	assert.Error(t, ValidateRooms(nil))
	assert.Error(t, ValidateRooms([]string{""}))
	assert.ErrorContains(t, ValidateRooms([]string{"Wetlab", "Wetlab"}), "duplicate")
	assert.NoError(t, ValidateRooms([]string{"Wetlab", "TMS ruimte"}))
}

func TestValidateAccounts(t *testing.T) {
	assert.Error(t, ValidateAccounts(nil))
	assert.ErrorContains(t, ValidateAccounts([]AccountDef{
		{Username: "a", PasswordEnv: "P1"},
		{Username: "a", PasswordEnv: "P2"},
	}), "duplicate")
	assert.ErrorContains(t, ValidateAccounts([]AccountDef{
		{Username: "a"},
	}), "password_env")
}

func TestHasRoom(t *testing.T) {
	cfg := &Config{Rooms: []string{"Wetlab", "Behandelruimte"}}
	assert.True(t, cfg.HasRoom("Wetlab"))
	assert.False(t, cfg.HasRoom("Onbekend"))
}
