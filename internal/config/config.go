package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Session    SessionConfig    `yaml:"session"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Exports    ExportConfig     `yaml:"exports"`
	Rooms      []string         `yaml:"rooms"`
	Accounts   []AccountDef     `yaml:"accounts"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Port      int             `yaml:"port"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type SessionConfig struct {
	CookieName string `yaml:"cookie_name"`
	TTLHours   int    `yaml:"ttl_hours"`
	Secure     bool   `yaml:"secure"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ExportConfig struct {
	Path             string `yaml:"path"`
	SnapshotSchedule string `yaml:"snapshot_schedule"`
}

// AccountDef describes one of the fixed tenant accounts. The password is
// never kept in YAML; PasswordEnv names the environment variable holding
// the plaintext used at first-run seeding.
type AccountDef struct {
	Username    string `yaml:"username"`
	DisplayName string `yaml:"display_name"`
	Color       string `yaml:"color"`
	PasswordEnv string `yaml:"password_env"`
}

func Load(configPath string) (*Config, error) {
	// .env облегчает локальную разработку; в проде переменные приходят из окружения
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if err := ValidateRooms(c.Rooms); err != nil {
		return err
	}

	return ValidateAccounts(c.Accounts)
}

// ValidateRooms checks the fixed room enumeration for emptiness and duplicates.
func ValidateRooms(rooms []string) error {
	if len(rooms) == 0 {
		return errors.New("at least one room is required")
	}

	seen := make(map[string]bool, len(rooms))
	for _, room := range rooms {
		if room == "" {
			return errors.New("room name must not be empty")
		}
		if seen[room] {
			return fmt.Errorf("duplicate room name: %s", room)
		}
		seen[room] = true
	}
	return nil
}

// ValidateAccounts checks the fixed account list for duplicates and missing fields.
func ValidateAccounts(accounts []AccountDef) error {
	if len(accounts) == 0 {
		return errors.New("at least one account is required")
	}

	seen := make(map[string]bool, len(accounts))
	for _, acc := range accounts {
		if acc.Username == "" {
			return errors.New("account username must not be empty")
		}
		if seen[acc.Username] {
			return fmt.Errorf("duplicate account username: %s", acc.Username)
		}
		seen[acc.Username] = true
		if acc.PasswordEnv == "" {
			return fmt.Errorf("account %s has no password_env", acc.Username)
		}
	}
	return nil
}

// HasRoom reports whether the room is in the configured enumeration.
func (c *Config) HasRoom(room string) bool {
	for _, r := range c.Rooms {
		if r == room {
			return true
		}
	}
	return false
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "zp_session"
	}
	if c.Session.TTLHours == 0 {
		c.Session.TTLHours = 12
	}
	if c.Server.RateLimit.Burst == 0 && c.Server.RateLimit.RPS > 0 {
		c.Server.RateLimit.Burst = 5
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.App.Name == "" {
		c.App.Name = "zaalplanner"
	}
}
