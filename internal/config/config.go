// Package config resolves the settings of the privacydb command.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// PRIVACYDB_* environment variables. Command-line flags are applied last by
// the cli package.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/privacydb/internal/store"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PRIVACYDB_"

// Config holds every setting the command understands.
type Config struct {
	DBPath          string        `yaml:"db_path"          env:"DB_PATH"`
	Driver          string        `yaml:"driver"           env:"DRIVER"`
	BusyTimeout     time.Duration `yaml:"busy_timeout"     env:"BUSY_TIMEOUT"`
	JournalMode     string        `yaml:"journal_mode"     env:"JOURNAL_MODE"`
	TargetVersion   int           `yaml:"target_version"   env:"TARGET_VERSION"`
	LogLevel        string        `yaml:"log_level"        env:"LOG_LEVEL"`
	LogFormat       string        `yaml:"log_format"       env:"LOG_FORMAT"`
	MetricsTextfile string        `yaml:"metrics_textfile" env:"METRICS_TEXTFILE"`
}

// Valid values for the enumerated settings.
var (
	ValidDrivers      = []string{store.DriverMattn, store.DriverModernc}
	ValidJournalModes = []string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "OFF"}
	ValidLogLevels    = []string{"debug", "info", "warn", "error"}
	ValidLogFormats   = []string{"text", "json"}
)

// Default returns the built-in defaults.
// A TargetVersion of 0 means the latest version in the catalog.
func Default() Config {
	return Config{
		DBPath:      "privacy.db",
		Driver:      store.DriverMattn,
		BusyTimeout: 5 * time.Second,
		JournalMode: "WAL",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. A nil environ reads the process
// environment.
func Load(path string, environ map[string]string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}

	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks every enumerated and numeric setting.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if !oneOf(c.Driver, ValidDrivers) {
		return fmt.Errorf("invalid driver %q: must be one of %v", c.Driver, ValidDrivers)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("busy_timeout must not be negative, got %s", c.BusyTimeout)
	}
	if !oneOf(strings.ToUpper(c.JournalMode), ValidJournalModes) {
		return fmt.Errorf("invalid journal_mode %q: must be one of %v", c.JournalMode, ValidJournalModes)
	}
	if c.TargetVersion < 0 {
		return fmt.Errorf("target_version must not be negative, got %d", c.TargetVersion)
	}
	if !oneOf(c.LogLevel, ValidLogLevels) {
		return fmt.Errorf("invalid log_level %q: must be one of %v", c.LogLevel, ValidLogLevels)
	}
	if !oneOf(c.LogFormat, ValidLogFormats) {
		return fmt.Errorf("invalid log_format %q: must be one of %v", c.LogFormat, ValidLogFormats)
	}
	return nil
}

// StoreOptions returns the options used to open the store.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Driver:      c.Driver,
		BusyTimeout: c.BusyTimeout,
		JournalMode: strings.ToUpper(c.JournalMode),
	}
}

// Level returns the slog level for LogLevel.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func oneOf(v string, valid []string) bool {
	for _, s := range valid {
		if s == v {
			return true
		}
	}
	return false
}
