// Package config loads gymdesk settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env       string          `yaml:"env"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	Roll      RollConfig      `yaml:"roll"`
	Email     EmailConfig     `yaml:"email"`
	Outbox    OutboxConfig    `yaml:"outbox"`
	Admin     AdminConfig     `yaml:"admin"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CSRFKey   string          `yaml:"csrf_key"`
}

type ServerConfig struct {
	Port            int `yaml:"port"`
	ShutdownTimeout int `yaml:"shutdown_timeout_sec"`
}

type DatabaseConfig struct {
	RecordPath    string `yaml:"record_path"`
	CachePath     string `yaml:"cache_path"`
	SlowQueryMs   int    `yaml:"slow_query_ms"`
	BusyTimeoutMs int    `yaml:"busy_timeout_ms"`
}

type StoreConfig struct {
	TimeoutMs int `yaml:"timeout_ms"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type RollConfig struct {
	Prefix string `yaml:"prefix"`
	Floor  int64  `yaml:"floor"`
}

type EmailConfig struct {
	ResendKey string `yaml:"resend_key"`
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
}

type OutboxConfig struct {
	IntervalSec int `yaml:"interval_sec"`
	BatchSize   int `yaml:"batch_size"`
}

type AdminConfig struct {
	KeyHash string `yaml:"key_hash"` // bcrypt hash of the admin key
}

type TelemetryConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	Insecure     bool    `yaml:"insecure"`
	ServiceName  string  `yaml:"service_name"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

type RateLimitConfig struct {
	PerSecond              float64 `yaml:"per_second"`
	Burst                  int     `yaml:"burst"`
	RegistrationsPerMinute int     `yaml:"registrations_per_minute"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Env:       "development",
		Server:    ServerConfig{Port: 8080, ShutdownTimeout: 10},
		Database:  DatabaseConfig{RecordPath: "gymdesk.db", CachePath: "gymdesk-cache.db", SlowQueryMs: 100, BusyTimeoutMs: 5000},
		Store:     StoreConfig{TimeoutMs: 3000},
		Log:       LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Roll:      RollConfig{Prefix: "GYM"},
		Outbox:    OutboxConfig{IntervalSec: 30, BatchSize: 50},
		Telemetry: TelemetryConfig{ServiceName: "gymdesk", SampleRatio: 1},
		RateLimit: RateLimitConfig{PerSecond: 10, Burst: 20, RegistrationsPerMinute: 30},
	}
}

// Load reads configFile (or the first default path that exists) over the
// defaults, then applies GYMDESK_* environment overrides.
// POST: a missing file is not an error; a malformed one is
func Load(configFile string) (*Config, error) {
	c := Default()

	paths := []string{"gymdesk.yaml", "/etc/gymdesk/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if configFile != "" {
				return nil, fmt.Errorf("read config: %w", err)
			}
			continue
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		break
	}

	envOverride(&c.Env, "GYMDESK_ENV")
	envOverride(&c.Database.RecordPath, "GYMDESK_RECORD_DB")
	envOverride(&c.Database.CachePath, "GYMDESK_CACHE_DB")
	envOverride(&c.Log.Level, "GYMDESK_LOG_LEVEL")
	envOverride(&c.Log.File, "GYMDESK_LOG_FILE")
	envOverride(&c.Roll.Prefix, "GYMDESK_ROLL_PREFIX")
	envOverride(&c.Email.ResendKey, "GYMDESK_RESEND_KEY")
	envOverride(&c.Email.From, "GYMDESK_EMAIL_FROM")
	envOverride(&c.Admin.KeyHash, "GYMDESK_ADMIN_KEY_HASH")
	envOverride(&c.Telemetry.OTLPEndpoint, "GYMDESK_OTLP_ENDPOINT")
	envOverride(&c.CSRFKey, "GYMDESK_CSRF_KEY")
	envOverrideInt(&c.Server.Port, "GYMDESK_PORT")
	envOverrideInt(&c.Store.TimeoutMs, "GYMDESK_STORE_TIMEOUT_MS")
	envOverrideInt64(&c.Roll.Floor, "GYMDESK_ROLL_FLOOR")

	return c, nil
}

// Validate checks settings that have no safe fallback.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Roll.Prefix) == "" {
		errs = append(errs, errors.New("roll.prefix is required"))
	}
	if c.Roll.Floor < 0 {
		errs = append(errs, errors.New("roll.floor cannot be negative"))
	}
	if c.Database.RecordPath == "" || c.Database.CachePath == "" {
		errs = append(errs, errors.New("database.record_path and database.cache_path are required"))
	}
	if c.Database.RecordPath != ":memory:" && c.Database.RecordPath == c.Database.CachePath {
		errs = append(errs, errors.New("record and cache databases must be separate files"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Store.TimeoutMs <= 0 {
		errs = append(errs, errors.New("store.timeout_ms must be positive"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, errors.New("telemetry.sample_ratio must be within [0, 1]"))
	}
	if c.IsProduction() && len(c.CSRFKey) != 32 {
		errs = append(errs, errors.New("csrf_key must be 32 bytes in production"))
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.Store.TimeoutMs) * time.Millisecond
}

func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.Database.SlowQueryMs) * time.Millisecond
}

func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Database.BusyTimeoutMs) * time.Millisecond
}

func (c *Config) OutboxInterval() time.Duration {
	return time.Duration(c.Outbox.IntervalSec) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envOverrideInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
