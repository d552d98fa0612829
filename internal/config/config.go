package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	FormModeLossy  = "lossy"
	FormModeStrict = "strict"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName   string `mapstructure:"app_name"`
	Env       string `mapstructure:"app_env"`
	LogLevel  string `mapstructure:"log_level"`
	Transport string `mapstructure:"transport"`
	HTTPAddr  string `mapstructure:"http_addr"`

	UserAgent             string        `mapstructure:"user_agent"`
	FormMode              string        `mapstructure:"form_mode"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	LogBodyBytes          int           `mapstructure:"log_body_bytes"`
	RedactHeadersRaw      string        `mapstructure:"redact_headers"`
	RedactHeaders         []string      `mapstructure:"-"`

	JournalType            string        `mapstructure:"journal_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	JournalTTLSeconds      int64         `mapstructure:"journal_ttl_seconds"`
	JournalCleanupSeconds  int64         `mapstructure:"journal_cleanup_interval_seconds"`
	JournalTTL             time.Duration `mapstructure:"-"`
	JournalCleanupInterval time.Duration `mapstructure:"-"`
	RedisAddr              string        `mapstructure:"redis_addr"`
	RedisDB                int           `mapstructure:"redis_db"`
	RedisKeyPrefix         string        `mapstructure:"redis_key_prefix"`

	SinksFile string `mapstructure:"sinks_file"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "fetchbridge")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("transport", TransportStdio)
	v.SetDefault("http_addr", "127.0.0.1:7878")
	v.SetDefault("user_agent", "fetchbridge/1.0")
	v.SetDefault("form_mode", FormModeLossy)
	v.SetDefault("request_timeout_seconds", 0) // unbounded
	v.SetDefault("log_body_bytes", 512)
	v.SetDefault("redact_headers", "authorization,proxy-authorization,cookie,set-cookie,x-api-key")
	v.SetDefault("journal_type", "none")
	v.SetDefault("bbolt_path", "./data/journal.db")
	v.SetDefault("journal_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("journal_cleanup_interval_seconds", int64(time.Hour/time.Second))
	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_key_prefix", "fetchbridge:exchange:")
	v.SetDefault("sinks_file", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize validates raw values and fills the derived fields.
func (cfg *Config) normalize() error {
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	switch cfg.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("invalid transport %q (expected %s or %s)", cfg.Transport, TransportStdio, TransportHTTP)
	}

	cfg.FormMode = strings.ToLower(strings.TrimSpace(cfg.FormMode))
	switch cfg.FormMode {
	case FormModeLossy, FormModeStrict:
	default:
		return fmt.Errorf("invalid form_mode %q (expected %s or %s)", cfg.FormMode, FormModeLossy, FormModeStrict)
	}

	if strings.TrimSpace(cfg.UserAgent) == "" {
		return fmt.Errorf("user_agent must not be empty")
	}
	if cfg.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("invalid request_timeout_seconds (must be zero or positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	if cfg.LogBodyBytes < 0 {
		return fmt.Errorf("invalid log_body_bytes (must be zero or positive)")
	}
	cfg.RedactHeaders = splitList(cfg.RedactHeadersRaw)

	if cfg.JournalTTLSeconds <= 0 {
		return fmt.Errorf("invalid journal_ttl_seconds (must be positive seconds)")
	}
	if cfg.JournalCleanupSeconds <= 0 {
		return fmt.Errorf("invalid journal_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.JournalTTL = time.Duration(cfg.JournalTTLSeconds) * time.Second
	cfg.JournalCleanupInterval = time.Duration(cfg.JournalCleanupSeconds) * time.Second

	cfg.SinksFile = strings.TrimSpace(cfg.SinksFile)
	return nil
}

// splitList splits a comma separated value into trimmed, lower-cased, non-empty items.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
