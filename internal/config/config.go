package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Transport modes for the tool server.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ConfigPathEnv names the optional YAML config file.
const ConfigPathEnv = "AZWARY_CONFIG_PATH"

// Config defines application configuration.
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Feedback  FeedbackConfig  `yaml:"feedback"`
	Transport TransportConfig `yaml:"transport"`
}

type BackendConfig struct {
	URL         string        `yaml:"url" env:"AZWARY_BACKEND_URL"`
	AnonKey     string        `yaml:"anon_key" env:"AZWARY_BACKEND_ANON_KEY"`
	AccessToken string        `yaml:"access_token" env:"AZWARY_ACCESS_TOKEN"`
	UserID      string        `yaml:"user_id" env:"AZWARY_USER_ID"`
	Email       string        `yaml:"email" env:"AZWARY_EMAIL"`
	Password    string        `yaml:"password" env:"AZWARY_PASSWORD"`
	Timeout     time.Duration `yaml:"timeout" env:"AZWARY_BACKEND_TIMEOUT"`
}

type RealtimeConfig struct {
	Enabled     bool          `yaml:"enabled" env:"AZWARY_REALTIME_ENABLED"`
	Heartbeat   time.Duration `yaml:"heartbeat" env:"AZWARY_REALTIME_HEARTBEAT"`
	JoinTimeout time.Duration `yaml:"join_timeout" env:"AZWARY_REALTIME_JOIN_TIMEOUT"`
	MinBackoff  time.Duration `yaml:"min_backoff" env:"AZWARY_REALTIME_MIN_BACKOFF"`
	MaxBackoff  time.Duration `yaml:"max_backoff" env:"AZWARY_REALTIME_MAX_BACKOFF"`
}

type DBConfig struct {
	Path string `yaml:"path" env:"AZWARY_DB_PATH"`
}

type LogConfig struct {
	Level      string `yaml:"level" env:"AZWARY_LOG_LEVEL"`
	File       string `yaml:"file" env:"AZWARY_LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"AZWARY_LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"AZWARY_LOG_MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" env:"AZWARY_LOG_MAX_AGE_DAYS"`
}

type FeedbackConfig struct {
	Locale string `yaml:"locale" env:"AZWARY_LOCALE"`
}

type TransportConfig struct {
	Mode       string `yaml:"mode" env:"AZWARY_TRANSPORT"`
	Host       string `yaml:"host" env:"AZWARY_HTTP_HOST"`
	Port       int    `yaml:"port" env:"AZWARY_HTTP_PORT"`
	AuthToken  string `yaml:"auth_token" env:"AZWARY_HTTP_AUTH_TOKEN"`
	LogTraffic bool   `yaml:"log_traffic" env:"AZWARY_LOG_TRAFFIC"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			Timeout: 15 * time.Second,
		},
		Realtime: RealtimeConfig{
			Enabled:     true,
			Heartbeat:   25 * time.Second,
			JoinTimeout: 10 * time.Second,
			MinBackoff:  time.Second,
			MaxBackoff:  30 * time.Second,
		},
		DB: DBConfig{
			Path: "azwary.db",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Feedback: FeedbackConfig{
			Locale: "en-US",
		},
		Transport: TransportConfig{
			Mode: TransportStdio,
			Host: "127.0.0.1",
			Port: 8080,
		},
	}
}

// Load reads defaults, then the optional YAML file named by
// AZWARY_CONFIG_PATH, then environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	var errs []error
	switch c.Transport.Mode {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, fmt.Errorf("invalid transport mode %q", c.Transport.Mode))
	}
	if c.Transport.Port <= 0 || c.Transport.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid http port %d", c.Transport.Port))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Realtime.MinBackoff > c.Realtime.MaxBackoff {
		errs = append(errs, errors.New("realtime min_backoff exceeds max_backoff"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP listen address.
func (t TransportConfig) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
}
