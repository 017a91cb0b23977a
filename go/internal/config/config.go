// Package config loads client settings from defaults, an optional YAML file
// and LABYRINTH_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds the client settings.
type Config struct {
	ServerURL     string `yaml:"server_url"     env:"LABYRINTH_SERVER_URL"`
	WebSocketPath string `yaml:"websocket_path" env:"LABYRINTH_WEBSOCKET_PATH"`
	StatePath     string `yaml:"state_path"     env:"LABYRINTH_STATE_PATH"`

	ReconnectBackoff time.Duration `yaml:"reconnect_backoff" env:"LABYRINTH_RECONNECT_BACKOFF"`
	MaxRetries       int           `yaml:"max_retries"       env:"LABYRINTH_MAX_RETRIES"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" env:"LABYRINTH_HANDSHAKE_TIMEOUT"`
	WriteTimeout     time.Duration `yaml:"write_timeout"     env:"LABYRINTH_WRITE_TIMEOUT"`
	ReadTimeout      time.Duration `yaml:"read_timeout"      env:"LABYRINTH_READ_TIMEOUT"`
	PingInterval     time.Duration `yaml:"ping_interval"     env:"LABYRINTH_PING_INTERVAL"`
	RefreshTimeout   time.Duration `yaml:"refresh_timeout"   env:"LABYRINTH_REFRESH_TIMEOUT"`

	NATSURL           string `yaml:"nats_url"            env:"NATS_URL"`
	NATSSubjectPrefix string `yaml:"nats_subject_prefix" env:"LABYRINTH_NATS_SUBJECT_PREFIX"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		ServerURL:         "http://localhost:8080",
		WebSocketPath:     "/game",
		StatePath:         "labyrinth-client.db",
		ReconnectBackoff:  2 * time.Second,
		MaxRetries:        5,
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadTimeout:       90 * time.Second,
		PingInterval:      30 * time.Second,
		RefreshTimeout:    10 * time.Second,
		NATSSubjectPrefix: "labyrinth.client",
		LogLevel:          "info",
	}
}

// Load builds the configuration. An empty path skips the YAML file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
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

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.WebSocketURL(); err != nil {
		errs = append(errs, err)
	}
	if c.ReconnectBackoff <= 0 {
		errs = append(errs, errors.New("reconnect_backoff must be positive"))
	}
	if c.MaxRetries <= 0 {
		errs = append(errs, errors.New("max_retries must be positive"))
	}
	if c.HandshakeTimeout <= 0 {
		errs = append(errs, errors.New("handshake_timeout must be positive"))
	}
	if c.PingInterval < 0 || c.ReadTimeout < 0 {
		errs = append(errs, errors.New("ping_interval and read_timeout must not be negative"))
	}
	if c.PingInterval > 0 && c.ReadTimeout > 0 && c.ReadTimeout <= c.PingInterval {
		errs = append(errs, errors.New("read_timeout must exceed ping_interval"))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// WebSocketURL derives the realtime endpoint from the server URL: http
// becomes ws and https becomes wss.
func (c Config) WebSocketURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("server_url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("server_url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("server_url: missing host")
	}
	u.Path = "/" + strings.TrimPrefix(c.WebSocketPath, "/")
	u.RawQuery = ""
	return u.String(), nil
}

// HTTPBaseURL returns the REST base URL for the server.
func (c Config) HTTPBaseURL() string {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return c.ServerURL
	}
	switch strings.ToLower(u.Scheme) {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	return strings.TrimSuffix(u.String(), "/")
}

// Level returns the configured log level, defaulting to info.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
