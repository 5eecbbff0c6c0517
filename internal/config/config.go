package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted after the config file.
const (
	EnvAddr     = "GEOVOICE_ADDR"
	EnvLogLevel = "GEOVOICE_LOG_LEVEL"
)

// Config holds all geovoiced configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr              string `yaml:"addr"`
	ReadHeaderTimeout string `yaml:"read_header_timeout"`
	ReadTimeout       string `yaml:"read_timeout"`
	WriteTimeout      string `yaml:"write_timeout"`
	IdleTimeout       string `yaml:"idle_timeout"`
	ShutdownTimeout   string `yaml:"shutdown_timeout"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level        string `yaml:"level"` // debug, info, warn, error
	Development  bool   `yaml:"development"`
	ExcerptWords int    `yaml:"excerpt_words"` // transcript words kept in request logs
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: "5s",
			ReadTimeout:       "15s",
			WriteTimeout:      "30s",
			IdleTimeout:       "60s",
			ShutdownTimeout:   "10s",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ExcerptWords: 24,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load is Read followed by Validate, for callers with no further overrides.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads the YAML file at path over the defaults, then applies env
// overrides. An empty path skips the file. The result is not validated, so
// callers can layer flags on top before calling Validate.
func Read(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAddr)); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	durations := []struct {
		name  string
		value string
	}{
		{"server.read_header_timeout", c.Server.ReadHeaderTimeout},
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"server.idle_timeout", c.Server.IdleTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
	}
	for _, d := range durations {
		if _, err := parsePositive(d.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	if c.Logging.ExcerptWords < 0 {
		errs = append(errs, errors.New("logging.excerpt_words must be >= 0"))
	}

	if c.Metrics.Enabled {
		switch p := c.Metrics.Path; {
		case !strings.HasPrefix(p, "/"):
			errs = append(errs, fmt.Errorf("metrics.path must start with /: %q", p))
		case reservedPath(p):
			errs = append(errs, fmt.Errorf("metrics.path %q collides with an application route", p))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Timeouts is the parsed form of ServerConfig's duration strings.
type Timeouts struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
	Shutdown   time.Duration
}

// Timeouts parses the server durations. Call Validate first.
func (s ServerConfig) Timeouts() (Timeouts, error) {
	var t Timeouts
	var err error
	if t.ReadHeader, err = parsePositive(s.ReadHeaderTimeout); err != nil {
		return Timeouts{}, fmt.Errorf("read_header_timeout: %w", err)
	}
	if t.Read, err = parsePositive(s.ReadTimeout); err != nil {
		return Timeouts{}, fmt.Errorf("read_timeout: %w", err)
	}
	if t.Write, err = parsePositive(s.WriteTimeout); err != nil {
		return Timeouts{}, fmt.Errorf("write_timeout: %w", err)
	}
	if t.Idle, err = parsePositive(s.IdleTimeout); err != nil {
		return Timeouts{}, fmt.Errorf("idle_timeout: %w", err)
	}
	if t.Shutdown, err = parsePositive(s.ShutdownTimeout); err != nil {
		return Timeouts{}, fmt.Errorf("shutdown_timeout: %w", err)
	}
	return t, nil
}

func reservedPath(p string) bool {
	switch p {
	case "/", "/voice-command", "/health":
		return true
	}
	return strings.HasPrefix(p, "/static/")
}

func parsePositive(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}
