// Package config loads the toolgate server configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/toolgate"
	"github.com/aretw0/toolgate/internal/logging"
	"gopkg.in/yaml.v3"
)

// Transports understood by the serve command.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// Environment variables that override file values.
const (
	EnvMaxActive       = "TOOLGATE_MAX_ACTIVE"
	EnvMaxQueue        = "TOOLGATE_MAX_QUEUE"
	EnvMaxPayloadBytes = "TOOLGATE_MAX_PAYLOAD_BYTES"
	EnvLogLevel        = "TOOLGATE_LOG_LEVEL"
	EnvRedisAddr       = "TOOLGATE_REDIS_ADDR"
)

// Config is the structure of toolgate.yaml.
type Config struct {
	Server ServerConfig      `yaml:"server"`
	Log    LogConfig         `yaml:"log"`
	Limits Limits            `yaml:"limits"`
	Tools  map[string]Limits `yaml:"tools"`
	Redis  RedisConfig       `yaml:"redis"`
	Demo   DemoConfig        `yaml:"demo"`
}

// ServerConfig selects the MCP transport and the optional HTTP API.
type ServerConfig struct {
	Name      string `yaml:"name"`
	Transport string `yaml:"transport"`
	Port      int    `yaml:"port"`
	// HTTPPort serves the JSON API and /metrics; zero disables it.
	HTTPPort int  `yaml:"http_port"`
	Rethrow  bool `yaml:"rethrow"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Limits mirrors toolgate.Limits.
type Limits struct {
	MaxActive       int `yaml:"max_active"`
	MaxQueue        int `yaml:"max_queue"`
	MaxPayloadBytes int `yaml:"max_payload_bytes"`
}

// RedisConfig enables cross-replica mutation locks when Addr is set.
type RedisConfig struct {
	Addr    string        `yaml:"addr"`
	Prefix  string        `yaml:"prefix"`
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// DemoConfig configures the bundled tasks tool.
type DemoConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Database string `yaml:"database"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	d := toolgate.DefaultLimits()
	return &Config{
		Server: ServerConfig{
			Name:      "toolgate",
			Transport: TransportStdio,
			Port:      8080,
		},
		Log: LogConfig{Level: "info", Format: string(logging.FormatText)},
		Limits: Limits{
			MaxActive:       d.MaxActive,
			MaxQueue:        d.MaxQueue,
			MaxPayloadBytes: d.MaxPayloadBytes,
		},
		Tools: map[string]Limits{},
		Redis: RedisConfig{Prefix: "toolgate:", LockTTL: 30 * time.Second},
		Demo:  DemoConfig{Enabled: true, Database: ":memory:"},
	}
}

// Load reads path on top of the defaults and applies environment overrides.
// An empty path or a missing file yields the defaults. JSON files are
// accepted since YAML is a superset.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{EnvMaxActive, &c.Limits.MaxActive},
		{EnvMaxQueue, &c.Limits.MaxQueue},
		{EnvMaxPayloadBytes, &c.Limits.MaxPayloadBytes},
	}
	for _, e := range ints {
		v := strings.TrimSpace(getenv(e.name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.name, err)
		}
		*e.dst = n
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvRedisAddr); v != "" {
		c.Redis.Addr = v
	}
	return nil
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	var errs []error
	switch c.Server.Transport {
	case TransportStdio:
	case TransportSSE:
		if c.Server.Port <= 0 {
			errs = append(errs, fmt.Errorf("server.port must be positive for the sse transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q (expected %s or %s)", c.Server.Transport, TransportStdio, TransportSSE))
	}
	if c.Server.HTTPPort < 0 {
		errs = append(errs, fmt.Errorf("server.http_port must not be negative"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch logging.Format(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	errs = append(errs, c.Limits.validate("limits"))
	for name, l := range c.Tools {
		errs = append(errs, l.validate("tools."+name))
	}
	if c.Redis.Addr != "" && c.Redis.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("redis.lock_ttl must be positive"))
	}
	return errors.Join(errs...)
}

func (l Limits) validate(path string) error {
	if l.MaxActive < 1 {
		return fmt.Errorf("%s.max_active must be at least 1", path)
	}
	if l.MaxQueue < 0 {
		return fmt.Errorf("%s.max_queue must not be negative", path)
	}
	if l.MaxPayloadBytes < 0 {
		return fmt.Errorf("%s.max_payload_bytes must not be negative", path)
	}
	return nil
}

// ToolgateLimits converts to the library type.
func (l Limits) ToolgateLimits() toolgate.Limits {
	return toolgate.Limits{
		MaxActive:       l.MaxActive,
		MaxQueue:        l.MaxQueue,
		MaxPayloadBytes: l.MaxPayloadBytes,
	}
}

// ServerOptions translates the limits and server settings into toolgate
// options.
func (c *Config) ServerOptions() []toolgate.Option {
	opts := []toolgate.Option{
		toolgate.WithName(c.Server.Name),
		toolgate.WithLimits(c.Limits.ToolgateLimits()),
		toolgate.WithRethrow(c.Server.Rethrow),
	}
	for name, l := range c.Tools {
		opts = append(opts, toolgate.WithToolLimits(name, l.ToolgateLimits()))
	}
	return opts
}
