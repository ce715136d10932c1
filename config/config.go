// Package config loads the SDK client configuration from YAML files and
// SWARMGATE_* environment variables, with environment taking precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" parse naturally.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds the client settings for reaching a gateway.
type Config struct {
	// Host is the gateway hostname or IP.
	Host string `yaml:"host"`
	// Port is the gateway port.
	Port int `yaml:"port"`
	// APIKey authenticates the connection. Empty disables authentication.
	APIKey string `yaml:"api_key"`
	// TLS switches the websocket endpoint to wss.
	TLS bool `yaml:"tls"`
	// DefaultTimeout bounds each command execution.
	DefaultTimeout Duration `yaml:"default_timeout"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		Host:           "localhost",
		Port:           8765,
		DefaultTimeout: Duration(30 * time.Second),
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (when non-empty), then environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SWARMGATE_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("SWARMGATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("SWARMGATE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("SWARMGATE_TLS"); v != "" {
		if tls, err := strconv.ParseBool(v); err == nil {
			cfg.TLS = tls
		}
	}
	if v := os.Getenv("SWARMGATE_TIMEOUT"); v != "" {
		if timeout, err := time.ParseDuration(v); err == nil {
			cfg.DefaultTimeout = Duration(timeout)
		}
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.DefaultTimeout < 0 {
		return fmt.Errorf("default_timeout cannot be negative")
	}
	return nil
}

// URL returns the websocket endpoint for this configuration.
func (c Config) URL() string {
	scheme := "ws"
	if c.TLS {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d/ws", scheme, c.Host, c.Port)
}
