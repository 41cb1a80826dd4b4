// Package config provides configuration loading for the pimkit server.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Seed    SeedConfig    `yaml:"seed"`
	Session SessionConfig `yaml:"session"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address (host:port).
	Addr string `yaml:"addr"`
	// DefaultLanguage is the language used when a request names none.
	DefaultLanguage string `yaml:"default_language"`
}

// StoreConfig configures catalogue persistence.
type StoreConfig struct {
	// Path is the SQLite database file. ":memory:" or empty with
	// InMemory selects the in-memory store.
	Path string `yaml:"path"`
	// InMemory selects the map-backed store, for demos.
	InMemory bool `yaml:"in_memory"`
}

// SeedConfig configures the CUE seed catalogue.
type SeedConfig struct {
	// Path is the seed file to load at startup. Empty disables seeding.
	Path string `yaml:"path"`
	// Watch enables hot reload of the seed file.
	Watch bool `yaml:"watch"`
}

// SessionConfig bounds live selection sessions.
type SessionConfig struct {
	// MaxAge is the hard session lifetime.
	MaxAge time.Duration `yaml:"max_age"`
	// IdleTimeout expires sessions with no activity.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			DefaultLanguage: "en",
		},
		Store: StoreConfig{
			Path: "pimkit.db",
		},
		Seed: SeedConfig{
			Path:  "",
			Watch: false,
		},
		Session: SessionConfig{
			MaxAge:      2 * time.Hour,
			IdleTimeout: 30 * time.Minute,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	if c.Session.MaxAge <= 0 {
		return fmt.Errorf("session.max_age must be positive")
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("session.idle_timeout must be positive")
	}
	return nil
}

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
