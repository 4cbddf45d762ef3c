// Package config reads the daemon's settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	SettingsDriver  string        `env:"SETTINGS_DRIVER" envDefault:"file"`
	SettingsFile    string        `env:"SETTINGS_FILE" envDefault:"/data/settings.json"`
	SettingsDB      string        `env:"SETTINGS_DB" envDefault:"/data/settings.db"`
	HostFile        string        `env:"HOST_FILE"`
	PersistDebounce time.Duration `env:"PERSIST_DEBOUNCE" envDefault:"1s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.SettingsDriver {
	case DriverFile, DriverSQLite:
	default:
		return fmt.Errorf("unknown SETTINGS_DRIVER %q (want %q or %q)", c.SettingsDriver, DriverFile, DriverSQLite)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.PersistDebounce < 0 {
		return fmt.Errorf("PERSIST_DEBOUNCE must not be negative")
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
