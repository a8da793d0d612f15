package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all mnemo configuration. Values come from defaults
// overridden by MNEMO_* environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Bind string `env:"MNEMO_BIND" envDefault:"127.0.0.1"`
	Port int    `env:"MNEMO_PORT" envDefault:"38642"`
}

type DatabaseConfig struct {
	// Path of the SQLite database file. Empty means resolve at runtime
	// via store.DefaultDBPath().
	Path string `env:"MNEMO_DB_PATH"`
}

type LoggingConfig struct {
	Level string `env:"MNEMO_LOG_LEVEL" envDefault:"info"` // "debug", "info", "warn", "error"
}

// Default returns a Config with built-in defaults, ignoring the environment.
func Default() Config {
	return Config{
		Server:  ServerConfig{Bind: "127.0.0.1", Port: 38642},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults and MNEMO_* env overrides.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
