// Package config loads the adapter configuration: built-in defaults, an
// optional TOML file, then environment variable overrides.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
)

// Config holds the complete application configuration.
type Config struct {
	Postgres   Postgres   `toml:"postgres"`
	ClickHouse ClickHouse `toml:"clickhouse"`
	Redis      Redis      `toml:"redis"`
	Sync       Sync       `toml:"sync"`
	Log        Log        `toml:"log"`
}

// Postgres holds the shared metadata database settings.
type Postgres struct {
	Host     string `toml:"host" env:"PG_HOST"`
	Port     int    `toml:"port" env:"PG_PORT"`
	User     string `toml:"user" env:"PG_USER"`
	Password string `toml:"password" env:"PG_PASSWORD"`
	Database string `toml:"database" env:"PG_DATABASE"`
}

// DSN renders the pgx connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", p.User, p.Password, p.Host, p.Port, p.Database)
}

// ClickHouse holds the warehouse endpoint settings.
type ClickHouse struct {
	Host     string `toml:"host" env:"CLICKHOUSE_HOST"`
	Port     int    `toml:"port" env:"CLICKHOUSE_PORT"`
	User     string `toml:"user" env:"CLICKHOUSE_USER"`
	Password string `toml:"password" env:"CLICKHOUSE_PASSWORD"`
}

// Redis holds the shared lock, cache and staging store endpoint.
type Redis struct {
	Host string `toml:"host" env:"REDIS_HOST"`
	Port int    `toml:"port" env:"REDIS_PORT"`
}

// Addr renders host:port for the Redis client.
func (r Redis) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Sync tunes the engine.
type Sync struct {
	LockTTLSeconds int     `toml:"lock_ttl_seconds" env:"SYNC_LOCK_TTL_SECONDS"`
	MaxErrorRate   float64 `toml:"max_error_rate" env:"MAX_ERROR_RATE"`
	ChunkSize      int     `toml:"chunk_size" env:"CHUNK_SIZE"`
}

// Log holds logging settings.
type Log struct {
	Level string `toml:"level" env:"LOG_LEVEL"`
}

// Default returns the configuration used when neither file nor environment
// overrides a setting.
func Default() Config {
	return Config{
		Postgres:   Postgres{Host: "localhost", Port: 5432, User: "postgres", Password: "postgres", Database: "financial_shared"},
		ClickHouse: ClickHouse{Host: "localhost", Port: 9000, User: "default"},
		Redis:      Redis{Host: "localhost", Port: 6379},
		Sync:       Sync{LockTTLSeconds: 600, MaxErrorRate: 0.50, ChunkSize: 50_000},
		Log:        Log{Level: "info"},
	}
}

// Load builds the configuration. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Postgres.Port <= 0 || c.ClickHouse.Port <= 0 || c.Redis.Port <= 0 {
		return fmt.Errorf("config: ports must be positive")
	}
	if c.Sync.LockTTLSeconds <= 0 {
		return fmt.Errorf("config: sync lock TTL must be positive")
	}
	if c.Sync.MaxErrorRate <= 0 || c.Sync.MaxErrorRate > 1 {
		return fmt.Errorf("config: max error rate must be in (0, 1], got %v", c.Sync.MaxErrorRate)
	}
	if c.Sync.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk size must be positive")
	}
	return nil
}
