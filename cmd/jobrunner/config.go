package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jdziat/resumable-jobs/pkg/handler"
	"github.com/jdziat/resumable-jobs/pkg/storage"
)

// Config is read from the environment.
type Config struct {
	DatabaseDSN   string `env:"JOBS_DATABASE_DSN" envDefault:"jobs.db"`
	RedisAddr     string `env:"JOBS_REDIS_ADDR"`
	RedisPassword string `env:"JOBS_REDIS_PASSWORD"`
	ListenAddr    string `env:"JOBS_LISTEN_ADDR" envDefault:":8080"`
	SelfURL       string `env:"JOBS_SELF_URL"`
	DispatchToken string `env:"JOBS_DISPATCH_TOKEN"`
	LogLevel      string `env:"JOBS_LOG_LEVEL" envDefault:"info"`

	// Zero leaves the storage package's per-dialect default in place.
	DBMaxOpenConns    int           `env:"JOBS_DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns    int           `env:"JOBS_DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetime time.Duration `env:"JOBS_DB_CONN_MAX_LIFETIME"`
	DBConnMaxIdleTime time.Duration `env:"JOBS_DB_CONN_MAX_IDLE_TIME"`

	Identifier          string        `env:"JOBS_IDENTIFIER" envDefault:"jobrunner"`
	DataKey             string        `env:"JOBS_DATA_KEY" envDefault:"data"`
	TimeLimit           time.Duration `env:"JOBS_TIME_LIMIT" envDefault:"20s"`
	LockTTL             time.Duration `env:"JOBS_LOCK_TTL" envDefault:"60s"`
	MemoryLimit         string        `env:"JOBS_MEMORY_LIMIT"`
	MemoryFraction      float64       `env:"JOBS_MEMORY_FRACTION" envDefault:"0.9"`
	ItemsPerBatch       int           `env:"JOBS_ITEMS_PER_BATCH"`
	HealthCheckInterval time.Duration `env:"JOBS_HEALTHCHECK_INTERVAL" envDefault:"5m"`
	HealthCheckCron     string        `env:"JOBS_HEALTHCHECK_CRON"`
}

func loadConfig() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	if c.SelfURL != "" && c.DispatchToken == "" {
		return Config{}, fmt.Errorf("JOBS_DISPATCH_TOKEN is required when JOBS_SELF_URL is set")
	}
	return c, nil
}

func (c Config) handlerConfig() handler.Config {
	return handler.Config{
		Identifier:          c.Identifier,
		DataKey:             c.DataKey,
		TimeLimit:           c.TimeLimit,
		LockTTL:             c.LockTTL,
		MemoryLimit:         c.MemoryLimit,
		MemoryFraction:      c.MemoryFraction,
		ItemsPerBatch:       c.ItemsPerBatch,
		HealthCheckInterval: c.HealthCheckInterval,
		HealthCheckCron:     c.HealthCheckCron,
	}
}

func (c Config) poolOptions() []storage.PoolOption {
	var opts []storage.PoolOption
	if c.DBMaxOpenConns > 0 {
		opts = append(opts, storage.MaxOpenConns(c.DBMaxOpenConns))
	}
	if c.DBMaxIdleConns > 0 {
		opts = append(opts, storage.MaxIdleConns(c.DBMaxIdleConns))
	}
	if c.DBConnMaxLifetime > 0 {
		opts = append(opts, storage.ConnMaxLifetime(c.DBConnMaxLifetime))
	}
	if c.DBConnMaxIdleTime > 0 {
		opts = append(opts, storage.ConnMaxIdleTime(c.DBConnMaxIdleTime))
	}
	return opts
}

// continuationURL is where the HTTP dispatcher posts continuations.
func (c Config) continuationURL() string {
	return strings.TrimRight(c.SelfURL, "/") + "/" + c.Identifier + "/handle"
}

func (c Config) usePostgres() bool {
	dsn := strings.ToLower(c.DatabaseDSN)
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

func (c Config) logLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
