// Package config loads and validates application configuration from the
// environment and an optional YAML file.
package config

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

// Database configures the backing relational store.
type Database struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Log configures logger construction.
type Log struct {
	Level  string
	Format string
}

// Cache configures the read-through cache service.
type Cache struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
}

// Config is the application configuration consumed by the composition
// root.
type Config struct {
	Database Database
	Log      Log
	Cache    Cache
}

// Default returns the configuration used when nothing is overridden: an
// in-memory sqlite store with console logging, suitable for local runs.
func Default() Config {
	return Config{
		Database: Database{
			Driver:       "sqlite3",
			DSN:          "file:homekeep.db?_fk=1",
			MaxOpenConns: 4,
			MaxIdleConns: 2,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		Cache: Cache{
			Capacity:           10000,
			NumShards:          256,
			TTL:                5 * time.Minute,
			EvictionPercentage: 10,
		},
	}
}

// Load reads configuration from HOMEKEEP_-prefixed environment variables
// and, when present, a homekeep.yaml file in the working directory or
// ./config. Missing file is not an error; validation failures are.
func Load() (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("database.driver", def.Database.Driver)
	v.SetDefault("database.dsn", def.Database.DSN)
	v.SetDefault("database.max_open_conns", def.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", def.Database.MaxIdleConns)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("cache.capacity", def.Cache.Capacity)
	v.SetDefault("cache.num_shards", def.Cache.NumShards)
	v.SetDefault("cache.ttl", def.Cache.TTL)
	v.SetDefault("cache.eviction_percentage", def.Cache.EvictionPercentage)

	v.SetEnvPrefix("HOMEKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("homekeep")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	cfg := Config{
		Database: Database{
			Driver:       v.GetString("database.driver"),
			DSN:          v.GetString("database.dsn"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
			MaxIdleConns: v.GetInt("database.max_idle_conns"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Cache: Cache{
			Capacity:           v.GetInt("cache.capacity"),
			NumShards:          v.GetInt("cache.num_shards"),
			TTL:                v.GetDuration("cache.ttl"),
			EvictionPercentage: v.GetInt("cache.eviction_percentage"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks whether the configuration values are usable.
func (c Config) Validate() error {
	if err := validation.ValidateStruct(&c.Database,
		validation.Field(&c.Database.Driver, validation.Required, validation.In("sqlite3")),
		validation.Field(&c.Database.DSN, validation.Required),
		validation.Field(&c.Database.MaxOpenConns, validation.Min(1)),
		validation.Field(&c.Database.MaxIdleConns, validation.Min(0)),
	); err != nil {
		return err
	}
	if err := validation.ValidateStruct(&c.Log,
		validation.Field(&c.Log.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Log.Format, validation.Required, validation.In("console", "json")),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&c.Cache,
		validation.Field(&c.Cache.Capacity, validation.Min(1)),
		validation.Field(&c.Cache.NumShards, validation.Min(1)),
		validation.Field(&c.Cache.TTL, validation.Required),
		validation.Field(&c.Cache.EvictionPercentage, validation.Min(1), validation.Max(100)),
	)
}
