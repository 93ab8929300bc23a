// Package config loads the tracker configuration from defaults, an optional
// YAML file, .env files and LEDGER_ prefixed environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/goliatone/go-finance-tracker/cache"
	"github.com/goliatone/go-finance-tracker/internal/bunstore"
)

// EnvPrefix prefixes every environment override, e.g. LEDGER_DATABASE_DSN.
const EnvPrefix = "LEDGER"

type Config struct {
	Database Database
	Cache    cache.Config
	Log      Log
}

type Database struct {
	Driver string
	DSN    string
	// AutoMigrate applies pending migrations when the container starts.
	AutoMigrate bool
}

type Log struct {
	Level  string
	Format string
}

func (d Database) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In(bunstore.DriverSQLite, bunstore.DriverPostgres)),
		validation.Field(&d.DSN, validation.Required),
	)
}

func (l Log) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.Required, validation.In("text", "console", "json")),
	)
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// Default returns the configuration used when nothing overrides it: a local
// SQLite file, the sturdyc cache and text logs at info.
func Default() Config {
	return Config{
		Database: Database{
			Driver:      bunstore.DriverSQLite,
			DSN:         "file:tracker.db",
			AutoMigrate: true,
		},
		Cache: cache.DefaultConfig(),
		Log:   Log{Level: "info", Format: "text"},
	}
}

// New returns a viper instance carrying the defaults and the environment
// binding.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path when it is not empty, then the environment.
func Load(path string) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Database: Database{
			Driver:      v.GetString("database.driver"),
			DSN:         v.GetString("database.dsn"),
			AutoMigrate: v.GetBool("database.auto_migrate"),
		},
		Cache: cache.Config{
			KeyPrefix:          v.GetString("cache.key_prefix"),
			Backend:            v.GetString("cache.backend"),
			CategoryTTL:        v.GetDuration("cache.category_ttl"),
			ProfileTTL:         v.GetDuration("cache.profile_ttl"),
			StatisticsTTL:      v.GetDuration("cache.statistics_ttl"),
			OperationTimeout:   v.GetDuration("cache.operation_timeout"),
			DeleteBatchSize:    v.GetInt("cache.delete_batch_size"),
			Capacity:           v.GetInt("cache.capacity"),
			NumShards:          v.GetInt("cache.num_shards"),
			EvictionPercentage: v.GetInt("cache.eviction_percentage"),
			EvictionInterval:   v.GetDuration("cache.eviction_interval"),
		},
		Log: Log{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadEnvFiles loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)

	v.SetDefault("cache.key_prefix", d.Cache.KeyPrefix)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.category_ttl", d.Cache.CategoryTTL)
	v.SetDefault("cache.profile_ttl", d.Cache.ProfileTTL)
	v.SetDefault("cache.statistics_ttl", d.Cache.StatisticsTTL)
	v.SetDefault("cache.operation_timeout", d.Cache.OperationTimeout)
	v.SetDefault("cache.delete_batch_size", d.Cache.DeleteBatchSize)
	v.SetDefault("cache.capacity", d.Cache.Capacity)
	v.SetDefault("cache.num_shards", d.Cache.NumShards)
	v.SetDefault("cache.eviction_percentage", d.Cache.EvictionPercentage)
	v.SetDefault("cache.eviction_interval", d.Cache.EvictionInterval)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
