package cacheinfra

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc cache adapter.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the client-wide upper bound on entry lifetime. Per-entry TTLs
	// passed to Set are honoured only up to this value.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                time.Hour,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the optional parts of Config to sturdyc options.
// Capacity, NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// entry carries its own deadline because sturdyc only knows one TTL per
// client.
type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// SturdycStore is a byte store over a sharded sturdyc client.
type SturdycStore struct {
	client *sturdyc.Client[entry]
	maxTTL time.Duration
	clock  clockwork.Clock
}

// NewSturdycStore validates cfg and builds the sturdyc client.
func NewSturdycStore(cfg Config, clock clockwork.Clock) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycStore{client: client, maxTTL: cfg.TTL, clock: clock}, nil
}

// Get returns the value stored under key unless it has expired.
func (s *SturdycStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := s.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	if e.expired(s.clock.Now()) {
		s.client.Delete(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key. A non-positive ttl, or one beyond the client
// TTL, is capped to the client TTL.
func (s *SturdycStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 || ttl > s.maxTTL {
		ttl = s.maxTTL
	}
	s.client.Set(key, entry{value: value, expiresAt: s.clock.Now().Add(ttl)})
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SturdycStore) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteMany removes every key in keys.
func (s *SturdycStore) DeleteMany(_ context.Context, keys []string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}

// ScanKeys lists the keys currently held, expired ones included until they
// are read or evicted.
func (s *SturdycStore) ScanKeys(_ context.Context) ([]string, error) {
	return s.client.ScanKeys(), nil
}

// Len reports the number of entries held by the client.
func (s *SturdycStore) Len() int {
	return s.client.Size()
}
