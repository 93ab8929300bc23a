package cache

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/goliatone/go-finance-tracker/internal/cacheinfra"
)

const (
	BackendSturdyc = "sturdyc"
	BackendMemory  = "memory"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	// KeyPrefix namespaces every key written to the store.
	KeyPrefix string

	// Backend selects the store implementation: "sturdyc" or "memory".
	Backend string

	CategoryTTL   time.Duration
	ProfileTTL    time.Duration
	StatisticsTTL time.Duration

	// OperationTimeout bounds every single store call. Zero disables it.
	OperationTimeout time.Duration

	// DeleteBatchSize caps how many keys one pattern-delete call removes.
	DeleteBatchSize int

	// Sturdyc sizing, ignored by the memory backend.
	Capacity           int
	NumShards          int
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	infra := cacheinfra.DefaultConfig()
	return Config{
		KeyPrefix:          "tracker:",
		Backend:            BackendSturdyc,
		CategoryTTL:        time.Hour,
		ProfileTTL:         15 * time.Minute,
		StatisticsTTL:      5 * time.Minute,
		OperationTimeout:   500 * time.Millisecond,
		DeleteBatchSize:    100,
		Capacity:           infra.Capacity,
		NumShards:          infra.NumShards,
		EvictionPercentage: infra.EvictionPercentage,
		EvictionInterval:   infra.EvictionInterval,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSturdyc, BackendMemory:
	default:
		return &cacheinfra.ConfigError{Field: "Backend", Message: fmt.Sprintf("unknown backend %q", c.Backend)}
	}

	ttls := []struct {
		field string
		value time.Duration
	}{
		{"CategoryTTL", c.CategoryTTL},
		{"ProfileTTL", c.ProfileTTL},
		{"StatisticsTTL", c.StatisticsTTL},
	}
	for _, ttl := range ttls {
		if ttl.value <= 0 {
			return &cacheinfra.ConfigError{Field: ttl.field, Message: "must be greater than 0"}
		}
	}

	if c.OperationTimeout < 0 {
		return &cacheinfra.ConfigError{Field: "OperationTimeout", Message: "must be non-negative"}
	}

	if c.DeleteBatchSize <= 0 {
		return &cacheinfra.ConfigError{Field: "DeleteBatchSize", Message: "must be greater than 0"}
	}

	if c.Backend == BackendSturdyc {
		return c.toInternal().Validate()
	}
	return nil
}

// MaxTTL is the longest TTL of any resource.
func (c Config) MaxTTL() time.Duration {
	max := c.CategoryTTL
	if c.ProfileTTL > max {
		max = c.ProfileTTL
	}
	if c.StatisticsTTL > max {
		max = c.StatisticsTTL
	}
	return max
}

// NewStore constructs the configured store. Both backends can enumerate
// their keys, so pattern deletes are exact.
func NewStore(cfg Config, clock clockwork.Clock) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendMemory:
		return cacheinfra.NewMemoryStore(clock), nil
	default:
		return cacheinfra.NewSturdycStore(cfg.toInternal(), clock)
	}
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.MaxTTL(),
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}
