package testsupport

import (
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/goliatone/go-finance-tracker/cache"
	"github.com/goliatone/go-finance-tracker/internal/cacheinfra"
	"github.com/goliatone/go-finance-tracker/repositorycache"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewCacheManager wraps store in a Manager with default TTLs and no
// operation timeout. A nil store gets a fresh memory store on clock.
func NewCacheManager(store cache.Store, clock clockwork.Clock) *repositorycache.Manager {
	if store == nil {
		store = cacheinfra.NewMemoryStore(clock)
	}
	cfg := cache.DefaultConfig()
	cfg.Backend = cache.BackendMemory
	cfg.OperationTimeout = 0
	return repositorycache.New(store, cfg, repositorycache.WithLogger(DiscardLogger()))
}
