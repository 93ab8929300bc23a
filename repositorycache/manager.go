package repositorycache

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-finance-tracker/cache"
)

// Manager sits between the services and a cache.Store. Reads are
// cache-aside; writes call one of the Invalidate methods before returning.
// No store failure ever leaves the manager: errors are logged and the call
// behaves like a miss or a no-op.
type Manager struct {
	store     cache.Store
	codec     cache.Codec
	prefix    string
	timeout   time.Duration
	batchSize int
	ttl       TTLPolicy
	logger    *slog.Logger
}

// TTLPolicy holds the lifetime of each cached resource.
type TTLPolicy struct {
	Category   time.Duration
	Profile    time.Duration
	Statistics time.Duration
}

// Option customizes a Manager.
type Option func(*Manager)

// WithCodec replaces the MessagePack codec.
func WithCodec(codec cache.Codec) Option {
	return func(m *Manager) {
		if codec != nil {
			m.codec = codec
		}
	}
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New builds a Manager over store using the prefix, TTLs, timeout and batch
// size from cfg.
func New(store cache.Store, cfg cache.Config, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		codec:     cache.NewMsgpackCodec(),
		prefix:    cfg.KeyPrefix,
		timeout:   cfg.OperationTimeout,
		batchSize: cfg.DeleteBatchSize,
		ttl: TTLPolicy{
			Category:   cfg.CategoryTTL,
			Profile:    cfg.ProfileTTL,
			Statistics: cfg.StatisticsTTL,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.batchSize <= 0 {
		m.batchSize = cache.DefaultConfig().DeleteBatchSize
	}
	m.logger = m.logger.With("component", "cache")
	return m
}

// TTL returns the configured lifetimes.
func (m *Manager) TTL() TTLPolicy {
	return m.ttl
}

// ReadOption tunes a single cached read.
type ReadOption func(*readOptions)

type readOptions struct {
	bypass bool
}

// Bypass makes a read go straight to the source and leaves the cache
// untouched.
func Bypass() ReadOption {
	return func(o *readOptions) {
		o.bypass = true
	}
}

// FetchFn loads a value from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// GetOrFetch returns the value cached under key, or calls fetch and caches
// its result for ttl. Errors from fetch are returned and nothing is cached.
// Cache errors never reach the caller.
func GetOrFetch[T any](ctx context.Context, m *Manager, key string, ttl time.Duration, fetch FetchFn[T], opts ...ReadOption) (T, error) {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}

	if !o.bypass {
		var cached T
		if m.Get(ctx, key, &cached) {
			return cached, nil
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if !o.bypass {
		m.Set(ctx, key, value, ttl)
	}
	return value, nil
}

// Get decodes the value under key into dst and reports whether it was a
// usable hit. Undecodable entries are removed.
func (m *Manager) Get(ctx context.Context, key string, dst any) bool {
	full := m.fullKey(key)

	var (
		raw []byte
		hit bool
	)
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		raw, hit, err = m.store.Get(ctx, full)
		return err
	})
	if err != nil {
		m.logger.Warn("cache get failed", "key", full, "error", err)
		return false
	}
	if !hit {
		return false
	}

	if err := m.codec.Unmarshal(raw, dst); err != nil {
		m.logger.Warn("cache entry undecodable", "key", full, "error", err)
		m.deleteKey(ctx, full)
		return false
	}
	return true
}

// Set encodes value and stores it under key for ttl.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	full := m.fullKey(key)

	raw, err := m.codec.Marshal(value)
	if err != nil {
		m.logger.Warn("cache value unencodable", "key", full, "error", err)
		return
	}

	err = m.call(ctx, func(ctx context.Context) error {
		return m.store.Set(ctx, full, raw, ttl)
	})
	if err != nil {
		m.logger.Warn("cache set failed", "key", full, "error", err)
	}
}

// Delete removes keys concurrently and waits for all of them.
func (m *Manager) Delete(ctx context.Context, keys ...string) {
	var g errgroup.Group
	for _, key := range keys {
		full := m.fullKey(key)
		g.Go(func() error {
			m.deleteKey(ctx, full)
			return nil
		})
	}
	_ = g.Wait()
}

// InvalidateCategory drops the single views of ids and every category list
// of owner. Lists are dropped whatever kind changed, since an update can
// move a category between them.
func (m *Manager) InvalidateCategory(ctx context.Context, owner uuid.UUID, ids ...uuid.UUID) {
	keys := cache.CategoryListKeys(owner)
	for _, id := range ids {
		if id != uuid.Nil {
			keys = append(keys, cache.CategoryKey(id))
		}
	}
	m.Delete(ctx, keys...)
}

// InvalidateStatistics drops every cached statistics result of owner.
func (m *Manager) InvalidateStatistics(ctx context.Context, owner uuid.UUID) {
	m.DeleteByPattern(ctx, cache.StatisticsPattern(owner))
}

// InvalidateUser drops the profile of owner and the email lookups given.
func (m *Manager) InvalidateUser(ctx context.Context, owner uuid.UUID, emails ...string) {
	keys := []string{cache.UserProfileKey(owner)}
	for _, email := range emails {
		if email != "" {
			keys = append(keys, cache.UserEmailKey(email))
		}
	}
	m.Delete(ctx, keys...)
}

// DeleteByPattern removes every key matching the glob pattern and returns
// how many were targeted. Against a store that cannot enumerate keys it
// logs a warning and removes nothing.
func (m *Manager) DeleteByPattern(ctx context.Context, pattern string) int {
	full := cache.EscapePattern(m.prefix) + pattern
	compiled := cache.CompilePattern(full)

	if key, ok := compiled.Literal(); ok {
		m.deleteKey(ctx, key)
		return 1
	}

	scanner, ok := m.store.(cache.KeyScanner)
	if !ok {
		m.logger.Warn("cache store cannot enumerate keys, pattern delete skipped", "pattern", full)
		return 0
	}

	var keys []string
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		keys, err = scanner.ScanKeys(ctx)
		return err
	})
	if err != nil {
		m.logger.Warn("cache key scan failed", "pattern", full, "error", err)
		return 0
	}

	matched := make([]string, 0, len(keys))
	for _, key := range keys {
		if compiled.Match(key) {
			matched = append(matched, key)
		}
	}

	for start := 0; start < len(matched); start += m.batchSize {
		end := min(start+m.batchSize, len(matched))
		m.deleteBatch(ctx, matched[start:end])
	}

	if len(matched) > 0 {
		m.logger.Debug("cache pattern delete", "pattern", full, "keys", len(matched))
	}
	return len(matched)
}

func (m *Manager) deleteBatch(ctx context.Context, keys []string) {
	batcher, ok := m.store.(cache.BatchDeleter)
	if !ok {
		for _, key := range keys {
			m.deleteKey(ctx, key)
		}
		return
	}

	err := m.call(ctx, func(ctx context.Context) error {
		return batcher.DeleteMany(ctx, keys)
	})
	if err != nil {
		m.logger.Warn("cache batch delete failed", "keys", len(keys), "error", err)
	}
}

// deleteKey takes an already prefixed key.
func (m *Manager) deleteKey(ctx context.Context, full string) {
	err := m.call(ctx, func(ctx context.Context) error {
		return m.store.Delete(ctx, full)
	})
	if err != nil {
		m.logger.Warn("cache delete failed", "key", full, "error", err)
	}
}

func (m *Manager) fullKey(key string) string {
	return m.prefix + key
}

// call runs fn under the operation timeout. A store that ignores its
// context is abandoned once the timeout fires; fn's results must only be
// read after call returns nil.
func (m *Manager) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.timeout <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
