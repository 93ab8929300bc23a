package cacheinfra

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStore is an unbounded in-process store. It suits tests and single
// binary tools where sturdyc's sizing is not wanted.
type MemoryStore struct {
	entries *xsync.MapOf[string, entry]
	clock   clockwork.Clock
}

// NewMemoryStore returns an empty store reading time from clock.
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		entries: xsync.NewMapOf[string, entry](),
		clock:   clock,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := s.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	if e.expired(s.clock.Now()) {
		s.entries.Delete(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key. A non-positive ttl never expires.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.clock.Now().Add(ttl)
	}
	s.entries.Store(key, e)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}

func (s *MemoryStore) DeleteMany(_ context.Context, keys []string) error {
	for _, key := range keys {
		s.entries.Delete(key)
	}
	return nil
}

// ScanKeys lists live keys, dropping expired entries it walks over.
func (s *MemoryStore) ScanKeys(_ context.Context) ([]string, error) {
	now := s.clock.Now()
	keys := make([]string, 0, s.entries.Size())
	s.entries.Range(func(key string, e entry) bool {
		if e.expired(now) {
			s.entries.Delete(key)
			return true
		}
		keys = append(keys, key)
		return true
	})
	return keys, nil
}

// Len reports the number of entries, expired ones included.
func (s *MemoryStore) Len() int {
	return s.entries.Size()
}
