package testsupport

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrCacheDown is returned by FailingStore.
var ErrCacheDown = errors.New("cache store unavailable")

// FailingStore is a cache store where every operation fails. Services must
// behave exactly as with a healthy cache.
type FailingStore struct {
	calls atomic.Int64
}

// Calls reports how many operations were attempted.
func (s *FailingStore) Calls() int64 {
	return s.calls.Load()
}

func (s *FailingStore) Get(context.Context, string) ([]byte, bool, error) {
	s.calls.Add(1)
	return nil, false, ErrCacheDown
}

func (s *FailingStore) Set(context.Context, string, []byte, time.Duration) error {
	s.calls.Add(1)
	return ErrCacheDown
}

func (s *FailingStore) Delete(context.Context, string) error {
	s.calls.Add(1)
	return ErrCacheDown
}

func (s *FailingStore) ScanKeys(context.Context) ([]string, error) {
	s.calls.Add(1)
	return nil, ErrCacheDown
}
