package cache

import (
	"context"
	"time"
)

// Store is the key/value backend behind the coherency manager. Values are
// opaque bytes; a miss is reported as (nil, false, nil). Stores are not
// authoritative and may drop entries at any time.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// KeyScanner is implemented by stores that can enumerate their live keys.
// Pattern deletes are only possible against a KeyScanner.
type KeyScanner interface {
	ScanKeys(ctx context.Context) ([]string, error)
}

// BatchDeleter is implemented by stores that can remove several keys in one
// call. Stores without it get one Delete per key.
type BatchDeleter interface {
	DeleteMany(ctx context.Context, keys []string) error
}
