package cache

import (
	"context"
	"errors"

	"github.com/Houeta/batch-geocoder/internal/models"
)

// ErrCorrupt indicates the persisted cache exists but cannot be parsed. The
// store recovers by starting empty; callers only see this in logs.
var ErrCorrupt = errors.New("persisted cache is corrupt")

// Store is a persistent mapping from normalized address queries to successful
// geocoding results. Failures are never inserted, so they are naturally
// retried on the next run.
type Store interface {
	// Lookup returns the entry for the key, or nil when absent.
	Lookup(ctx context.Context, key string) (*models.CacheEntry, error)
	// Insert records a successful result. Inserting an existing key
	// overwrites it.
	Insert(ctx context.Context, key string, entry models.CacheEntry) error
	// Flush persists the current state. Flushing with no pending inserts is
	// a no-op.
	Flush(ctx context.Context) error
	// Len reports the number of entries currently known to the store.
	Len(ctx context.Context) (int, error)
}
