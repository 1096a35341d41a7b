package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/triage/internal/models"
)

// CacheStorage persists analysis cache entries keyed by context fingerprint.
// Lookups and stores against the same fingerprint are not atomic across
// processes; two concurrent misses may both analyze and both write, last
// write wins.
type CacheStorage interface {
	// Get retrieves an entry by fingerprint. Returns ErrEntryNotFound if
	// absent, ErrEntryCorrupted if the record cannot be decoded.
	Get(ctx context.Context, contextHash string) (*models.CacheEntry, error)

	// Put inserts or overwrites an entry.
	Put(ctx context.Context, entry *models.CacheEntry) error

	// Delete removes an entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, contextHash string) error

	// List returns all decodable entries plus the hashes of any corrupted
	// records encountered.
	List(ctx context.Context) ([]models.CacheEntry, []string, error)

	// DeleteAll removes every entry and returns the count removed.
	DeleteAll(ctx context.Context) (int, error)
}

// KeyValuePair is a stored key/value record with metadata.
type KeyValuePair struct {
	Key         string `badgerhold:"key"`
	Value       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// KeyValueStorage provides durable key/value storage, used for API keys and
// other operator-managed settings.
type KeyValueStorage interface {
	// Get retrieves a value by key. Returns ErrKeyNotFound if absent.
	Get(ctx context.Context, key string) (string, error)

	// Set inserts or updates a key/value pair.
	Set(ctx context.Context, key, value, description string) error

	// Delete removes a key/value pair.
	Delete(ctx context.Context, key string) error
}

// StorageManager aggregates the storage backends behind one lifecycle.
type StorageManager interface {
	CacheStorage() CacheStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
