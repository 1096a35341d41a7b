package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/triage/internal/interfaces"
	"github.com/ternarybob/triage/internal/models"
)

// memoryStorage is an in-memory CacheStorage for tests.
type memoryStorage struct {
	entries   map[string]models.CacheEntry
	corrupted map[string]bool
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		entries:   make(map[string]models.CacheEntry),
		corrupted: make(map[string]bool),
	}
}

func (m *memoryStorage) Get(ctx context.Context, hash string) (*models.CacheEntry, error) {
	if m.corrupted[hash] {
		return nil, interfaces.ErrEntryCorrupted
	}
	entry, ok := m.entries[hash]
	if !ok {
		return nil, interfaces.ErrEntryNotFound
	}
	copied := entry
	return &copied, nil
}

func (m *memoryStorage) Put(ctx context.Context, entry *models.CacheEntry) error {
	m.entries[entry.ContextHash] = *entry
	return nil
}

func (m *memoryStorage) Delete(ctx context.Context, hash string) error {
	delete(m.entries, hash)
	delete(m.corrupted, hash)
	return nil
}

func (m *memoryStorage) List(ctx context.Context) ([]models.CacheEntry, []string, error) {
	var entries []models.CacheEntry
	for _, entry := range m.entries {
		entries = append(entries, entry)
	}
	var corrupted []string
	for hash := range m.corrupted {
		corrupted = append(corrupted, hash)
	}
	return entries, corrupted, nil
}

func (m *memoryStorage) DeleteAll(ctx context.Context) (int, error) {
	count := len(m.entries)
	m.entries = make(map[string]models.CacheEntry)
	m.corrupted = make(map[string]bool)
	return count, nil
}

func testResponse() *models.AIResponse {
	return &models.AIResponse{
		Provider: "claude",
		Model:    "claude-sonnet-4-20250514",
		Analysis: models.Analysis{
			RootCause:      "missing semicolon",
			SuggestedFixes: []string{"add the semicolon"},
			Confidence:     90,
			Severity:       models.SeverityLow,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func newTestCache(storage interfaces.CacheStorage, ttl time.Duration) *Service {
	return NewService(storage, ttl, arbor.NewLogger())
}

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	service := newTestCache(newMemoryStorage(), time.Hour)

	miss, err := service.Lookup(ctx, "deadbeef00000000")
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, service.Store(ctx, "deadbeef00000000", testResponse()))

	hit, err := service.Lookup(ctx, "deadbeef00000000")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "missing semicolon", hit.Analysis.RootCause)
	assert.True(t, hit.Metadata.Cached)
	assert.Equal(t, 1, hit.Metadata.AccessCount)
}

func TestCache_AccessCountPersistsAcrossLookups(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	service := newTestCache(storage, time.Hour)

	require.NoError(t, service.Store(ctx, "cafe000000000000", testResponse()))

	for i := 1; i <= 5; i++ {
		hit, err := service.Lookup(ctx, "cafe000000000000")
		require.NoError(t, err)
		require.NotNil(t, hit)
		assert.Equal(t, i, hit.Metadata.AccessCount)
	}

	// The counter must be durable, not response-local.
	assert.Equal(t, 5, storage.entries["cafe000000000000"].AccessCount)
}

func TestCache_ExpiredEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	service := newTestCache(storage, 30*time.Millisecond)

	require.NoError(t, service.Store(ctx, "0123456789abcdef", testResponse()))
	time.Sleep(50 * time.Millisecond)

	hit, err := service.Lookup(ctx, "0123456789abcdef")
	require.NoError(t, err)
	assert.Nil(t, hit)

	// The expired entry is deleted on read.
	_, exists := storage.entries["0123456789abcdef"]
	assert.False(t, exists)
}

func TestCache_StoreResetsEntry(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	service := newTestCache(storage, time.Hour)

	require.NoError(t, service.Store(ctx, "feed000000000000", testResponse()))
	_, err := service.Lookup(ctx, "feed000000000000")
	require.NoError(t, err)

	// Overwriting resets the access counter and the TTL window.
	require.NoError(t, service.Store(ctx, "feed000000000000", testResponse()))
	assert.Equal(t, 0, storage.entries["feed000000000000"].AccessCount)

	hit, err := service.Lookup(ctx, "feed000000000000")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, 1, hit.Metadata.AccessCount)
}

func TestCache_CorruptedEntryIsDroppedAndMissed(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	service := newTestCache(storage, time.Hour)

	storage.corrupted["bad0000000000000"] = true

	hit, err := service.Lookup(ctx, "bad0000000000000")
	require.NoError(t, err)
	assert.Nil(t, hit)
	assert.False(t, storage.corrupted["bad0000000000000"])
}

func TestCache_EvictExpired(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	service := newTestCache(storage, 30*time.Millisecond)

	require.NoError(t, service.Store(ctx, "aaaa000000000000", testResponse()))
	require.NoError(t, service.Store(ctx, "bbbb000000000000", testResponse()))
	time.Sleep(50 * time.Millisecond)

	fresh := newTestCache(storage, time.Hour)
	require.NoError(t, fresh.Store(ctx, "cccc000000000000", testResponse()))

	removed, err := service.EvictExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Len(t, storage.entries, 1)
}

func TestCache_ClearAll(t *testing.T) {
	ctx := context.Background()
	service := newTestCache(newMemoryStorage(), time.Hour)

	require.NoError(t, service.Store(ctx, "aaaa000000000000", testResponse()))
	require.NoError(t, service.Store(ctx, "bbbb000000000000", testResponse()))

	removed, err := service.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	stats, err := service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalEntries)
}

func TestCache_Stats(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	service := newTestCache(storage, time.Hour)

	require.NoError(t, service.Store(ctx, "aaaa000000000000", testResponse()))
	require.NoError(t, service.Store(ctx, "bbbb000000000000", testResponse()))

	for i := 0; i < 3; i++ {
		_, err := service.Lookup(ctx, "bbbb000000000000")
		require.NoError(t, err)
	}

	stats, err := service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 0, stats.ExpiredEntries)
	assert.Equal(t, 3, stats.TotalAccessCount)
	assert.Equal(t, "bbbb000000000000", stats.MostAccessed)
}
