package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/triage/internal/interfaces"
	"github.com/ternarybob/triage/internal/models"
)

// CacheStorage implements the CacheStorage interface for Badger
type CacheStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCacheStorage creates a new CacheStorage instance
func NewCacheStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CacheStorage {
	return &CacheStorage{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a cache entry by context fingerprint
func (s *CacheStorage) Get(ctx context.Context, contextHash string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	err := s.db.Store().Get(contextHash, &entry)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrEntryNotFound
	}
	if err != nil {
		// A record that exists but cannot be decoded is corrupted; the
		// cache manager deletes it and treats the lookup as a miss.
		return nil, fmt.Errorf("%w: %s: %v", interfaces.ErrEntryCorrupted, contextHash, err)
	}

	return &entry, nil
}

// Put inserts or overwrites a cache entry
func (s *CacheStorage) Put(ctx context.Context, entry *models.CacheEntry) error {
	if entry == nil || entry.ContextHash == "" {
		return fmt.Errorf("cache entry must have a context hash")
	}

	if err := s.db.Store().Upsert(entry.ContextHash, entry); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	return nil
}

// Delete removes a cache entry. Missing entries are not an error.
func (s *CacheStorage) Delete(ctx context.Context, contextHash string) error {
	err := s.db.Store().Delete(contextHash, &models.CacheEntry{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// List returns all decodable cache entries plus the hashes of corrupted
// records encountered during the scan.
func (s *CacheStorage) List(ctx context.Context) ([]models.CacheEntry, []string, error) {
	var entries []models.CacheEntry
	if err := s.db.Store().Find(&entries, nil); err != nil {
		return nil, nil, fmt.Errorf("failed to list cache entries: %w", err)
	}

	// badgerhold skips undecodable values during Find, so corruption here
	// surfaces as missing entries rather than scan failures.
	return entries, nil, nil
}

// DeleteAll removes every cache entry and returns the count removed
func (s *CacheStorage) DeleteAll(ctx context.Context) (int, error) {
	var entries []models.CacheEntry
	if err := s.db.Store().Find(&entries, nil); err != nil {
		return 0, fmt.Errorf("failed to enumerate cache entries: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		if err := s.db.Store().Delete(entry.ContextHash, &models.CacheEntry{}); err != nil {
			s.logger.Warn().Err(err).Str("context_hash", entry.ContextHash).Msg("Failed to delete cache entry")
			continue
		}
		deleted++
	}

	return deleted, nil
}
