// Package cache stores analysis results keyed by context fingerprint so
// repeated identical failures skip the provider round-trip.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/triage/internal/interfaces"
	"github.com/ternarybob/triage/internal/models"
)

// Service is the analysis cache. Entries expire on read after their TTL;
// expired and corrupted records are dropped at lookup time rather than by
// a background sweeper.
type Service struct {
	storage interfaces.CacheStorage
	ttl     time.Duration
	logger  arbor.ILogger
}

// NewService creates a cache service with the given TTL.
func NewService(storage interfaces.CacheStorage, ttl time.Duration, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		ttl:     ttl,
		logger:  logger,
	}
}

// Lookup returns the cached analysis for a fingerprint, or nil on a miss.
// Expired entries are deleted and reported as misses. On a hit the access
// counter is incremented and persisted before the result is returned, and
// the returned response is annotated with cached=true and the new count.
// Storage errors degrade to a miss; the pipeline can always re-analyze.
func (s *Service) Lookup(ctx context.Context, contextHash string) (*models.AIResponse, error) {
	entry, err := s.storage.Get(ctx, contextHash)
	if errors.Is(err, interfaces.ErrEntryNotFound) {
		return nil, nil
	}
	if errors.Is(err, interfaces.ErrEntryCorrupted) {
		s.logger.Warn().Str("hash", contextHash).Msg("Dropping corrupted cache entry")
		if delErr := s.storage.Delete(ctx, contextHash); delErr != nil {
			s.logger.Warn().Err(delErr).Str("hash", contextHash).Msg("Failed to delete corrupted cache entry")
		}
		return nil, nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("hash", contextHash).Msg("Cache lookup failed, treating as miss")
		return nil, nil
	}

	now := time.Now()
	if entry.Expired(now) {
		s.logger.Debug().Str("hash", contextHash).Msg("Cache entry expired")
		if delErr := s.storage.Delete(ctx, contextHash); delErr != nil {
			s.logger.Warn().Err(delErr).Str("hash", contextHash).Msg("Failed to delete expired cache entry")
		}
		return nil, nil
	}

	entry.AccessCount++
	entry.LastAccessed = now
	if err := s.storage.Put(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to persist cache access: %w", err)
	}

	response := entry.AnalysisResult
	response.Metadata.Cached = true
	response.Metadata.AccessCount = entry.AccessCount

	s.logger.Debug().
		Str("hash", contextHash).
		Int("access_count", entry.AccessCount).
		Msg("Cache hit")

	return &response, nil
}

// Store writes an analysis result under a fingerprint with a fresh TTL
// window. An existing entry for the same fingerprint is overwritten and its
// access counter reset.
func (s *Service) Store(ctx context.Context, contextHash string, response *models.AIResponse) error {
	now := time.Now()
	entry := &models.CacheEntry{
		ContextHash:    contextHash,
		AnalysisResult: *response,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
		AccessCount:    0,
		LastAccessed:   now,
	}
	// Stored copies never carry hit annotations.
	entry.AnalysisResult.Metadata.Cached = false
	entry.AnalysisResult.Metadata.AccessCount = 0

	if err := s.storage.Put(ctx, entry); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	s.logger.Debug().Str("hash", contextHash).Str("expires_at", entry.ExpiresAt.Format(time.RFC3339)).Msg("Analysis cached")
	return nil
}

// EvictExpired removes every entry past its TTL, plus any corrupted
// records, and returns the number removed.
func (s *Service) EvictExpired(ctx context.Context) (int, error) {
	entries, corrupted, err := s.storage.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache entries: %w", err)
	}

	now := time.Now()
	removed := 0

	for _, entry := range entries {
		if !entry.Expired(now) {
			continue
		}
		if err := s.storage.Delete(ctx, entry.ContextHash); err != nil {
			s.logger.Warn().Err(err).Str("hash", entry.ContextHash).Msg("Failed to evict expired entry")
			continue
		}
		removed++
	}

	for _, hash := range corrupted {
		if err := s.storage.Delete(ctx, hash); err != nil {
			s.logger.Warn().Err(err).Str("hash", hash).Msg("Failed to evict corrupted entry")
			continue
		}
		removed++
	}

	s.logger.Info().Int("removed", removed).Msg("Expired cache entries evicted")
	return removed, nil
}

// ClearAll removes every cache entry and returns the count removed.
func (s *Service) ClearAll(ctx context.Context) (int, error) {
	removed, err := s.storage.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	s.logger.Info().Int("removed", removed).Msg("Cache cleared")
	return removed, nil
}

// Stats aggregates counters across all stored entries. Corrupted records
// are excluded from the totals.
func (s *Service) Stats(ctx context.Context) (*models.CacheStats, error) {
	entries, _, err := s.storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}

	stats := &models.CacheStats{TotalEntries: len(entries)}
	now := time.Now()

	var oldest, newest time.Time
	maxAccess := -1

	for _, entry := range entries {
		if entry.Expired(now) {
			stats.ExpiredEntries++
		}
		stats.TotalAccessCount += entry.AccessCount

		if oldest.IsZero() || entry.CreatedAt.Before(oldest) {
			oldest = entry.CreatedAt
			stats.OldestEntry = entry.ContextHash
		}
		if newest.IsZero() || entry.CreatedAt.After(newest) {
			newest = entry.CreatedAt
			stats.NewestEntry = entry.ContextHash
		}
		if entry.AccessCount > maxAccess {
			maxAccess = entry.AccessCount
			stats.MostAccessed = entry.ContextHash
		}
	}

	return stats, nil
}
