package models

import "time"

// CacheEntry is a stored analysis result keyed by context fingerprint.
// Owned exclusively by the cache manager; access counters mutate on every
// hit, everything else is written once per store.
type CacheEntry struct {
	ContextHash    string     `json:"context_hash" badgerhold:"key"`
	AnalysisResult AIResponse `json:"analysis_result"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	AccessCount    int        `json:"access_count"`
	LastAccessed   time.Time  `json:"last_accessed"`
}

// Expired reports whether the entry's TTL window has passed at the given
// instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// CacheStats aggregates counters across all stored entries.
type CacheStats struct {
	TotalEntries     int    `json:"total_entries"`
	ExpiredEntries   int    `json:"expired_entries"`
	TotalAccessCount int    `json:"total_access_count"`
	OldestEntry      string `json:"oldest_entry,omitempty"`
	NewestEntry      string `json:"newest_entry,omitempty"`
	MostAccessed     string `json:"most_accessed,omitempty"`
}
