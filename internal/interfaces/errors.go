package interfaces

import "errors"

// Sentinel errors shared across service boundaries. Implementations wrap
// them with detail; callers match with errors.Is.
var (
	// ErrEntryNotFound is returned by CacheStorage.Get for an absent entry.
	ErrEntryNotFound = errors.New("cache entry not found")

	// ErrEntryCorrupted is returned by CacheStorage.Get when a stored record
	// cannot be decoded. Callers treat it as a miss and delete the entry.
	ErrEntryCorrupted = errors.New("cache entry corrupted")

	// ErrKeyNotFound is returned by KeyValueStorage.Get for an absent key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrSecretNotFound is returned by SecretResolver.GetSecret when the
	// descriptor's source yields no value.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrRateLimited is returned by the analysis service when the
	// requests-per-minute budget is exhausted before any backend is tried.
	ErrRateLimited = errors.New("request rate limit exceeded")

	// ErrAllProvidersFailed is returned when every configured backend fails.
	ErrAllProvidersFailed = errors.New("all providers failed")
)
