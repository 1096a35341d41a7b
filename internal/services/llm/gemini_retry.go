package llm

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// retryConfig controls rate-limit retry behavior for the Gemini backend,
// whose free-tier quota resets on a ~60 second window.
type retryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		MaxRetries:        2,
		InitialBackoff:    45 * time.Second,
		MaxBackoff:        90 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// isRateLimitError matches 429 responses and RESOURCE_EXHAUSTED quota
// errors from the Gemini API.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "quota")
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
// embedded in Gemini error messages.
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// extractRetryDelay parses the API-suggested retry delay out of a rate
// limit error, returning 0 when none is present.
func extractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// backoff computes the wait before a given retry attempt. An API-provided
// delay takes precedence over the configured initial backoff; the result is
// capped at MaxBackoff.
func (c retryConfig) backoff(attempt int, apiDelay time.Duration) time.Duration {
	base := c.InitialBackoff
	if apiDelay > 0 {
		base = apiDelay + 5*time.Second
	}

	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}

	wait := time.Duration(float64(base) * multiplier)
	if wait > c.MaxBackoff {
		wait = c.MaxBackoff
	}
	return wait
}
