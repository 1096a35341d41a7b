package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ternarybob/triage/internal/models"
)

const (
	fingerprintLength = 16
	commandCap        = 100
	excerptCap        = 500
)

var (
	isoTimestampRegex = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`)
	clockTimeRegex    = regexp.MustCompile(`\b\d{2}:\d{2}:\d{2}\b`)
	lineNumberRegex   = regexp.MustCompile(`(?m)^\s*\d+[:.]?\s`)
	whitespaceRegex   = regexp.MustCompile(`\s+`)
)

// Fingerprint derives a stable 16-hex-character identity for a failure from
// the fields that characterize it: exit code, detected category, the failed
// command and a normalized log excerpt, plus the pipeline coordinates. Keys
// are serialized in sorted order so the hash does not depend on map
// iteration, and volatile log noise (timestamps, line numbers, whitespace)
// is stripped so re-runs of the same failure hit the same cache entry.
func Fingerprint(context models.BuildContext, errorCategory string) string {
	command := context.StringAt(models.KeyBuildInfo, "command")
	if len(command) > commandCap {
		command = command[:commandCap]
	}

	fields := map[string]any{
		"exit_code":      context.IntAt(models.KeyErrorInfo, "exit_code"),
		"error_category": errorCategory,
		"command":        command,
		"log_excerpt":    NormalizeExcerpt(context.String(models.KeyLogExcerpt)),
		"pipeline":       context.StringAt(models.KeyPipelineInfo, "pipeline"),
		"step_key":       context.StringAt(models.KeyPipelineInfo, "step_key"),
	}

	// encoding/json sorts map keys, giving a canonical byte form.
	canonical, err := json.Marshal(fields)
	if err != nil {
		canonical = []byte(command + errorCategory)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

// NormalizeExcerpt strips run-to-run noise from a log excerpt: timestamps
// become placeholders, leading line numbers are removed, whitespace runs
// collapse to single spaces and the result is capped at 500 characters.
func NormalizeExcerpt(excerpt string) string {
	normalized := isoTimestampRegex.ReplaceAllString(excerpt, "[TIMESTAMP]")
	normalized = clockTimeRegex.ReplaceAllString(normalized, "[TIME]")
	normalized = lineNumberRegex.ReplaceAllString(normalized, "")
	normalized = whitespaceRegex.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)

	if len(normalized) > excerptCap {
		normalized = normalized[:excerptCap]
	}
	return normalized
}
