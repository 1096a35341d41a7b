// Package sanitizer strips credentials and personal data from build
// contexts before they leave the machine. Redaction is typed: each pattern
// family keeps as much debugging signal as its risk profile allows.
package sanitizer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/triage/internal/common"
	"github.com/ternarybob/triage/internal/models"
)

const (
	perRedactionPenalty = 2.0
	redactionPenaltyCap = 40.0
	highRiskPenalty     = 15.0
)

// Service sanitizes build contexts prior to caching or provider submission.
type Service struct {
	config common.RedactionConfig
	custom []*regexp.Regexp
	logger arbor.ILogger
}

// NewService creates a sanitizer. Custom patterns that fail to compile are
// logged and skipped so one bad operator regex never disables redaction.
func NewService(config common.RedactionConfig, logger arbor.ILogger) *Service {
	custom := make([]*regexp.Regexp, 0, len(config.CustomPatterns))
	for _, pattern := range config.CustomPatterns {
		regex, err := regexp.Compile(pattern)
		if err != nil {
			logger.Warn().Err(err).Str("pattern", pattern).Msg("Skipping invalid custom redaction pattern")
			continue
		}
		custom = append(custom, regex)
	}

	return &Service{
		config: config,
		custom: custom,
		logger: logger,
	}
}

// runState accumulates counts across one sanitization pass.
type runState struct {
	redactions int
	matched    map[string]bool
}

func (r *runState) record(family string) {
	r.redactions++
	r.matched[family] = true
}

// Sanitize returns a sanitized deep copy of the context together with
// redaction counts and a heuristic security score. The input is never
// mutated. Sanitization must not take the pipeline down: an internal
// panic degrades to a minimal safe result instead of propagating.
func (s *Service) Sanitize(context models.BuildContext) (result models.SanitizationResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("panic", fmt.Sprint(r)).Msg("Sanitization failed, returning minimal context")
			result = models.SanitizationResult{
				SanitizedContext: models.BuildContext{
					models.KeyMetadata: map[string]any{"sanitization_error": "sanitization failed, context withheld"},
				},
				SecurityScore: 0,
			}
		}
	}()

	state := &runState{matched: make(map[string]bool)}
	sanitized := s.sanitizeValue(map[string]any(context), state)

	families := make([]string, 0, len(state.matched))
	for name := range state.matched {
		families = append(families, name)
	}
	sort.Strings(families)

	score := s.securityScore(state)

	s.logger.Debug().
		Int("redactions", state.redactions).
		Float64("security_score", score).
		Msg("Context sanitized")

	return models.SanitizationResult{
		SanitizedContext: models.BuildContext(sanitized.(map[string]any)),
		RedactionsMade:   state.redactions,
		PatternsMatched:  families,
		SecurityScore:    score,
	}
}

// sanitizeValue walks the context rebuilding every container, which makes
// the result an independent deep copy.
func (s *Service) sanitizeValue(value any, state *runState) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			if str, ok := val.(string); ok && isSensitiveKey(key) {
				if str != "[REDACTED]" {
					state.record("sensitive_key")
				}
				out[key] = "[REDACTED]"
				continue
			}
			out[key] = s.sanitizeValue(val, state)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = s.sanitizeValue(item, state)
		}
		return out
	case []string:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = s.sanitizeText(item, state)
		}
		return out
	case string:
		return s.sanitizeText(v, state)
	default:
		return v
	}
}

// sanitizeText applies every pattern family to a string. A redaction is
// only counted when the replacement actually differs from the match, which
// keeps the whole pass idempotent.
func (s *Service) sanitizeText(text string, state *runState) string {
	// Structure-preserving masks run first; the generic credential families
	// would otherwise swallow the URL parameter names along with the values.
	if s.config.RedactFilePaths {
		text = s.redactFilePaths(text, state)
	}
	if s.config.RedactURLs {
		text = s.redactURLValues(text, state)
	}

	for _, f := range families {
		text = f.regex.ReplaceAllStringFunc(text, func(match string) string {
			replaced := applyStrategy(f, match)
			if replaced != match {
				state.record(f.name)
			}
			return replaced
		})
	}

	for _, regex := range s.custom {
		text = regex.ReplaceAllStringFunc(text, func(match string) string {
			if match == "[REDACTED_CUSTOM]" {
				return match
			}
			state.record("custom_pattern")
			return "[REDACTED_CUSTOM]"
		})
	}

	return text
}

func applyStrategy(f family, match string) string {
	switch f.strategy {
	case strategyEmail:
		return redactEmail(match)
	case strategyIPv4:
		return redactIPv4(match)
	case strategyIPv6:
		return redactIPv6(match)
	case strategyUUID:
		return redactUUID(match)
	case strategyBase64:
		return redactBase64(match)
	default:
		return "[REDACTED_" + strings.ToUpper(f.name) + "]"
	}
}

// redactFilePaths replaces the username segment of home-directory paths
// with [USER], leaving the rest of the path intact.
func (s *Service) redactFilePaths(text string, state *runState) string {
	for _, regex := range filePathPatterns {
		text = regex.ReplaceAllStringFunc(text, func(match string) string {
			sub := regex.FindStringSubmatch(match)
			if len(sub) < 2 || sub[1] == "[USER]" {
				return match
			}
			state.record("file_path")
			return strings.Replace(match, sub[1], "[USER]", 1)
		})
	}
	return text
}

// redactURLValues masks credential values inside URLs while keeping the
// parameter names and path segments readable.
func (s *Service) redactURLValues(text string, state *runState) string {
	text = urlPatterns[0].ReplaceAllStringFunc(text, func(match string) string {
		sub := urlPatterns[0].FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		replaced := sub[1] + "[REDACTED]"
		if replaced != match {
			state.record("url_value")
		}
		return replaced
	})

	text = urlPatterns[1].ReplaceAllStringFunc(text, func(match string) string {
		sub := urlPatterns[1].FindStringSubmatch(match)
		if len(sub) < 3 || sub[2] == "[REDACTED]" {
			return match
		}
		state.record("url_value")
		return "/" + sub[1] + "/[REDACTED]"
	})

	return text
}

// securityScore starts at 100 and deducts a capped per-redaction penalty
// plus a fixed penalty for each distinct high-risk family that matched.
func (s *Service) securityScore(state *runState) float64 {
	penalty := perRedactionPenalty * float64(state.redactions)
	if penalty > redactionPenaltyCap {
		penalty = redactionPenaltyCap
	}

	for _, f := range families {
		if f.highRisk && state.matched[f.name] {
			penalty += highRiskPenalty
		}
	}

	score := 100.0 - penalty
	if score < 0 {
		score = 0
	}
	return score
}

// BelowMinimum reports whether a score falls under the configured floor.
func (s *Service) BelowMinimum(score float64) bool {
	return score < s.config.MinSecurityScore
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
