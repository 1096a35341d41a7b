// Package detector scans raw build logs against categorized regex tables
// and infers the primary failure category.
package detector

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/triage/internal/common"
	"github.com/ternarybob/triage/internal/models"
)

// Service detects and categorizes errors from build logs.
type Service struct {
	patterns []compiledPattern
	logger   arbor.ILogger
}

// NewService creates a detector with the builtin pattern tables plus any
// custom patterns configured via a YAML file. Patterns that fail to compile
// are logged and skipped; malformed custom patterns never abort detection.
func NewService(config *common.DetectorConfig, logger arbor.ILogger) *Service {
	defs := builtinPatterns
	if config != nil && config.PatternsFile != "" {
		custom, err := loadCustomPatterns(config.PatternsFile)
		if err != nil {
			logger.Warn().Err(err).Str("file", config.PatternsFile).Msg("Failed to load custom detection patterns")
		} else {
			defs = append(append([]patternDef{}, builtinPatterns...), custom...)
		}
	}

	return &Service{
		patterns: compilePatterns(defs, logger),
		logger:   logger,
	}
}

func compilePatterns(defs []patternDef, logger arbor.ILogger) []compiledPattern {
	compiled := make([]compiledPattern, 0, len(defs))
	for _, def := range defs {
		regex, err := regexp.Compile(def.Pattern)
		if err != nil {
			logger.Warn().Err(err).Str("pattern", def.Pattern).Msg("Skipping invalid detection pattern")
			continue
		}
		compiled = append(compiled, compiledPattern{def: def, regex: regex})
	}
	return compiled
}

// Detect analyzes log content for error patterns. Every line is tested
// against every pattern; each match yields one ErrorPattern with a context
// window of two lines either side. The primary category is the one whose
// matched confidences sum highest, defaulting to unknown.
func (s *Service) Detect(logContent string, exitCode int) models.ErrorDetectionResult {
	lines := strings.Split(logContent, "\n")
	var patterns []models.ErrorPattern
	scores := make(map[string]float64)

	for i, line := range lines {
		lineNum := i + 1
		for _, cp := range s.patterns {
			match := cp.regex.FindStringSubmatch(line)
			if match == nil {
				continue
			}

			// First capture group if present, else the full match.
			message := match[0]
			if len(match) > 1 && match[1] != "" {
				message = match[1]
			}

			patterns = append(patterns, models.ErrorPattern{
				PatternType:       cp.def.Description,
				Confidence:        cp.def.Confidence,
				Message:           strings.TrimSpace(message),
				LineNumber:        lineNum,
				ContextLines:      contextWindow(lines, lineNum),
				SuggestedCategory: cp.def.Category,
			})
			scores[cp.def.Category] += cp.def.Confidence
		}
	}

	category := primaryCategory(scores)

	return models.ErrorDetectionResult{
		ErrorDetected:     len(patterns) > 0 || exitCode != 0,
		ExitCode:          exitCode,
		Patterns:          patterns,
		ErrorCategory:     category,
		Summary:           buildSummary(patterns, category, exitCode),
		LogLinesAnalyzed:  len(lines),
		AnalysisTimestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// contextWindow returns up to two lines before and after the matched line,
// clamped to the log bounds. lineNum is 1-indexed.
func contextWindow(lines []string, lineNum int) []string {
	start := lineNum - 3
	if start < 0 {
		start = 0
	}
	end := lineNum + 2
	if end > len(lines) {
		end = len(lines)
	}
	window := make([]string, end-start)
	copy(window, lines[start:end])
	return window
}

// primaryCategory returns the highest-scoring category, or unknown when no
// pattern matched. Ties break on category name for determinism.
func primaryCategory(scores map[string]float64) string {
	best := models.CategoryUnknown
	bestScore := 0.0

	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if scores[name] > bestScore {
			best = name
			bestScore = scores[name]
		}
	}
	return best
}

// buildSummary produces a one-sentence human-readable digest of the
// detection run, grouping matches by pattern type.
func buildSummary(patterns []models.ErrorPattern, category string, exitCode int) string {
	if len(patterns) == 0 && exitCode == 0 {
		return "No errors detected, command executed successfully."
	}
	if len(patterns) == 0 {
		return fmt.Sprintf("Command failed with exit code %d, but no specific error patterns were detected.", exitCode)
	}

	type group struct {
		name       string
		count      int
		confidence float64
	}

	byType := make(map[string]*group)
	var order []string
	for _, p := range patterns {
		g, ok := byType[p.PatternType]
		if !ok {
			g = &group{name: p.PatternType}
			byType[p.PatternType] = g
			order = append(order, p.PatternType)
		}
		g.count++
		if p.Confidence > g.confidence {
			g.confidence = p.Confidence
		}
	}

	parts := []string{fmt.Sprintf("Detected %d error pattern(s) in category '%s':", len(patterns), category)}
	for _, name := range order {
		g := byType[name]
		if g.count == 1 {
			parts = append(parts, fmt.Sprintf("- %s (confidence: %.0f%%)", g.name, g.confidence*100))
		} else {
			parts = append(parts, fmt.Sprintf("- %dx %s (highest confidence: %.0f%%)", g.count, g.name, g.confidence*100))
		}
	}

	return strings.Join(parts, " ")
}
