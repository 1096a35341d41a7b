package llm

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/triage/internal/models"
)

var (
	sectionHeaderRegex = regexp.MustCompile(`(?i)^\s*(ROOT CAUSE|SUGGESTED FIXES|CONFIDENCE|SEVERITY):\s*(.*)$`)
	listMarkerRegex    = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*])\s*`)
	confidenceRegex    = regexp.MustCompile(`(\d+)`)
	severityRegex      = regexp.MustCompile(`(?i)\b(low|medium|high)\b`)
)

// rootCauseFallbackCap bounds the root cause taken from an unstructured
// response so a single-paragraph answer cannot flood the field.
const rootCauseFallbackCap = 500

// defaultFixes is returned when a response carries no usable fix list. The
// analysis is still delivered; a missing section never fails the pipeline.
var defaultFixes = []string{
	"Review the full build log around the reported failure",
	"Re-run the failed step to rule out a transient issue",
	"Check recent changes to the failing component",
}

// ParseAnalysis extracts the structured analysis from a model's free-text
// response. Parsing is tolerant: any section a model omits or mangles falls
// back to a safe default rather than erroring, since upstream formats drift.
func ParseAnalysis(text string) models.Analysis {
	sections := splitSections(text)

	return models.Analysis{
		RootCause:      parseRootCause(sections, text),
		SuggestedFixes: parseFixes(sections),
		Confidence:     parseConfidence(sections),
		Severity:       parseSeverity(sections),
	}
}

// splitSections groups the response lines under the section header each
// follows. Content on the header line itself counts as the first line of
// the section.
func splitSections(text string) map[string][]string {
	sections := make(map[string][]string)
	current := ""

	for _, line := range strings.Split(text, "\n") {
		if match := sectionHeaderRegex.FindStringSubmatch(line); match != nil {
			current = strings.ToUpper(match[1])
			if rest := strings.TrimSpace(match[2]); rest != "" {
				sections[current] = append(sections[current], rest)
			}
			continue
		}
		if current == "" {
			continue
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			sections[current] = append(sections[current], trimmed)
		}
	}

	return sections
}

func parseRootCause(sections map[string][]string, text string) string {
	if lines := sections["ROOT CAUSE"]; len(lines) > 0 {
		return strings.Join(lines, " ")
	}

	// No labeled section; fall back to the first non-empty line so the
	// report always has something to show.
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			if len(line) > rootCauseFallbackCap {
				return line[:rootCauseFallbackCap]
			}
			return line
		}
	}
	return "Unable to determine root cause from analysis"
}

func parseFixes(sections map[string][]string) []string {
	var fixes []string
	for _, line := range sections["SUGGESTED FIXES"] {
		if fix := strings.TrimSpace(listMarkerRegex.ReplaceAllString(line, "")); fix != "" {
			fixes = append(fixes, fix)
		}
	}

	if len(fixes) == 0 {
		return append([]string{}, defaultFixes...)
	}
	return fixes
}

func parseConfidence(sections map[string][]string) int {
	value := strings.Join(sections["CONFIDENCE"], " ")
	match := confidenceRegex.FindStringSubmatch(value)
	if len(match) < 2 {
		return 75
	}
	parsed, err := strconv.Atoi(match[1])
	if err != nil {
		return 75
	}
	return models.ClampConfidence(parsed)
}

func parseSeverity(sections map[string][]string) string {
	value := strings.Join(sections["SEVERITY"], " ")
	match := severityRegex.FindStringSubmatch(value)
	if len(match) < 2 {
		return models.SeverityMedium
	}
	return models.NormalizeSeverity(strings.ToLower(match[1]))
}
