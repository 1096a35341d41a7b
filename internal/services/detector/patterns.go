package detector

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/triage/internal/models"
)

// patternDef is a single detection rule: a regex tagged with the category it
// suggests, a confidence weight and a human-readable description.
type patternDef struct {
	Category    string  `yaml:"category"`
	Pattern     string  `yaml:"pattern"`
	Confidence  float64 `yaml:"confidence"`
	Description string  `yaml:"description"`
}

// compiledPattern pairs a definition with its compiled regex.
type compiledPattern struct {
	def   patternDef
	regex *regexp.Regexp
}

// builtinPatterns is the static detection table, ordered within each
// category. Confidence weights reflect how specific each pattern is.
var builtinPatterns = []patternDef{
	// Compilation
	{models.CategoryCompilation, `(?i)(?:error|fatal):\s*(.+)`, 0.9, "Compilation error"},
	{models.CategoryCompilation, "(?i)undefined reference to [`']([^'`]+)[`']", 0.95, "Undefined reference error"},
	{models.CategoryCompilation, `(?i)cannot find symbol\s*:\s*(.+)`, 0.9, "Symbol not found error"},
	{models.CategoryCompilation, `(?i)syntax error.*?:(.+)`, 0.85, "Syntax error"},

	// Test failures
	{models.CategoryTestFailure, `(?i)(?:test|spec)\s+failed`, 0.9, "Test failure"},
	{models.CategoryTestFailure, `(?i)assertion.{0,20}failed`, 0.9, "Assertion failure"},
	{models.CategoryTestFailure, `(?i)expected\s+(.+?)\s+but\s+(?:got|was)\s+(.+)`, 0.85, "Expectation mismatch"},
	{models.CategoryTestFailure, `(?i)\d+\s+(?:test|spec)s?\s+failed`, 0.95, "Multiple test failures"},

	// Dependency resolution
	{models.CategoryDependency, `(?i)could not (?:resolve|find) dependency[:\s]*(.+)`, 0.9, "Dependency resolution error"},
	{models.CategoryDependency, `(?i)module[:\s]+(.+?)\s+not found`, 0.9, "Module not found"},
	{models.CategoryDependency, `(?i)package[:\s]+(.+?)\s+(?:not found|does not exist)`, 0.9, "Package not found"},
	{models.CategoryDependency, `(?i)no such file or directory[:\s]*(.+)`, 0.8, "File not found"},

	// Network
	{models.CategoryNetwork, `(?i)connection\s+(?:refused|timeout|timed out)`, 0.9, "Network connection error"},
	{models.CategoryNetwork, `(?i)could not connect to\s+(.+)`, 0.85, "Connection failure"},
	{models.CategoryNetwork, `(?i)(?:network|dns)\s+(?:error|failure)`, 0.8, "Network error"},
	{models.CategoryNetwork, `(?i)certificate\s+(?:verification|validation)\s+failed`, 0.9, "Certificate error"},

	// Permissions
	{models.CategoryPermission, `(?i)permission denied`, 0.95, "Permission denied"},
	{models.CategoryPermission, `(?i)access denied`, 0.9, "Access denied"},
	{models.CategoryPermission, `(?i)operation not permitted`, 0.9, "Operation not permitted"},

	// Memory
	{models.CategoryMemory, `(?i)out of memory`, 0.95, "Out of memory error"},
	{models.CategoryMemory, `(?i)memory allocation failed`, 0.9, "Memory allocation failure"},
	{models.CategoryMemory, `(?i)segmentation fault`, 0.95, "Segmentation fault"},

	// Timeouts
	{models.CategoryTimeout, `(?i)timeout|timed out`, 0.8, "Timeout error"},
	{models.CategoryTimeout, `(?i)operation cancelled.*?timeout`, 0.9, "Operation timeout"},

	// Configuration
	{models.CategoryConfiguration, `(?i)(?:invalid|missing|malformed)\s+config(?:uration)?[:\s]*(.+)`, 0.85, "Configuration error"},
	{models.CategoryConfiguration, `(?i)environment variable\s+(\S+)\s+(?:not set|is required|missing)`, 0.9, "Missing environment variable"},

	// Deployment
	{models.CategoryDeployment, `(?i)deploy(?:ment)?\s+failed[:\s]*(.*)`, 0.9, "Deployment failure"},
	{models.CategoryDeployment, `(?i)rollback\s+(?:initiated|triggered|required)`, 0.85, "Deployment rollback"},
}

// customPatternFile is the YAML shape for operator-supplied patterns.
type customPatternFile struct {
	Patterns []patternDef `yaml:"patterns"`
}

// loadCustomPatterns reads additional detection patterns from a YAML file.
// Definitions with unknown categories are rejected; regex compilation is
// deferred to compilePatterns so invalid expressions degrade the same way
// as builtin ones.
func loadCustomPatterns(path string) ([]patternDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read patterns file %s: %w", path, err)
	}

	var file customPatternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse patterns file %s: %w", path, err)
	}

	valid := make(map[string]bool)
	for _, category := range models.ErrorCategories() {
		valid[category] = true
	}

	defs := make([]patternDef, 0, len(file.Patterns))
	for _, def := range file.Patterns {
		if !valid[def.Category] {
			return nil, fmt.Errorf("unknown category %q in patterns file %s", def.Category, path)
		}
		if def.Confidence <= 0 || def.Confidence > 1 {
			def.Confidence = 0.5
		}
		defs = append(defs, def)
	}

	return defs, nil
}
