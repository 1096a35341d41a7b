package models

// Error categories form a fixed, closed set. Unmatched logs fall back to
// CategoryUnknown.
const (
	CategoryCompilation   = "compilation"
	CategoryTestFailure   = "test_failure"
	CategoryDependency    = "dependency"
	CategoryNetwork       = "network"
	CategoryPermission    = "permission"
	CategoryMemory        = "memory"
	CategoryTimeout       = "timeout"
	CategoryConfiguration = "configuration"
	CategoryDeployment    = "deployment"
	CategoryUnknown       = "unknown"
)

// ErrorCategories lists every valid category in a stable order.
func ErrorCategories() []string {
	return []string{
		CategoryCompilation,
		CategoryTestFailure,
		CategoryDependency,
		CategoryNetwork,
		CategoryPermission,
		CategoryMemory,
		CategoryTimeout,
		CategoryConfiguration,
		CategoryDeployment,
		CategoryUnknown,
	}
}

// ErrorPattern is a single regex match against the build log. Immutable once
// created.
type ErrorPattern struct {
	PatternType       string   `json:"pattern_type"`
	Confidence        float64  `json:"confidence"`
	Message           string   `json:"message"`
	LineNumber        int      `json:"line_number,omitempty"`
	ContextLines      []string `json:"context_lines,omitempty"`
	SuggestedCategory string   `json:"suggested_category,omitempty"`
}

// ErrorDetectionResult is the outcome of one detection run over a log.
type ErrorDetectionResult struct {
	ErrorDetected     bool           `json:"error_detected"`
	ExitCode          int            `json:"exit_code"`
	Patterns          []ErrorPattern `json:"patterns"`
	ErrorCategory     string         `json:"error_category"`
	Summary           string         `json:"summary"`
	LogLinesAnalyzed  int            `json:"log_lines_analyzed"`
	AnalysisTimestamp string         `json:"analysis_timestamp"`
}
