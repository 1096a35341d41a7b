package models

// Severity levels for an analyzed failure.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Analysis is the structured core of a provider response.
type Analysis struct {
	RootCause      string   `json:"root_cause"`
	SuggestedFixes []string `json:"suggested_fixes"`
	Confidence     int      `json:"confidence"`
	Severity       string   `json:"severity"`
}

// ResponseMetadata carries bookkeeping about how an analysis was produced.
type ResponseMetadata struct {
	TokensUsed   int    `json:"tokens_used"`
	AnalysisTime string `json:"analysis_time"`
	Cached       bool   `json:"cached"`
	AccessCount  int    `json:"access_count,omitempty"`
	Error        string `json:"error,omitempty"`
}

// AIResponse is the standardized result returned by any provider backend.
// Immutable once returned by a provider call; the cache layer works on
// copies.
type AIResponse struct {
	Provider  string           `json:"provider"`
	Model     string           `json:"model"`
	Analysis  Analysis         `json:"analysis"`
	Metadata  ResponseMetadata `json:"metadata"`
	Timestamp string           `json:"timestamp"`
}

// NormalizeSeverity maps free-form severity text onto the closed severity
// set, defaulting to medium.
func NormalizeSeverity(s string) string {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return s
	default:
		return SeverityMedium
	}
}

// ClampConfidence bounds a confidence value to [0,100].
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
