package models

// SanitizationResult is the output of one sanitizer pass over a context.
// SanitizedContext is always a deep copy; it never aliases the input.
type SanitizationResult struct {
	SanitizedContext BuildContext `json:"sanitized_context"`
	RedactionsMade   int          `json:"redactions_made"`
	PatternsMatched  []string     `json:"patterns_matched"`
	SecurityScore    float64      `json:"security_score"`
}
