package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/triage/internal/common"
	"github.com/ternarybob/triage/internal/models"
)

func sampleDetection() models.ErrorDetectionResult {
	return models.ErrorDetectionResult{
		ErrorDetected: true,
		ExitCode:      1,
		ErrorCategory: models.CategoryTestFailure,
		Summary:       "Detected 1 error pattern(s) in category 'test_failure': - Test failure (confidence: 90%)",
		Patterns: []models.ErrorPattern{
			{PatternType: "Test failure", Confidence: 0.9, LineNumber: 12},
		},
	}
}

func sampleAnalysis() *models.AIResponse {
	return &models.AIResponse{
		Provider: "claude",
		Model:    "claude-sonnet-4-20250514",
		Analysis: models.Analysis{
			RootCause:      "Assertion mismatch in the checkout flow",
			SuggestedFixes: []string{"Update the fixture", "Re-record the snapshot"},
			Confidence:     85,
			Severity:       models.SeverityMedium,
		},
	}
}

func sampleSanitization() models.SanitizationResult {
	return models.SanitizationResult{RedactionsMade: 3, SecurityScore: 94}
}

func TestGenerate_Markdown(t *testing.T) {
	service, err := NewService(common.ReportConfig{Format: "markdown"}, arbor.NewLogger())
	require.NoError(t, err)

	out, err := service.Generate(sampleDetection(), sampleAnalysis(), sampleSanitization())
	require.NoError(t, err)

	assert.Contains(t, out, "# Build Failure Analysis")
	assert.Contains(t, out, "**Category:** test_failure")
	assert.Contains(t, out, "| Test failure | 12 | 90% |")
	assert.Contains(t, out, "**Provider:** claude (claude-sonnet-4-20250514)")
	assert.Contains(t, out, "**Confidence:** 85% (high confidence)")
	assert.Contains(t, out, "**Severity:** 🟠 medium")
	assert.Contains(t, out, "Assertion mismatch in the checkout flow")
	assert.Contains(t, out, "1. Update the fixture")
	assert.Contains(t, out, "2. Re-record the snapshot")
	assert.Contains(t, out, "3 redaction(s) applied, security score 94/100.")
}

func TestGenerate_MarkdownCachedAnnotation(t *testing.T) {
	service, err := NewService(common.ReportConfig{Format: "markdown"}, arbor.NewLogger())
	require.NoError(t, err)

	analysis := sampleAnalysis()
	analysis.Metadata.Cached = true
	analysis.Metadata.AccessCount = 4

	out, err := service.Generate(sampleDetection(), analysis, sampleSanitization())
	require.NoError(t, err)
	assert.Contains(t, out, "cached, 4 hit(s)")
}

func TestGenerate_MarkdownWithoutAnalysis(t *testing.T) {
	service, err := NewService(common.ReportConfig{Format: "markdown"}, arbor.NewLogger())
	require.NoError(t, err)

	out, err := service.Generate(sampleDetection(), nil, sampleSanitization())
	require.NoError(t, err)

	assert.Contains(t, out, "## Detection")
	assert.Contains(t, out, "## Sanitization")
	assert.NotContains(t, out, "## Analysis")
}

func TestGenerate_DegradedNote(t *testing.T) {
	service, err := NewService(common.ReportConfig{Format: "markdown"}, arbor.NewLogger())
	require.NoError(t, err)

	analysis := sampleAnalysis()
	analysis.Metadata.Error = "all backends failed"

	out, err := service.Generate(sampleDetection(), analysis, sampleSanitization())
	require.NoError(t, err)
	assert.Contains(t, out, "> Analysis degraded: all backends failed")
}

func TestConfidenceBand(t *testing.T) {
	tests := []struct {
		confidence int
		want       string
	}{
		{95, "high confidence"},
		{80, "high confidence"},
		{79, "medium confidence"},
		{60, "medium confidence"},
		{59, "low confidence"},
		{40, "low confidence"},
		{39, "very low confidence"},
		{0, "very low confidence"},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, confidenceBand(test.confidence), "confidence %d", test.confidence)
	}
}

func TestSeverityMarker(t *testing.T) {
	assert.Equal(t, "🔴", severityMarker(models.SeverityHigh))
	assert.Equal(t, "🟠", severityMarker(models.SeverityMedium))
	assert.Equal(t, "🔵", severityMarker(models.SeverityLow))
	assert.Equal(t, "🟠", severityMarker("unknown"))
}

func TestGenerate_JSON(t *testing.T) {
	service, err := NewService(common.ReportConfig{Format: "json"}, arbor.NewLogger())
	require.NoError(t, err)

	out, err := service.Generate(sampleDetection(), sampleAnalysis(), sampleSanitization())
	require.NoError(t, err)

	var report Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, models.CategoryTestFailure, report.Detection.ErrorCategory)
	assert.Equal(t, "claude", report.Analysis.Provider)
	assert.Equal(t, 3, report.RedactionsMade)
	assert.Equal(t, 94.0, report.SecurityScore)
	assert.NotEmpty(t, report.GeneratedAt)
}
