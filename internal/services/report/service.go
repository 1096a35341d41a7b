// Package report renders analysis results for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/triage/internal/common"
	"github.com/ternarybob/triage/internal/models"
)

// Report is everything one triage run produced.
type Report struct {
	GeneratedAt    string                      `json:"generated_at"`
	Detection      models.ErrorDetectionResult `json:"detection"`
	Analysis       *models.AIResponse          `json:"analysis,omitempty"`
	RedactionsMade int                         `json:"redactions_made"`
	SecurityScore  float64                     `json:"security_score"`
}

const markdownTemplate = `# Build Failure Analysis

**Generated:** {{.GeneratedAt}}
**Category:** {{.Detection.ErrorCategory}}
**Exit code:** {{.Detection.ExitCode}}

## Detection

{{.Detection.Summary}}
{{- if .Detection.Patterns}}

| Pattern | Line | Confidence |
|---------|------|------------|
{{- range .Detection.Patterns}}
| {{.PatternType}} | {{.LineNumber}} | {{percent .Confidence}} |
{{- end}}
{{- end}}
{{- if .Analysis}}

## Analysis

**Provider:** {{.Analysis.Provider}} ({{.Analysis.Model}}){{if .Analysis.Metadata.Cached}} — cached, {{.Analysis.Metadata.AccessCount}} hit(s){{end}}
**Confidence:** {{.Analysis.Analysis.Confidence}}% ({{band .Analysis.Analysis.Confidence}})
**Severity:** {{marker .Analysis.Analysis.Severity}} {{.Analysis.Analysis.Severity}}

### Root cause

{{.Analysis.Analysis.RootCause}}

### Suggested fixes

{{- range $i, $fix := .Analysis.Analysis.SuggestedFixes}}
{{inc $i}}. {{$fix}}
{{- end}}
{{- if .Analysis.Metadata.Error}}

> Analysis degraded: {{.Analysis.Metadata.Error}}
{{- end}}
{{- end}}

## Sanitization

{{.RedactionsMade}} redaction(s) applied, security score {{printf "%.0f" .SecurityScore}}/100.
`

// Service renders reports in the configured format.
type Service struct {
	config   common.ReportConfig
	template *template.Template
	logger   arbor.ILogger
}

// NewService creates a report service. The markdown template is parsed once
// at construction.
func NewService(config common.ReportConfig, logger arbor.ILogger) (*Service, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"percent": func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
		"inc":     func(i int) int { return i + 1 },
		"band":    confidenceBand,
		"marker":  severityMarker,
	}).Parse(markdownTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}

	return &Service{
		config:   config,
		template: tmpl,
		logger:   logger,
	}, nil
}

// confidenceBand labels a confidence value for readers scanning a report.
func confidenceBand(confidence int) string {
	switch {
	case confidence >= 80:
		return "high confidence"
	case confidence >= 60:
		return "medium confidence"
	case confidence >= 40:
		return "low confidence"
	default:
		return "very low confidence"
	}
}

// severityMarker returns the color marker rendered next to the severity.
func severityMarker(severity string) string {
	switch severity {
	case models.SeverityHigh:
		return "🔴"
	case models.SeverityLow:
		return "🔵"
	default:
		return "🟠"
	}
}

// Generate renders the report in the configured format. Analysis may be nil
// when every provider failed; the detection and sanitization sections still
// render.
func (s *Service) Generate(detection models.ErrorDetectionResult, analysis *models.AIResponse, sanitization models.SanitizationResult) (string, error) {
	report := Report{
		GeneratedAt:    time.Now().UTC().Format(time.RFC3339),
		Detection:      detection,
		Analysis:       analysis,
		RedactionsMade: sanitization.RedactionsMade,
		SecurityScore:  sanitization.SecurityScore,
	}

	if s.config.Format == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode report: %w", err)
		}
		return string(data) + "\n", nil
	}

	var out strings.Builder
	if err := s.template.Execute(&out, report); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return out.String(), nil
}
