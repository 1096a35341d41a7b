package llm

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/triage/internal/models"
)

const systemPrompt = "You are an expert CI/CD engineer analyzing build failures. " +
	"Be concise and actionable. Base your analysis only on the provided context."

const analysisFormat = `Please provide your analysis in the following format:

ROOT CAUSE:
[Brief description of the most likely root cause]

SUGGESTED FIXES:
1. [First suggested fix]
2. [Second suggested fix]
3. [Third suggested fix if applicable]

CONFIDENCE: [0-100]%

SEVERITY: [low/medium/high]`

// BuildPrompt renders the sanitized build context into the system and user
// prompts shared by every backend. Backends differ only in transport; the
// conversation they carry is identical.
func BuildPrompt(buildCtx models.BuildContext) (system string, user string) {
	contextJSON, err := json.MarshalIndent(buildCtx, "", "  ")
	if err != nil {
		contextJSON = []byte(fmt.Sprintf("%v", map[string]any(buildCtx)))
	}

	user = fmt.Sprintf("Analyze this CI/CD build failure and provide a structured analysis.\n\nBUILD CONTEXT:\n%s\n\n%s",
		contextJSON, analysisFormat)

	return systemPrompt, user
}

// newResponse assembles the standardized response envelope around a parsed
// analysis.
func newResponse(provider, model string, analysis models.Analysis, tokens int, elapsed time.Duration) *models.AIResponse {
	return &models.AIResponse{
		Provider: provider,
		Model:    model,
		Analysis: analysis,
		Metadata: models.ResponseMetadata{
			TokensUsed:   tokens,
			AnalysisTime: fmt.Sprintf("%.2fs", elapsed.Seconds()),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
