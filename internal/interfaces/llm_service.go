package interfaces

import (
	"context"

	"github.com/ternarybob/triage/internal/models"
)

// Message represents a single message in a provider conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// AIProvider is the capability every LLM backend implements. Concrete
// backends differ only in endpoint, request shape and response-field
// extraction; prompt building and free-text parsing are shared package
// functions, not per-backend behavior.
type AIProvider interface {
	// Name returns the provider identifier ("claude", "gemini", ...).
	Name() string

	// Model returns the configured model name.
	Model() string

	// AnalyzeError submits the sanitized build context for analysis and
	// returns a standardized response. Any failure (transport, timeout,
	// malformed upstream response) counts as a backend failure for the
	// fallback orchestrator.
	AnalyzeError(ctx context.Context, buildCtx models.BuildContext) (*models.AIResponse, error)
}

// AnalysisService is the provider-manager contract consumed by the pipeline.
type AnalysisService interface {
	Analyze(ctx context.Context, buildCtx models.BuildContext) (*models.AIResponse, error)
}
