package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/triage/internal/common"
	"github.com/ternarybob/triage/internal/models"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider analyzes failures through the Google Gemini API. Rate
// limit errors are retried with backoff since the free-tier quota window
// resets within a minute.
type GeminiProvider struct {
	config  common.ProviderConfig
	client  *genai.Client
	logger  arbor.ILogger
	timeout time.Duration
	retry   retryConfig
}

// NewGeminiProvider creates a Gemini backend with the resolved API key.
func NewGeminiProvider(ctx context.Context, config common.ProviderConfig, apiKey string, logger arbor.ILogger) (*GeminiProvider, error) {
	if config.Model == "" {
		config.Model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	logger.Debug().
		Str("model", config.Model).
		Msg("Gemini provider initialized")

	return &GeminiProvider{
		config:  config,
		client:  client,
		logger:  logger,
		timeout: config.TimeoutDuration(),
		retry:   defaultRetryConfig(),
	}, nil
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.config.Model }

// AnalyzeError submits the build context, retrying quota errors with
// backoff before giving up and letting the fallback chain take over.
func (p *GeminiProvider) AnalyzeError(ctx context.Context, buildCtx models.BuildContext) (*models.AIResponse, error) {
	system, user := BuildPrompt(buildCtx)
	start := time.Now()

	var text string
	var tokens int
	var err error
	for attempt := 0; ; attempt++ {
		text, tokens, err = p.generate(ctx, system, user)
		if err == nil {
			break
		}
		if !isRateLimitError(err) || attempt >= p.retry.MaxRetries {
			return nil, fmt.Errorf("Gemini API call failed: %w", err)
		}

		wait := p.retry.backoff(attempt, extractRetryDelay(err))
		p.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", wait).
			Msg("Gemini rate limited, backing off")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return newResponse(p.Name(), p.config.Model, ParseAnalysis(text), tokens, time.Since(start)), nil
}

func (p *GeminiProvider) generate(ctx context.Context, system, user string) (string, int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(user)},
		},
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	if p.config.MaxTokens > 0 {
		config.MaxOutputTokens = int32(p.config.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(timeoutCtx, p.config.Model, contents, config)
	if err != nil {
		return "", 0, err
	}

	var text strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					text.WriteString(part.Text)
				}
			}
			if text.Len() > 0 {
				break
			}
		}
	}

	if text.Len() == 0 {
		return "", 0, fmt.Errorf("no response generated from Gemini API")
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return text.String(), tokens, nil
}
