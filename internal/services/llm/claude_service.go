package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/triage/internal/common"
	"github.com/ternarybob/triage/internal/models"
)

const defaultClaudeModel = "claude-sonnet-4-20250514"

// ClaudeProvider analyzes failures through the Anthropic Messages API.
type ClaudeProvider struct {
	config    common.ProviderConfig
	client    anthropic.Client
	logger    arbor.ILogger
	timeout   time.Duration
	maxTokens int
}

// NewClaudeProvider creates a Claude backend with the resolved API key.
func NewClaudeProvider(config common.ProviderConfig, apiKey string, logger arbor.ILogger) *ClaudeProvider {
	if config.Model == "" {
		config.Model = defaultClaudeModel
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	logger.Debug().
		Str("model", config.Model).
		Int("max_tokens", maxTokens).
		Msg("Claude provider initialized")

	return &ClaudeProvider{
		config:    config,
		client:    client,
		logger:    logger,
		timeout:   config.TimeoutDuration(),
		maxTokens: maxTokens,
	}
}

func (p *ClaudeProvider) Name() string  { return "claude" }
func (p *ClaudeProvider) Model() string { return p.config.Model }

// AnalyzeError submits the build context and parses the structured sections
// out of the completion.
func (p *ClaudeProvider) AnalyzeError(ctx context.Context, buildCtx models.BuildContext) (*models.AIResponse, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	system, user := BuildPrompt(buildCtx)
	start := time.Now()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
	}

	resp, err := p.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no response generated from Claude API")
	}

	tokens := int(resp.Usage.InputTokens + resp.Usage.OutputTokens)
	return newResponse(p.Name(), p.config.Model, ParseAnalysis(text.String()), tokens, time.Since(start)), nil
}
