package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/triage/internal/common"
	"github.com/ternarybob/triage/internal/interfaces"
	"github.com/ternarybob/triage/internal/models"
)

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
)

// OpenAIProvider analyzes failures through the OpenAI chat completions API,
// or any compatible endpoint via the endpoint override.
type OpenAIProvider struct {
	config   common.ProviderConfig
	apiKey   string
	endpoint string
	client   *http.Client
	logger   arbor.ILogger
}

type openAIRequest struct {
	Model     string               `json:"model"`
	Messages  []interfaces.Message `json:"messages"`
	MaxTokens int                  `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIProvider creates an OpenAI backend with the resolved API key.
func NewOpenAIProvider(config common.ProviderConfig, apiKey string, logger arbor.ILogger) *OpenAIProvider {
	if config.Model == "" {
		config.Model = defaultOpenAIModel
	}
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}

	logger.Debug().
		Str("model", config.Model).
		Str("endpoint", endpoint).
		Msg("OpenAI provider initialized")

	return &OpenAIProvider{
		config:   config,
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: config.TimeoutDuration()},
		logger:   logger,
	}
}

func (p *OpenAIProvider) Name() string  { return "openai" }
func (p *OpenAIProvider) Model() string { return p.config.Model }

// AnalyzeError submits the build context as a chat completion request and
// parses the structured sections out of the first choice.
func (p *OpenAIProvider) AnalyzeError(ctx context.Context, buildCtx models.BuildContext) (*models.AIResponse, error) {
	system, user := BuildPrompt(buildCtx)
	start := time.Now()

	payload := openAIRequest{
		Model: p.config.Model,
		Messages: []interfaces.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: p.config.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode OpenAI request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAI request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAI response: %w", err)
	}

	var decoded openAIResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode OpenAI response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if decoded.Error != nil {
			return nil, fmt.Errorf("OpenAI API error (status %d): %s", resp.StatusCode, decoded.Error.Message)
		}
		return nil, fmt.Errorf("OpenAI API returned status %d", resp.StatusCode)
	}

	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("no response generated from OpenAI API")
	}

	text := decoded.Choices[0].Message.Content
	return newResponse(p.Name(), p.config.Model, ParseAnalysis(text), decoded.Usage.TotalTokens, time.Since(start)), nil
}
