package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/triage/internal/common"
	"github.com/ternarybob/triage/internal/models"
)

const defaultOllamaModel = "llama3.2"

// OllamaProvider analyzes failures through a local Ollama instance. No API
// key is needed; the endpoint defaults to OLLAMA_HOST or localhost.
type OllamaProvider struct {
	config  common.ProviderConfig
	client  *api.Client
	logger  arbor.ILogger
	timeout time.Duration
}

// NewOllamaProvider creates an Ollama backend. An explicit endpoint in the
// config overrides the OLLAMA_HOST environment resolution.
func NewOllamaProvider(config common.ProviderConfig, logger arbor.ILogger) (*OllamaProvider, error) {
	if config.Model == "" {
		config.Model = defaultOllamaModel
	}

	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	if config.Endpoint != "" {
		parsed, err := url.Parse(config.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama endpoint %q: %w", config.Endpoint, err)
		}
		client = api.NewClient(parsed, http.DefaultClient)
	}

	logger.Debug().
		Str("model", config.Model).
		Str("endpoint", config.Endpoint).
		Msg("Ollama provider initialized")

	return &OllamaProvider{
		config:  config,
		client:  client,
		logger:  logger,
		timeout: config.TimeoutDuration(),
	}, nil
}

func (p *OllamaProvider) Name() string  { return "ollama" }
func (p *OllamaProvider) Model() string { return p.config.Model }

// AnalyzeError submits the build context as a non-streaming chat request.
func (p *OllamaProvider) AnalyzeError(ctx context.Context, buildCtx models.BuildContext) (*models.AIResponse, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	system, user := BuildPrompt(buildCtx)
	start := time.Now()

	req := &api.ChatRequest{
		Model: p.config.Model,
		Messages: []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: new(bool),
	}
	if p.config.MaxTokens > 0 {
		req.Options = map[string]interface{}{
			"num_predict": p.config.MaxTokens,
		}
	}

	var response api.ChatResponse
	err := p.client.Chat(timeoutCtx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Ollama chat request failed: %w", err)
	}

	if response.Message.Content == "" {
		return nil, fmt.Errorf("no response generated from Ollama")
	}

	tokens := response.PromptEvalCount + response.EvalCount
	return newResponse(p.Name(), p.config.Model, ParseAnalysis(response.Message.Content), tokens, time.Since(start)), nil
}
