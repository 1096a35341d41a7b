// Package llm orchestrates analysis across an ordered list of LLM backends
// with per-run rate limiting and configurable fallback.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/triage/internal/common"
	"github.com/ternarybob/triage/internal/interfaces"
	"github.com/ternarybob/triage/internal/models"
)

const (
	StrategyPriority = "priority"
	StrategyFailFast = "fail_fast"
)

// Manager tries each configured backend in order until one returns a usable
// analysis. With the priority strategy every backend gets a turn; fail_fast
// surfaces the first backend's error immediately.
type Manager struct {
	providers []interfaces.AIProvider
	strategy  string
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

// NewManager builds the provider chain from configuration. Backends whose
// secrets cannot be resolved are skipped with a warning; a chain with no
// usable backend is a configuration error.
func NewManager(config *common.ProvidersConfig, resolver interfaces.SecretResolver, logger arbor.ILogger) (*Manager, error) {
	if len(config.Backends) == 0 {
		return nil, fmt.Errorf("no LLM backends configured")
	}

	ctx := context.Background()
	providers := make([]interfaces.AIProvider, 0, len(config.Backends))

	for _, backend := range config.Backends {
		provider, err := newProvider(ctx, backend, resolver, logger)
		if err != nil {
			logger.Warn().Err(err).Str("provider", backend.Name).Msg("Skipping unusable LLM backend")
			continue
		}
		providers = append(providers, provider)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no usable LLM backends: all %d configured backends failed to initialize", len(config.Backends))
	}

	var limiter *rate.Limiter
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), config.RequestsPerMinute)
	}

	strategy := config.FallbackStrategy
	if strategy == "" {
		strategy = StrategyPriority
	}

	logger.Debug().
		Int("backends", len(providers)).
		Str("strategy", strategy).
		Int("requests_per_minute", config.RequestsPerMinute).
		Msg("LLM provider manager initialized")

	return &Manager{
		providers: providers,
		strategy:  strategy,
		limiter:   limiter,
		logger:    logger,
	}, nil
}

// newProvider constructs one backend, resolving its secret descriptor.
// Ollama runs locally and needs no secret.
func newProvider(ctx context.Context, backend common.ProviderConfig, resolver interfaces.SecretResolver, logger arbor.ILogger) (interfaces.AIProvider, error) {
	if backend.Name == "ollama" {
		return NewOllamaProvider(backend, logger)
	}

	apiKey, err := resolver.GetSecret(ctx, backend.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve secret for %s: %w", backend.Name, err)
	}

	switch backend.Name {
	case "claude":
		return NewClaudeProvider(backend, apiKey, logger), nil
	case "gemini":
		return NewGeminiProvider(ctx, backend, apiKey, logger)
	case "openai":
		return NewOpenAIProvider(backend, apiKey, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", backend.Name)
	}
}

// Providers returns the usable backend chain in priority order.
func (m *Manager) Providers() []interfaces.AIProvider {
	return m.providers
}

// Analyze submits the context to the backend chain. The rate budget is
// checked once per call, before any backend is tried; a depleted budget
// returns ErrRateLimited without consuming a provider request. When every
// backend fails the error wraps ErrAllProvidersFailed around the last
// backend error.
func (m *Manager) Analyze(ctx context.Context, buildCtx models.BuildContext) (*models.AIResponse, error) {
	if m.limiter != nil && !m.limiter.Allow() {
		return nil, interfaces.ErrRateLimited
	}

	var lastErr error
	for _, provider := range m.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		response, err := provider.AnalyzeError(ctx, buildCtx)
		if err == nil {
			m.logger.Info().
				Str("provider", provider.Name()).
				Str("model", provider.Model()).
				Dur("duration", time.Since(start)).
				Msg("Analysis completed")
			return response, nil
		}

		m.logger.Warn().
			Err(err).
			Str("provider", provider.Name()).
			Msg("LLM backend failed")
		lastErr = err

		if m.strategy == StrategyFailFast {
			return nil, fmt.Errorf("provider %s failed: %w", provider.Name(), err)
		}
	}

	return nil, fmt.Errorf("%w: last error: %v", interfaces.ErrAllProvidersFailed, lastErr)
}
