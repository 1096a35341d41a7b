package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/triage/internal/common"
	"github.com/ternarybob/triage/internal/interfaces"
	"github.com/ternarybob/triage/internal/models"
)

// fakeProvider is a scripted backend for fallback tests.
type fakeProvider struct {
	name  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Model() string { return "fake-model" }

func (f *fakeProvider) AnalyzeError(ctx context.Context, buildCtx models.BuildContext) (*models.AIResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.AIResponse{
		Provider:  f.name,
		Model:     "fake-model",
		Analysis:  models.Analysis{RootCause: "scripted", Confidence: 80, Severity: models.SeverityLow},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func newTestManager(strategy string, limiter *rate.Limiter, providers ...interfaces.AIProvider) *Manager {
	return &Manager{
		providers: providers,
		strategy:  strategy,
		limiter:   limiter,
		logger:    arbor.NewLogger(),
	}
}

func TestAnalyze_FirstProviderWins(t *testing.T) {
	first := &fakeProvider{name: "claude"}
	second := &fakeProvider{name: "gemini"}
	manager := newTestManager(StrategyPriority, nil, first, second)

	response, err := manager.Analyze(context.Background(), models.BuildContext{})

	require.NoError(t, err)
	assert.Equal(t, "claude", response.Provider)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestAnalyze_FallsBackInOrder(t *testing.T) {
	first := &fakeProvider{name: "claude", err: errors.New("api down")}
	second := &fakeProvider{name: "gemini", err: errors.New("quota")}
	third := &fakeProvider{name: "ollama"}
	manager := newTestManager(StrategyPriority, nil, first, second, third)

	response, err := manager.Analyze(context.Background(), models.BuildContext{})

	require.NoError(t, err)
	assert.Equal(t, "ollama", response.Provider)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestAnalyze_AllProvidersFail(t *testing.T) {
	first := &fakeProvider{name: "claude", err: errors.New("api down")}
	second := &fakeProvider{name: "gemini", err: errors.New("quota exceeded")}
	manager := newTestManager(StrategyPriority, nil, first, second)

	_, err := manager.Analyze(context.Background(), models.BuildContext{})

	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrAllProvidersFailed)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestAnalyze_FailFastStopsAtFirstError(t *testing.T) {
	first := &fakeProvider{name: "claude", err: errors.New("api down")}
	second := &fakeProvider{name: "gemini"}
	manager := newTestManager(StrategyFailFast, nil, first, second)

	_, err := manager.Analyze(context.Background(), models.BuildContext{})

	require.Error(t, err)
	assert.Equal(t, 0, second.calls)
}

func TestAnalyze_RateLimited(t *testing.T) {
	provider := &fakeProvider{name: "claude"}
	// A zero-burst limiter never allows a request.
	manager := newTestManager(StrategyPriority, rate.NewLimiter(rate.Every(time.Minute), 0), provider)

	_, err := manager.Analyze(context.Background(), models.BuildContext{})

	assert.ErrorIs(t, err, interfaces.ErrRateLimited)
	assert.Equal(t, 0, provider.calls)
}

func TestAnalyze_CanceledContext(t *testing.T) {
	provider := &fakeProvider{name: "claude"}
	manager := newTestManager(StrategyPriority, nil, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := manager.Analyze(ctx, models.BuildContext{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, provider.calls)
}

func TestNewManager_Validation(t *testing.T) {
	t.Run("no backends is a config error", func(t *testing.T) {
		_, err := NewManager(&common.ProvidersConfig{}, &staticResolver{}, arbor.NewLogger())
		assert.Error(t, err)
	})

	t.Run("backends without secrets are skipped", func(t *testing.T) {
		config := &common.ProvidersConfig{
			Backends: []common.ProviderConfig{
				{Name: "claude", Secret: "env:DOES_NOT_EXIST"},
			},
		}
		_, err := NewManager(config, &staticResolver{err: interfaces.ErrSecretNotFound}, arbor.NewLogger())
		assert.Error(t, err)
	})

	t.Run("resolved secret builds the chain", func(t *testing.T) {
		config := &common.ProvidersConfig{
			FallbackStrategy: StrategyPriority,
			Backends: []common.ProviderConfig{
				{Name: "claude", Secret: "env:KEY"},
				{Name: "openai", Secret: "env:KEY"},
			},
		}
		manager, err := NewManager(config, &staticResolver{value: "sk-test"}, arbor.NewLogger())
		require.NoError(t, err)
		require.Len(t, manager.Providers(), 2)
		assert.Equal(t, "claude", manager.Providers()[0].Name())
		assert.Equal(t, "openai", manager.Providers()[1].Name())
	})
}

// staticResolver returns a fixed secret or error.
type staticResolver struct {
	value string
	err   error
}

func (r *staticResolver) GetSecret(ctx context.Context, source string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.value, nil
}
