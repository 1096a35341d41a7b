// Package app wires the triage pipeline: detection, context assembly,
// sanitization, cache, provider analysis and reporting.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/triage/internal/common"
	"github.com/ternarybob/triage/internal/interfaces"
	"github.com/ternarybob/triage/internal/models"
	"github.com/ternarybob/triage/internal/services/buildcontext"
	"github.com/ternarybob/triage/internal/services/cache"
	"github.com/ternarybob/triage/internal/services/detector"
	"github.com/ternarybob/triage/internal/services/llm"
	"github.com/ternarybob/triage/internal/services/report"
	"github.com/ternarybob/triage/internal/services/sanitizer"
	"github.com/ternarybob/triage/internal/services/secrets"
	badgerstore "github.com/ternarybob/triage/internal/storage/badger"
)

// App holds all application components and dependencies.
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	Detector       *detector.Service
	ContextBuilder *buildcontext.Service
	Sanitizer      *sanitizer.Service
	Cache          *cache.Service
	Secrets        interfaces.SecretResolver
	Analyzer       interfaces.AnalysisService
	Reporter       *report.Service
}

// Result is the outcome of one triage run. Degraded means the run completed
// without a provider analysis (all backends failed, rate limited, or the
// context was withheld on a low security score).
type Result struct {
	Detection    models.ErrorDetectionResult
	Sanitization models.SanitizationResult
	Analysis     *models.AIResponse
	Report       string
	Degraded     bool
}

// New creates the application with all services wired.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	storageManager, err := badgerstore.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	secretResolver := secrets.NewService(storageManager.KeyValueStorage(), logger)

	analyzer, err := llm.NewManager(&config.Providers, secretResolver, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize LLM backends: %w", err)
	}

	reporter, err := report.NewService(config.Report, logger)
	if err != nil {
		storageManager.Close()
		return nil, err
	}

	app := &App{
		Config:         config,
		Logger:         logger,
		StorageManager: storageManager,
		Detector:       detector.NewService(&config.Detector, logger),
		ContextBuilder: buildcontext.NewService(config.Context, common.Version, logger),
		Sanitizer:      sanitizer.NewService(config.Redaction, logger),
		Cache:          cache.NewService(storageManager.CacheStorage(), config.Cache.TTLDuration(), logger),
		Secrets:        secretResolver,
		Analyzer:       analyzer,
		Reporter:       reporter,
	}

	logger.Debug().Str("environment", config.Environment).Msg("Application initialized")
	return app, nil
}

// NewWithoutProviders creates the application without the LLM backend
// chain, enough for cache maintenance commands that never analyze.
func NewWithoutProviders(config *common.Config, logger arbor.ILogger) (*App, error) {
	storageManager, err := badgerstore.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return &App{
		Config:         config,
		Logger:         logger,
		StorageManager: storageManager,
		Cache:          cache.NewService(storageManager.CacheStorage(), config.Cache.TTLDuration(), logger),
	}, nil
}

// Close releases the application's resources.
func (a *App) Close() error {
	if a.StorageManager != nil {
		return a.StorageManager.Close()
	}
	return nil
}

// Triage runs the full pipeline for one failed command. The returned error
// covers infrastructure failures only; provider failures degrade into a
// structured analysis object so a report is always produced.
func (a *App) Triage(ctx context.Context, command string, exitCode int, logContent string) (*Result, error) {
	detection := a.Detector.Detect(logContent, exitCode)
	a.Logger.Info().
		Str("category", detection.ErrorCategory).
		Int("patterns", len(detection.Patterns)).
		Int("exit_code", exitCode).
		Msg("Error detection completed")

	buildCtx := a.ContextBuilder.Build(command, exitCode, logContent, detection)
	return a.run(ctx, detection, buildCtx)
}

// TriageContext runs the pipeline over a pre-assembled build context, as
// produced by an external collaborator or a previous run. The context
// builder is bypassed; detection re-runs over the embedded log excerpt and
// exit code so the report carries pattern findings either way.
func (a *App) TriageContext(ctx context.Context, buildCtx models.BuildContext) (*Result, error) {
	exitCode := buildCtx.IntAt(models.KeyErrorInfo, "exit_code")
	detection := a.Detector.Detect(buildCtx.String(models.KeyLogExcerpt), exitCode)
	a.Logger.Info().
		Str("category", detection.ErrorCategory).
		Int("patterns", len(detection.Patterns)).
		Int("exit_code", exitCode).
		Msg("Error detection completed on supplied context")

	return a.run(ctx, detection, buildCtx)
}

func (a *App) run(ctx context.Context, detection models.ErrorDetectionResult, buildCtx models.BuildContext) (*Result, error) {
	sanitization := a.Sanitizer.Sanitize(buildCtx)

	result := &Result{
		Detection:    detection,
		Sanitization: sanitization,
	}

	if a.Sanitizer.BelowMinimum(sanitization.SecurityScore) && a.Config.Redaction.FailOnLowScore {
		a.Logger.Warn().
			Float64("score", sanitization.SecurityScore).
			Float64("minimum", a.Config.Redaction.MinSecurityScore).
			Msg("Security score below minimum, withholding context from providers")
		result.Degraded = true
		result.Analysis = degradedResponse(fmt.Sprintf(
			"context withheld: security score %.0f below minimum %.0f",
			sanitization.SecurityScore, a.Config.Redaction.MinSecurityScore))
	} else {
		if a.Sanitizer.BelowMinimum(sanitization.SecurityScore) {
			a.Logger.Warn().
				Float64("score", sanitization.SecurityScore).
				Msg("Security score below minimum")
		}
		result.Analysis, result.Degraded = a.analyze(ctx, sanitization.SanitizedContext, detection.ErrorCategory)
	}

	rendered, err := a.Reporter.Generate(detection, result.Analysis, sanitization)
	if err != nil {
		return nil, err
	}
	result.Report = rendered

	return result, nil
}

// analyze resolves the analysis through the cache or the provider chain.
func (a *App) analyze(ctx context.Context, sanitized models.BuildContext, errorCategory string) (*models.AIResponse, bool) {
	contextHash := cache.Fingerprint(sanitized, errorCategory)

	if a.Config.Cache.Enabled {
		if cached, err := a.Cache.Lookup(ctx, contextHash); err != nil {
			a.Logger.Warn().Err(err).Msg("Cache lookup failed")
		} else if cached != nil {
			return cached, false
		}
	}

	response, err := a.Analyzer.Analyze(ctx, sanitized)
	if err != nil {
		a.Logger.Error().Err(err).Msg("Analysis failed on all backends")
		return degradedResponse(err.Error()), true
	}

	if a.Config.Cache.Enabled {
		if err := a.Cache.Store(ctx, contextHash, response); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to cache analysis")
		}
	}
	return response, false
}

// degradedResponse is the structured stand-in produced when no provider
// analysis is available. The report still renders detection results.
func degradedResponse(reason string) *models.AIResponse {
	return &models.AIResponse{
		Provider: "none",
		Model:    "",
		Analysis: models.Analysis{
			RootCause:      "Automated analysis unavailable",
			SuggestedFixes: []string{"Review the detection summary and log excerpt manually"},
			Confidence:     0,
			Severity:       models.SeverityHigh,
		},
		Metadata: models.ResponseMetadata{
			Error: reason,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
