package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig   `toml:"logging"`
	Storage     StorageConfig   `toml:"storage"`
	Cache       CacheConfig     `toml:"cache"`
	Redaction   RedactionConfig `toml:"redaction"`
	Detector    DetectorConfig  `toml:"detector"`
	Context     ContextConfig   `toml:"context"`
	Providers   ProvidersConfig `toml:"providers"`
	Report      ReportConfig    `toml:"report"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
	Dir    string   `toml:"dir"`    // Log directory (default: <exe dir>/logs)
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// CacheConfig controls analysis result caching.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	TTL     string `toml:"ttl"` // e.g. "1h" - entry lifetime before expiry
}

// TTLDuration parses the configured TTL, falling back to one hour.
func (c CacheConfig) TTLDuration() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// RedactionConfig controls the log sanitizer's toggleable behavior.
type RedactionConfig struct {
	RedactFilePaths  bool     `toml:"redact_file_paths"` // Replace username path segments with [USER]
	RedactURLs       bool     `toml:"redact_urls"`       // Mask credential values embedded in URLs
	CustomPatterns   []string `toml:"custom_patterns"`   // Additional regexes, compiled defensively
	MinSecurityScore float64  `toml:"min_security_score" validate:"gte=0,lte=100"`
	FailOnLowScore   bool     `toml:"fail_on_low_score"` // Treat scores below the minimum as a partial failure (exit 2)
}

// DetectorConfig controls error pattern detection.
type DetectorConfig struct {
	PatternsFile string `toml:"patterns_file"` // Optional YAML file with custom detection patterns
}

// ContextConfig controls build context assembly.
type ContextConfig struct {
	LogLines            int    `toml:"log_lines" validate:"gte=0"` // Max log lines captured in the excerpt
	IncludeEnvironment  bool   `toml:"include_environment"`
	IncludePipelineInfo bool   `toml:"include_pipeline_info"`
	IncludeGitInfo      bool   `toml:"include_git_info"`
	CustomContext       string `toml:"custom_context"`
}

// ProvidersConfig holds the ordered backend list and fallback policy.
type ProvidersConfig struct {
	FallbackStrategy  string           `toml:"fallback_strategy" validate:"oneof=priority fail_fast"`
	RequestsPerMinute int              `toml:"requests_per_minute" validate:"gte=0"`
	Backends          []ProviderConfig `toml:"backends" validate:"dive"`
}

// ProviderConfig describes a single LLM backend.
type ProviderConfig struct {
	Name      string `toml:"name" validate:"required,oneof=openai claude gemini ollama"`
	Model     string `toml:"model"`
	Secret    string `toml:"secret"`  // Secret descriptor: "env:NAME", "kv:key" or "file:/path"
	Timeout   string `toml:"timeout"` // e.g. "60s"; reasoning models may want minutes
	MaxTokens int    `toml:"max_tokens" validate:"gte=0"`
	Endpoint  string `toml:"endpoint"` // Override for self-hosted/compatible endpoints
}

// TimeoutDuration parses the configured per-backend timeout, defaulting to
// 60 seconds.
func (p ProviderConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(p.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// ReportConfig controls report rendering.
type ReportConfig struct {
	Format string `toml:"format" validate:"oneof=markdown json"`
}

// NewDefaultConfig returns a config populated with documented defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "production",
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/triage",
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     "1h",
		},
		Redaction: RedactionConfig{
			RedactFilePaths:  true,
			RedactURLs:       true,
			MinSecurityScore: 50,
		},
		Context: ContextConfig{
			LogLines:            500,
			IncludeEnvironment:  true,
			IncludePipelineInfo: true,
			IncludeGitInfo:      true,
		},
		Providers: ProvidersConfig{
			FallbackStrategy:  "priority",
			RequestsPerMinute: 10,
		},
		Report: ReportConfig{
			Format: "markdown",
		},
	}
}

// LoadFromFiles loads configuration in priority order: defaults, then each
// file (later files override earlier ones), then environment overrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TRIAGE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("TRIAGE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("TRIAGE_LOG_OUTPUT"); output != "" {
		config.Logging.Output = splitAndTrim(output)
	}

	if badgerPath := os.Getenv("TRIAGE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if ttl := os.Getenv("TRIAGE_CACHE_TTL"); ttl != "" {
		config.Cache.TTL = ttl
	}
	if enabled := os.Getenv("TRIAGE_CACHE_ENABLED"); enabled != "" {
		if v, err := strconv.ParseBool(enabled); err == nil {
			config.Cache.Enabled = v
		}
	}

	if strategy := os.Getenv("TRIAGE_FALLBACK_STRATEGY"); strategy != "" {
		config.Providers.FallbackStrategy = strategy
	}
	if rpm := os.Getenv("TRIAGE_REQUESTS_PER_MINUTE"); rpm != "" {
		if v, err := strconv.Atoi(rpm); err == nil {
			config.Providers.RequestsPerMinute = v
		}
	}

	if patterns := os.Getenv("TRIAGE_REDACTION_CUSTOM_PATTERNS"); patterns != "" {
		config.Redaction.CustomPatterns = splitAndTrim(patterns)
	}
	if paths := os.Getenv("TRIAGE_REDACT_FILE_PATHS"); paths != "" {
		if v, err := strconv.ParseBool(paths); err == nil {
			config.Redaction.RedactFilePaths = v
		}
	}
	if urls := os.Getenv("TRIAGE_REDACT_URLS"); urls != "" {
		if v, err := strconv.ParseBool(urls); err == nil {
			config.Redaction.RedactURLs = v
		}
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
