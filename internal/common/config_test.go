package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, "info", config.Logging.Level)
	assert.True(t, config.Cache.Enabled)
	assert.Equal(t, time.Hour, config.Cache.TTLDuration())
	assert.Equal(t, "priority", config.Providers.FallbackStrategy)
	assert.Equal(t, 10, config.Providers.RequestsPerMinute)
	assert.Equal(t, "markdown", config.Report.Format)
	assert.Equal(t, 50.0, config.Redaction.MinSecurityScore)
}

func TestLoadFromFiles(t *testing.T) {
	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "triage.toml")
		content := `environment = "development"

[cache]
enabled = true
ttl = "30m"

[providers]
fallback_strategy = "fail_fast"

[[providers.backends]]
name = "claude"
model = "claude-sonnet-4-20250514"
secret = "env:ANTHROPIC_API_KEY"
timeout = "90s"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		config, err := LoadFromFiles(path)
		require.NoError(t, err)

		assert.Equal(t, "development", config.Environment)
		assert.Equal(t, 30*time.Minute, config.Cache.TTLDuration())
		assert.Equal(t, "fail_fast", config.Providers.FallbackStrategy)
		require.Len(t, config.Providers.Backends, 1)
		assert.Equal(t, "claude", config.Providers.Backends[0].Name)
		assert.Equal(t, 90*time.Second, config.Providers.Backends[0].TimeoutDuration())
	})

	t.Run("later files override earlier ones", func(t *testing.T) {
		dir := t.TempDir()
		first := filepath.Join(dir, "base.toml")
		second := filepath.Join(dir, "override.toml")
		require.NoError(t, os.WriteFile(first, []byte("[logging]\nlevel = \"debug\"\n"), 0644))
		require.NoError(t, os.WriteFile(second, []byte("[logging]\nlevel = \"warn\"\n"), 0644))

		config, err := LoadFromFiles(first, second)
		require.NoError(t, err)
		assert.Equal(t, "warn", config.Logging.Level)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := LoadFromFiles(filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})

	t.Run("invalid provider name fails validation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "triage.toml")
		content := `[[providers.backends]]
name = "skynet"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		_, err := LoadFromFiles(path)
		assert.Error(t, err)
	})

	t.Run("invalid fallback strategy fails validation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "triage.toml")
		require.NoError(t, os.WriteFile(path, []byte("[providers]\nfallback_strategy = \"roulette\"\n"), 0644))

		_, err := LoadFromFiles(path)
		assert.Error(t, err)
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRIAGE_ENV", "development")
	t.Setenv("TRIAGE_LOG_LEVEL", "debug")
	t.Setenv("TRIAGE_CACHE_TTL", "15m")
	t.Setenv("TRIAGE_CACHE_ENABLED", "false")
	t.Setenv("TRIAGE_FALLBACK_STRATEGY", "fail_fast")
	t.Setenv("TRIAGE_REQUESTS_PER_MINUTE", "3")
	t.Setenv("TRIAGE_REDACTION_CUSTOM_PATTERNS", `INTERNAL-\d+, ACME-\d+`)

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, 15*time.Minute, config.Cache.TTLDuration())
	assert.False(t, config.Cache.Enabled)
	assert.Equal(t, "fail_fast", config.Providers.FallbackStrategy)
	assert.Equal(t, 3, config.Providers.RequestsPerMinute)
	assert.Equal(t, []string{`INTERNAL-\d+`, `ACME-\d+`}, config.Redaction.CustomPatterns)
}

func TestDurationFallbacks(t *testing.T) {
	assert.Equal(t, time.Hour, CacheConfig{TTL: "not-a-duration"}.TTLDuration())
	assert.Equal(t, time.Hour, CacheConfig{TTL: "-5m"}.TTLDuration())
	assert.Equal(t, 60*time.Second, ProviderConfig{}.TimeoutDuration())
	assert.Equal(t, 2*time.Minute, ProviderConfig{Timeout: "2m"}.TimeoutDuration())
}
