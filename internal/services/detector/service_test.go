package detector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/triage/internal/common"
	"github.com/ternarybob/triage/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(&common.DetectorConfig{}, arbor.NewLogger())
}

func TestDetect_CompilationError(t *testing.T) {
	service := newTestService(t)

	log := "gcc -o app main.c\nmain.c: In function 'main':\nerror: expected ';' before 'return'\nmake: *** [app] Error 1"
	result := service.Detect(log, 1)

	assert.True(t, result.ErrorDetected)
	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, models.CategoryCompilation, result.ErrorCategory)
	assert.Equal(t, 4, result.LogLinesAnalyzed)
	require.NotEmpty(t, result.Patterns)

	found := false
	for _, p := range result.Patterns {
		if p.SuggestedCategory == models.CategoryCompilation {
			found = true
			assert.Equal(t, "expected ';' before 'return'", p.Message)
			assert.Equal(t, 3, p.LineNumber)
		}
	}
	assert.True(t, found, "expected a compilation pattern match")
}

func TestDetect_NoErrors(t *testing.T) {
	service := newTestService(t)

	result := service.Detect("compiling\nlinking\ndone", 0)

	assert.False(t, result.ErrorDetected)
	assert.Empty(t, result.Patterns)
	assert.Equal(t, models.CategoryUnknown, result.ErrorCategory)
	assert.Equal(t, "No errors detected, command executed successfully.", result.Summary)
}

func TestDetect_NonZeroExitWithoutPatterns(t *testing.T) {
	service := newTestService(t)

	result := service.Detect("some benign output", 137)

	assert.True(t, result.ErrorDetected)
	assert.Empty(t, result.Patterns)
	assert.Equal(t, models.CategoryUnknown, result.ErrorCategory)
	assert.Equal(t, "Command failed with exit code 137, but no specific error patterns were detected.", result.Summary)
}

func TestDetect_Categories(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		category string
	}{
		{"test failure", "FAIL: 3 tests failed", models.CategoryTestFailure},
		{"dependency", "could not resolve dependency: left-pad@1.0.0", models.CategoryDependency},
		{"network", "curl: (7) connection refused", models.CategoryNetwork},
		{"permission", "rm: cannot remove '/etc/hosts': Permission denied", models.CategoryPermission},
		{"memory", "fatal: Out of memory, malloc failed", models.CategoryMemory},
		{"configuration", "environment variable DATABASE_URL not set", models.CategoryConfiguration},
		{"deployment", "deploy failed: image pull backoff", models.CategoryDeployment},
	}

	service := newTestService(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := service.Detect(tt.line, 1)
			require.NotEmpty(t, result.Patterns, "expected a match for %q", tt.line)
			assert.Equal(t, tt.category, result.ErrorCategory)
		})
	}
}

func TestDetect_ContextWindowBounds(t *testing.T) {
	service := newTestService(t)

	// Match on the first line; the window must clamp at the log start.
	result := service.Detect("error: boom\nline two\nline three", 1)
	require.NotEmpty(t, result.Patterns)

	window := result.Patterns[0].ContextLines
	require.Len(t, window, 3)
	assert.Equal(t, "error: boom", window[0])
}

func TestDetect_SummaryGroupsRepeatedPatterns(t *testing.T) {
	service := newTestService(t)

	result := service.Detect("error: first\nerror: second", 1)

	assert.Contains(t, result.Summary, "Detected 2 error pattern(s) in category 'compilation':")
	assert.Contains(t, result.Summary, "2x Compilation error (highest confidence: 90%)")
}

func TestLoadCustomPatterns(t *testing.T) {
	t.Run("valid file extends the detection table", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "patterns.yaml")
		content := `patterns:
  - category: deployment
    pattern: 'helm upgrade failed'
    confidence: 0.9
    description: Helm failure
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		service := NewService(&common.DetectorConfig{PatternsFile: path}, arbor.NewLogger())
		result := service.Detect("helm upgrade failed", 1)

		require.NotEmpty(t, result.Patterns)
		assert.Equal(t, models.CategoryDeployment, result.ErrorCategory)
	})

	t.Run("unknown category is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "patterns.yaml")
		content := `patterns:
  - category: nonsense
    pattern: 'x'
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		_, err := loadCustomPatterns(path)
		assert.Error(t, err)
	})

	t.Run("out-of-range confidence defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "patterns.yaml")
		content := `patterns:
  - category: network
    pattern: 'proxy unreachable'
    confidence: 7
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		defs, err := loadCustomPatterns(path)
		require.NoError(t, err)
		require.Len(t, defs, 1)
		assert.Equal(t, 0.5, defs[0].Confidence)
	})
}

func TestCompilePatterns_SkipsInvalidRegex(t *testing.T) {
	defs := []patternDef{
		{Category: models.CategoryNetwork, Pattern: `(`, Confidence: 0.9, Description: "broken"},
		{Category: models.CategoryNetwork, Pattern: `dns failure`, Confidence: 0.8, Description: "ok"},
	}

	compiled := compilePatterns(defs, arbor.NewLogger())
	require.Len(t, compiled, 1)
	assert.Equal(t, "ok", compiled[0].def.Description)
}

func TestPrimaryCategory_DeterministicTieBreak(t *testing.T) {
	scores := map[string]float64{
		models.CategoryNetwork: 0.9,
		models.CategoryTimeout: 0.9,
	}
	assert.Equal(t, models.CategoryNetwork, primaryCategory(scores))
	assert.Equal(t, models.CategoryUnknown, primaryCategory(nil))
}
