// Package buildcontext assembles the structured context for a failed
// command from its log output, the CI environment and git metadata.
package buildcontext

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/triage/internal/common"
	"github.com/ternarybob/triage/internal/models"
)

// ciEnvPrefixes allowlists the environment variables worth carrying into
// the context. Everything else is noise or risk.
var ciEnvPrefixes = []string{
	"CI", "GITHUB_", "GITLAB_", "BUILDKITE", "JENKINS_",
	"DRONE_", "TRAVIS_", "CIRCLE_", "TEAMCITY_",
}

// sensitiveEnvKeywords excludes credential-bearing variables at the source
// rather than relying on downstream sanitization alone.
var sensitiveEnvKeywords = []string{
	"secret", "token", "password", "key", "auth", "credential", "private",
}

// Service builds contexts for failed commands.
type Service struct {
	config  common.ContextConfig
	version string
	logger  arbor.ILogger
}

// NewService creates a context builder.
func NewService(config common.ContextConfig, version string, logger arbor.ILogger) *Service {
	if config.LogLines <= 0 {
		config.LogLines = 500
	}
	return &Service{
		config:  config,
		version: version,
		logger:  logger,
	}
}

// Build assembles the context for one failed command. The detection result
// feeds the error_info section; the log excerpt keeps the last configured
// number of lines, where the failure almost always is.
func (s *Service) Build(command string, exitCode int, logContent string, detection models.ErrorDetectionResult) models.BuildContext {
	workingDir, _ := os.Getwd()

	context := models.BuildContext{
		models.KeyBuildInfo: map[string]any{
			"command":           command,
			"working_directory": workingDir,
			"timestamp":         time.Now().UTC().Format(time.RFC3339),
		},
		models.KeyErrorInfo: map[string]any{
			"exit_code":      exitCode,
			"error_category": detection.ErrorCategory,
			"summary":        detection.Summary,
			"pattern_count":  len(detection.Patterns),
		},
		models.KeyLogExcerpt: tailLines(logContent, s.config.LogLines),
		models.KeyTimingInfo: map[string]any{
			"captured_at": time.Now().UTC().Format(time.RFC3339),
		},
		models.KeyMetadata: map[string]any{
			"context_id":   uuid.NewString(),
			"tool_version": s.version,
		},
	}

	if s.config.IncludeEnvironment {
		context[models.KeyEnvironment] = s.collectEnvironment()
	}
	if s.config.IncludePipelineInfo {
		context[models.KeyPipelineInfo] = collectPipelineInfo()
	}
	if s.config.IncludeGitInfo {
		context[models.KeyGitInfo] = collectGitInfo()
	}
	if custom := s.parseCustomContext(); custom != nil {
		context[models.KeyCustomContext] = custom
	}

	return context
}

// tailLines returns the last max lines of content.
func tailLines(content string, max int) string {
	lines := strings.Split(content, "\n")
	if len(lines) <= max {
		return content
	}
	return strings.Join(lines[len(lines)-max:], "\n")
}

// collectEnvironment captures allowlisted CI variables, excluding any whose
// name suggests a credential.
func (s *Service) collectEnvironment() map[string]any {
	env := make(map[string]any)
	for _, entry := range os.Environ() {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || !hasCIPrefix(name) || isSensitiveEnvName(name) {
			continue
		}
		env[name] = value
	}
	return env
}

func hasCIPrefix(name string) bool {
	for _, prefix := range ciEnvPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func isSensitiveEnvName(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range sensitiveEnvKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// collectPipelineInfo reads pipeline coordinates from whichever CI system's
// variables are present. These feed the cache fingerprint, so a failure is
// scoped to its pipeline step.
func collectPipelineInfo() map[string]any {
	return map[string]any{
		"pipeline":     firstEnv("BUILDKITE_PIPELINE_SLUG", "GITHUB_WORKFLOW", "CI_PROJECT_PATH", "DRONE_REPO"),
		"step_key":     firstEnv("BUILDKITE_STEP_KEY", "GITHUB_JOB", "CI_JOB_NAME", "DRONE_STAGE_NAME"),
		"build_number": firstEnv("BUILDKITE_BUILD_NUMBER", "GITHUB_RUN_NUMBER", "CI_PIPELINE_IID", "DRONE_BUILD_NUMBER"),
	}
}

func collectGitInfo() map[string]any {
	return map[string]any{
		"branch": firstEnv("BUILDKITE_BRANCH", "GITHUB_REF_NAME", "CI_COMMIT_REF_NAME", "DRONE_BRANCH"),
		"commit": firstEnv("BUILDKITE_COMMIT", "GITHUB_SHA", "CI_COMMIT_SHA", "DRONE_COMMIT"),
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

// parseCustomContext decodes the operator-supplied JSON blob, dropping it
// with a warning when malformed.
func (s *Service) parseCustomContext() map[string]any {
	if s.config.CustomContext == "" {
		return nil
	}
	var custom map[string]any
	if err := json.Unmarshal([]byte(s.config.CustomContext), &custom); err != nil {
		s.logger.Warn().Err(err).Msg("Ignoring malformed custom context")
		return nil
	}
	return custom
}
