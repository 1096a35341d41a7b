// Package secrets resolves secret descriptors to values. Descriptors name
// their source: "env:NAME" reads the environment, "kv:key" the key/value
// store, "file:/path" a file on disk. A bare name is treated as an
// environment variable.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/triage/internal/interfaces"
)

// Service implements the SecretResolver interface.
type Service struct {
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewService creates a resolver. The key/value store may be nil, in which
// case kv: descriptors fail with ErrSecretNotFound.
func NewService(kv interfaces.KeyValueStorage, logger arbor.ILogger) *Service {
	return &Service{
		kv:     kv,
		logger: logger,
	}
}

// GetSecret resolves a descriptor to its value. The resolved value is
// never logged.
func (s *Service) GetSecret(ctx context.Context, source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", fmt.Errorf("%w: empty secret descriptor", interfaces.ErrSecretNotFound)
	}

	scheme, ref := "env", source
	if idx := strings.Index(source, ":"); idx > 0 {
		switch source[:idx] {
		case "env", "kv", "file":
			scheme, ref = source[:idx], source[idx+1:]
		}
	}

	switch scheme {
	case "env":
		return s.fromEnv(ref)
	case "kv":
		return s.fromKV(ctx, ref)
	default:
		return s.fromFile(ref)
	}
}

func (s *Service) fromEnv(name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", interfaces.ErrSecretNotFound, name)
	}
	return value, nil
}

func (s *Service) fromKV(ctx context.Context, key string) (string, error) {
	if s.kv == nil {
		return "", fmt.Errorf("%w: no key/value store available for %s", interfaces.ErrSecretNotFound, key)
	}
	value, err := s.kv.Get(ctx, key)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: key %s not found in store", interfaces.ErrSecretNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read secret from store: %w", err)
	}
	if value == "" {
		return "", fmt.Errorf("%w: key %s is empty", interfaces.ErrSecretNotFound, key)
	}
	return value, nil
}

func (s *Service) fromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read secret file %s: %v", interfaces.ErrSecretNotFound, path, err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%w: secret file %s is empty", interfaces.ErrSecretNotFound, path)
	}
	return value, nil
}
