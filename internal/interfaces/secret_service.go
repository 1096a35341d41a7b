package interfaces

import "context"

// SecretResolver resolves secret values from descriptor strings of the form
// "env:NAME", "kv:key" or "file:/path". A bare descriptor is treated as an
// environment variable name. Cloud secret-manager backends sit behind the
// same contract when configured.
type SecretResolver interface {
	// GetSecret returns the secret value for a source descriptor, or
	// ErrSecretNotFound (wrapped) when the source yields nothing.
	GetSecret(ctx context.Context, source string) (string, error)
}
