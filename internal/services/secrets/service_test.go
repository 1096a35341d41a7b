package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/triage/internal/interfaces"
)

// fakeKV is a map-backed KeyValueStorage.
type fakeKV struct {
	values map[string]string
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", interfaces.ErrKeyNotFound
	}
	return value, nil
}

func (f *fakeKV) Set(ctx context.Context, key, value, description string) error {
	f.values[key] = value
	return nil
}

func (f *fakeKV) Delete(ctx context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func TestGetSecret_Env(t *testing.T) {
	service := NewService(nil, arbor.NewLogger())
	ctx := context.Background()

	t.Setenv("TRIAGE_TEST_API_KEY", "sk-from-env")

	t.Run("explicit env descriptor", func(t *testing.T) {
		value, err := service.GetSecret(ctx, "env:TRIAGE_TEST_API_KEY")
		require.NoError(t, err)
		assert.Equal(t, "sk-from-env", value)
	})

	t.Run("bare name defaults to env", func(t *testing.T) {
		value, err := service.GetSecret(ctx, "TRIAGE_TEST_API_KEY")
		require.NoError(t, err)
		assert.Equal(t, "sk-from-env", value)
	})

	t.Run("unset variable", func(t *testing.T) {
		_, err := service.GetSecret(ctx, "env:TRIAGE_TEST_MISSING")
		assert.ErrorIs(t, err, interfaces.ErrSecretNotFound)
	})
}

func TestGetSecret_KV(t *testing.T) {
	kv := &fakeKV{values: map[string]string{"anthropic_api_key": "sk-from-kv"}}
	service := NewService(kv, arbor.NewLogger())
	ctx := context.Background()

	value, err := service.GetSecret(ctx, "kv:anthropic_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-kv", value)

	_, err = service.GetSecret(ctx, "kv:missing_key")
	assert.ErrorIs(t, err, interfaces.ErrSecretNotFound)
}

func TestGetSecret_KVWithoutStore(t *testing.T) {
	service := NewService(nil, arbor.NewLogger())

	_, err := service.GetSecret(context.Background(), "kv:anything")
	assert.ErrorIs(t, err, interfaces.ErrSecretNotFound)
}

func TestGetSecret_File(t *testing.T) {
	service := NewService(nil, arbor.NewLogger())
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("sk-from-file\n"), 0600))

	value, err := service.GetSecret(ctx, "file:"+path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", value)

	_, err = service.GetSecret(ctx, "file:"+filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, interfaces.ErrSecretNotFound)
}

func TestGetSecret_EmptyDescriptor(t *testing.T) {
	service := NewService(nil, arbor.NewLogger())

	_, err := service.GetSecret(context.Background(), "  ")
	assert.ErrorIs(t, err, interfaces.ErrSecretNotFound)
}
