package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadInline(t *testing.T) {
	got, err := Load(Source{Name: "openai api key", Value: "  sk-test \n"})
	require.NoError(t, err)
	assert.Equal(t, "sk-test", got)
}

func TestLoadFilePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	got, err := Load(Source{Name: "key", Value: "inline", File: path})
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(Source{Name: "gemini api key"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini api key is not configured")

	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o600))
	_, err = Load(Source{Name: "key", File: empty})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")

	_, err = Load(Source{File: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading secret")
}

func TestOptional(t *testing.T) {
	got, err := Optional(Source{Name: "redis password"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Optional(Source{Name: "redis password", Value: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "pw", got)
}
