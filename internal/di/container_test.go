package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/llm-doc-detector/internal/adapters/filter"
	"github.com/mikey/llm-doc-detector/internal/core"
)

func TestBuildCLIContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: gemini
openai:
  api_key: sk-test
logging:
  level: error
`), 0o600))

	container, err := BuildCLIContainer(&CLIOptions{
		ConfigFile: path,
		Provider:   "openai",
		Model:      "gpt-4o",
		Policies:   []string{"resume"},
		NoCache:    true,
	})
	require.NoError(t, err)

	err = container.Invoke(func(f *filter.CliFilter, llm core.LLMClient, cache core.CacheRepository, policies []*core.Policy) {
		assert.NotNil(t, f)
		assert.Equal(t, "gpt-4o", llm.Model())
		assert.Nil(t, cache)
		require.Len(t, policies, 1)
		assert.Equal(t, "resume", policies[0].Name)
	})
	require.NoError(t, err)
}

func TestBuildCLIContainerMissingConfigFile(t *testing.T) {
	container, err := BuildCLIContainer(&CLIOptions{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, err)

	err = container.Invoke(func(f *filter.CliFilter) {})
	assert.Error(t, err)
}
