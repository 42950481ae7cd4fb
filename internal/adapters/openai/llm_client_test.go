package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/config"
	"github.com/mikey/llm-doc-detector/internal/core"
)

type fakeCompleter struct {
	req  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func testConfig() config.OpenAIConfig {
	return config.OpenAIConfig{APIKey: "sk-test", ModelName: "gpt-4o-mini", MaxTokens: 512, Timeout: time.Second}
}

func TestComplete(t *testing.T) {
	fake := &fakeCompleter{resp: openai.ChatCompletionResponse{
		ID: "chatcmpl-1",
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "  {\"isMatch\": true}\n"}},
		},
	}}
	client := newClient(fake, testConfig(), zap.NewNop())

	got, err := client.Complete(context.Background(), "classify this", core.CompletionSettings{MaxTokens: 256})
	require.NoError(t, err)
	assert.Equal(t, `{"isMatch": true}`, got)

	assert.Equal(t, "gpt-4o-mini", fake.req.Model)
	assert.Equal(t, 256, fake.req.MaxTokens)
	assert.Greater(t, fake.req.Temperature, float32(0))
	assert.Less(t, fake.req.Temperature, float32(1e-6))
	require.Len(t, fake.req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleUser, fake.req.Messages[1].Role)
	assert.Equal(t, "classify this", fake.req.Messages[1].Content)
	require.NotNil(t, fake.req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, fake.req.ResponseFormat.Type)
	assert.Equal(t, "gpt-4o-mini", client.Model())
}

func TestCompleteCapsMaxTokens(t *testing.T) {
	fake := &fakeCompleter{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "{}"}}},
	}}
	cfg := testConfig()
	cfg.MaxTokens = 100
	client := newClient(fake, cfg, zap.NewNop())

	_, err := client.Complete(context.Background(), "p", core.CompletionSettings{MaxTokens: 256})
	require.NoError(t, err)
	assert.Equal(t, 100, fake.req.MaxTokens)
}

func TestCompleteErrors(t *testing.T) {
	client := newClient(&fakeCompleter{}, testConfig(), zap.NewNop())
	_, err := client.Complete(context.Background(), "p", core.CompletionSettings{})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	apiErr := errors.New("429 too many requests")
	client = newClient(&fakeCompleter{err: apiErr}, testConfig(), zap.NewNop())
	_, err = client.Complete(context.Background(), "p", core.CompletionSettings{})
	assert.ErrorIs(t, err, apiErr)
}
