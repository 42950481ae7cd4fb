package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/core"
)

type fakeGenerator struct {
	parts []genai.Part
	resp  *genai.GenerateContentResponse
	err   error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func newTestClient(gen *fakeGenerator, seen *core.CompletionSettings) *GeminiClient {
	return &GeminiClient{
		modelName: "gemini-1.5-flash",
		maxTokens: 512,
		logger:    zap.NewNop(),
		newModel: func(settings core.CompletionSettings) contentGenerator {
			if seen != nil {
				*seen = settings
			}
			return gen
		},
	}
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func TestComplete(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(genai.Text(`{"isMatch": `), genai.Text(`true}`))}
	var seen core.CompletionSettings
	client := newTestClient(gen, &seen)

	got, err := client.Complete(context.Background(), "prompt", core.CompletionSettings{MaxTokens: 256})
	require.NoError(t, err)
	assert.Equal(t, `{"isMatch": true}`, got)
	assert.Equal(t, []genai.Part{genai.Text("prompt")}, gen.parts)
	assert.Equal(t, 256, seen.MaxTokens)
	assert.Equal(t, "gemini-1.5-flash", client.Model())
}

func TestCompleteEmpty(t *testing.T) {
	for name, resp := range map[string]*genai.GenerateContentResponse{
		"nil":           nil,
		"no candidates": {},
		"nil content":   {Candidates: []*genai.Candidate{{}}},
		"blank text":    textResponse(genai.Text("  ")),
	} {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(&fakeGenerator{resp: resp}, nil)
			_, err := client.Complete(context.Background(), "p", core.CompletionSettings{})
			assert.ErrorIs(t, err, ErrEmptyResponse)
		})
	}
}

func TestCompleteError(t *testing.T) {
	apiErr := errors.New("quota exceeded")
	client := newTestClient(&fakeGenerator{err: apiErr}, nil)
	_, err := client.Complete(context.Background(), "p", core.CompletionSettings{})
	assert.ErrorIs(t, err, apiErr)
}

func TestTokens(t *testing.T) {
	client := &GeminiClient{maxTokens: 100}
	assert.Equal(t, 100, client.tokens(core.CompletionSettings{MaxTokens: 256}))
	assert.Equal(t, 64, client.tokens(core.CompletionSettings{MaxTokens: 64}))
	assert.Equal(t, 100, client.tokens(core.CompletionSettings{}))
}
