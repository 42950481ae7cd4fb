package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/config"
	"github.com/mikey/llm-doc-detector/internal/core"
	"github.com/mikey/llm-doc-detector/internal/logging"
)

const systemPrompt = "You classify email attachments. Respond only with a single JSON object."

// ErrEmptyResponse is returned when the API answers without any choices
var ErrEmptyResponse = errors.New("empty response from OpenAI")

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient is an implementation of the LLMClient interface using OpenAI
type OpenAIClient struct {
	client    chatCompleter
	modelName string
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(cfg config.OpenAIConfig, logger *zap.Logger) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newClient(openai.NewClientWithConfig(clientCfg), cfg, logger)
}

func newClient(client chatCompleter, cfg config.OpenAIConfig, logger *zap.Logger) *OpenAIClient {
	return &OpenAIClient{
		client:    client,
		modelName: cfg.ModelName,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		logger:    logging.WithCommonFields(logger, "openai", cfg.ModelName),
	}
}

// Model returns the configured model name
func (c *OpenAIClient) Model() string {
	return c.modelName
}

// Complete sends prompt as a single chat turn and returns the model text
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, settings core.CompletionSettings) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	maxTokens := settings.MaxTokens
	if maxTokens <= 0 || (c.maxTokens > 0 && c.maxTokens < maxTokens) {
		maxTokens = c.maxTokens
	}

	// The API drops a zero temperature as unset.
	temperature := settings.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("OpenAI completion finished",
		zap.String("response_id", resp.ID),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("latency", time.Since(start)))

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
