package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/llm-doc-detector/internal/config"
	"github.com/mikey/llm-doc-detector/internal/core"
	"github.com/mikey/llm-doc-detector/internal/logging"
)

// ErrEmptyResponse is returned when Gemini answers without text
var ErrEmptyResponse = errors.New("empty response from Gemini")

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiClient is an implementation of the LLMClient interface using Google Gemini
type GeminiClient struct {
	client    *genai.Client
	newModel  func(settings core.CompletionSettings) contentGenerator
	modelName string
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &GeminiClient{
		client:    client,
		modelName: cfg.ModelName,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		logger:    logging.WithCommonFields(logger, "gemini", cfg.ModelName),
	}
	c.newModel = c.generativeModel
	return c, nil
}

// generativeModel builds a per-call model handle; GenerativeModel settings
// are plain fields and must not be shared between concurrent calls.
func (c *GeminiClient) generativeModel(settings core.CompletionSettings) contentGenerator {
	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(settings.Temperature)
	model.SetMaxOutputTokens(int32(c.tokens(settings)))
	model.ResponseMIMEType = "application/json"
	return model
}

func (c *GeminiClient) tokens(settings core.CompletionSettings) int {
	if settings.MaxTokens <= 0 || (c.maxTokens > 0 && c.maxTokens < settings.MaxTokens) {
		return c.maxTokens
	}
	return settings.MaxTokens
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Model returns the configured model name
func (c *GeminiClient) Model() string {
	return c.modelName
}

// Complete sends prompt to Gemini and returns the concatenated text parts
func (c *GeminiClient) Complete(ctx context.Context, prompt string, settings core.CompletionSettings) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.newModel(settings).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}

	fields := []zap.Field{zap.Duration("latency", time.Since(start))}
	if resp.UsageMetadata != nil {
		fields = append(fields,
			zap.Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
			zap.Int32("completion_tokens", resp.UsageMetadata.CandidatesTokenCount))
	}
	c.logger.Debug("Gemini completion finished", fields...)

	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			return s
		}
	}
	return ""
}
