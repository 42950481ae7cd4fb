package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/config"
	"github.com/mikey/llm-doc-detector/internal/core"
	"github.com/mikey/llm-doc-detector/internal/logging"
)

const anthropicVersion = "bedrock-2023-05-31"

// ErrEmptyResponse is returned when the model body carries no text
var ErrEmptyResponse = errors.New("empty response from Bedrock")

type modelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient is an implementation of the LLMClient interface using Amazon Bedrock
type BedrockClient struct {
	client    modelInvoker
	modelID   string
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

// NewBedrockClient creates a new Bedrock client using the default AWS credential chain
func NewBedrockClient(ctx context.Context, cfg config.BedrockConfig, logger *zap.Logger) (*BedrockClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return newClient(bedrockruntime.NewFromConfig(awsCfg), cfg, logger), nil
}

func newClient(client modelInvoker, cfg config.BedrockConfig, logger *zap.Logger) *BedrockClient {
	return &BedrockClient{
		client:    client,
		modelID:   cfg.ModelID,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		logger:    logging.WithCommonFields(logger, "bedrock", cfg.ModelID),
	}
}

// Model returns the configured model id
func (c *BedrockClient) Model() string {
	return c.modelID
}

// Complete invokes the model with a family-specific request body
func (c *BedrockClient) Complete(ctx context.Context, prompt string, settings core.CompletionSettings) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := c.requestBody(prompt, settings)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	start := time.Now()
	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	text, err := c.responseText(resp.Body)
	if err != nil {
		return "", err
	}

	c.logger.Debug("Bedrock completion finished",
		zap.Int("response_bytes", len(resp.Body)),
		zap.Duration("latency", time.Since(start)))

	return text, nil
}

func (c *BedrockClient) tokens(settings core.CompletionSettings) int {
	if settings.MaxTokens <= 0 || (c.maxTokens > 0 && c.maxTokens < settings.MaxTokens) {
		return c.maxTokens
	}
	return settings.MaxTokens
}

func (c *BedrockClient) requestBody(prompt string, settings core.CompletionSettings) ([]byte, error) {
	maxTokens := c.tokens(settings)
	switch {
	case c.isAnthropicModel():
		return json.Marshal(map[string]any{
			"anthropic_version": anthropicVersion,
			"max_tokens":        maxTokens,
			"temperature":       settings.Temperature,
			"messages": []map[string]any{
				{"role": "user", "content": prompt},
			},
		})
	case c.isAmazonTitanModel():
		return json.Marshal(map[string]any{
			"inputText": prompt,
			"textGenerationConfig": map[string]any{
				"maxTokenCount": maxTokens,
				"temperature":   settings.Temperature,
			},
		})
	default:
		return json.Marshal(map[string]any{
			"prompt":      prompt,
			"max_tokens":  maxTokens,
			"temperature": settings.Temperature,
		})
	}
}

func (c *BedrockClient) responseText(body []byte) (string, error) {
	var text string
	switch {
	case c.isAnthropicModel():
		var resp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		var sb strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		text = sb.String()
	case c.isAmazonTitanModel():
		var resp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(resp.Results) > 0 {
			text = resp.Results[0].OutputText
		}
	default:
		var resp struct {
			Output     string `json:"output"`
			Text       string `json:"text"`
			Generation string `json:"generation"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		switch {
		case resp.Output != "":
			text = resp.Output
		case resp.Text != "":
			text = resp.Text
		default:
			text = resp.Generation
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.Contains(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.Contains(c.modelID, "amazon.titan")
}
