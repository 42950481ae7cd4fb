package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/adapters/bedrock"
	"github.com/mikey/llm-doc-detector/internal/adapters/gemini"
	"github.com/mikey/llm-doc-detector/internal/adapters/openai"
	"github.com/mikey/llm-doc-detector/internal/config"
	"github.com/mikey/llm-doc-detector/internal/core"
)

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	ctx := context.Background()
	provider := f.cfg.GetLLM().Provider

	switch provider {
	case "bedrock":
		cfg, err := f.cfg.GetBedrock()
		if err != nil {
			return nil, err
		}
		return bedrock.NewBedrockClient(ctx, cfg, f.logger)
	case "gemini":
		cfg, err := f.cfg.GetGemini()
		if err != nil {
			return nil, err
		}
		return gemini.NewGeminiClient(ctx, cfg, f.logger)
	case "openai":
		cfg, err := f.cfg.GetOpenAI()
		if err != nil {
			return nil, err
		}
		return openai.NewOpenAIClient(cfg, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
