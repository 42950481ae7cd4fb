package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/adapters/extract"
	"github.com/mikey/llm-doc-detector/internal/utils"
)

// TextProcessorFactory creates the text handling components
type TextProcessorFactory struct {
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		logger: logger,
	}
}

// CreateTextProcessor creates a new TextProcessor
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}

// CreateExtractor creates the attachment text extractor
func (f *TextProcessorFactory) CreateExtractor() *extract.Extractor {
	return extract.NewExtractor(f.logger)
}
