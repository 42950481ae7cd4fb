package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/adapters/extract"
	"github.com/mikey/llm-doc-detector/internal/adapters/filter"
	"github.com/mikey/llm-doc-detector/internal/config"
	"github.com/mikey/llm-doc-detector/internal/core"
	"github.com/mikey/llm-doc-detector/internal/factory"
	"github.com/mikey/llm-doc-detector/internal/logging"
	"github.com/mikey/llm-doc-detector/internal/ports"
	"github.com/mikey/llm-doc-detector/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// providePipeline registers everything between configuration and the
// detector. The container must already provide *config.Config and *zap.Logger.
func providePipeline(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewDetectionFactory); err != nil {
		return err
	}

	// Register text processing
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.TextProcessorFactory) *extract.Extractor {
		return f.CreateExtractor()
	}); err != nil {
		return err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return err
	}

	// Register cache repository, nil when disabled
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return err
	}

	// Register policies and detection service
	if err := container.Provide(func(f *factory.DetectionFactory) ([]*core.Policy, error) {
		return f.CreatePolicies()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.DetectionFactory) (*core.DetectionService, error) {
		return f.CreateDetectionService()
	}); err != nil {
		return err
	}

	// Register detector
	return container.Provide(func(
		cfg *config.Config,
		service *core.DetectionService,
		policies []*core.Policy,
		logger *zap.Logger,
	) (*filter.Detector, error) {
		return filter.NewDetector(service, policies, cfg.GetServer().MaxMessageBytes, logger)
	})
}
