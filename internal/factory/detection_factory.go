package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/adapters/extract"
	"github.com/mikey/llm-doc-detector/internal/config"
	"github.com/mikey/llm-doc-detector/internal/core"
	"github.com/mikey/llm-doc-detector/internal/policy"
	"github.com/mikey/llm-doc-detector/internal/utils"
)

// DetectionFactory assembles the classification pipeline from configuration
type DetectionFactory struct {
	cfg       *config.Config
	logger    *zap.Logger
	llm       core.LLMClient
	cache     core.CacheRepository
	text      *utils.TextProcessor
	extractor *extract.Extractor
}

// NewDetectionFactory creates a new detection factory. cache may be nil.
func NewDetectionFactory(
	cfg *config.Config,
	logger *zap.Logger,
	llm core.LLMClient,
	cache core.CacheRepository,
	text *utils.TextProcessor,
	extractor *extract.Extractor,
) *DetectionFactory {
	return &DetectionFactory{
		cfg:       cfg,
		logger:    logger,
		llm:       llm,
		cache:     cache,
		text:      text,
		extractor: extractor,
	}
}

// CreatePolicies loads the configured policies with their overrides applied
func (f *DetectionFactory) CreatePolicies() ([]*core.Policy, error) {
	dc, err := f.cfg.GetDetection()
	if err != nil {
		return nil, err
	}
	policies, err := policy.LoadAll(dc.Policies, f.cfg.GetPolicyOverrides())
	if err != nil {
		return nil, err
	}
	for _, p := range policies {
		f.logger.Info("Loaded policy",
			zap.String("policy", p.Name),
			zap.Int("high_threshold", p.HighThreshold),
			zap.Int("low_threshold", p.LowThreshold),
			zap.Float64("ai_weight", p.AIWeight))
	}
	return policies, nil
}

// CreateDetectionService builds the classifier and the detection service
func (f *DetectionFactory) CreateDetectionService() (*core.DetectionService, error) {
	dc, err := f.cfg.GetDetection()
	if err != nil {
		return nil, err
	}

	classifier := core.NewClassifier(f.llm, f.text, f.logger,
		core.WithRetryDelay(dc.RetryDelay),
		core.WithMaxLogLength(dc.MaxLogLength))

	opts := []core.ServiceOption{
		core.WithMaxConcurrency(dc.MaxConcurrency),
		core.WithDeadline(dc.Deadline),
	}
	if f.cache != nil {
		cc, err := f.cfg.GetCache()
		if err != nil {
			return nil, err
		}
		opts = append(opts, core.WithCache(f.cache, cc.TTL))
	}

	return core.NewDetectionService(classifier, f.extractor, f.logger, opts...), nil
}
