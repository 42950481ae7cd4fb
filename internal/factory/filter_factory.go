package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/adapters/filter"
	"github.com/mikey/llm-doc-detector/internal/config"
	"github.com/mikey/llm-doc-detector/internal/ports"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	detector *filter.Detector
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, detector *filter.Detector) *FilterFactory {
	return &FilterFactory{
		cfg:      cfg,
		logger:   logger,
		detector: detector,
	}
}

// CreateEmailFilter creates an email filter based on the configuration
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	sc := f.cfg.GetServer()

	switch sc.FilterType {
	case "postfix":
		return filter.NewPostfixFilter(f.detector, f.logger, filter.PostfixOptions{
			ListenAddress:   sc.ListenAddress,
			HeaderPrefix:    sc.HeaderPrefix,
			MaxMessageBytes: sc.MaxMessageBytes,
			ReinjectEnabled: sc.Postfix.Enabled,
			ReinjectAddress: sc.Postfix.Address,
			ReinjectPort:    sc.Postfix.Port,
		}), nil
	case "cli":
		return filter.NewCliFilter(
			f.detector,
			f.logger,
			f.cfg.GetBool("cli.verbose"),
			f.cfg.GetBool("cli.json"),
		), nil
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", sc.FilterType)
	}
}
