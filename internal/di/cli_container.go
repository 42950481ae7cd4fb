package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/adapters/filter"
	"github.com/mikey/llm-doc-detector/internal/config"
	"github.com/mikey/llm-doc-detector/internal/logging"
)

// CLIOptions contains the command line settings for the CLI application.
// Empty values leave the configuration untouched.
type CLIOptions struct {
	ConfigFile string
	Provider   string
	Model      string
	Policies   []string
	NoCache    bool
	Verbose    bool
	JSONLog    bool
	JSONOutput bool
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(opts *CLIOptions) (*dig.Container, error) {
	container := dig.New()

	// Register options
	if err := container.Provide(func() *CLIOptions { return opts }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(opts *CLIOptions) (*zap.Logger, error) {
		return logging.InitConsoleLogger(opts.Verbose, opts.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(opts *CLIOptions, logger *zap.Logger) (*config.Config, error) {
		cfg, err := loadCLIConfig(opts)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// Register CLI filter
	if err := container.Provide(func(opts *CLIOptions, detector *filter.Detector, logger *zap.Logger) *filter.CliFilter {
		return filter.NewCliFilter(detector, logger, opts.Verbose, opts.JSONOutput)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// loadCLIConfig reads the configuration file, if any, and applies the flags on top
func loadCLIConfig(opts *CLIOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigFile != "" {
		cfg, err = config.NewFromFile(opts.ConfigFile)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, err
	}

	cfg.Set("server.filter_type", "cli")
	if opts.Provider != "" {
		cfg.Set("llm.provider", opts.Provider)
	}
	if opts.Model != "" {
		switch cfg.GetLLM().Provider {
		case "bedrock":
			cfg.Set("bedrock.model_id", opts.Model)
		case "gemini":
			cfg.Set("gemini.model_name", opts.Model)
		default:
			cfg.Set("openai.model_name", opts.Model)
		}
	}
	if len(opts.Policies) > 0 {
		cfg.Set("detection.policies", opts.Policies)
	}
	if opts.NoCache {
		cfg.Set("cache.enabled", false)
	}

	return cfg, nil
}
