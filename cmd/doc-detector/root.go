package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/core"
	"github.com/mikey/llm-doc-detector/internal/di"
)

const app = "doc-detector"

var (
	opts di.CLIOptions

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "doc-detector classifies email attachments as résumés, job descriptions and other document types",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default searches /etc/llm-doc-detector, ~/.llm-doc-detector, ./configs and .)")
	flags.StringVarP(&opts.Provider, "provider", "p", "", "LLM provider (openai, gemini, bedrock)")
	flags.StringVarP(&opts.Model, "model", "m", "", "model name for the selected provider")
	flags.StringSliceVar(&opts.Policies, "policy", nil, "policy to run, may be repeated (default from config)")
	flags.BoolVar(&opts.NoCache, "no-cache", false, "disable the verdict cache")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	flags.BoolVar(&opts.JSONLog, "json-log", false, "json format for logging")
	flags.BoolVar(&opts.JSONOutput, "json", false, "print results as JSON")
}

// invoke builds the CLI container and runs fn with its dependencies
func invoke(fn any) error {
	container, err := di.BuildCLIContainer(&opts)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}
	defer func() {
		_ = container.Invoke(closeResources)
	}()
	return dig.RootCause(container.Invoke(fn))
}

func closeResources(logger *zap.Logger, cache core.CacheRepository, llm core.LLMClient) {
	if stopper, ok := cache.(interface{ Stop() }); ok {
		stopper.Stop()
	}
	if closer, ok := llm.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("Failed to close LLM client", zap.Error(err))
		}
	}
	_ = logger.Sync()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
