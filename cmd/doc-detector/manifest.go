package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/adapters/filter"
	"github.com/mikey/llm-doc-detector/internal/adapters/loader"
	"github.com/mikey/llm-doc-detector/internal/config"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest <manifest.json|->",
	Short: "Classify attachments stored in S3 and described by a JSON manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(func(f *filter.CliFilter, cfg *config.Config, logger *zap.Logger) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open manifest: %w", err)
				}
				defer file.Close()
				r = file
			}

			m, err := filter.ReadManifest(r)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			s3Loader, err := loader.NewS3Loader(ctx, cfg.GetS3(), cfg.GetServer().MaxMessageBytes, logger)
			if err != nil {
				return err
			}

			_, err = f.Process(ctx, m.Message(s3Loader))
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(manifestCmd)
}
