package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/adapters/filter"
)

var classifyFrom string

var classifyCmd = &cobra.Command{
	Use:   "classify [file.eml ...]",
	Short: "Classify the attachments of one or more messages (stdin when no file is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(func(f *filter.CliFilter, logger *zap.Logger) error {
			if len(args) == 0 {
				logger.Debug("Reading email from stdin")
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				_, err = f.ProcessMessage(commandContext(cmd), classifyFrom, raw)
				return err
			}

			for _, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				logger.Debug("Reading email from file", zap.String("file", path))
				if _, err := f.ProcessMessage(commandContext(cmd), classifyFrom, raw); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			return nil
		})
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyFrom, "from", "", "envelope sender used when the message has no From header")
	rootCmd.AddCommand(classifyCmd)
}
