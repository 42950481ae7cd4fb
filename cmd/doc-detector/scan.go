package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/emersion/go-mbox"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/adapters/filter"
)

var scanLimit int

var scanCmd = &cobra.Command{
	Use:   "scan <file.mbox>",
	Short: "Classify every message of an mbox file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(func(f *filter.CliFilter, logger *zap.Logger) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open mbox: %w", err)
			}
			defer file.Close()

			ctx := commandContext(cmd)
			reader := mbox.NewReader(file)
			detected := make(map[string]int)
			total, failed := 0, 0

			for scanLimit <= 0 || total < scanLimit {
				if err := ctx.Err(); err != nil {
					return err
				}

				msgReader, err := reader.NextMessage()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return fmt.Errorf("read mbox message %d: %w", total+1, err)
				}
				raw, err := io.ReadAll(msgReader)
				if err != nil {
					return fmt.Errorf("read mbox message %d: %w", total+1, err)
				}
				total++

				summaries, err := f.ProcessMessage(ctx, "", raw)
				if err != nil {
					failed++
					logger.Warn("Skipping message", zap.Int("index", total), zap.Error(err))
					continue
				}
				for _, s := range summaries {
					if s.Detected {
						detected[s.Policy]++
					}
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n=== Scan Summary ===\nMessages: %d\nFailed: %d\n", total, failed)
			for _, policy := range slices.Sorted(maps.Keys(detected)) {
				fmt.Fprintf(cmd.OutOrStdout(), "Detected %s: %d\n", policy, detected[policy])
			}
			return nil
		})
	},
}

func init() {
	scanCmd.Flags().IntVar(&scanLimit, "limit", 0, "stop after this many messages (0 for all)")
	rootCmd.AddCommand(scanCmd)
}
