package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/core"
)

// CliFilter runs detection on messages given on the command line and prints the results
type CliFilter struct {
	detector *Detector
	logger   *zap.Logger
	out      io.Writer
	verbose  bool
	jsonOut  bool
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(detector *Detector, logger *zap.Logger, verbose, jsonOut bool) *CliFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CliFilter{
		detector: detector,
		logger:   logger,
		out:      os.Stdout,
		verbose:  verbose,
		jsonOut:  jsonOut,
	}
}

// SetOutput redirects the printed report
func (f *CliFilter) SetOutput(w io.Writer) {
	f.out = w
}

// ProcessMessage processes a raw message and prints the results
func (f *CliFilter) ProcessMessage(ctx context.Context, envelopeFrom string, raw []byte) ([]*core.ProcessingSummary, error) {
	msg, err := ParseMessage(bytes.NewReader(raw), envelopeFrom, f.detector.maxPartBytes)
	if err != nil {
		f.logger.Error("Failed to parse email", zap.Error(err))
		return nil, err
	}
	return f.Process(ctx, msg)
}

// Process runs detection on an already parsed message and prints the results
func (f *CliFilter) Process(ctx context.Context, msg *ParsedMessage) ([]*core.ProcessingSummary, error) {
	f.logger.Debug("Processing email", zap.String("sender", msg.Email.SenderAddress))

	start := time.Now()
	summaries, err := f.detector.Detect(ctx, msg)
	if err != nil {
		f.logger.Error("Failed to analyze email", zap.Error(err))
		return nil, err
	}

	if f.jsonOut {
		return summaries, f.printJSON(msg, summaries)
	}
	f.printText(msg, summaries, time.Since(start))
	return summaries, nil
}

func (f *CliFilter) printText(msg *ParsedMessage, summaries []*core.ProcessingSummary, took time.Duration) {
	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", msg.Email.SenderAddress)
	fmt.Fprintf(f.out, "Subject: %s\n", msg.Email.Subject)
	fmt.Fprintf(f.out, "Attachments: %d\n", msg.Email.AttachmentCount)

	for _, s := range summaries {
		fmt.Fprintf(f.out, "\n=== Policy: %s ===\n", s.Policy)
		fmt.Fprintf(f.out, "Detected: %t\n", s.Detected)
		if !s.ShouldProcess {
			fmt.Fprintf(f.out, "Not processed: %s\n", s.FilterReason)
			continue
		}
		if s.BestResult != nil {
			fmt.Fprintf(f.out, "Best match: %s (%.2f)\n", s.BestResult.Attachment.Filename, s.BestResult.FinalConfidence)
		}

		tw := tabwriter.NewWriter(f.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ATTACHMENT\tSTATE\tSTAGE2\tFINAL\tMATCH")
		for _, r := range s.Results {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%t\n", r.Attachment.Filename, r.State, r.Stage2.Total, r.FinalConfidence, r.IsMatch)
		}
		tw.Flush()

		if f.verbose {
			for _, r := range s.Results {
				fmt.Fprintf(f.out, "  %s: %s\n", r.Attachment.Filename, r.Reason)
				if r.AIVerdict != nil {
					fmt.Fprintf(f.out, "    ai: match=%t confidence=%.2f reason=%s\n",
						r.AIVerdict.IsMatch, r.AIVerdict.Confidence, r.AIVerdict.Reason)
				}
			}
		}
	}

	fmt.Fprintf(f.out, "\nProcessing time: %v\n", took)
}

type jsonResult struct {
	Filename        string          `json:"filename"`
	MimeType        string          `json:"mime_type"`
	SizeBytes       int64           `json:"size_bytes"`
	State           core.State      `json:"state"`
	Stage2          int             `json:"stage2_score"`
	FinalConfidence float64         `json:"final_confidence"`
	IsMatch         bool            `json:"is_match"`
	Reason          string          `json:"reason"`
	AIVerdict       *core.AIVerdict `json:"ai_verdict,omitempty"`
}

type jsonSummary struct {
	ID               string       `json:"id"`
	Policy           string       `json:"policy"`
	Sender           string       `json:"sender"`
	Subject          string       `json:"subject"`
	ShouldProcess    bool         `json:"should_process"`
	FilterReason     string       `json:"filter_reason,omitempty"`
	Detected         bool         `json:"detected"`
	ProcessingTimeMs int64        `json:"processing_time_ms"`
	Results          []jsonResult `json:"results"`
}

func (f *CliFilter) printJSON(msg *ParsedMessage, summaries []*core.ProcessingSummary) error {
	out := make([]jsonSummary, 0, len(summaries))
	for _, s := range summaries {
		js := jsonSummary{
			ID:               s.ID,
			Policy:           s.Policy,
			Sender:           msg.Email.SenderAddress,
			Subject:          msg.Email.Subject,
			ShouldProcess:    s.ShouldProcess,
			FilterReason:     s.FilterReason,
			Detected:         s.Detected,
			ProcessingTimeMs: s.ProcessingTimeMs(),
			Results:          make([]jsonResult, 0, len(s.Results)),
		}
		for _, r := range s.Results {
			js.Results = append(js.Results, jsonResult{
				Filename:        r.Attachment.Filename,
				MimeType:        r.Attachment.MimeType,
				SizeBytes:       r.Attachment.SizeBytes,
				State:           r.State,
				Stage2:          r.Stage2.Total,
				FinalConfidence: r.FinalConfidence,
				IsMatch:         r.IsMatch,
				Reason:          r.Reason,
				AIVerdict:       r.AIVerdict,
			})
		}
		out = append(out, js)
	}

	enc := json.NewEncoder(f.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
