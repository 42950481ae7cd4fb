package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey/llm-doc-detector/internal/core"
)

// Detector parses a raw message and runs every configured policy on it
type Detector struct {
	service      *core.DetectionService
	policies     []*core.Policy
	maxPartBytes int64
	logger       *zap.Logger
}

// NewDetector creates a new Detector
func NewDetector(service *core.DetectionService, policies []*core.Policy, maxPartBytes int64, logger *zap.Logger) (*Detector, error) {
	if service == nil {
		return nil, errors.New("detection service is required")
	}
	if len(policies) == 0 {
		return nil, errors.New("at least one policy is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		service:      service,
		policies:     policies,
		maxPartBytes: maxPartBytes,
		logger:       logger,
	}, nil
}

// Policies returns the configured policies in evaluation order
func (d *Detector) Policies() []*core.Policy {
	return d.policies
}

// ProcessMessage implements ports.EmailFilter for callers that hold raw bytes
func (d *Detector) ProcessMessage(ctx context.Context, envelopeFrom string, raw []byte) ([]*core.ProcessingSummary, error) {
	msg, err := ParseMessage(bytes.NewReader(raw), envelopeFrom, d.maxPartBytes)
	if err != nil {
		return nil, err
	}
	return d.Detect(ctx, msg)
}

// Detect runs the policies concurrently. Summaries are returned in policy order.
func (d *Detector) Detect(ctx context.Context, msg *ParsedMessage) ([]*core.ProcessingSummary, error) {
	summaries := make([]*core.ProcessingSummary, len(d.policies))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range d.policies {
		g.Go(func() error {
			summary, err := d.service.Run(gctx, msg.Email, msg.Attachments, msg.Loader, p)
			if err != nil {
				return fmt.Errorf("policy %s: %w", p.Name, err)
			}
			summaries[i] = summary
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.logger.Debug("Message evaluated",
		zap.String("sender", msg.Email.SenderAddress),
		zap.Int("attachments", len(msg.Attachments)),
		zap.Int("policies", len(d.policies)))

	return summaries, nil
}
