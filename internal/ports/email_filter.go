package ports

import (
	"context"

	"github.com/mikey/llm-doc-detector/internal/core"
)

// EmailFilter defines the interface for mail ingest front ends
type EmailFilter interface {
	// ProcessMessage runs every configured policy on a raw message
	ProcessMessage(ctx context.Context, envelopeFrom string, raw []byte) ([]*core.ProcessingSummary, error)

	// Start starts the email filter service
	Start() error

	// Stop stops the email filter service
	Stop() error
}
