// Package loader provides core.ContentLoader implementations.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mikey/llm-doc-detector/internal/core"
)

// ErrUnknownAttachment is returned when a loader has no content for an id
var ErrUnknownAttachment = errors.New("unknown attachment")

// MessageLoader serves attachment content already held in memory, such as
// the decoded parts of a parsed message
type MessageLoader struct {
	mu    sync.RWMutex
	parts map[string][]byte
}

// NewMessageLoader creates a loader over parts keyed by attachment id
func NewMessageLoader(parts map[string][]byte) *MessageLoader {
	if parts == nil {
		parts = make(map[string][]byte)
	}
	return &MessageLoader{parts: parts}
}

// Add registers the content of one attachment
func (l *MessageLoader) Add(id string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.parts[id] = data
}

// Load returns the bytes stored for attachment.ID
func (l *MessageLoader) Load(ctx context.Context, attachment core.AttachmentMetadata) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	data, ok := l.parts[attachment.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAttachment, attachment.ID)
	}
	return data, nil
}
