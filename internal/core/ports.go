package core

import (
	"context"
)

// CompletionSettings are the generation parameters passed to an LLM
type CompletionSettings struct {
	Temperature float32
	MaxTokens   int
}

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// Complete sends a single prompt and returns the raw model text
	Complete(ctx context.Context, prompt string, settings CompletionSettings) (string, error)

	// Model returns the model identifier used for completions
	Model() string
}

// ContentLoader downloads the bytes of an attachment
type ContentLoader interface {
	Load(ctx context.Context, attachment AttachmentMetadata) ([]byte, error)
}

// ContentLoaderFunc adapts a function to ContentLoader
type ContentLoaderFunc func(ctx context.Context, attachment AttachmentMetadata) ([]byte, error)

// Load calls f
func (f ContentLoaderFunc) Load(ctx context.Context, attachment AttachmentMetadata) ([]byte, error) {
	return f(ctx, attachment)
}

// TextExtractor turns attachment bytes into plain text. Unsupported or corrupt
// content yields an empty string rather than an error.
type TextExtractor interface {
	Extract(data []byte, mimeType string) string
}

// CacheRepository defines the interface for caching classifier verdicts
type CacheRepository interface {
	// Get retrieves a cached entry by key
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}
