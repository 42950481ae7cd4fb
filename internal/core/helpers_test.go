package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Name:             "test",
		AllowedMimeTypes: []string{"application/pdf", "text/plain"},
		SizeRange:        SizeRange{Min: 1024, Max: 10 << 20},
		TypicalSizeRange: SizeRange{Min: 5 << 10, Max: 2 << 20},

		AutomatedSenderPatterns: []string{`no-?reply`, `mailer-daemon`},
		NegativeSubjectKeywords: []string{"Newsletter", "Invoice"},

		FilenamePatternTable: []PatternRuleConfig{
			{Name: "strong", Pattern: `(^|[^a-z])resume([^a-z]|$)`, Score: 40},
			{Name: "person", Pattern: `candidate`, Score: 25},
			{Name: "generic", Pattern: `document`, Score: 8},
			{Name: "negative", Pattern: `invoice`, Score: 0},
		},
		SubjectPatternTable: []PatternRuleConfig{
			{Name: "application", Pattern: `applying`, Score: 30},
			{Name: "role", Pattern: `role`, Score: 20},
		},
		FilenameDefault: DefaultFilenameScore,
		SubjectDefault:  DefaultSubjectScore,

		PreferredSenderDomainClass: DomainPersonal,

		HighThreshold:      DefaultHighThreshold,
		LowThreshold:       DefaultLowThreshold,
		AIConfidenceCutoff: DefaultAIConfidenceCutoff,
		AIWeight:           DefaultAIWeight,

		PromptTemplate:           "FULL Classify the document.\n{{DOCUMENT}}\nAnswer in JSON.",
		SimplifiedPromptTemplate: "SIMPLE Is this the document?\n{{DOCUMENT}}",
	}
}

func newTestPolicy(t *testing.T, mutate ...func(*PolicyConfig)) *Policy {
	t.Helper()
	cfg := testPolicyConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	p, err := NewPolicy(cfg)
	require.NoError(t, err)
	return p
}

type fakeLLM struct {
	mu       sync.Mutex
	prompts  []string
	complete func(ctx context.Context, prompt string) (string, error)
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, _ CompletionSettings) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.complete == nil {
		return "", errors.New("no response configured")
	}
	return f.complete(ctx, prompt)
}

func (f *fakeLLM) Model() string { return "fake-model" }

func (f *fakeLLM) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func respond(body string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return body, nil }
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]*CacheEntry)}
}

func (c *memoryCache) Get(_ context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.ExpiresAt) {
		return nil, errors.New("not found")
	}
	return e, nil
}

func (c *memoryCache) Set(_ context.Context, e *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.Key] = e
	c.sets++
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *memoryCache) Cleanup(context.Context) error { return nil }

func (c *memoryCache) setCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}
