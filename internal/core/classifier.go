package core

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/utils"
)

// Stage-3 preprocessing limits
const (
	MinTextRunes         = 50
	MaxTextRunes         = 10000
	MaxInstructionWords  = 500
	SimplifiedTextRunes  = 2000
	DefaultMaxTokens     = 256
	DocumentPlaceholder  = "{{DOCUMENT}}"
	FailedReason         = "classification failed"
	InsufficientReason   = "insufficient text"
	defaultMaxLogLength  = 200
	defaultRetryDelay    = 250 * time.Millisecond
	confidenceClampSlack = 0.05
)

// Classifier is the Stage-3 gateway to the external completion model
type Classifier struct {
	llm        LLMClient
	text       *utils.TextProcessor
	logger     *zap.Logger
	settings   CompletionSettings
	retryDelay time.Duration
	maxLogLen  int
}

// ClassifierOption customizes a Classifier
type ClassifierOption func(*Classifier)

// WithRetryDelay sets the pause before the simplified-prompt retry
func WithRetryDelay(d time.Duration) ClassifierOption {
	return func(c *Classifier) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// WithMaxTokens sets the output token budget
func WithMaxTokens(n int) ClassifierOption {
	return func(c *Classifier) {
		if n > 0 {
			c.settings.MaxTokens = n
		}
	}
}

// WithMaxLogLength sets the preview length for logged prompts and responses
func WithMaxLogLength(n int) ClassifierOption {
	return func(c *Classifier) {
		if n > 0 {
			c.maxLogLen = n
		}
	}
}

// NewClassifier creates a new Stage-3 classifier
func NewClassifier(llm LLMClient, text *utils.TextProcessor, logger *zap.Logger, opts ...ClassifierOption) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if text == nil {
		text = utils.NewTextProcessor(logger)
	}
	c := &Classifier{
		llm:        llm,
		text:       text,
		logger:     logger,
		settings:   CompletionSettings{Temperature: 0, MaxTokens: DefaultMaxTokens},
		retryDelay: defaultRetryDelay,
		maxLogLen:  defaultMaxLogLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InsufficientTextVerdict is returned when there is too little text to classify
func InsufficientTextVerdict() AIVerdict {
	return AIVerdict{IsMatch: false, Confidence: 0, Reason: InsufficientReason, InsufficientText: true}
}

// FallbackVerdict is returned when classification failed twice
func FallbackVerdict() AIVerdict {
	return AIVerdict{IsMatch: false, Confidence: 0, Reason: FailedReason, InsufficientText: false}
}

// Classify runs preprocessing and the model call. It never returns an error;
// failures are expressed as fallback verdicts.
func (c *Classifier) Classify(ctx context.Context, text string, policy *Policy) AIVerdict {
	page, ok := c.Prepare(text)
	if !ok {
		return InsufficientTextVerdict()
	}
	return c.ClassifyPage(ctx, page, policy)
}

// Prepare applies the text preprocessing and reports whether enough text
// remains to be worth a model call. Leading blank lines are dropped before the
// first page is cut, and an empty first page counts as insufficient text.
func (c *Classifier) Prepare(text string) (string, bool) {
	text = strings.TrimSpace(c.text.SanitizeUTF8(text))
	if utf8.RuneCountInString(text) < MinTextRunes {
		return "", false
	}
	page := strings.TrimSpace(c.text.ProcessText(text, MaxTextRunes))
	if page == "" {
		return "", false
	}
	return page, true
}

// ClassifyPage calls the model for already-prepared text, retrying once with
// the simplified prompt on any failure
func (c *Classifier) ClassifyPage(ctx context.Context, page string, policy *Policy) AIVerdict {
	if c.llm == nil {
		c.logger.Warn("No LLM client configured, using fallback verdict")
		return FallbackVerdict()
	}

	var (
		verdict AIVerdict
		attempt int
	)

	backoff := retry.WithMaxRetries(1, retry.NewConstant(c.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		template, document := policy.PromptTemplate, page
		if attempt > 0 {
			template = policy.SimplifiedPromptTemplate
			document = c.text.TruncateRunes(page, SimplifiedTextRunes)
		}
		attempt++

		v, err := c.attempt(ctx, c.BuildPrompt(template, document), policy, attempt)
		if err != nil {
			c.logger.Warn("Classification attempt failed",
				zap.String("policy", policy.Name),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return retry.RetryableError(err)
		}
		verdict = v
		return nil
	})
	if err != nil {
		c.logger.Error("Classification failed, using fallback verdict",
			zap.String("policy", policy.Name),
			zap.Int("attempts", attempt),
			zap.Error(err))
		return FallbackVerdict()
	}

	return verdict
}

func (c *Classifier) attempt(ctx context.Context, prompt string, policy *Policy, attempt int) (AIVerdict, error) {
	c.logger.Debug("LLM completion request",
		zap.String("policy", policy.Name),
		zap.String("model", c.llm.Model()),
		zap.Int("attempt", attempt),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)))

	raw, err := c.llm.Complete(ctx, prompt, c.settings)
	if err != nil {
		return AIVerdict{}, fmt.Errorf("%w: %w", ErrInference, err)
	}

	c.logger.Debug("LLM completion response",
		zap.String("policy", policy.Name),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)))

	return ParseVerdict(raw)
}

// BuildPrompt substitutes document into template. The instruction text around
// the placeholder is capped at MaxInstructionWords words in total.
func (c *Classifier) BuildPrompt(template, document string) string {
	head, tail, found := strings.Cut(template, DocumentPlaceholder)

	headWords := utils.CountWords(head)
	if headWords > MaxInstructionWords {
		head = c.text.TruncateWords(head, MaxInstructionWords) + "\n"
		headWords = MaxInstructionWords
	}

	remaining := MaxInstructionWords - headWords
	if utils.CountWords(tail) > remaining {
		if remaining == 0 {
			tail = ""
		} else {
			tail = c.text.TruncateWords(tail, remaining)
		}
	}

	if !found {
		return strings.TrimSpace(head) + "\n\n" + document
	}
	return head + document + tail
}

// ParseVerdict decodes a model response into a verdict. Markdown code fences
// and surrounding prose are tolerated. All four fields must be present; a
// missing field or an out-of-range confidence is reported as
// ErrMalformedResponse. The reason may be an empty string.
func ParseVerdict(raw string) (AIVerdict, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return AIVerdict{}, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return AIVerdict{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	rawMatch, ok := data["isMatch"]
	if !ok {
		return AIVerdict{}, fmt.Errorf("%w: missing isMatch", ErrMalformedResponse)
	}
	isMatch, ok := coerceBool(rawMatch)
	if !ok {
		return AIVerdict{}, fmt.Errorf("%w: isMatch is not a boolean: %v", ErrMalformedResponse, rawMatch)
	}

	rawConfidence, ok := data["confidence"]
	if !ok {
		return AIVerdict{}, fmt.Errorf("%w: missing confidence", ErrMalformedResponse)
	}
	confidence := coerceFloat(rawConfidence)
	if math.IsNaN(confidence) || confidence < -confidenceClampSlack || confidence > 1+confidenceClampSlack {
		return AIVerdict{}, fmt.Errorf("%w: confidence out of range: %v", ErrMalformedResponse, rawConfidence)
	}
	confidence = math.Max(0, math.Min(1, confidence))

	rawReason, ok := data["reason"]
	if !ok {
		return AIVerdict{}, fmt.Errorf("%w: missing reason", ErrMalformedResponse)
	}

	rawInsufficient, ok := data["insufficientText"]
	if !ok {
		return AIVerdict{}, fmt.Errorf("%w: missing insufficientText", ErrMalformedResponse)
	}
	insufficient, ok := coerceBool(rawInsufficient)
	if !ok {
		return AIVerdict{}, fmt.Errorf("%w: insufficientText is not a boolean: %v", ErrMalformedResponse, rawInsufficient)
	}

	return AIVerdict{
		IsMatch:          isMatch,
		Confidence:       confidence,
		Reason:           coerceString(rawReason),
		InsufficientText: insufficient,
	}, nil
}

// extractJSON strips code fences and any prose around the outermost object
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```JSON")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
		raw = strings.TrimSpace(raw)
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return ""
	}
	return raw[start : end+1]
}

func coerceBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "yes":
			return true, true
		case "false", "no":
			return false, true
		}
	}
	return false, false
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

// IsFallback reports whether v is one of the synthetic verdicts that must not be cached
func IsFallback(v AIVerdict) bool {
	return v.InsufficientText || (v.Reason == FailedReason && !v.IsMatch && v.Confidence == 0)
}
