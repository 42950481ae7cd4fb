package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	formFeed       = "\f"
	pageBreakLines = "\n\n\n"
)

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextProcessor{
		logger: logger,
	}
}

// FirstPage returns text up to the first form feed or the first run of three
// newlines, whichever occurs first. Text without either marker is returned whole.
func (tp *TextProcessor) FirstPage(text string) string {
	cut := -1
	if i := strings.Index(text, formFeed); i >= 0 {
		cut = i
	}
	if i := strings.Index(text, pageBreakLines); i >= 0 && (cut < 0 || i < cut) {
		cut = i
	}
	if cut < 0 {
		return text
	}
	return text[:cut]
}

// TruncateRunes caps text at maxRunes characters. The result is always valid UTF-8.
func (tp *TextProcessor) TruncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	n := 0
	for i := range text {
		if n == maxRunes {
			tp.logger.Debug("Text truncated",
				zap.Int("original_size", len(text)),
				zap.Int("truncated_size", i),
				zap.Int("max_runes", maxRunes))
			return text[:i]
		}
		n++
	}
	return text
}

// TruncateWords caps text at maxWords whitespace-separated words, keeping the
// original spacing of the retained prefix.
func (tp *TextProcessor) TruncateWords(text string, maxWords int) string {
	if maxWords <= 0 {
		return text
	}

	words := 0
	inWord := false
	for i, r := range text {
		space := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		if !space && !inWord {
			if words == maxWords {
				return strings.TrimRight(text[:i], " \t\r\n")
			}
			words++
		}
		inWord = !space
	}
	return text
}

// CountWords returns the number of whitespace-separated words
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// ProcessText sanitizes text, keeps the first page and caps it at maxRunes
func (tp *TextProcessor) ProcessText(text string, maxRunes int) string {
	text = tp.SanitizeUTF8(text)
	text = tp.FirstPage(text)
	return tp.TruncateRunes(text, maxRunes)
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
