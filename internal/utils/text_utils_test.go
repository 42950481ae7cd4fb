package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestFirstPage(t *testing.T) {
	tp := NewTextProcessor(zaptest.NewLogger(t))

	assert.Equal(t, "one", tp.FirstPage("one\ftwo"))
	assert.Equal(t, "one", tp.FirstPage("one\n\n\ntwo\ffour"))
	assert.Equal(t, "one\n\ntwo", tp.FirstPage("one\n\ntwo"))
}

func TestTruncateRunes(t *testing.T) {
	tp := NewTextProcessor(nil)

	out := tp.TruncateRunes("ééééé", 3)
	assert.Equal(t, "ééé", out)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "abc", tp.TruncateRunes("abc", 10))
	assert.Equal(t, "abc", tp.TruncateRunes("abc", 0))
}

func TestTruncateWords(t *testing.T) {
	tp := NewTextProcessor(nil)

	assert.Equal(t, "one  two", tp.TruncateWords("one  two three four", 2))
	assert.Equal(t, "one two", tp.TruncateWords("one two", 5))
	assert.Equal(t, 4, CountWords(" one two\tthree\nfour "))
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(nil)

	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xffb"))
	assert.Equal(t, "ok", tp.SanitizeUTF8("ok"))
}

func TestProcessText(t *testing.T) {
	tp := NewTextProcessor(nil)

	text := strings.Repeat("x", 20) + "\fsecond page"
	assert.Equal(t, strings.Repeat("x", 10), tp.ProcessText(text, 10))
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "abc...", TruncateForLog("  abcdef ", 3))
	assert.Equal(t, "abc", TruncateForLog("abc", 3))
	assert.Equal(t, "", TruncateForLog("abc", 0))
}
