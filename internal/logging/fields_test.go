package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCommonFields(t *testing.T) {
	fields := CommonFields("  openai ", "")
	require.Len(t, fields, 1)
	assert.Equal(t, FieldProvider, fields[0].Key)
	assert.Equal(t, "openai", fields[0].String)

	assert.Empty(t, CommonFields("", " "))
}

func TestWithCommonFields(t *testing.T) {
	obsCore, logs := observer.New(zapcore.InfoLevel)

	WithCommonFields(zap.New(obsCore), "bedrock", "claude").Info("completion")

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "bedrock", ctx[FieldProvider])
	assert.Equal(t, "claude", ctx[FieldModel])
}

func TestWithFieldsNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		WithCommonFields(nil, "gemini", "flash").Info("ignored")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}
