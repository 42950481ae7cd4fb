package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSQLiteCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), zaptest.NewLogger(t), 0)
	require.NoError(t, err)
	t.Cleanup(c.Stop)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	entry := testEntry("k1", time.Hour)
	require.NoError(t, c.Set(ctx, entry))

	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, entry.Policy, got.Policy)
	assert.Equal(t, entry.IsMatch, got.IsMatch)
	assert.InDelta(t, entry.Confidence, got.Confidence, 1e-9)
	assert.Equal(t, entry.Reason, got.Reason)
	assert.Equal(t, entry.ExpiresAt.Unix(), got.ExpiresAt.Unix())

	entry.IsMatch = false
	entry.Reason = "updated"
	require.NoError(t, c.Set(ctx, entry))
	got, err = c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, got.IsMatch)
	assert.Equal(t, "updated", got.Reason)

	require.NoError(t, c.Set(ctx, testEntry("old", -time.Hour)))
	_, err = c.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Cleanup(ctx))
	require.NoError(t, c.Delete(ctx, "k1"))
	_, err = c.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteCachePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := NewSQLiteCache(path, nil, 0)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, testEntry("k1", time.Hour)))
	c.Stop()

	c, err = NewSQLiteCache(path, nil, 0)
	require.NoError(t, err)
	t.Cleanup(c.Stop)

	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "resume", got.Policy)
}
