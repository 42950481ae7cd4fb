package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisCache(ctx, RedisOptions{Address: "127.0.0.1:1"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestRedisCacheKeyPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { client.Close() })

	assert.Equal(t, "doc-detector:abc", newRedisCache(client, "", nil).key("abc"))
	assert.Equal(t, "x:abc", newRedisCache(client, "x:", nil).key("abc"))
}

func TestRedisCacheSkipsExpiredEntries(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { client.Close() })

	c := newRedisCache(client, "", nil)
	assert.NoError(t, c.Set(context.Background(), testEntry("old", -time.Minute)))
	assert.NoError(t, c.Cleanup(context.Background()))
}
