package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		expectError bool
	}{
		{
			name:        "Invalid scheme",
			url:         "invalid://url",
			expectError: true,
		},
		{
			name:        "Empty URL",
			url:         "",
			expectError: true,
		},
		{
			name:        "Unreachable server",
			url:         "redis://127.0.0.1:1/0",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, "test", nil)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, client)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, client)
			}
		})
	}

	t.Run("Running server", func(t *testing.T) {
		_, client := setupTestRedis(t)
		assert.NotNil(t, client.KeyBuilder)
		assert.Equal(t, "test", client.KeyBuilder.GetPrefix())
	})
}

func TestClient_GetSet(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "test:results", `{"total_votes":4}`, time.Minute))

	val, err := client.Get(ctx, "test:results")
	require.NoError(t, err)
	assert.Equal(t, `{"total_votes":4}`, val)
	assert.Greater(t, mr.TTL("test:results"), time.Duration(0))

	_, err = client.Get(ctx, "test:missing")
	assert.ErrorIs(t, err, ErrNil)

	mr.FastForward(2 * time.Minute)
	_, err = client.Get(ctx, "test:results")
	assert.ErrorIs(t, err, ErrNil)
}

func TestClient_SetNX(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	ok, err := client.SetNX(ctx, "test:results", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, "test:results", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	val, err := mr.Get("test:results")
	require.NoError(t, err)
	assert.Equal(t, "first", val)
	assert.Equal(t, time.Minute, mr.TTL("test:results"))
}

func TestClient_Delete(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("test:key1", "value1"))
	require.NoError(t, mr.Set("test:key2", "value2"))

	assert.NoError(t, client.Delete(ctx))
	assert.NoError(t, client.Delete(ctx, "test:key1", "test:key2", "test:nonexistent"))

	assert.False(t, mr.Exists("test:key1"))
	assert.False(t, mr.Exists("test:key2"))
}

func TestClient_Publish(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	n, err := client.Publish(ctx, "test:channel", "nobody listening")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	sub := client.rdb.Subscribe(ctx, "test:channel")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	n, err = client.Publish(ctx, "test:channel", "results changed")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "results changed", msg.Payload)
}

func TestClient_IncrExpire(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	n, err := client.Incr(ctx, "test:counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, client.Expire(ctx, "test:counter", time.Minute))
	n, err = client.Incr(ctx, "test:counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ttl, err := client.TTL(ctx, "test:counter")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("test:counter"))
}

func TestClient_Health(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	assert.NoError(t, client.Health(ctx))

	mr.Close()
	assert.Error(t, client.Health(ctx))
}

func TestPrefixForLog(t *testing.T) {
	assert.Equal(t, "short:key", prefixForLog("short:key"))

	long := "prod:election:voter:Ahmad Fauzi Rahman:XI-A"
	got := prefixForLog(long)
	assert.True(t, len(got) < len(long)+3)
	assert.Contains(t, got, "…")
}
