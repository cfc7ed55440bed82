package redis

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewCache(Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, mr
}

func TestRedisKV(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "session:abc", "player-1", time.Minute))
	v, err := c.Get(ctx, "session:abc")
	require.NoError(t, err)
	assert.Equal(t, "player-1", v)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "session:abc")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.Del(ctx, "k"))
	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, c.Expire(ctx, "missing", time.Second), ErrNotFound)
}

func TestRedisUpdate(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	err := c.Update(ctx, "reg", time.Hour, func(cur string, found bool) (string, bool, error) {
		assert.False(t, found)
		return `["a"]`, true, nil
	})
	require.NoError(t, err)
	got, err := mr.Get("reg")
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, got)
	assert.Greater(t, mr.TTL("reg"), time.Duration(0))

	boom := errors.New("boom")
	err = c.Update(ctx, "reg", 0, func(string, bool) (string, bool, error) { return "", true, boom })
	assert.ErrorIs(t, err, boom)

	require.NoError(t, c.Update(ctx, "reg", 0, func(cur string, found bool) (string, bool, error) {
		assert.True(t, found)
		assert.Equal(t, `["a"]`, cur)
		return "", false, nil
	}))
	assert.False(t, mr.Exists("reg"))
}

func TestRedisUpdateConcurrent(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Update(ctx, "n", 0, func(cur string, _ bool) (string, bool, error) {
				n, _ := strconv.Atoi(cur)
				return strconv.Itoa(n + 1), true, nil
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	v, err := c.Get(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, "5", v)
}

func TestRedisPubSub(t *testing.T) {
	mr := miniredis.RunT(t)
	ps, err := NewPubSub(Config{Addr: mr.Addr()})
	require.NoError(t, err)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "player:1")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "player:1", "hello"))
	select {
	case msg := <-ch:
		assert.Equal(t, "player:1", msg.Channel)
		assert.Equal(t, "hello", msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestNewCacheUnreachable(t *testing.T) {
	_, err := NewCache(Config{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
