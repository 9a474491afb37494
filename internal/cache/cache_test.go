package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedEvent struct {
	ID    int64
	Title string
	Tags  []string
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	value := cachedEvent{ID: 7, Title: "DEF CON Quals", Tags: []string{"pwn"}}
	var result cachedEvent

	cache := NewMemoryCache(1 * 1024 * 1024)

	require.NoError(t, cache.Set(ctx, "key", value, time.Minute))
	require.NoError(t, cache.Get(ctx, "key", &result))
	assert.Equal(t, value, result)

	require.NoError(t, cache.Delete(ctx, "key"))
	assert.ErrorIs(t, cache.Get(ctx, "key", &result), ErrMiss)
}

func TestMemoryCachePurge(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(1 * 1024 * 1024)
	require.NoError(t, cache.Set(ctx, KeyEvent(1), "a", time.Minute))
	require.NoError(t, cache.Set(ctx, KeyCalendar(), "b", time.Minute))

	require.NoError(t, cache.Purge(ctx))

	var s string
	assert.ErrorIs(t, cache.Get(ctx, KeyEvent(1), &s), ErrMiss)
	assert.ErrorIs(t, cache.Get(ctx, KeyCalendar(), &s), ErrMiss)
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(1 * 1024 * 1024)
	calls := 0
	fn := func() ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	got, err := Fetch(ctx, cache, "list", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got, err = Fetch(ctx, cache, "list", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 1, calls)
}

func TestFetchError(t *testing.T) {
	cache := NewMemoryCache(1 * 1024 * 1024)
	boom := errors.New("boom")
	_, err := Fetch(context.Background(), cache, "x", time.Minute, func() (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "events:list:ctf:upcoming:50", KeyEventList("ctf", "upcoming", 50))
	assert.Equal(t, "events:42", KeyEvent(42))
	assert.Equal(t, "a:[1,2]:nil", Key("a", []int{1, 2}, nil))
}
