package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencyStore(time.Hour)

	seen, err := s.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.Add(ctx, "evt-1"))
	seen, err = s.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencyStore(10 * time.Millisecond)
	require.NoError(t, s.Add(ctx, "evt-1"))

	time.Sleep(20 * time.Millisecond)

	seen, err := s.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryIdempotencyStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencyStore(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("evt-%d", i)
			_ = s.Add(ctx, id)
			_, _ = s.Contains(ctx, id)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}

func TestRedisIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	s := NewRedisIdempotencyStore(client, "idem:cleanup:", time.Minute)

	seen, err := s.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.Add(ctx, "evt-1"))
	assert.True(t, mr.Exists("idem:cleanup:evt-1"))

	seen, err = s.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	mr.FastForward(2 * time.Minute)
	seen, err = s.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisIdempotencyStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewRedisIdempotencyStore(client, "idem:", time.Minute).Contains(context.Background(), "evt-1")
	assert.Error(t, err)
}

type failingStore struct{}

func (failingStore) Contains(context.Context, string) (bool, error) {
	return false, errors.New("store down")
}
func (failingStore) Add(context.Context, string) error { return errors.New("store down") }

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate is skipped", func(t *testing.T) {
		calls := 0
		h := IdempotentHandler(NewMemoryIdempotencyStore(time.Hour), func(context.Context, *Event) error {
			calls++
			return nil
		}, testLogger())

		e := &Event{EventID: "evt-1", EventType: "media.cleanup_requested"}
		require.NoError(t, h(ctx, e))
		require.NoError(t, h(ctx, e))
		assert.Equal(t, 1, calls)
	})

	t.Run("failure is not recorded", func(t *testing.T) {
		store := NewMemoryIdempotencyStore(time.Hour)
		calls := 0
		h := IdempotentHandler(store, func(context.Context, *Event) error {
			calls++
			if calls == 1 {
				return errors.New("transient")
			}
			return nil
		}, testLogger())

		e := &Event{EventID: "evt-2"}
		require.Error(t, h(ctx, e))
		require.NoError(t, h(ctx, e))
		assert.Equal(t, 2, calls)
	})

	t.Run("empty id passes through", func(t *testing.T) {
		calls := 0
		h := IdempotentHandler(NewMemoryIdempotencyStore(time.Hour), func(context.Context, *Event) error {
			calls++
			return nil
		}, testLogger())

		require.NoError(t, h(ctx, &Event{}))
		require.NoError(t, h(ctx, &Event{}))
		assert.Equal(t, 2, calls)
	})

	t.Run("store error still processes", func(t *testing.T) {
		calls := 0
		h := IdempotentHandler(failingStore{}, func(context.Context, *Event) error {
			calls++
			return nil
		}, testLogger())

		require.NoError(t, h(ctx, &Event{EventID: "evt-3"}))
		assert.Equal(t, 1, calls)
	})
}
