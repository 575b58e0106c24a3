package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/repository/memory"
)

func setupCache(t *testing.T) (*MediaRepository, *memory.MediaRecordRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	inner := memory.NewMediaRecordRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMediaRepository(inner, client, time.Minute, logger), inner, mr
}

func record(productID string) *domain.MediaRecord {
	return &domain.MediaRecord{
		ProductID: productID,
		Default:   &domain.ImageAsset{URL: productID + ".png", ExternalID: "pim/" + productID},
		Hover:     domain.ImageAsset{URL: productID + "-hover.png"},
		IsActive:  true,
	}
}

func TestMediaRepository_ReadThrough(t *testing.T) {
	ctx := context.Background()
	c, inner, mr := setupCache(t)

	require.NoError(t, inner.Create(ctx, record("p-1")))

	recs, err := c.ListByProductIDs(ctx, []string{"p-1", "p-2"}, true)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "p-1.png", recs[0].DefaultImage().URL)

	assert.True(t, mr.Exists(key("p-1")))
	marker, err := mr.Get(key("p-2"))
	require.NoError(t, err)
	assert.Equal(t, noRecord, marker)
	assert.Equal(t, time.Minute, mr.TTL(key("p-1")))

	// A write that bypasses the cache is not visible until expiry.
	require.NoError(t, inner.Create(ctx, record("p-2")))
	recs, err = c.ListByProductIDs(ctx, []string{"p-1", "p-2"}, true)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	mr.FastForward(2 * time.Minute)
	recs, err = c.ListByProductIDs(ctx, []string{"p-1", "p-2"}, true)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestMediaRepository_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	c, _, mr := setupCache(t)

	_, err := c.ListByProductIDs(ctx, []string{"p-1"}, true)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key("p-1")))

	rec := record("p-1")
	require.NoError(t, c.Create(ctx, rec))
	assert.False(t, mr.Exists(key("p-1")))

	recs, err := c.ListByProductIDs(ctx, []string{"p-1"}, true)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec.Default = &domain.VideoAsset{URL: "v.mp4"}
	require.NoError(t, c.Update(ctx, rec))
	assert.False(t, mr.Exists(key("p-1")))

	recs, err = c.ListByProductIDs(ctx, []string{"p-1"}, true)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].HasVideo())

	require.NoError(t, c.Delete(ctx, rec.ID))
	recs, err = c.ListByProductIDs(ctx, []string{"p-1"}, true)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMediaRepository_InactiveBypassesCache(t *testing.T) {
	ctx := context.Background()
	c, inner, mr := setupCache(t)
	rec := record("p-1")
	rec.IsActive = false
	require.NoError(t, inner.Create(ctx, rec))

	recs, err := c.ListByProductIDs(ctx, []string{"p-1"}, false)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.False(t, mr.Exists(key("p-1")))
}

func TestMediaRepository_RedisDownFallsBack(t *testing.T) {
	ctx := context.Background()
	c, inner, mr := setupCache(t)
	require.NoError(t, inner.Create(ctx, record("p-1")))

	mr.Close()

	recs, err := c.ListByProductIDs(ctx, []string{"p-1"}, true)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	require.NoError(t, c.Create(ctx, record("p-2")))
}

// racingRepository runs beforeReturn once, after loading and before the
// cache sees the result, to stand in for a write landing mid-read.
type racingRepository struct {
	*memory.MediaRecordRepository
	beforeReturn func()
}

func (r *racingRepository) ListByProductIDs(ctx context.Context, productIDs []string, activeOnly bool) ([]domain.MediaRecord, error) {
	recs, err := r.MediaRecordRepository.ListByProductIDs(ctx, productIDs, activeOnly)
	if hook := r.beforeReturn; hook != nil {
		r.beforeReturn = nil
		hook()
	}
	return recs, err
}

func TestMediaRepository_StaleLoadIsNotCached(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	inner := &racingRepository{MediaRecordRepository: memory.NewMediaRecordRepository()}
	c := NewMediaRepository(inner, client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := record("p-1")
	require.NoError(t, c.Create(ctx, rec))

	inner.beforeReturn = func() {
		rec.Default = &domain.VideoAsset{URL: "v.mp4"}
		require.NoError(t, c.Update(ctx, rec))
	}

	recs, err := c.ListByProductIDs(ctx, []string{"p-1"}, true)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].HasVideo())
	assert.False(t, mr.Exists(key("p-1")))

	gen, err := mr.Get(genKey("p-1"))
	require.NoError(t, err)
	assert.Equal(t, "2", gen)
	assert.Equal(t, 10*time.Minute, mr.TTL(genKey("p-1")))

	recs, err = c.ListByProductIDs(ctx, []string{"p-1"}, true)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].HasVideo())
	assert.True(t, mr.Exists(key("p-1")))
}

func TestMediaRepository_FillWithoutPriorWrites(t *testing.T) {
	ctx := context.Background()
	c, inner, mr := setupCache(t)
	require.NoError(t, inner.Create(ctx, record("p-1")))

	_, err := c.ListByProductIDs(ctx, []string{"p-1", "p-2"}, true)
	require.NoError(t, err)

	assert.True(t, mr.Exists(key("p-1")))
	assert.True(t, mr.Exists(key("p-2")))
	assert.False(t, mr.Exists(genKey("p-1")))
}
