package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/repository"
)

const (
	keyPrefix = "media:product:"
	genPrefix = "media:gen:"

	// DefaultTTL bounds how stale a storefront card can be if an
	// invalidation is lost.
	DefaultTTL = 60 * time.Second
)

// noRecord marks a product known to have no active record.
const noRecord = "-"

// fillScript writes KEYS[2i-1] only while generation key KEYS[2i] still
// holds the value read before the store load. A write that invalidates in
// between bumps the generation, so the older load is discarded.
var fillScript = redis.NewScript(`
local ttl = tonumber(ARGV[1])
local written = 0
for i = 1, #KEYS, 2 do
    local n = (i + 1) / 2
    local gen = redis.call('GET', KEYS[i + 1]) or ''
    if gen == ARGV[2 * n] then
        redis.call('SET', KEYS[i], ARGV[2 * n + 1], 'PX', ttl)
        written = written + 1
    end
end
return written
`)

// MediaRepository caches the active record of each product in Redis in
// front of another repository. Only ListByProductIDs with activeOnly reads
// through the cache; every write invalidates the product's key. Redis
// failures are logged and fall back to the wrapped repository.
type MediaRepository struct {
	repository.MediaRecordRepository

	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewMediaRepository wraps next with a Redis cache.
func NewMediaRepository(next repository.MediaRecordRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *MediaRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MediaRepository{
		MediaRecordRepository: next,
		client:                client,
		ttl:                   ttl,
		logger:                logger,
	}
}

func key(productID string) string    { return keyPrefix + productID }
func genKey(productID string) string { return genPrefix + productID }

// genTTL keeps a generation alive well past any entry filled under it.
func (r *MediaRepository) genTTL() time.Duration { return 10 * r.ttl }

// ListByProductIDs serves active records from the cache and loads misses
// from the wrapped repository.
func (r *MediaRepository) ListByProductIDs(ctx context.Context, productIDs []string, activeOnly bool) ([]domain.MediaRecord, error) {
	if !activeOnly || len(productIDs) == 0 {
		return r.MediaRecordRepository.ListByProductIDs(ctx, productIDs, activeOnly)
	}

	hits, misses, gens, err := r.lookup(ctx, productIDs)
	if err != nil {
		r.logger.WarnContext(ctx, "media cache read failed, using store",
			slog.String("error", err.Error()),
		)
		return r.MediaRecordRepository.ListByProductIDs(ctx, productIDs, true)
	}
	if len(misses) == 0 {
		return hits, nil
	}

	loaded, err := r.MediaRecordRepository.ListByProductIDs(ctx, misses, true)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, misses, gens, loaded)
	return append(hits, loaded...), nil
}

// lookup reads the cached entries and the generation of every product in
// one round trip. gens holds the generation of each miss.
func (r *MediaRepository) lookup(ctx context.Context, productIDs []string) ([]domain.MediaRecord, []string, map[string]string, error) {
	keys := make([]string, 0, 2*len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, key(id))
	}
	for _, id := range productIDs {
		keys = append(keys, genKey(id))
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("redis mget media: %w", err)
	}

	var (
		hits   []domain.MediaRecord
		misses []string
		gens   = make(map[string]string)
	)
	miss := func(i int) {
		id := productIDs[i]
		misses = append(misses, id)
		gen, _ := values[len(productIDs)+i].(string)
		gens[id] = gen
	}
	for i, v := range values[:len(productIDs)] {
		s, ok := v.(string)
		if !ok {
			miss(i)
			continue
		}
		if s == noRecord {
			continue
		}
		var rec domain.MediaRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			// Unreadable entries are reloaded and overwritten.
			miss(i)
			continue
		}
		hits = append(hits, rec)
	}
	return hits, misses, gens, nil
}

// fill caches the loaded records, and a noRecord marker for products
// without one. Products invalidated since lookup are skipped.
func (r *MediaRepository) fill(ctx context.Context, productIDs []string, gens map[string]string, recs []domain.MediaRecord) {
	byProduct := make(map[string]*domain.MediaRecord, len(recs))
	for i := range recs {
		byProduct[recs[i].ProductID] = &recs[i]
	}

	keys := make([]string, 0, 2*len(productIDs))
	args := []any{r.ttl.Milliseconds()}
	for _, id := range productIDs {
		value := noRecord
		if rec, ok := byProduct[id]; ok {
			data, err := json.Marshal(rec)
			if err != nil {
				continue
			}
			value = string(data)
		}
		keys = append(keys, key(id), genKey(id))
		args = append(args, gens[id], value)
	}
	if len(keys) == 0 {
		return
	}

	written, err := fillScript.Run(ctx, r.client, keys, args...).Int()
	if err != nil {
		r.logger.WarnContext(ctx, "media cache fill failed",
			slog.Int("keys", len(keys)/2),
			slog.String("error", err.Error()),
		)
		return
	}
	if skipped := len(keys)/2 - written; skipped > 0 {
		r.logger.DebugContext(ctx, "media cache fill skipped invalidated products",
			slog.Int("skipped", skipped),
		)
	}
}

// Invalidate drops the cached entries of the given products and bumps their
// generation, so that reads already in flight do not cache what they loaded.
func (r *MediaRepository) Invalidate(ctx context.Context, productIDs ...string) {
	if len(productIDs) == 0 {
		return
	}
	keys := make([]string, len(productIDs))
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range productIDs {
			keys[i] = key(id)
			pipe.Incr(ctx, genKey(id))
			pipe.Expire(ctx, genKey(id), r.genTTL())
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		r.logger.WarnContext(ctx, "media cache invalidation failed",
			slog.Any("product_ids", productIDs),
			slog.String("error", err.Error()),
		)
	}
}

func (r *MediaRepository) Create(ctx context.Context, rec *domain.MediaRecord) error {
	if err := r.MediaRecordRepository.Create(ctx, rec); err != nil {
		return err
	}
	r.Invalidate(ctx, rec.ProductID)
	return nil
}

func (r *MediaRepository) Update(ctx context.Context, rec *domain.MediaRecord) error {
	productID := rec.ProductID
	if productID == "" {
		existing, err := r.MediaRecordRepository.GetByID(ctx, rec.ID)
		if err != nil {
			return err
		}
		productID = existing.ProductID
	}
	if err := r.MediaRecordRepository.Update(ctx, rec); err != nil {
		return err
	}
	r.Invalidate(ctx, productID)
	return nil
}

func (r *MediaRepository) Delete(ctx context.Context, id string) error {
	existing, err := r.MediaRecordRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.MediaRecordRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.Invalidate(ctx, existing.ProductID)
	return nil
}
