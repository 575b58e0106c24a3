// Package memory provides mutex-guarded in-memory repositories for local
// development and service tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/repository"
)

// MediaRecordRepository implements repository.MediaRecordRepository. The
// product and video slot uniqueness checks run under the write lock, so
// concurrent writers cannot both claim the slot.
type MediaRecordRepository struct {
	mu      sync.RWMutex
	records map[string]domain.MediaRecord
}

// NewMediaRecordRepository returns an empty repository.
func NewMediaRecordRepository() *MediaRecordRepository {
	return &MediaRecordRepository{records: make(map[string]domain.MediaRecord)}
}

func (r *MediaRecordRepository) Create(_ context.Context, rec *domain.MediaRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.UpdatedAt = rec.CreatedAt

	if err := r.checkUnique(rec); err != nil {
		return err
	}
	r.records[rec.ID] = stored(rec)
	return nil
}

func (r *MediaRecordRepository) GetByID(_ context.Context, id string) (*domain.MediaRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	rec = clone(rec)
	return &rec, nil
}

func (r *MediaRecordRepository) GetByProductID(_ context.Context, productID string) (*domain.MediaRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.ProductID == productID {
			rec = clone(rec)
			return &rec, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *MediaRecordRepository) FindVideoHolder(_ context.Context) (*domain.MediaRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.HasVideo() {
			rec = clone(rec)
			return &rec, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *MediaRecordRepository) List(_ context.Context, filter repository.MediaFilter) ([]domain.MediaRecord, int, error) {
	r.mu.RLock()
	matched := make([]domain.MediaRecord, 0, len(r.records))
	for _, rec := range r.records {
		if filter.ProductID != nil && rec.ProductID != *filter.ProductID {
			continue
		}
		if filter.IsActive != nil && rec.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, clone(rec))
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, newestFirst)

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

func (r *MediaRecordRepository) ListByProductIDs(_ context.Context, productIDs []string, activeOnly bool) ([]domain.MediaRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.MediaRecord, 0, len(productIDs))
	for _, rec := range r.records {
		if activeOnly && !rec.IsActive {
			continue
		}
		if slices.Contains(productIDs, rec.ProductID) {
			out = append(out, clone(rec))
		}
	}
	return out, nil
}

func (r *MediaRecordRepository) Update(_ context.Context, rec *domain.MediaRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.records[rec.ID]
	if !ok {
		return repository.ErrNotFound
	}
	rec.ProductID = existing.ProductID
	if err := r.checkUnique(rec); err != nil {
		return err
	}

	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = time.Now().UTC()
	r.records[rec.ID] = stored(rec)
	return nil
}

func (r *MediaRecordRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *MediaRecordRepository) Ping(context.Context) error { return nil }

// Len returns the number of stored records.
func (r *MediaRecordRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// checkUnique must be called with the write lock held.
func (r *MediaRecordRepository) checkUnique(rec *domain.MediaRecord) error {
	for id, other := range r.records {
		if id == rec.ID {
			continue
		}
		if other.ProductID == rec.ProductID {
			return repository.ErrDuplicateProduct
		}
		if rec.HasVideo() && other.HasVideo() {
			return repository.ErrVideoSlotTaken
		}
	}
	return nil
}

// stored copies rec without its display-only product identity.
func stored(rec *domain.MediaRecord) domain.MediaRecord {
	cp := clone(*rec)
	cp.Product = nil
	return cp
}

// clone copies rec including its default media asset.
func clone(rec domain.MediaRecord) domain.MediaRecord {
	switch d := rec.Default.(type) {
	case *domain.VideoAsset:
		v := *d
		rec.Default = &v
	case *domain.ImageAsset:
		img := *d
		rec.Default = &img
	}
	return rec
}

func newestFirst(a, b domain.MediaRecord) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}
