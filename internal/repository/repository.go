package repository

import (
	"context"
	"errors"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
)

// Store errors shared by every driver. Services translate them into
// application errors.
var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicateProduct is returned when a record already exists for the
	// product.
	ErrDuplicateProduct = errors.New("media record already exists for product")
	// ErrVideoSlotTaken is returned when a write would give a second record
	// the video slot.
	ErrVideoSlotTaken = errors.New("video slot is held by another record")
)

// MediaFilter narrows a media record listing.
type MediaFilter struct {
	ProductID *string
	IsActive  *bool
	Offset    int
	Limit     int
}

// MediaRecordRepository persists media records. Implementations enforce
// one record per product and at most one record holding the video slot.
type MediaRecordRepository interface {
	// Create inserts rec, assigning ID and timestamps when unset.
	Create(ctx context.Context, rec *domain.MediaRecord) error

	GetByID(ctx context.Context, id string) (*domain.MediaRecord, error)
	GetByProductID(ctx context.Context, productID string) (*domain.MediaRecord, error)

	// FindVideoHolder returns the record holding the video slot or
	// ErrNotFound.
	FindVideoHolder(ctx context.Context) (*domain.MediaRecord, error)

	// List returns one page of records, newest first, and the total number
	// of matching records.
	List(ctx context.Context, filter MediaFilter) ([]domain.MediaRecord, int, error)

	// ListByProductIDs returns the records of the given products, optionally
	// only active ones.
	ListByProductIDs(ctx context.Context, productIDs []string, activeOnly bool) ([]domain.MediaRecord, error)

	// Update replaces the stored record with rec and bumps UpdatedAt.
	Update(ctx context.Context, rec *domain.MediaRecord) error

	Delete(ctx context.Context, id string) error

	Ping(ctx context.Context) error
}

// ProductFilter defines the storefront product query.
type ProductFilter struct {
	Category *string
	MinPrice *float64
	MaxPrice *float64
	Size     *string
	Sort     string
	Offset   int
	Limit    int
}

// ProductRepository reads catalog products.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetNames resolves product display names by id. Unknown ids are
	// omitted from the result.
	GetNames(ctx context.Context, ids []string) (map[string]string, error)

	// List returns active products matching filter and the total count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// ListRefs returns up to limit products, newest first.
	ListRefs(ctx context.Context, limit int) ([]domain.ProductRef, error)

	// Categories counts active products per category, ordered by category.
	Categories(ctx context.Context) ([]domain.CategoryCount, error)
}
