package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/repository"
	"github.com/riturajsingh8919/anti-romantic/pkg/pagination"
)

// ListOptions bounds the page size of the media listing.
var ListOptions = pagination.Options{DefaultLimit: 10, MaxLimit: 1000}

// ListFilter holds the optional exact-match filters of the listing.
type ListFilter struct {
	ProductID *string
	IsActive  *bool
}

// ConsoleView is what the admin console shows after every write: one page
// of records and the current video holder.
type ConsoleView struct {
	Records     []domain.MediaRecord `json:"data"`
	Pagination  pagination.Meta      `json:"pagination"`
	VideoHolder *domain.MediaRecord  `json:"productWithVideo"`
}

// ListingService reads media records joined with product names.
type ListingService struct {
	repo     repository.MediaRecordRepository
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewListingService creates a new listing service.
func NewListingService(repo repository.MediaRecordRepository, products repository.ProductRepository, logger *slog.Logger) *ListingService {
	return &ListingService{
		repo:     repo,
		products: products,
		logger:   logger,
	}
}

// List returns one page of records, newest first.
func (s *ListingService) List(ctx context.Context, params pagination.Params, filter ListFilter) ([]domain.MediaRecord, pagination.Meta, error) {
	params = pagination.NewParams(params.Page, params.Limit, ListOptions)

	recs, total, err := s.repo.List(ctx, repository.MediaFilter{
		ProductID: filter.ProductID,
		IsActive:  filter.IsActive,
		Offset:    params.Offset,
		Limit:     params.Limit,
	})
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("list media records: %w", err)
	}

	s.attachProducts(ctx, recs)
	return recs, pagination.NewMeta(total, params), nil
}

// GetVideoHolder returns the record holding the video slot, or nil when no
// product holds it.
func (s *ListingService) GetVideoHolder(ctx context.Context) (*domain.MediaRecord, error) {
	holder, err := s.repo.FindVideoHolder(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find video holder: %w", err)
	}

	recs := []domain.MediaRecord{*holder}
	s.attachProducts(ctx, recs)
	return &recs[0], nil
}

// Console returns a listing page together with the video holder.
func (s *ListingService) Console(ctx context.Context, params pagination.Params, filter ListFilter) (*ConsoleView, error) {
	recs, meta, err := s.List(ctx, params, filter)
	if err != nil {
		return nil, err
	}
	holder, err := s.GetVideoHolder(ctx)
	if err != nil {
		return nil, err
	}
	return &ConsoleView{Records: recs, Pagination: meta, VideoHolder: holder}, nil
}

// attachProducts resolves product names in one lookup. A failed lookup
// leaves names empty rather than failing the read.
func (s *ListingService) attachProducts(ctx context.Context, recs []domain.MediaRecord) {
	if len(recs) == 0 {
		return
	}
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ProductID)
	}

	names, err := s.products.GetNames(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to resolve product names",
			slog.Int("count", len(ids)),
			slog.String("error", err.Error()),
		)
	}
	for i := range recs {
		recs[i].Product = &domain.ProductRef{ID: recs[i].ProductID, Name: names[recs[i].ProductID]}
	}
}
