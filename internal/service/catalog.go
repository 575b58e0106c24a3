package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/repository"
	apperrors "github.com/riturajsingh8919/anti-romantic/pkg/errors"
	"github.com/riturajsingh8919/anti-romantic/pkg/pagination"
)

// ProductOptions bounds the page size of the storefront grid.
var ProductOptions = pagination.Options{DefaultLimit: 20, MaxLimit: 100}

// DefaultPickerLimit is the number of products offered by the console's
// product picker when the caller names no limit.
const DefaultPickerLimit = 100

// ProductQuery is the storefront grid query.
type ProductQuery struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	Size     string
	Sort     string
}

func (q ProductQuery) filter(params pagination.Params) (repository.ProductFilter, error) {
	f := repository.ProductFilter{
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Sort:     q.Sort,
		Offset:   params.Offset,
		Limit:    params.Limit,
	}
	if f.Sort == "" {
		f.Sort = domain.SortFeatured
	}
	if !domain.IsValidSort(f.Sort) {
		return f, apperrors.InvalidInput("sort must be one of: " + strings.Join(domain.ValidSorts(), ", "))
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return f, apperrors.InvalidInput("minPrice must not exceed maxPrice")
	}
	if c := strings.TrimSpace(q.Category); c != "" && c != domain.CategoryAll {
		f.Category = &c
	}
	if sz := strings.ToLower(strings.TrimSpace(q.Size)); sz != "" {
		if !domain.IsValidSize(sz) {
			return f, apperrors.InvalidInput("size must be one of: " + strings.Join(domain.ValidSizes(), ", "))
		}
		f.Size = &sz
	}
	return f, nil
}

// CatalogService serves the storefront: the product grid, product cards
// with their media, and the category menu.
type CatalogService struct {
	products    repository.ProductRepository
	media       repository.MediaRecordRepository
	placeholder string
	logger      *slog.Logger
}

// NewCatalogService creates a new catalog service. placeholder is the image
// shown for products without any media.
func NewCatalogService(products repository.ProductRepository, media repository.MediaRecordRepository, placeholder string, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		products:    products,
		media:       media,
		placeholder: placeholder,
		logger:      logger,
	}
}

// ListProducts returns one page of active products.
func (s *CatalogService) ListProducts(ctx context.Context, params pagination.Params, q ProductQuery) ([]domain.Product, pagination.Meta, error) {
	params = pagination.NewParams(params.Page, params.Limit, ProductOptions)
	f, err := q.filter(params)
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	products, total, err := s.products.List(ctx, f)
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("list products: %w", err)
	}
	return products, pagination.NewMeta(total, params), nil
}

// ListCards returns one page of product cards. Media lookup failures
// degrade to the products' own images.
func (s *CatalogService) ListCards(ctx context.Context, params pagination.Params, q ProductQuery) ([]domain.ProductCard, pagination.Meta, error) {
	products, meta, err := s.ListProducts(ctx, params, q)
	if err != nil {
		return nil, meta, err
	}

	byProduct := make(map[string]*domain.MediaRecord, len(products))
	if len(products) > 0 {
		ids := make([]string, len(products))
		for i, p := range products {
			ids[i] = p.ID
		}
		recs, err := s.media.ListByProductIDs(ctx, ids, true)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to load product media for storefront",
				slog.Int("products", len(ids)),
				slog.String("error", err.Error()),
			)
		}
		for i := range recs {
			byProduct[recs[i].ProductID] = &recs[i]
		}
	}

	cards := make([]domain.ProductCard, len(products))
	for i, p := range products {
		cards[i] = domain.BuildProductCard(p, byProduct[p.ID], s.placeholder)
	}
	return cards, meta, nil
}

// Categories returns the category menu, led by "all" with the number of
// active products.
func (s *CatalogService) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	counts, err := s.products.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	_, total, err := s.products.List(ctx, repository.ProductFilter{Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	out := make([]domain.CategoryCount, 0, len(counts)+1)
	out = append(out, domain.CategoryCount{Key: domain.CategoryAll, Label: domain.CategoryAll, Count: total})
	return append(out, counts...), nil
}

// ProductPicker lists product ids and names, newest first, for the
// console's product selector.
func (s *CatalogService) ProductPicker(ctx context.Context, limit int) ([]domain.ProductRef, error) {
	if limit <= 0 {
		limit = DefaultPickerLimit
	}
	limit = min(limit, ListOptions.MaxLimit)

	refs, err := s.products.ListRefs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list product refs: %w", err)
	}
	return refs, nil
}
