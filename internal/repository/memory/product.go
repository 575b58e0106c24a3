package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/repository"
	"github.com/riturajsingh8919/anti-romantic/pkg/slug"
)

// ProductRepository implements repository.ProductRepository over a fixed
// in-memory catalog.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewProductRepository returns a repository holding products.
func NewProductRepository(products ...domain.Product) *ProductRepository {
	r := &ProductRepository{products: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		r.Add(p)
	}
	return r
}

// Add inserts or replaces p. A missing slug is derived from the name.
func (r *ProductRepository) Add(p domain.Product) {
	if p.Slug == "" {
		p.Slug = slug.Generate(p.Name)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	r.mu.Lock()
	r.products[p.ID] = p
	r.mu.Unlock()
}

// LoadProductsJSON adds every product of a JSON array read from src and
// returns how many were loaded.
func (r *ProductRepository) LoadProductsJSON(src io.Reader) (int, error) {
	var products []domain.Product
	if err := json.NewDecoder(src).Decode(&products); err != nil {
		return 0, fmt.Errorf("decode product seed: %w", err)
	}
	for _, p := range products {
		if p.ID == "" {
			return 0, fmt.Errorf("product seed: product %q has no _id", p.Name)
		}
		r.Add(p)
	}
	return len(products), nil
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *ProductRepository) GetNames(_ context.Context, ids []string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make(map[string]string, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			names[id] = p.Name
		}
	}
	return names, nil
}

func (r *ProductRepository) List(_ context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	r.mu.RLock()
	matched := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if matches(p, filter) {
			matched = append(matched, p)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, productOrder(filter.Sort))

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

func (r *ProductRepository) ListRefs(_ context.Context, limit int) ([]domain.ProductRef, error) {
	r.mu.RLock()
	all := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		all = append(all, p)
	}
	r.mu.RUnlock()

	slices.SortFunc(all, productOrder(domain.SortDateNewest))
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	refs := make([]domain.ProductRef, 0, len(all))
	for _, p := range all {
		refs = append(refs, *p.Ref())
	}
	return refs, nil
}

func (r *ProductRepository) Categories(_ context.Context) ([]domain.CategoryCount, error) {
	r.mu.RLock()
	counts := make(map[string]int)
	for _, p := range r.products {
		if p.IsActive && p.Category != "" {
			counts[p.Category]++
		}
	}
	r.mu.RUnlock()

	out := make([]domain.CategoryCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, domain.CategoryCount{Key: key, Label: key, Count: n})
	}
	slices.SortFunc(out, func(a, b domain.CategoryCount) int { return cmp.Compare(a.Key, b.Key) })
	return out, nil
}

func matches(p domain.Product, f repository.ProductFilter) bool {
	if !p.IsActive {
		return false
	}
	if f.Category != nil && p.Category != *f.Category {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.Size != nil && !slices.Contains(p.Sizes, *f.Size) {
		return false
	}
	return true
}

func productOrder(sort string) func(a, b domain.Product) int {
	newest := func(a, b domain.Product) int { return b.CreatedAt.Compare(a.CreatedAt) }
	switch sort {
	case domain.SortPriceLowHigh:
		return func(a, b domain.Product) int { return cmp.Or(cmp.Compare(a.Price, b.Price), newest(a, b)) }
	case domain.SortPriceHighLow:
		return func(a, b domain.Product) int { return cmp.Or(cmp.Compare(b.Price, a.Price), newest(a, b)) }
	case domain.SortDateNewest:
		return newest
	case domain.SortDateOldest:
		return func(a, b domain.Product) int { return a.CreatedAt.Compare(b.CreatedAt) }
	default:
		return func(a, b domain.Product) int {
			if a.IsFeatured != b.IsFeatured {
				if a.IsFeatured {
					return -1
				}
				return 1
			}
			return newest(a, b)
		}
	}
}
