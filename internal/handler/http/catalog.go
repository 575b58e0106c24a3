package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/riturajsingh8919/anti-romantic/internal/service"
	"github.com/riturajsingh8919/anti-romantic/pkg/httputil"
	"github.com/riturajsingh8919/anti-romantic/pkg/pagination"
)

// CatalogHandler serves the storefront product grid, product cards and
// category menu, plus the console's product picker.
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(catalog *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// ListProducts handles GET /api/products.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q, ok := productQuery(w, r)
	if !ok {
		return
	}

	products, meta, err := h.catalog.ListProducts(r.Context(), pagination.FromRequest(r, service.ProductOptions), q)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch products", h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(products, meta))
}

// ListCards handles GET /api/store/products.
func (h *CatalogHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	q, ok := productQuery(w, r)
	if !ok {
		return
	}

	cards, meta, err := h.catalog.ListCards(r.Context(), pagination.FromRequest(r, service.ProductOptions), q)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch products", h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(cards, meta))
}

// Categories handles GET /api/categories.
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch categories", h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, cats, "")
}

// ProductPicker handles GET /api/admin/products.
func (h *CatalogHandler) ProductPicker(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeInvalidParameter(w, "limit must be a valid positive integer")
			return
		}
		limit = n
	}

	refs, err := h.catalog.ProductPicker(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch products", h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, refs, "")
}

// productQuery parses the storefront filters. Malformed prices are
// rejected here; the service validates sort, size and the price range.
func productQuery(w http.ResponseWriter, r *http.Request) (service.ProductQuery, bool) {
	v := r.URL.Query()
	q := service.ProductQuery{
		Category: v.Get("category"),
		Size:     v.Get("size"),
		Sort:     v.Get("sort"),
	}

	for _, p := range []struct {
		name string
		dst  **float64
	}{
		{"minPrice", &q.MinPrice},
		{"maxPrice", &q.MaxPrice},
	} {
		raw := v.Get(p.name)
		if raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 {
			writeInvalidParameter(w, p.name+" must be a non-negative number")
			return q, false
		}
		*p.dst = &f
	}
	return q, true
}
