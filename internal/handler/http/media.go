package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/service"
	"github.com/riturajsingh8919/anti-romantic/pkg/httputil"
	"github.com/riturajsingh8919/anti-romantic/pkg/pagination"
	"github.com/riturajsingh8919/anti-romantic/pkg/validator"
)

// MediaHandler handles HTTP requests of the admin image manager.
type MediaHandler struct {
	media   *service.MediaService
	listing *service.ListingService
	logger  *slog.Logger
}

// NewMediaHandler creates a new image manager HTTP handler.
func NewMediaHandler(media *service.MediaService, listing *service.ListingService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		media:   media,
		listing: listing,
		logger:  logger,
	}
}

// --- Response envelopes ---

type videoStatusResponse struct {
	Success          bool                `json:"success"`
	ProductWithVideo *domain.MediaRecord `json:"productWithVideo"`
}

type consoleResponse struct {
	Success bool `json:"success"`
	*service.ConsoleView
}

// --- Handlers ---

// ListRecords handles GET /api/admin/image-manager.
func (h *MediaHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r, service.ListOptions)

	recs, meta, err := h.listing.List(r.Context(), params, listFilter(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch product image managers", h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(recs, meta))
}

// Console handles GET /api/admin/image-manager/console.
func (h *MediaHandler) Console(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r, service.ListOptions)

	view, err := h.listing.Console(r.Context(), params, listFilter(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch product image managers", h.logger)
		return
	}
	if view.Records == nil {
		view.Records = []domain.MediaRecord{}
	}

	httputil.WriteJSON(w, http.StatusOK, consoleResponse{Success: true, ConsoleView: view})
}

// VideoStatus handles GET /api/admin/image-manager/video-status.
func (h *MediaHandler) VideoStatus(w http.ResponseWriter, r *http.Request) {
	holder, err := h.listing.GetVideoHolder(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to check video status", h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, videoStatusResponse{Success: true, ProductWithVideo: holder})
}

// CreateRecord handles POST /api/admin/image-manager.
func (h *MediaHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateMediaRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	rec, err := h.media.Create(r.Context(), &service.CreateMediaInput{
		ProductID:  req.ProductID,
		MediaInput: req.toInput(),
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to create product image manager", h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, rec, "Product image manager created successfully")
}

// UpdateRecord handles PUT /api/admin/image-manager. The record id travels
// in the body as _id.
func (h *MediaHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req UpdateMediaRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	rec, err := h.media.Update(r.Context(), &service.UpdateMediaInput{
		ID:         req.ID,
		MediaInput: req.toInput(),
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to update product image manager", h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, rec, "Product image manager updated successfully")
}

// DeleteRecord handles DELETE /api/admin/image-manager/{id}.
func (h *MediaHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.media.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "Failed to delete product image manager", h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, nil, "Product image manager deleted successfully")
}

// DeleteRemoteAsset handles DELETE /api/admin/media/{id}. Public ids that
// contain folders arrive path-escaped ("folder%2Fname").
func (h *MediaHandler) DeleteRemoteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		writeInvalidParameter(w, "media id is not a valid path segment")
		return
	}

	if err := h.media.DeleteRemoteAsset(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "Failed to delete media", h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, nil, "Media deleted successfully")
}

// listFilter reads the optional productId and isActive filters. Any
// isActive value other than "true" filters for inactive records.
func listFilter(r *http.Request) service.ListFilter {
	q := r.URL.Query()
	var f service.ListFilter
	if pid := strings.TrimSpace(q.Get("productId")); pid != "" {
		f.ProductID = &pid
	}
	if v := q.Get("isActive"); v != "" {
		active := v == "true"
		f.IsActive = &active
	}
	return f
}
