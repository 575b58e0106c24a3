package http

import (
	"log/slog"
	"net/http"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/service"
	"github.com/riturajsingh8919/anti-romantic/pkg/httputil"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// UploadHandler handles console uploads to the remote media service.
type UploadHandler struct {
	uploads *service.UploadService
	logger  *slog.Logger
}

// NewUploadHandler creates a new upload HTTP handler.
func NewUploadHandler(uploads *service.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, logger: logger}
}

// Upload handles POST /api/admin/media/upload (multipart/form-data with a
// "file" part and an optional "folder" field).
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Add 1MB overhead for form fields.
	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxVideoSize+(1<<20))

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: "failed to parse multipart form: " + err.Error(),
			Code:  "INVALID_INPUT",
		})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: "No file provided",
			Code:  "INVALID_INPUT",
		})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	res, err := h.uploads.Upload(r.Context(), &service.UploadInput{
		Folder:      r.FormValue("folder"),
		FileName:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Data:        file,
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to upload media", h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, res, "Media uploaded successfully")
}
