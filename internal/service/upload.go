package service

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/metrics"
	"github.com/riturajsingh8919/anti-romantic/internal/storage"
	apperrors "github.com/riturajsingh8919/anti-romantic/pkg/errors"
)

// folderPattern allows nested folder names of alphanumerics, hyphens and
// underscores.
var folderPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+(/[a-zA-Z0-9_-]+)*$`)

// UploadService sends console uploads to the remote media service.
type UploadService struct {
	storage storage.Storage
	logger  *slog.Logger
}

// NewUploadService creates a new upload service.
func NewUploadService(store storage.Storage, logger *slog.Logger) *UploadService {
	return &UploadService{storage: store, logger: logger}
}

// UploadInput holds one uploaded file.
type UploadInput struct {
	Folder      string
	FileName    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// Upload validates the file's type and size and stores it. The returned
// descriptor is what the console places in a create or update body.
func (s *UploadService) Upload(ctx context.Context, input *UploadInput) (*storage.UploadResult, error) {
	kind, err := domain.ValidateUpload(input.ContentType, input.Size)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	folder := strings.Trim(strings.TrimSpace(input.Folder), "/")
	if folder == "" {
		folder = domain.DefaultUploadFolder
	}
	if !folderPattern.MatchString(folder) {
		return nil, apperrors.InvalidInput("folder contains invalid characters")
	}

	res, err := s.storage.Upload(ctx, &storage.UploadInput{
		Folder:      folder,
		FileName:    input.FileName,
		ContentType: input.ContentType,
		Kind:        kind,
		Size:        input.Size,
		Data:        input.Data,
	})
	if err != nil {
		return nil, apperrors.UpstreamFailure("Failed to upload media", err)
	}

	metrics.Uploads.WithLabelValues(string(kind)).Inc()
	s.logger.InfoContext(ctx, "media uploaded",
		slog.String("external_id", res.ExternalID),
		slog.String("resource_type", string(kind)),
		slog.Int64("size", input.Size),
	)
	return res, nil
}
