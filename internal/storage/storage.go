package storage

import (
	"context"
	"errors"
	"io"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
)

// ErrEmptyID is returned by Destroy when no asset id is given.
var ErrEmptyID = errors.New("asset id is required")

// Storage is the remote media service holding uploaded images and videos.
type Storage interface {
	// Upload stores a file and returns its descriptor.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Destroy removes the asset stored under externalID as the given kind.
	// It reports false without an error when the service answered but did
	// not delete anything, e.g. because the asset does not exist under
	// that kind.
	Destroy(ctx context.Context, externalID string, kind domain.MediaKind) (bool, error)
}

// UploadInput holds the parameters for uploading a file.
type UploadInput struct {
	Folder      string
	FileName    string
	ContentType string
	Kind        domain.MediaKind
	Size        int64
	Data        io.Reader
}

// UploadResult describes a stored asset.
type UploadResult struct {
	ExternalID   string           `json:"externalId"`
	URL          string           `json:"url"`
	Format       string           `json:"format,omitempty"`
	ByteSize     int64            `json:"byteSize"`
	Width        int              `json:"width,omitempty"`
	Height       int              `json:"height,omitempty"`
	ResourceType domain.MediaKind `json:"resourceType"`
}
