package domain

import (
	"fmt"
	"strings"
)

// Upload size limits per media kind.
const (
	MaxImageSize int64 = 10 * 1024 * 1024
	MaxVideoSize int64 = 50 * 1024 * 1024
)

// DefaultUploadFolder is the remote folder used when the caller names none.
const DefaultUploadFolder = "product-image-manager"

var allowedContentTypes = map[string]MediaKind{
	"image/jpeg":      KindImage,
	"image/png":       KindImage,
	"image/webp":      KindImage,
	"image/gif":       KindImage,
	"image/avif":      KindImage,
	"video/mp4":       KindVideo,
	"video/webm":      KindVideo,
	"video/ogg":       KindVideo,
	"video/quicktime": KindVideo,
	"video/mov":       KindVideo,
	"video/avi":       KindVideo,
	"video/x-msvideo": KindVideo,
}

// KindForContentType maps an upload content type to the media kind it is
// stored as. Parameters such as "; charset=" are ignored.
func KindForContentType(contentType string) (MediaKind, bool) {
	mediaType, _, _ := strings.Cut(contentType, ";")
	kind, ok := allowedContentTypes[strings.TrimSpace(strings.ToLower(mediaType))]
	return kind, ok
}

// MaxSize returns the upload size limit for k.
func (k MediaKind) MaxSize() int64 {
	if k == KindVideo {
		return MaxVideoSize
	}
	return MaxImageSize
}

// ValidateUpload checks an upload's content type and size and returns the
// kind it will be stored as.
func ValidateUpload(contentType string, size int64) (MediaKind, error) {
	kind, ok := KindForContentType(contentType)
	if !ok {
		return "", fmt.Errorf("invalid file type %q: only images and videos are allowed", contentType)
	}
	if size <= 0 {
		return "", fmt.Errorf("file is empty")
	}
	if size > kind.MaxSize() {
		return "", fmt.Errorf("file too large: maximum size is %dMB for %ss", kind.MaxSize()/(1024*1024), kind)
	}
	return kind, nil
}
