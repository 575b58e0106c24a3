package http

import (
	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/service"
)

// --- Request DTOs ---

// ImageAssetRequest is an image descriptor as returned by the upload
// endpoint.
type ImageAssetRequest struct {
	URL        string `json:"url" validate:"max=2048"`
	ExternalID string `json:"externalId" validate:"max=512"`
	AltText    string `json:"altText" validate:"max=300"`
	Width      int    `json:"width" validate:"gte=0"`
	Height     int    `json:"height" validate:"gte=0"`
	Format     string `json:"format" validate:"max=20"`
	ByteSize   int64  `json:"byteSize" validate:"gte=0"`
}

// VideoAssetRequest is a video descriptor as returned by the upload
// endpoint.
type VideoAssetRequest struct {
	URL        string  `json:"url" validate:"max=2048"`
	ExternalID string  `json:"externalId" validate:"max=512"`
	Duration   float64 `json:"duration" validate:"gte=0"`
	Format     string  `json:"format" validate:"max=20"`
	ByteSize   int64   `json:"byteSize" validate:"gte=0"`
	Width      int     `json:"width" validate:"gte=0"`
	Height     int     `json:"height" validate:"gte=0"`
}

// MediaRequest carries the media pair of a create or update body. The
// normalVideo and normalImage keys sent by older console builds are
// accepted as aliases.
type MediaRequest struct {
	DefaultVideo *VideoAssetRequest `json:"defaultVideo" validate:"omitempty"`
	DefaultImage *ImageAssetRequest `json:"defaultImage" validate:"omitempty"`
	NormalVideo  *VideoAssetRequest `json:"normalVideo" validate:"omitempty"`
	NormalImage  *ImageAssetRequest `json:"normalImage" validate:"omitempty"`
	HoverImage   *ImageAssetRequest `json:"hoverImage" validate:"omitempty"`
	IsActive     *bool              `json:"isActive"`
}

// CreateMediaRequest is the JSON body of POST /image-manager.
type CreateMediaRequest struct {
	ProductID string `json:"productId" validate:"max=64"`
	MediaRequest
}

// UpdateMediaRequest is the JSON body of PUT /image-manager.
type UpdateMediaRequest struct {
	ID string `json:"_id" validate:"max=64"`
	MediaRequest
}

func (r *ImageAssetRequest) toDomain() *domain.ImageAsset {
	if r == nil {
		return nil
	}
	return &domain.ImageAsset{
		URL:        r.URL,
		ExternalID: r.ExternalID,
		AltText:    r.AltText,
		Width:      r.Width,
		Height:     r.Height,
		Format:     r.Format,
		ByteSize:   r.ByteSize,
	}
}

func (r *VideoAssetRequest) toDomain() *domain.VideoAsset {
	if r == nil {
		return nil
	}
	return &domain.VideoAsset{
		URL:        r.URL,
		ExternalID: r.ExternalID,
		Duration:   r.Duration,
		Format:     r.Format,
		ByteSize:   r.ByteSize,
		Width:      r.Width,
		Height:     r.Height,
	}
}

func (r *MediaRequest) toInput() service.MediaInput {
	video, image := r.DefaultVideo, r.DefaultImage
	if video == nil {
		video = r.NormalVideo
	}
	if image == nil {
		image = r.NormalImage
	}
	return service.MediaInput{
		DefaultVideo: video.toDomain(),
		DefaultImage: image.toDomain(),
		HoverImage:   r.HoverImage.toDomain(),
		IsActive:     r.IsActive,
	}
}
