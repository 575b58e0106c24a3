package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MediaKind distinguishes the two remote asset types.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// Validation failures of the default/hover media pair.
var (
	ErrDefaultMediaRequired = errors.New("either default video or default image is required")
	ErrDefaultMediaConflict = errors.New("cannot have both default video and default image")
	ErrHoverImageRequired   = errors.New("hover image is required")
)

// VideoAsset describes a video stored on the remote media service.
type VideoAsset struct {
	URL        string  `json:"url" bson:"url"`
	ExternalID string  `json:"externalId,omitempty" bson:"externalId,omitempty"`
	Duration   float64 `json:"duration,omitempty" bson:"duration,omitempty"`
	Format     string  `json:"format,omitempty" bson:"format,omitempty"`
	ByteSize   int64   `json:"byteSize,omitempty" bson:"byteSize,omitempty"`
	Width      int     `json:"width,omitempty" bson:"width,omitempty"`
	Height     int     `json:"height,omitempty" bson:"height,omitempty"`
}

// ImageAsset describes an image stored on the remote media service.
type ImageAsset struct {
	URL        string `json:"url" bson:"url"`
	ExternalID string `json:"externalId,omitempty" bson:"externalId,omitempty"`
	AltText    string `json:"altText,omitempty" bson:"altText,omitempty"`
	Width      int    `json:"width,omitempty" bson:"width,omitempty"`
	Height     int    `json:"height,omitempty" bson:"height,omitempty"`
	Format     string `json:"format,omitempty" bson:"format,omitempty"`
	ByteSize   int64  `json:"byteSize,omitempty" bson:"byteSize,omitempty"`
}

// AssetRef is a weak reference to a remote asset.
type AssetRef struct {
	ExternalID string    `json:"externalId,omitempty"`
	URL        string    `json:"url"`
	Kind       MediaKind `json:"kind"`
}

// Key identifies the asset on the remote service: the external id when
// known, else the URL.
func (a AssetRef) Key() string {
	if a.ExternalID != "" {
		return a.ExternalID
	}
	return a.URL
}

// SameAsset reports whether a and b point at the same remote object. The
// external ids decide when both are known, otherwise the URLs.
func SameAsset(a, b AssetRef) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.ExternalID != "" && b.ExternalID != "" {
		return a.ExternalID == b.ExternalID
	}
	return a.URL == b.URL
}

// Present reports whether v carries a usable URL.
func (v *VideoAsset) Present() bool {
	return v != nil && strings.TrimSpace(v.URL) != ""
}

// Present reports whether i carries a usable URL.
func (i *ImageAsset) Present() bool {
	return i != nil && strings.TrimSpace(i.URL) != ""
}

func (v *VideoAsset) Ref() AssetRef {
	return AssetRef{ExternalID: v.ExternalID, URL: v.URL, Kind: KindVideo}
}

func (i *ImageAsset) Ref() AssetRef {
	return AssetRef{ExternalID: i.ExternalID, URL: i.URL, Kind: KindImage}
}

// DefaultMedia is the primary media of a record: either a *VideoAsset or an
// *ImageAsset, never both. Build it with NewDefaultMedia.
type DefaultMedia interface {
	Kind() MediaKind
	Ref() AssetRef
	defaultMedia()
}

func (*VideoAsset) Kind() MediaKind { return KindVideo }
func (*ImageAsset) Kind() MediaKind { return KindImage }
func (*VideoAsset) defaultMedia()   {}
func (*ImageAsset) defaultMedia()   {}

// NewDefaultMedia returns whichever of video and image is present. Exactly
// one must be.
func NewDefaultMedia(video *VideoAsset, image *ImageAsset) (DefaultMedia, error) {
	switch hasVideo, hasImage := video.Present(), image.Present(); {
	case hasVideo && hasImage:
		return nil, ErrDefaultMediaConflict
	case hasVideo:
		v := *video
		return &v, nil
	case hasImage:
		img := *image
		return &img, nil
	default:
		return nil, ErrDefaultMediaRequired
	}
}

// ProductRef is the product identity shown next to a record.
type ProductRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// MediaRecord is the default/hover media pair of one product.
type MediaRecord struct {
	ID        string
	ProductID string
	// Product is resolved for display and is not persisted.
	Product   *ProductRef
	Default   DefaultMedia
	Hover     ImageAsset
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasVideo reports whether the record holds the catalog's video slot.
func (m *MediaRecord) HasVideo() bool {
	return m.Default != nil && m.Default.Kind() == KindVideo
}

// DefaultVideo returns the default video or nil.
func (m *MediaRecord) DefaultVideo() *VideoAsset {
	v, _ := m.Default.(*VideoAsset)
	return v
}

// DefaultImage returns the default image or nil.
func (m *MediaRecord) DefaultImage() *ImageAsset {
	img, _ := m.Default.(*ImageAsset)
	return img
}

// Assets lists the remote assets the record references, default first.
func (m *MediaRecord) Assets() []AssetRef {
	refs := make([]AssetRef, 0, 2)
	if m.Default != nil {
		refs = append(refs, m.Default.Ref())
	}
	if m.Hover.Present() {
		refs = append(refs, m.Hover.Ref())
	}
	return refs
}

// Validate checks the default and hover media of m.
func (m *MediaRecord) Validate() error {
	if m.Default == nil {
		return ErrDefaultMediaRequired
	}
	if _, err := NewDefaultMedia(m.DefaultVideo(), m.DefaultImage()); err != nil {
		return err
	}
	if !m.Hover.Present() {
		return ErrHoverImageRequired
	}
	return nil
}

// ProductName returns the resolved product name, or "" when unresolved.
func (m *MediaRecord) ProductName() string {
	if m.Product == nil {
		return ""
	}
	return m.Product.Name
}

type mediaRecordJSON struct {
	ID           string          `json:"_id"`
	ProductID    json.RawMessage `json:"productId"`
	DefaultVideo *VideoAsset     `json:"defaultVideo,omitempty"`
	DefaultImage *ImageAsset     `json:"defaultImage,omitempty"`
	HoverImage   ImageAsset      `json:"hoverImage"`
	HasVideo     bool            `json:"hasVideo"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// MarshalJSON renders the record with productId populated as {_id, name}.
func (m MediaRecord) MarshalJSON() ([]byte, error) {
	ref := ProductRef{ID: m.ProductID}
	if m.Product != nil {
		ref.Name = m.Product.Name
	}
	product, err := json.Marshal(ref)
	if err != nil {
		return nil, err
	}

	return json.Marshal(mediaRecordJSON{
		ID:           m.ID,
		ProductID:    product,
		DefaultVideo: m.DefaultVideo(),
		DefaultImage: m.DefaultImage(),
		HoverImage:   m.Hover,
		HasVideo:     m.HasVideo(),
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	})
}

// UnmarshalJSON accepts productId either as a plain id or as {_id, name}.
func (m *MediaRecord) UnmarshalJSON(data []byte) error {
	var raw mediaRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ref, err := ParseProductRef(raw.ProductID)
	if err != nil {
		return err
	}
	def, err := NewDefaultMedia(raw.DefaultVideo, raw.DefaultImage)
	if err != nil {
		return fmt.Errorf("media record %s: %w", raw.ID, err)
	}

	*m = MediaRecord{
		ID:        raw.ID,
		ProductID: ref.ID,
		Default:   def,
		Hover:     raw.HoverImage,
		IsActive:  raw.IsActive,
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
	}
	if ref.Name != "" {
		m.Product = &ref
	}
	return nil
}

// ParseProductRef decodes a product reference written either as a JSON
// string or as an object with an _id field.
func ParseProductRef(raw json.RawMessage) (ProductRef, error) {
	var ref ProductRef
	if len(raw) == 0 || string(raw) == "null" {
		return ref, nil
	}

	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		ref.ID = id
		return ref, nil
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return ref, fmt.Errorf("productId must be a string or an object with _id")
	}
	return ref, nil
}
