package domain

import (
	"slices"
	"time"
)

// Storefront sort keys.
const (
	SortFeatured     = "featured"
	SortPriceLowHigh = "price-low-high"
	SortPriceHighLow = "price-high-low"
	SortDateNewest   = "date-newest"
	SortDateOldest   = "date-oldest"
)

// CategoryAll is the pseudo category that matches every product.
const CategoryAll = "all"

// ValidSorts returns the accepted storefront sort keys.
func ValidSorts() []string {
	return []string{SortFeatured, SortPriceLowHigh, SortPriceHighLow, SortDateNewest, SortDateOldest}
}

// IsValidSort checks whether sort is a known storefront sort key.
func IsValidSort(sort string) bool {
	return slices.Contains(ValidSorts(), sort)
}

// ValidSizes returns the garment sizes the storefront filters on.
func ValidSizes() []string {
	return []string{"xs", "s", "m", "l", "xl", "2xl"}
}

// IsValidSize checks whether size is a known garment size.
func IsValidSize(size string) bool {
	return slices.Contains(ValidSizes(), size)
}

// ProductImage is one of the product's own catalog images.
type ProductImage struct {
	URL string `json:"url" bson:"url"`
	Alt string `json:"alt,omitempty" bson:"alt,omitempty"`
}

// Product is a catalog product. Products are owned by the catalog; this
// service only reads them.
type Product struct {
	ID           string         `json:"_id"`
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	Description  string         `json:"description,omitempty"`
	Category     string         `json:"category,omitempty"`
	Price        float64        `json:"price"`
	ComparePrice float64        `json:"comparePrice,omitempty"`
	Images       []ProductImage `json:"images"`
	Sizes        []string       `json:"sizes,omitempty"`
	TotalStock   int            `json:"totalStock"`
	IsFeatured   bool           `json:"isFeatured"`
	IsActive     bool           `json:"isActive"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Ref returns the display identity of p.
func (p *Product) Ref() *ProductRef {
	return &ProductRef{ID: p.ID, Name: p.Name}
}

// FirstImage returns the product's first catalog image, if any.
func (p *Product) FirstImage() (ProductImage, bool) {
	if len(p.Images) == 0 {
		return ProductImage{}, false
	}
	return p.Images[0], true
}

// CategoryCount is one entry of the storefront category menu.
type CategoryCount struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CardMedia is the media shown on a storefront product card.
type CardMedia struct {
	Type    MediaKind `json:"type"`
	URL     string    `json:"url"`
	AltText string    `json:"altText"`
}

// ProductCard is a product with its resolved storefront media.
type ProductCard struct {
	Product
	DefaultMedia CardMedia  `json:"defaultMedia"`
	HoverMedia   *CardMedia `json:"hoverMedia,omitempty"`
	HasVideo     bool       `json:"hasVideo"`
}

// BuildProductCard picks the default and hover media for p. With no active
// record the card shows the product's first image, then placeholder.
func BuildProductCard(p Product, rec *MediaRecord, placeholder string) ProductCard {
	card := ProductCard{Product: p}

	first, hasFirst := p.FirstImage()
	alt := p.Name
	if hasFirst && first.Alt != "" {
		alt = first.Alt
	}

	if rec != nil && rec.IsActive {
		if v := rec.DefaultVideo(); v.Present() {
			card.DefaultMedia = CardMedia{Type: KindVideo, URL: v.URL, AltText: alt}
			card.HasVideo = true
		} else if img := rec.DefaultImage(); img.Present() {
			if img.AltText != "" {
				alt = img.AltText
			}
			card.DefaultMedia = CardMedia{Type: KindImage, URL: img.URL, AltText: alt}
		}
		if rec.Hover.Present() {
			hoverAlt := rec.Hover.AltText
			if hoverAlt == "" {
				hoverAlt = p.Name
			}
			card.HoverMedia = &CardMedia{Type: KindImage, URL: rec.Hover.URL, AltText: hoverAlt}
		}
	}

	if card.DefaultMedia.URL == "" {
		url := placeholder
		if hasFirst && first.URL != "" {
			url = first.URL
		}
		card.DefaultMedia = CardMedia{Type: KindImage, URL: url, AltText: alt}
	}
	return card
}
