// Package seed generates a deterministic storefront catalog for local
// development and load tests.
package seed

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/pkg/slug"
)

// Options controls catalog generation.
type Options struct {
	Count int
	// Seed makes runs reproducible: the same seed yields the same catalog.
	Seed uint64
	// Now anchors createdAt; products are spread over the 90 days before it.
	Now time.Time
	// ImageCount is the number of /store/productN.png images to rotate
	// through.
	ImageCount int
}

type category struct {
	key   string
	types []string
	sized bool
}

var categories = []category{
	{key: "shirts", types: []string{"Linen Shirt", "Poplin Shirt", "Overshirt", "Oxford Shirt"}, sized: true},
	{key: "coats", types: []string{"Wool Coat", "Trench Coat", "Car Coat", "Quilted Jacket"}, sized: true},
	{key: "dresses", types: []string{"Slip Dress", "Shirt Dress", "Wrap Dress", "Knit Dress"}, sized: true},
	{key: "knitwear", types: []string{"Mohair Cardigan", "Cable Sweater", "Ribbed Vest", "Merino Polo"}, sized: true},
	{key: "trousers", types: []string{"Pleated Trousers", "Wide Leg Jeans", "Cargo Pants", "Tailored Shorts"}, sized: true},
	{key: "accessories", types: []string{"Silk Scarf", "Leather Belt", "Tote Bag", "Wool Beanie"}},
}

var (
	prefixes = []string{"Faded", "Raw", "Oversized", "Cropped", "Washed", "Boxy", "Relaxed", "Heavy"}
	colors   = []string{"Black", "Ecru", "Charcoal", "Olive", "Rust", "Navy", "Bone", "Oxblood"}
	blurbs   = []string{
		"A %s cut for everyday wear.",
		"Our take on the classic %s, in a heavier fabric.",
		"The %s, garment dyed and pre-washed.",
	}
)

// ProductID returns the stable id of the i-th generated product. It is a
// 24 character hex string, valid both as a Mongo ObjectID and as a
// Postgres text key.
func ProductID(i int) string {
	h := sha256.Sum256(fmt.Appendf(nil, "anti-romantic-product:%d", i))
	return hex.EncodeToString(h[:12])
}

// Generate returns opts.Count products spread evenly over the categories.
func Generate(opts Options) []domain.Product {
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}
	if opts.ImageCount <= 0 {
		opts.ImageCount = 8
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)) // #nosec G404 -- fixture data
	sizes := domain.ValidSizes()

	products := make([]domain.Product, 0, opts.Count)
	for i := range opts.Count {
		cat := categories[i%len(categories)]
		productType := cat.types[rng.IntN(len(cat.types))]
		name := fmt.Sprintf("%s %s - %s", prefixes[rng.IntN(len(prefixes))], productType, colors[rng.IntN(len(colors))])

		// Whole currency units between 49 and 899.
		price := float64(49 + rng.IntN(851))
		var compare float64
		if rng.Float64() < 0.3 {
			compare = float64(int(price * (1.1 + rng.Float64()*0.4)))
		}

		var productSizes []string
		if cat.sized {
			from := rng.IntN(2)
			productSizes = append([]string(nil), sizes[from:from+3+rng.IntN(3)]...)
		}

		age := time.Duration(rng.IntN(90*24*60)) * time.Minute
		createdAt := opts.Now.Add(-age).Truncate(time.Second)

		products = append(products, domain.Product{
			ID:           ProductID(i),
			Name:         name,
			Slug:         fmt.Sprintf("%s-%d", slug.Generate(name), i),
			Description:  fmt.Sprintf(blurbs[rng.IntN(len(blurbs))], productType),
			Category:     cat.key,
			Price:        price,
			ComparePrice: compare,
			Images: []domain.ProductImage{{
				URL: fmt.Sprintf("/store/product%d.png", i%opts.ImageCount+1),
				Alt: name,
			}},
			Sizes:      productSizes,
			TotalStock: rng.IntN(120),
			IsFeatured: rng.IntN(10) == 0,
			// Roughly one product in twenty is hidden from the storefront.
			IsActive:  rng.IntN(20) != 0,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		})
	}
	return products
}
