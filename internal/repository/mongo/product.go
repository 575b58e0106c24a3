package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/repository"
	"github.com/riturajsingh8919/anti-romantic/pkg/database"
)

type productDocument struct {
	ID           primitive.ObjectID    `bson:"_id"`
	Name         string                `bson:"name"`
	Slug         string                `bson:"slug"`
	Description  string                `bson:"description,omitempty"`
	Category     string                `bson:"category,omitempty"`
	Price        float64               `bson:"price"`
	ComparePrice float64               `bson:"comparePrice,omitempty"`
	Images       []domain.ProductImage `bson:"images,omitempty"`
	Sizes        []string              `bson:"sizes,omitempty"`
	TotalStock   int                   `bson:"totalStock"`
	IsFeatured   bool                  `bson:"isFeatured"`
	IsActive     bool                  `bson:"isActive"`
	CreatedAt    time.Time             `bson:"createdAt"`
	UpdatedAt    time.Time             `bson:"updatedAt"`
}

func (d productDocument) toDomain() domain.Product {
	return domain.Product{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Slug:         d.Slug,
		Description:  d.Description,
		Category:     d.Category,
		Price:        d.Price,
		ComparePrice: d.ComparePrice,
		Images:       d.Images,
		Sizes:        d.Sizes,
		TotalStock:   d.TotalStock,
		IsFeatured:   d.IsFeatured,
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Sort documents per storefront sort key.
var productSort = map[string]bson.D{
	domain.SortFeatured:     {{Key: "isFeatured", Value: -1}, {Key: "createdAt", Value: -1}},
	domain.SortPriceLowHigh: {{Key: "price", Value: 1}, {Key: "createdAt", Value: -1}},
	domain.SortPriceHighLow: {{Key: "price", Value: -1}, {Key: "createdAt", Value: -1}},
	domain.SortDateNewest:   {{Key: "createdAt", Value: -1}},
	domain.SortDateOldest:   {{Key: "createdAt", Value: 1}},
}

// ProductRepository implements repository.ProductRepository on MongoDB.
type ProductRepository struct {
	coll *mongo.Collection
}

// NewProductRepository creates a MongoDB-backed product repository.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(ProductCollection)}
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "products.get", ProductCollection+".findOne")
	defer func() { end(ignoreNotFound(err)) }()

	var doc productDocument
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	p := doc.toDomain()
	return &p, nil
}

// GetNames resolves product names by id.
func (r *ProductRepository) GetNames(ctx context.Context, ids []string) (_ map[string]string, err error) {
	names := make(map[string]string, len(ids))
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return names, nil
	}

	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "products.names", ProductCollection+".find")
	defer func() { end(err) }()

	opts := options.Find().SetProjection(bson.D{{Key: "name", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find product names: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc struct {
			ID   primitive.ObjectID `bson:"_id"`
			Name string             `bson:"name"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode product name: %w", err)
		}
		names[doc.ID.Hex()] = doc.Name
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate product names: %w", err)
	}
	return names, nil
}

// List returns active products matching the filter.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) (_ []domain.Product, _ int, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "products.list", ProductCollection+".find")
	defer func() { end(err) }()

	query := bson.D{{Key: "isActive", Value: true}}
	if filter.Category != nil {
		query = append(query, bson.E{Key: "category", Value: *filter.Category})
	}
	if filter.MinPrice != nil || filter.MaxPrice != nil {
		price := bson.D{}
		if filter.MinPrice != nil {
			price = append(price, bson.E{Key: "$gte", Value: *filter.MinPrice})
		}
		if filter.MaxPrice != nil {
			price = append(price, bson.E{Key: "$lte", Value: *filter.MaxPrice})
		}
		query = append(query, bson.E{Key: "price", Value: price})
	}
	if filter.Size != nil {
		query = append(query, bson.E{Key: "sizes", Value: *filter.Size})
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	sort, ok := productSort[filter.Sort]
	if !ok {
		sort = productSort[domain.SortFeatured]
	}
	opts := options.Find().SetSort(sort).SetSkip(int64(filter.Offset))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find products: %w", err)
	}
	defer cur.Close(ctx)

	products := []domain.Product{}
	for cur.Next(ctx) {
		var doc productDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("decode product: %w", err)
		}
		products = append(products, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}
	return products, int(total), nil
}

// ListRefs returns product ids and names, newest first.
func (r *ProductRepository) ListRefs(ctx context.Context, limit int) (_ []domain.ProductRef, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "products.refs", ProductCollection+".find")
	defer func() { end(err) }()

	opts := options.Find().
		SetProjection(bson.D{{Key: "name", Value: 1}}).
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find product refs: %w", err)
	}
	defer cur.Close(ctx)

	refs := []domain.ProductRef{}
	for cur.Next(ctx) {
		var doc struct {
			ID   primitive.ObjectID `bson:"_id"`
			Name string             `bson:"name"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode product ref: %w", err)
		}
		refs = append(refs, domain.ProductRef{ID: doc.ID.Hex(), Name: doc.Name})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate product refs: %w", err)
	}
	return refs, nil
}

// Categories counts active products per non-empty category.
func (r *ProductRepository) Categories(ctx context.Context) (_ []domain.CategoryCount, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "products.categories", ProductCollection+".aggregate")
	defer func() { end(err) }()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "isActive", Value: true},
			{Key: "category", Value: bson.D{{Key: "$nin", Value: bson.A{"", nil}}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate categories: %w", err)
	}
	defer cur.Close(ctx)

	counts := []domain.CategoryCount{}
	for cur.Next(ctx) {
		var row struct {
			Category string `bson:"_id"`
			Count    int    `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode category: %w", err)
		}
		counts = append(counts, domain.CategoryCount{Key: row.Category, Label: row.Category, Count: row.Count})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return counts, nil
}

// duplicateKeyCode is the server error code of a unique index violation.
const duplicateKeyCode = 11000

func productToDocument(p domain.Product) (productDocument, error) {
	oid, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		return productDocument{}, fmt.Errorf("product id %q is not an ObjectID", p.ID)
	}
	return productDocument{
		ID:           oid,
		Name:         p.Name,
		Slug:         p.Slug,
		Description:  p.Description,
		Category:     p.Category,
		Price:        p.Price,
		ComparePrice: p.ComparePrice,
		Images:       p.Images,
		Sizes:        p.Sizes,
		TotalStock:   p.TotalStock,
		IsFeatured:   p.IsFeatured,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}, nil
}

// Seed inserts products in batches of batchSize documents. Documents whose
// _id already exists are skipped. It returns the number inserted.
func (r *ProductRepository) Seed(ctx context.Context, products []domain.Product, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	written := 0
	for start := 0; start < len(products); start += batchSize {
		batch := products[start:min(start+batchSize, len(products))]
		docs := make([]any, 0, len(batch))
		for _, p := range batch {
			doc, err := productToDocument(p)
			if err != nil {
				return written, err
			}
			docs = append(docs, doc)
		}

		n, err := r.insertMany(ctx, docs)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (r *ProductRepository) insertMany(ctx context.Context, docs []any) (_ int, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "products.seed", ProductCollection+".insertMany")
	defer func() { end(err) }()

	res, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(res.InsertedIDs), nil
	}

	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) || bulkErr.WriteConcernError != nil {
		return 0, fmt.Errorf("insert products: %w", err)
	}
	for _, we := range bulkErr.WriteErrors {
		if we.Code != duplicateKeyCode {
			return 0, fmt.Errorf("insert products: %w", err)
		}
	}
	return len(docs) - len(bulkErr.WriteErrors), nil
}
