// Package mongo implements the repositories on MongoDB. Media records live
// in the product_media collection, catalog products in products.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/repository"
	"github.com/riturajsingh8919/anti-romantic/pkg/database"
)

// Collection and index names.
const (
	MediaCollection   = "product_media"
	ProductCollection = "products"

	indexProductUnique = "productId_unique"
	indexVideoSlot     = "video_slot_unique"
	indexCreatedAt     = "createdAt_desc"
)

type mediaDocument struct {
	ID           primitive.ObjectID `bson:"_id"`
	ProductID    primitive.ObjectID `bson:"productId"`
	DefaultVideo *domain.VideoAsset `bson:"defaultVideo,omitempty"`
	DefaultImage *domain.ImageAsset `bson:"defaultImage,omitempty"`
	HoverImage   domain.ImageAsset  `bson:"hoverImage"`
	HasVideo     bool               `bson:"hasVideo"`
	IsActive     bool               `bson:"isActive"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func toMediaDocument(rec *domain.MediaRecord) (mediaDocument, error) {
	id, err := primitive.ObjectIDFromHex(rec.ID)
	if err != nil {
		return mediaDocument{}, fmt.Errorf("media record id %q: %w", rec.ID, err)
	}
	productID, err := primitive.ObjectIDFromHex(rec.ProductID)
	if err != nil {
		return mediaDocument{}, fmt.Errorf("product id %q: %w", rec.ProductID, err)
	}
	return mediaDocument{
		ID:           id,
		ProductID:    productID,
		DefaultVideo: rec.DefaultVideo(),
		DefaultImage: rec.DefaultImage(),
		HoverImage:   rec.Hover,
		HasVideo:     rec.HasVideo(),
		IsActive:     rec.IsActive,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

func (d mediaDocument) toDomain() (*domain.MediaRecord, error) {
	def, err := domain.NewDefaultMedia(d.DefaultVideo, d.DefaultImage)
	if err != nil {
		return nil, fmt.Errorf("media record %s: %w", d.ID.Hex(), err)
	}
	return &domain.MediaRecord{
		ID:        d.ID.Hex(),
		ProductID: d.ProductID.Hex(),
		Default:   def,
		Hover:     d.HoverImage,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

// MediaRecordRepository implements repository.MediaRecordRepository on
// MongoDB. The partial unique index on hasVideo makes the video slot a
// storage-level constraint.
type MediaRecordRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

// NewMediaRecordRepository creates a MongoDB-backed media record repository.
func NewMediaRecordRepository(db *mongo.Database) *MediaRecordRepository {
	return &MediaRecordRepository{db: db, coll: db.Collection(MediaCollection)}
}

// EnsureIndexes creates the uniqueness and ordering indexes. It is safe to
// call on every start.
func (r *MediaRecordRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "productId", Value: 1}},
			Options: options.Index().SetName(indexProductUnique).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "hasVideo", Value: 1}},
			Options: options.Index().
				SetName(indexVideoSlot).
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "hasVideo", Value: true}}),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName(indexCreatedAt),
		},
	})
	if err != nil {
		return fmt.Errorf("create %s indexes: %w", MediaCollection, err)
	}
	return nil
}

// Create inserts a new media record.
func (r *MediaRecordRepository) Create(ctx context.Context, rec *domain.MediaRecord) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "product_media.insert", MediaCollection+".insertOne")
	defer func() { end(err) }()

	if rec.ID == "" {
		rec.ID = primitive.NewObjectID().Hex()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.UpdatedAt = rec.CreatedAt

	doc, err := toMediaDocument(rec)
	if err != nil {
		return err
	}
	if _, err = r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert media record: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a media record by its ID. Malformed IDs are not found.
func (r *MediaRecordRepository) GetByID(ctx context.Context, id string) (*domain.MediaRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, "product_media.get", bson.D{{Key: "_id", Value: oid}})
}

// GetByProductID retrieves the media record of a product.
func (r *MediaRecordRepository) GetByProductID(ctx context.Context, productID string) (*domain.MediaRecord, error) {
	oid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, "product_media.get_by_product", bson.D{{Key: "productId", Value: oid}})
}

// FindVideoHolder returns the record holding the video slot.
func (r *MediaRecordRepository) FindVideoHolder(ctx context.Context) (*domain.MediaRecord, error) {
	return r.findOne(ctx, "product_media.video_holder", bson.D{{Key: "hasVideo", Value: true}})
}

// List returns media records matching filter, newest first.
func (r *MediaRecordRepository) List(ctx context.Context, filter repository.MediaFilter) (_ []domain.MediaRecord, _ int, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "product_media.list", MediaCollection+".find")
	defer func() { end(err) }()

	query := bson.D{}
	if filter.ProductID != nil {
		oid, err := primitive.ObjectIDFromHex(*filter.ProductID)
		if err != nil {
			return []domain.MediaRecord{}, 0, nil
		}
		query = append(query, bson.E{Key: "productId", Value: oid})
	}
	if filter.IsActive != nil {
		query = append(query, bson.E{Key: "isActive", Value: *filter.IsActive})
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count media records: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(filter.Offset))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	records, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return records, int(total), nil
}

// ListByProductIDs returns the records of the given products.
func (r *MediaRecordRepository) ListByProductIDs(ctx context.Context, productIDs []string, activeOnly bool) (_ []domain.MediaRecord, err error) {
	oids := make([]primitive.ObjectID, 0, len(productIDs))
	for _, id := range productIDs {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []domain.MediaRecord{}, nil
	}

	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "product_media.list_by_products", MediaCollection+".find")
	defer func() { end(err) }()

	query := bson.D{{Key: "productId", Value: bson.D{{Key: "$in", Value: oids}}}}
	if activeOnly {
		query = append(query, bson.E{Key: "isActive", Value: true})
	}
	return r.find(ctx, query, options.Find())
}

// Update replaces the stored document. productId and createdAt are kept.
func (r *MediaRecordRepository) Update(ctx context.Context, rec *domain.MediaRecord) (err error) {
	oid, err := primitive.ObjectIDFromHex(rec.ID)
	if err != nil {
		return repository.ErrNotFound
	}

	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "product_media.update", MediaCollection+".updateOne")
	defer func() { end(err) }()

	rec.UpdatedAt = time.Now().UTC()

	set := bson.D{
		{Key: "hoverImage", Value: rec.Hover},
		{Key: "hasVideo", Value: rec.HasVideo()},
		{Key: "isActive", Value: rec.IsActive},
		{Key: "updatedAt", Value: rec.UpdatedAt},
	}
	var unset bson.D
	if v := rec.DefaultVideo(); v != nil {
		set = append(set, bson.E{Key: "defaultVideo", Value: v})
		unset = bson.D{{Key: "defaultImage", Value: ""}}
	} else {
		set = append(set, bson.E{Key: "defaultImage", Value: rec.DefaultImage()})
		unset = bson.D{{Key: "defaultVideo", Value: ""}}
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: set}, {Key: "$unset", Value: unset}},
	)
	if err != nil {
		return fmt.Errorf("update media record: %w", translate(err))
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a media record by its ID.
func (r *MediaRecordRepository) Delete(ctx context.Context, id string) (err error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}

	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "product_media.delete", MediaCollection+".deleteOne")
	defer func() { end(err) }()

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete media record: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Ping checks connectivity to the primary.
func (r *MediaRecordRepository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, readpref.Primary())
}

func (r *MediaRecordRepository) findOne(ctx context.Context, op string, query bson.D) (_ *domain.MediaRecord, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, op, MediaCollection+".findOne")
	defer func() { end(ignoreNotFound(err)) }()

	var doc mediaDocument
	if err := r.coll.FindOne(ctx, query).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find media record: %w", err)
	}
	return doc.toDomain()
}

func (r *MediaRecordRepository) find(ctx context.Context, query bson.D, opts *options.FindOptions) ([]domain.MediaRecord, error) {
	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find media records: %w", err)
	}
	defer cur.Close(ctx)

	records := []domain.MediaRecord{}
	for cur.Next(ctx) {
		var doc mediaDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode media record: %w", err)
		}
		rec, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate media records: %w", err)
	}
	return records, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// translate maps duplicate key errors onto repository errors by index name.
func translate(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	switch msg := err.Error(); {
	case strings.Contains(msg, indexVideoSlot):
		return repository.ErrVideoSlotTaken
	case strings.Contains(msg, indexProductUnique):
		return repository.ErrDuplicateProduct
	}
	return err
}
