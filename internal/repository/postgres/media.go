package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/repository"
	"github.com/riturajsingh8919/anti-romantic/pkg/database"
)

// Constraint names from migrations/000002_create_media_records.up.sql.
const (
	constraintProductUnique = "media_records_product_id_key"
	constraintVideoSlot     = "media_records_video_slot_idx"
)

const mediaColumns = `id, product_id, default_video, default_image, hover_image, is_active, created_at, updated_at`

// MediaRecordRepository implements repository.MediaRecordRepository using
// PostgreSQL. Media objects are stored as JSONB; has_video is a generated
// column backing the partial unique index on the video slot.
type MediaRecordRepository struct {
	db database.DBTX
}

// NewMediaRecordRepository creates a PostgreSQL-backed media record repository.
func NewMediaRecordRepository(db database.DBTX) *MediaRecordRepository {
	return &MediaRecordRepository{db: db}
}

// Create inserts a new media record.
func (r *MediaRecordRepository) Create(ctx context.Context, rec *domain.MediaRecord) (err error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = rec.CreatedAt

	video, image, hover, err := encodeMedia(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO media_records (` + mediaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "media_records.insert", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		rec.ID,
		rec.ProductID,
		video,
		image,
		hover,
		rec.IsActive,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert media record: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a media record by its ID.
func (r *MediaRecordRepository) GetByID(ctx context.Context, id string) (*domain.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_records WHERE id = $1`
	return r.getOne(ctx, "media_records.get", query, id)
}

// GetByProductID retrieves the media record of a product.
func (r *MediaRecordRepository) GetByProductID(ctx context.Context, productID string) (*domain.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_records WHERE product_id = $1`
	return r.getOne(ctx, "media_records.get_by_product", query, productID)
}

// FindVideoHolder returns the record holding the video slot.
func (r *MediaRecordRepository) FindVideoHolder(ctx context.Context) (*domain.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_records WHERE has_video LIMIT 1`
	return r.getOne(ctx, "media_records.video_holder", query)
}

// List returns media records matching filter, newest first.
func (r *MediaRecordRepository) List(ctx context.Context, filter repository.MediaFilter) (_ []domain.MediaRecord, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.ProductID != nil {
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", argIndex))
		args = append(args, *filter.ProductID)
		argIndex++
	}

	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *filter.IsActive)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM media_records
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		mediaColumns, whereClause, argIndex, argIndex+1,
	)
	args = append(args, filter.Limit, filter.Offset)

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "media_records.list", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list media records: %w", err)
	}
	defer rows.Close()

	var (
		records    []domain.MediaRecord
		totalCount int
	)
	for rows.Next() {
		rec, err := scanMediaRecord(rows, &totalCount)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate media record rows: %w", err)
	}

	if records == nil {
		records = []domain.MediaRecord{}
	}

	// A page past the end has no rows to carry the window count.
	if len(records) == 0 && filter.Offset > 0 {
		totalCount, err = r.count(ctx, whereClause, args[:len(args)-2])
		if err != nil {
			return nil, 0, err
		}
	}

	return records, totalCount, nil
}

func (r *MediaRecordRepository) count(ctx context.Context, whereClause string, args []any) (int, error) {
	var total int
	query := "SELECT count(*) FROM media_records " + whereClause
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count media records: %w", err)
	}
	return total, nil
}

// ListByProductIDs returns the records of the given products.
func (r *MediaRecordRepository) ListByProductIDs(ctx context.Context, productIDs []string, activeOnly bool) (_ []domain.MediaRecord, err error) {
	if len(productIDs) == 0 {
		return []domain.MediaRecord{}, nil
	}

	query := `SELECT ` + mediaColumns + ` FROM media_records WHERE product_id = ANY($1)`
	if activeOnly {
		query += ` AND is_active`
	}

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "media_records.list_by_products", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, productIDs)
	if err != nil {
		return nil, fmt.Errorf("list media records by product: %w", err)
	}
	defer rows.Close()

	records := make([]domain.MediaRecord, 0, len(productIDs))
	for rows.Next() {
		rec, err := scanMediaRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media record rows: %w", err)
	}
	return records, nil
}

// Update overwrites the media and active flag of an existing record.
func (r *MediaRecordRepository) Update(ctx context.Context, rec *domain.MediaRecord) (err error) {
	video, image, hover, err := encodeMedia(rec)
	if err != nil {
		return err
	}
	rec.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE media_records
		SET default_video = $1, default_image = $2, hover_image = $3, is_active = $4, updated_at = $5
		WHERE id = $6`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "media_records.update", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, video, image, hover, rec.IsActive, rec.UpdatedAt, rec.ID)
	if err != nil {
		return fmt.Errorf("update media record: %w", translate(err))
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a media record by its ID.
func (r *MediaRecordRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM media_records WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "media_records.delete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete media record: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Ping checks connectivity.
func (r *MediaRecordRepository) Ping(ctx context.Context) error {
	var one int
	return r.db.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (r *MediaRecordRepository) getOne(ctx context.Context, op, query string, args ...any) (_ *domain.MediaRecord, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, op, query)
	defer func() { end(ignoreNotFound(err)) }()

	rec, err := scanMediaRecord(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// scanMediaRecord reads one row in mediaColumns order. extra receives any
// trailing columns such as a window count.
func scanMediaRecord(row pgx.Row, extra ...any) (*domain.MediaRecord, error) {
	var (
		rec                  domain.MediaRecord
		videoJSON, imageJSON []byte
		hoverJSON            []byte
	)

	dest := append([]any{
		&rec.ID,
		&rec.ProductID,
		&videoJSON,
		&imageJSON,
		&hoverJSON,
		&rec.IsActive,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan media record: %w", err)
	}

	var (
		video *domain.VideoAsset
		image *domain.ImageAsset
	)
	if videoJSON != nil {
		video = &domain.VideoAsset{}
		if err := json.Unmarshal(videoJSON, video); err != nil {
			return nil, fmt.Errorf("unmarshal default_video: %w", err)
		}
	}
	if imageJSON != nil {
		image = &domain.ImageAsset{}
		if err := json.Unmarshal(imageJSON, image); err != nil {
			return nil, fmt.Errorf("unmarshal default_image: %w", err)
		}
	}
	if err := json.Unmarshal(hoverJSON, &rec.Hover); err != nil {
		return nil, fmt.Errorf("unmarshal hover_image: %w", err)
	}

	def, err := domain.NewDefaultMedia(video, image)
	if err != nil {
		return nil, fmt.Errorf("media record %s: %w", rec.ID, err)
	}
	rec.Default = def
	return &rec, nil
}

// encodeMedia renders the media columns. The column of the absent default
// kind is NULL.
func encodeMedia(rec *domain.MediaRecord) (video, image, hover []byte, err error) {
	if v := rec.DefaultVideo(); v != nil {
		if video, err = json.Marshal(v); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal default_video: %w", err)
		}
	}
	if img := rec.DefaultImage(); img != nil {
		if image, err = json.Marshal(img); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal default_image: %w", err)
		}
	}
	if hover, err = json.Marshal(rec.Hover); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal hover_image: %w", err)
	}
	return video, image, hover, nil
}

// ignoreNotFound keeps lookups of absent rows off the error spans.
func ignoreNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// translate maps unique violations onto repository errors.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintProductUnique:
		return repository.ErrDuplicateProduct
	case constraintVideoSlot:
		return repository.ErrVideoSlotTaken
	}
	return err
}
