package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/repository"
	"github.com/riturajsingh8919/anti-romantic/pkg/database"
)

const productColumns = `id, name, slug, description, category, price, compare_price, images, sizes, total_stock, is_featured, is_active, created_at, updated_at`

// ORDER BY clauses per storefront sort key.
var productOrder = map[string]string{
	domain.SortFeatured:     "is_featured DESC, created_at DESC",
	domain.SortPriceLowHigh: "price ASC, created_at DESC",
	domain.SortPriceHighLow: "price DESC, created_at DESC",
	domain.SortDateNewest:   "created_at DESC",
	domain.SortDateOldest:   "created_at ASC",
}

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "products.get", query)
	defer func() { end(ignoreNotFound(err)) }()

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetNames resolves product names by id.
func (r *ProductRepository) GetNames(ctx context.Context, ids []string) (_ map[string]string, err error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	query := `SELECT id, name FROM products WHERE id = ANY($1)`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "products.names", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get product names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan product name: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product names: %w", err)
	}
	return names, nil
}

// List returns active products matching the filter.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) (_ []domain.Product, _ int, err error) {
	var (
		conditions = []string{"is_active"}
		args       []any
		argIndex   = 1
	)

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}

	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}

	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}

	if filter.Size != nil {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(sizes)", argIndex))
		args = append(args, *filter.Size)
		argIndex++
	}

	order, ok := productOrder[filter.Sort]
	if !ok {
		order = productOrder[domain.SortFeatured]
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		productColumns, strings.Join(conditions, " AND "), order, argIndex, argIndex+1,
	)
	args = append(args, filter.Limit, filter.Offset)

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "products.list", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)
	for rows.Next() {
		p, err := scanProduct(rows, &totalCount)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}
	return products, totalCount, nil
}

// ListRefs returns product ids and names, newest first.
func (r *ProductRepository) ListRefs(ctx context.Context, limit int) (_ []domain.ProductRef, err error) {
	query := `SELECT id, name FROM products ORDER BY created_at DESC LIMIT $1`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "products.refs", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list product refs: %w", err)
	}
	defer rows.Close()

	refs := []domain.ProductRef{}
	for rows.Next() {
		var ref domain.ProductRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("scan product ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product refs: %w", err)
	}
	return refs, nil
}

// Categories counts active products per non-empty category.
func (r *ProductRepository) Categories(ctx context.Context) (_ []domain.CategoryCount, err error) {
	query := `
		SELECT category, count(*)
		FROM products
		WHERE is_active AND category <> ''
		GROUP BY category
		ORDER BY category`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "products.categories", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	defer rows.Close()

	counts := []domain.CategoryCount{}
	for rows.Next() {
		var c domain.CategoryCount
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Label = c.Key
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return counts, nil
}

func scanProduct(row pgx.Row, extra ...any) (*domain.Product, error) {
	var (
		p          domain.Product
		imagesJSON []byte
	)

	dest := append([]any{
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Category,
		&p.Price,
		&p.ComparePrice,
		&imagesJSON,
		&p.Sizes,
		&p.TotalStock,
		&p.IsFeatured,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	if imagesJSON != nil {
		if err := json.Unmarshal(imagesJSON, &p.Images); err != nil {
			return nil, fmt.Errorf("unmarshal images: %w", err)
		}
	}
	return &p, nil
}

// Seed inserts products in batches of batchSize rows. Rows whose id or
// slug already exists are skipped. It returns the number of rows written.
func (r *ProductRepository) Seed(ctx context.Context, products []domain.Product, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	written := 0
	for start := 0; start < len(products); start += batchSize {
		n, err := r.insertBatch(ctx, products[start:min(start+batchSize, len(products))])
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

func (r *ProductRepository) insertBatch(ctx context.Context, batch []domain.Product) (_ int, err error) {
	const cols = 14

	var sb strings.Builder
	sb.WriteString(`INSERT INTO products (` + productColumns + `) VALUES `)
	args := make([]any, 0, len(batch)*cols)
	for i, p := range batch {
		images, err := json.Marshal(p.Images)
		if err != nil {
			return 0, fmt.Errorf("marshal images of %s: %w", p.ID, err)
		}
		sizes := p.Sizes
		if sizes == nil {
			sizes = []string{}
		}

		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := range cols {
			if c > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*cols+c+1)
		}
		sb.WriteByte(')')

		args = append(args,
			p.ID, p.Name, p.Slug, p.Description, p.Category, p.Price, p.ComparePrice,
			images, sizes, p.TotalStock, p.IsFeatured, p.IsActive, p.CreatedAt, p.UpdatedAt,
		)
	}
	sb.WriteString(` ON CONFLICT DO NOTHING`)
	query := sb.String()

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "products.seed", `INSERT INTO products`)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert products: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
