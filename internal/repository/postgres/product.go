package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Aayush8356/Vendora/internal/entity"
	"github.com/Aayush8356/Vendora/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const productColumns = `p.id, p.name, p.description, p.price, p.sale_price, p.sku, p.category_id, p.brand,
	p.images, p.tags, p.variants, p.stock, p.slug, p.status, p.featured, p.rating, p.rating_count,
	p.created_at, p.updated_at`

type productRow struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Price       float64         `db:"price"`
	SalePrice   sql.NullFloat64 `db:"sale_price"`
	SKU         string          `db:"sku"`
	CategoryID  string          `db:"category_id"`
	Brand       string          `db:"brand"`
	Images      pq.StringArray  `db:"images"`
	Tags        pq.StringArray  `db:"tags"`
	Variants    []byte          `db:"variants"`
	Stock       int             `db:"stock"`
	Slug        string          `db:"slug"`
	Status      string          `db:"status"`
	Featured    bool            `db:"featured"`
	Rating      float64         `db:"rating"`
	RatingCount int             `db:"rating_count"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r productRow) toEntity() (entity.Product, error) {
	p := entity.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		SKU:         r.SKU,
		CategoryID:  r.CategoryID,
		Brand:       r.Brand,
		Images:      []string(r.Images),
		Tags:        []string(r.Tags),
		Variants:    []entity.Variant{},
		Stock:       r.Stock,
		Slug:        r.Slug,
		Status:      r.Status,
		Featured:    r.Featured,
		Rating:      r.Rating,
		RatingCount: r.RatingCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.SalePrice.Valid {
		sale := r.SalePrice.Float64
		p.SalePrice = &sale
	}
	if len(r.Variants) > 0 {
		if err := json.Unmarshal(r.Variants, &p.Variants); err != nil {
			return entity.Product{}, fmt.Errorf("failed to decode variants of product %s: %w", r.ID, err)
		}
	}
	return p, nil
}

func toProducts(rows []productRow) ([]entity.Product, error) {
	products := make([]entity.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

type productRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new ProductRepository backed by Postgres.
func NewProductRepository(db *sqlx.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

// productFilter builds the WHERE clause of a listing with positional arguments.
type productFilter struct {
	clauses []string
	args    []any
}

func (f *productFilter) arg(v any) string {
	f.args = append(f.args, v)
	return fmt.Sprintf("$%d", len(f.args))
}

func (f *productFilter) where() string {
	return "WHERE " + strings.Join(f.clauses, " AND ")
}

func buildProductFilter(q entity.ProductQuery) *productFilter {
	f := &productFilter{clauses: []string{"p.status = 'published'"}}

	if q.Search != "" {
		pattern := f.arg("%" + escapeLike(q.Search) + "%")
		f.clauses = append(f.clauses, fmt.Sprintf(
			"(p.name ILIKE %[1]s OR p.description ILIKE %[1]s OR EXISTS (SELECT 1 FROM unnest(p.tags) AS tag WHERE tag ILIKE %[1]s))",
			pattern,
		))
	}
	if q.Category != "" {
		c := f.arg(q.Category)
		f.clauses = append(f.clauses, fmt.Sprintf("p.category_id IN (SELECT id FROM categories WHERE id = %[1]s OR slug = %[1]s)", c))
	}
	if q.MinPrice != nil {
		f.clauses = append(f.clauses, "p.price >= "+f.arg(*q.MinPrice))
	}
	if q.MaxPrice != nil {
		f.clauses = append(f.clauses, "p.price <= "+f.arg(*q.MaxPrice))
	}
	if q.Featured {
		f.clauses = append(f.clauses, "p.featured = TRUE")
	}
	return f
}

// orderBy maps a sort key onto SQL. newest and oldest ignore the direction.
func orderBy(q entity.ProductQuery) string {
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	switch q.SortBy {
	case entity.SortByPrice:
		return "p.price " + dir + ", p.id ASC"
	case entity.SortByName:
		return "p.name " + dir + ", p.id ASC"
	case entity.SortByRating:
		return "p.rating " + dir + ", p.id ASC"
	case entity.SortByOldest:
		return "p.created_at ASC, p.id ASC"
	default:
		return "p.created_at DESC, p.id ASC"
	}
}

// orEmpty keeps pq from writing NULL into NOT NULL array columns.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *productRepository) Query(ctx context.Context, q entity.ProductQuery) ([]entity.Product, int, error) {
	f := buildProductFilter(q)

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM products p "+f.where(), f.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	limit := f.arg(q.Limit)
	offset := f.arg(q.Offset())
	query := fmt.Sprintf("SELECT %s FROM products p %s ORDER BY %s LIMIT %s OFFSET %s",
		productColumns, f.where(), orderBy(q), limit, offset)

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, query, f.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	products, err := toProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) FindByIDOrSlug(ctx context.Context, idOrSlug string) (*entity.Product, error) {
	var row productRow
	err := r.db.GetContext(ctx, &row,
		"SELECT "+productColumns+" FROM products p WHERE (p.id = $1 OR p.slug = $1) AND p.status = 'published' LIMIT 1",
		idOrSlug,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product %s: %w", idOrSlug, err)
	}
	p, err := row.toEntity()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) Featured(ctx context.Context, limit int) ([]entity.Product, error) {
	var rows []productRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+productColumns+" FROM products p WHERE p.status = 'published' AND p.featured = TRUE ORDER BY p.created_at DESC, p.id ASC LIMIT $1",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query featured products: %w", err)
	}
	return toProducts(rows)
}

func (r *productRepository) Seed(ctx context.Context, products []entity.Product) error {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM products"); err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil // already seeded
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range products {
		if p.Variants == nil {
			p.Variants = []entity.Variant{}
		}
		variants, err := json.Marshal(p.Variants)
		if err != nil {
			return fmt.Errorf("failed to encode variants of product %s: %w", p.ID, err)
		}
		var sale sql.NullFloat64
		if p.SalePrice != nil {
			sale = sql.NullFloat64{Float64: *p.SalePrice, Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO products (id, name, description, price, sale_price, sku, category_id, brand, images, tags,
				variants, stock, slug, status, featured, rating, rating_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			p.ID, p.Name, p.Description, p.Price, sale, p.SKU, p.CategoryID, p.Brand,
			pq.Array(orEmpty(p.Images)), pq.Array(orEmpty(p.Tags)), variants, p.Stock, p.Slug, p.Status,
			p.Featured, p.Rating, p.RatingCount,
		)
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
