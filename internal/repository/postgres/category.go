package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Aayush8356/Vendora/internal/entity"
	"github.com/Aayush8356/Vendora/internal/repository"
	"github.com/jmoiron/sqlx"
)

const categoryColumns = "id, name, description, slug, parent_id, image, is_active, sort_order, created_at, updated_at"

type categoryRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	Slug        string         `db:"slug"`
	ParentID    sql.NullString `db:"parent_id"`
	Image       string         `db:"image"`
	IsActive    bool           `db:"is_active"`
	SortOrder   int            `db:"sort_order"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r categoryRow) toEntity() entity.Category {
	return entity.Category{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Slug:        r.Slug,
		ParentID:    r.ParentID.String,
		Image:       r.Image,
		IsActive:    r.IsActive,
		SortOrder:   r.SortOrder,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type categoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new CategoryRepository backed by Postgres.
func NewCategoryRepository(db *sqlx.DB) repository.CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) FindAll(ctx context.Context) ([]entity.Category, error) {
	var rows []categoryRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+categoryColumns+" FROM categories WHERE is_active = TRUE ORDER BY sort_order ASC, name ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}

	categories := make([]entity.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, row.toEntity())
	}
	return categories, nil
}

func (r *categoryRepository) FindByIDOrSlug(ctx context.Context, idOrSlug string) (*entity.Category, error) {
	var row categoryRow
	err := r.db.GetContext(ctx, &row,
		"SELECT "+categoryColumns+" FROM categories WHERE (id = $1 OR slug = $1) AND is_active = TRUE LIMIT 1",
		idOrSlug,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category %s: %w", idOrSlug, err)
	}
	c := row.toEntity()
	return &c, nil
}

func (r *categoryRepository) Seed(ctx context.Context, categories []entity.Category) error {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM categories"); err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if count > 0 {
		return nil // already seeded
	}

	for _, c := range categories {
		var parent sql.NullString
		if c.ParentID != "" {
			parent = sql.NullString{String: c.ParentID, Valid: true}
		}
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO categories (id, name, description, slug, parent_id, image, is_active, sort_order) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
			c.ID, c.Name, c.Description, c.Slug, parent, c.Image, c.IsActive, c.SortOrder,
		)
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.ID, err)
		}
	}
	return nil
}
