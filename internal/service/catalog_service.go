package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Aayush8356/Vendora/internal/catalog"
	"github.com/Aayush8356/Vendora/internal/entity"
	"github.com/Aayush8356/Vendora/internal/repository"
)

// CatalogService answers product and category queries.
type CatalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
}

func NewCatalogService(products repository.ProductRepository, categories repository.CategoryRepository) *CatalogService {
	return &CatalogService{products: products, categories: categories}
}

// QueryProducts filters, sorts and paginates published products.
func (s *CatalogService) QueryProducts(ctx context.Context, q entity.ProductQuery) (*entity.ProductPage, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	products, total, err := s.products.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []entity.Product{}
	}
	return &entity.ProductPage{
		Products:   products,
		Pagination: entity.NewPagination(q.Page, q.Limit, total),
	}, nil
}

// GetProduct finds a published product by id or slug.
func (s *CatalogService) GetProduct(ctx context.Context, idOrSlug string) (*entity.Product, error) {
	return s.products.FindByIDOrSlug(ctx, idOrSlug)
}

// FeaturedProducts returns the newest featured products.
func (s *CatalogService) FeaturedProducts(ctx context.Context, limit int) ([]entity.Product, error) {
	if limit <= 0 {
		limit = entity.DefaultFeaturedLimit
	}
	if limit > entity.MaxPageLimit {
		limit = entity.MaxPageLimit
	}
	products, err := s.products.Featured(ctx, limit)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []entity.Product{}
	}
	return products, nil
}

// ProductsByCategory lists the products of a category given by slug or id.
func (s *CatalogService) ProductsByCategory(ctx context.Context, slug string, q entity.ProductQuery) (*entity.Category, *entity.ProductPage, error) {
	category, err := s.categories.FindByIDOrSlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	q.Category = category.ID
	page, err := s.QueryProducts(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	return category, page, nil
}

// Categories lists active categories.
func (s *CatalogService) Categories(ctx context.Context) ([]entity.Category, error) {
	categories, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []entity.Category{}
	}
	return categories, nil
}

// GetCategory finds an active category by id or slug.
func (s *CatalogService) GetCategory(ctx context.Context, idOrSlug string) (*entity.Category, error) {
	return s.categories.FindByIDOrSlug(ctx, idOrSlug)
}

// Seed loads the seed catalog into empty stores.
func (s *CatalogService) Seed(ctx context.Context, seed *catalog.Seed) error {
	if err := s.categories.Seed(ctx, seed.Categories); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	if err := s.products.Seed(ctx, seed.Products); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	slog.Info("Catalog seeded", "categories", len(seed.Categories), "products", len(seed.Products))
	return nil
}
