package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"woodstore/pkg/domain/model"
)

type CatalogService interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	// ListProducts lists products ordered by name. An empty or unknown
	// category slug lists every product.
	ListProducts(ctx context.Context, categorySlug string) ([]model.ProductView, error)
	GetProduct(ctx context.Context, slug string) (*model.ProductView, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
}

func NewCatalogService(repo model.CatalogRepository) CatalogService {
	return &catalogService{repo: repo}
}

type catalogService struct {
	repo model.CatalogRepository
}

func (s *catalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, model.WithKind(model.ErrDataAccess, err)
	}
	return categories, nil
}

func (s *catalogService) ListProducts(ctx context.Context, categorySlug string) ([]model.ProductView, error) {
	categoryID := uuid.Nil
	if categorySlug != "" {
		category, err := s.repo.FindCategoryBySlug(ctx, categorySlug)
		switch {
		case err == nil:
			categoryID = category.ID
		case errors.Is(err, model.ErrNotFound):
		default:
			return nil, model.WithKind(model.ErrDataAccess, err)
		}
	}

	products, err := s.repo.ListProducts(ctx, categoryID)
	if err != nil {
		return nil, model.WithKind(model.ErrDataAccess, err)
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, slug string) (*model.ProductView, error) {
	product, err := s.repo.FindProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, model.WithKind(model.ErrDataAccess, err)
	}
	return product, nil
}

func (s *catalogService) FindProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, model.WithKind(model.ErrDataAccess, err)
	}
	return product, nil
}
