package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"woodstore/pkg/domain/model"
)

//go:embed catalog.json
var defaultCatalog []byte

type CategoryJSON struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	DisplayOrder int    `json:"display_order"`
}

type ProductJSON struct {
	Category    string          `json:"category"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Price       decimal.Decimal `json:"price"`
	WoodType    string          `json:"wood_type"`
	Dimensions  string          `json:"dimensions"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	InStock     *bool           `json:"in_stock"`
}

type CatalogJSON struct {
	Categories []CategoryJSON `json:"categories"`
	Products   []ProductJSON  `json:"products"`
}

// LoadCatalog reads a catalog file; an empty path selects the built-in catalog.
func LoadCatalog(filePath string) (*CatalogJSON, error) {
	data := defaultCatalog
	if filePath != "" {
		var err error
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
	}

	var catalog CatalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return &catalog, nil
}

// Apply upserts categories by slug, then products by slug. Products refer to
// their category by slug.
func Apply(ctx context.Context, repo model.CatalogRepository, catalog *CatalogJSON) error {
	categories := make(map[string]model.Category)
	for _, c := range catalog.Categories {
		slug := c.Slug
		if slug == "" {
			slug = model.Slugify(c.Name)
		}
		if err := model.ValidateSlug(slug); err != nil {
			return err
		}
		id, err := repo.NextID()
		if err != nil {
			return err
		}
		category := model.Category{
			ID:           id,
			Name:         c.Name,
			Slug:         slug,
			Description:  c.Description,
			ImageURL:     c.ImageURL,
			DisplayOrder: c.DisplayOrder,
		}
		if err := repo.SaveCategory(ctx, &category); err != nil {
			return err
		}
		categories[slug] = category
	}

	for _, p := range catalog.Products {
		if err := applyProduct(ctx, repo, categories, p); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"categories": len(catalog.Categories),
		"products":   len(catalog.Products),
	}).Info("catalog seeded")
	return nil
}

func applyProduct(ctx context.Context, repo model.CatalogRepository, categories map[string]model.Category, p ProductJSON) error {
	category, ok := categories[p.Category]
	if !ok {
		found, err := repo.FindCategoryBySlug(ctx, p.Category)
		if err != nil {
			return errors.Wrapf(err, "category of product %q", p.Name)
		}
		category = *found
	}

	slug := p.Slug
	if slug == "" {
		slug = model.Slugify(p.Name)
	}
	inStock := true
	if p.InStock != nil {
		inStock = *p.InStock
	}
	now := time.Now().UTC()
	product := model.Product{
		CategoryID:  category.ID,
		Name:        p.Name,
		Slug:        slug,
		Price:       p.Price,
		WoodType:    p.WoodType,
		Dimensions:  p.Dimensions,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		InStock:     inStock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	existing, err := repo.FindProductBySlug(ctx, slug)
	switch {
	case err == nil:
		product.ID = existing.ID
		product.CreatedAt = existing.CreatedAt
		return repo.UpdateProduct(ctx, &product)
	case errors.Is(err, model.ErrNotFound):
		product.ID, err = repo.NextID()
		if err != nil {
			return err
		}
		return repo.CreateProduct(ctx, &product)
	default:
		return err
	}
}
