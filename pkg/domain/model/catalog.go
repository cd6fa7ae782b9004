package model

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"image_url"`
	DisplayOrder int       `json:"display_order"`
}

type Product struct {
	ID          uuid.UUID       `json:"id"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Price       decimal.Decimal `json:"price"`
	WoodType    string          `json:"wood_type"`
	Dimensions  string          `json:"dimensions,omitempty"`
	Description string          `json:"description,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	InStock     bool            `json:"in_stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CategoryRef is the part of the owning category shown next to a product.
type CategoryRef struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type ProductView struct {
	Product
	Category CategoryRef `json:"category"`
}

type CatalogRepository interface {
	NextID() (uuid.UUID, error)

	ListCategories(ctx context.Context) ([]Category, error)
	FindCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	SaveCategory(ctx context.Context, category *Category) error

	// ListProducts returns every product when categoryID is uuid.Nil.
	ListProducts(ctx context.Context, categoryID uuid.UUID) ([]ProductView, error)
	FindProductBySlug(ctx context.Context, slug string) (*ProductView, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	CreateProduct(ctx context.Context, product *Product) error
	UpdateProduct(ctx context.Context, product *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Slugify lowercases name and joins its alphanumeric runs with hyphens.
func Slugify(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return errors.Wrapf(ErrValidation, "slug %q is not url-safe", slug)
	}
	return nil
}

type StockFilter int

const (
	StockAny StockFilter = iota
	StockIn
	StockOut
)

func ParseStockFilter(s string) (StockFilter, error) {
	switch s {
	case "", "all":
		return StockAny, nil
	case "in-stock":
		return StockIn, nil
	case "out-of-stock":
		return StockOut, nil
	}
	return StockAny, errors.Wrapf(ErrValidation, "unknown stock filter %q", s)
}

type PriceSort int

const (
	SortNone PriceSort = iota
	SortPriceLowHigh
	SortPriceHighLow
)

func ParsePriceSort(s string) (PriceSort, error) {
	switch s {
	case "", "none", "default":
		return SortNone, nil
	case "low-high":
		return SortPriceLowHigh, nil
	case "high-low":
		return SortPriceHighLow, nil
	}
	return SortNone, errors.Wrapf(ErrValidation, "unknown price sort %q", s)
}

// AnyWoodType disables the wood type filter, as does an empty string.
const AnyWoodType = "All"

type ProductFilter struct {
	Search   string
	WoodType string
	Stock    StockFilter
	Sort     PriceSort
}

// FilterProducts narrows products by f and sorts the result. The input slice is
// left untouched and products with equal prices keep their relative order.
func FilterProducts(products []ProductView, f ProductFilter) []ProductView {
	search := strings.ToLower(f.Search)
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if f.WoodType != "" && f.WoodType != AnyWoodType && p.WoodType != f.WoodType {
			continue
		}
		switch f.Stock {
		case StockIn:
			if !p.InStock {
				continue
			}
		case StockOut:
			if p.InStock {
				continue
			}
		case StockAny:
		}
		out = append(out, p)
	}

	switch f.Sort {
	case SortPriceLowHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case SortPriceHighLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	case SortNone:
	}
	return out
}
