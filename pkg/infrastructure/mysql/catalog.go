package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"woodstore/pkg/domain/model"
)

const productColumns = `
	p.id, p.category_id, p.name, p.slug, p.price, p.wood_type,
	COALESCE(p.dimensions, '') AS dimensions,
	COALESCE(p.description, '') AS description,
	COALESCE(p.image_url, '') AS image_url,
	p.in_stock, p.created_at, p.updated_at,
	COALESCE(c.name, '') AS category_name,
	COALESCE(c.slug, '') AS category_slug`

type categoryRow struct {
	ID           uuid.UUID `db:"id"`
	Name         string    `db:"name"`
	Slug         string    `db:"slug"`
	Description  string    `db:"description"`
	ImageURL     string    `db:"image_url"`
	DisplayOrder int       `db:"display_order"`
}

func (r categoryRow) toModel() model.Category {
	return model.Category{
		ID:           r.ID,
		Name:         r.Name,
		Slug:         r.Slug,
		Description:  r.Description,
		ImageURL:     r.ImageURL,
		DisplayOrder: r.DisplayOrder,
	}
}

type productRow struct {
	ID           uuid.UUID       `db:"id"`
	CategoryID   uuid.UUID       `db:"category_id"`
	Name         string          `db:"name"`
	Slug         string          `db:"slug"`
	Price        decimal.Decimal `db:"price"`
	WoodType     string          `db:"wood_type"`
	Dimensions   string          `db:"dimensions"`
	Description  string          `db:"description"`
	ImageURL     string          `db:"image_url"`
	InStock      bool            `db:"in_stock"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
	CategoryName string          `db:"category_name"`
	CategorySlug string          `db:"category_slug"`
}

func (r productRow) toModel() model.ProductView {
	return model.ProductView{
		Product: model.Product{
			ID:          r.ID,
			CategoryID:  r.CategoryID,
			Name:        r.Name,
			Slug:        r.Slug,
			Price:       r.Price,
			WoodType:    r.WoodType,
			Dimensions:  r.Dimensions,
			Description: r.Description,
			ImageURL:    r.ImageURL,
			InStock:     r.InStock,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		},
		Category: model.CategoryRef{Name: r.CategoryName, Slug: r.CategorySlug},
	}
}

func NewCatalogRepository(db *sqlx.DB) model.CatalogRepository {
	return &catalogRepository{db: db}
}

type catalogRepository struct {
	db *sqlx.DB
}

func (r *catalogRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *catalogRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	var rows []categoryRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, name, slug, COALESCE(description, '') AS description,
		       COALESCE(image_url, '') AS image_url, display_order
		FROM categories
		ORDER BY display_order`)
	if err != nil {
		return nil, errors.Wrap(err, "select categories")
	}
	categories := make([]model.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, row.toModel())
	}
	return categories, nil
}

func (r *catalogRepository) FindCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	var row categoryRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, name, slug, COALESCE(description, '') AS description,
		       COALESCE(image_url, '') AS image_url, display_order
		FROM categories
		WHERE slug = ?`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCategoryNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "select category %q", slug)
	}
	category := row.toModel()
	return &category, nil
}

// SaveCategory inserts the category or, when its slug exists, updates the
// stored row in place and adopts its id.
func (r *catalogRepository) SaveCategory(ctx context.Context, category *model.Category) error {
	existing, err := r.FindCategoryBySlug(ctx, category.Slug)
	switch {
	case err == nil:
		category.ID = existing.ID
	case errors.Is(err, model.ErrNotFound):
	default:
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, slug, description, image_url, display_order)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name),
			description = VALUES(description),
			image_url = VALUES(image_url),
			display_order = VALUES(display_order)`,
		category.ID, category.Name, category.Slug, nullString(category.Description),
		nullString(category.ImageURL), category.DisplayOrder)
	return errors.Wrapf(err, "save category %q", category.Slug)
}

func (r *catalogRepository) ListProducts(ctx context.Context, categoryID uuid.UUID) ([]model.ProductView, error) {
	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id`
	var args []interface{}
	if categoryID != uuid.Nil {
		query += ` WHERE p.category_id = ?`
		args = append(args, categoryID)
	}
	query += ` ORDER BY p.name`

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select products")
	}
	products := make([]model.ProductView, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.toModel())
	}
	return products, nil
}

func (r *catalogRepository) FindProductBySlug(ctx context.Context, slug string) (*model.ProductView, error) {
	var row productRow
	err := r.db.GetContext(ctx, &row, `SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.slug = ?`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrProductNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "select product %q", slug)
	}
	product := row.toModel()
	return &product, nil
}

func (r *catalogRepository) FindProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var row productRow
	err := r.db.GetContext(ctx, &row, `SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrProductNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "select product %s", id)
	}
	product := row.toModel().Product
	return &product, nil
}

func (r *catalogRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, category_id, name, slug, price, wood_type, dimensions,
		                      description, image_url, in_stock, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CategoryID, p.Name, p.Slug, p.Price, p.WoodType, nullString(p.Dimensions),
		nullString(p.Description), nullString(p.ImageURL), p.InStock, p.CreatedAt, p.UpdatedAt)
	return productWriteError(err, "insert product")
}

func (r *catalogRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET category_id = ?, name = ?, slug = ?, price = ?, wood_type = ?, dimensions = ?,
		    description = ?, image_url = ?, in_stock = ?, updated_at = ?
		WHERE id = ?`,
		p.CategoryID, p.Name, p.Slug, p.Price, p.WoodType, nullString(p.Dimensions),
		nullString(p.Description), nullString(p.ImageURL), p.InStock, p.UpdatedAt, p.ID)
	if err != nil {
		return productWriteError(err, "update product")
	}
	return expectAffected(res, model.ErrProductNotFound)
}

func productWriteError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case isDuplicateKey(err):
		return model.ErrSlugTaken
	case isMissingReference(err):
		return model.ErrUnknownCategory
	}
	return errors.Wrap(err, op)
}

func (r *catalogRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete product")
	}
	return expectAffected(res, model.ErrProductNotFound)
}
