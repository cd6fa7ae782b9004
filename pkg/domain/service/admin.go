package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"woodstore/pkg/domain/model"
)

var ErrNegativePrice = wrapKind(model.ErrValidation, "price cannot be negative")

type ProductInput struct {
	CategoryID  uuid.UUID       `json:"category_id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Price       decimal.Decimal `json:"price"`
	WoodType    string          `json:"wood_type"`
	Dimensions  string          `json:"dimensions"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	InStock     bool            `json:"in_stock"`
}

// AdminService is the back office. Every call checks that identity is a
// signed-in admin before touching any data.
type AdminService interface {
	ListProducts(ctx context.Context, identity *model.Identity) ([]model.ProductView, error)
	CreateProduct(ctx context.Context, identity *model.Identity, input ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, identity *model.Identity, productID uuid.UUID, input ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, identity *model.Identity, productID uuid.UUID, confirmed bool) error
	UploadProductImage(ctx context.Context, identity *model.Identity, image model.Attachment) (string, error)
	ListOrders(ctx context.Context, identity *model.Identity) ([]model.Order, error)
	ConfirmPayment(ctx context.Context, identity *model.Identity, orderID uuid.UUID) error
}

func NewAdminService(
	repo model.CatalogRepository,
	catalog CatalogService,
	orders OrderService,
	media model.MediaStore,
	dispatcher EventDispatcher,
) AdminService {
	return &adminService{
		repo:       repo,
		catalog:    catalog,
		orders:     orders,
		media:      media,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

type adminService struct {
	repo       model.CatalogRepository
	catalog    CatalogService
	orders     OrderService
	media      model.MediaStore
	dispatcher EventDispatcher
	now        func() time.Time
}

func (s *adminService) ListProducts(ctx context.Context, identity *model.Identity) ([]model.ProductView, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	return s.catalog.ListProducts(ctx, "")
}

func (s *adminService) CreateProduct(ctx context.Context, identity *model.Identity, input ProductInput) (*model.Product, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	input, err := normalizeProductInput(input)
	if err != nil {
		return nil, err
	}

	productID, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	product := &model.Product{ID: productID, CreatedAt: now}
	applyProductInput(product, input, now)

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, storeError(err)
	}

	dispatch(s.dispatcher, model.ProductCreated{ProductID: productID, Name: product.Name})
	return product, nil
}

func (s *adminService) UpdateProduct(ctx context.Context, identity *model.Identity, productID uuid.UUID, input ProductInput) (*model.Product, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	input, err := normalizeProductInput(input)
	if err != nil {
		return nil, err
	}

	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, storeError(err)
	}
	applyProductInput(product, input, s.now().UTC())

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, storeError(err)
	}

	dispatch(s.dispatcher, model.ProductUpdated{ProductID: productID})
	return product, nil
}

func (s *adminService) DeleteProduct(ctx context.Context, identity *model.Identity, productID uuid.UUID, confirmed bool) error {
	if err := requireAdmin(identity); err != nil {
		return err
	}
	if !confirmed {
		return model.ErrConfirmationRequired
	}
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return storeError(err)
	}

	dispatch(s.dispatcher, model.ProductDeleted{ProductID: productID})
	return nil
}

// UploadProductImage stores the image under a timestamp-derived name and
// returns its public URL. Nothing is written to the catalog.
func (s *adminService) UploadProductImage(ctx context.Context, identity *model.Identity, image model.Attachment) (string, error) {
	if err := requireAdmin(identity); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%d%s", s.now().UnixMilli(), strings.ToLower(filepath.Ext(image.Filename)))
	url, err := s.media.Upload(ctx, model.ProductImagesBucket, name, image.Body)
	if err != nil {
		return "", model.WithKind(model.ErrUpload, err)
	}
	return url, nil
}

func (s *adminService) ListOrders(ctx context.Context, identity *model.Identity) ([]model.Order, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	return s.orders.ListOrders(ctx)
}

func (s *adminService) ConfirmPayment(ctx context.Context, identity *model.Identity, orderID uuid.UUID) error {
	if err := requireAdmin(identity); err != nil {
		return err
	}
	return s.orders.ConfirmPayment(ctx, orderID)
}

func normalizeProductInput(input ProductInput) (ProductInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return input, requiredField("name")
	}
	if input.CategoryID == uuid.Nil {
		return input, requiredField("category")
	}
	if input.Price.IsNegative() {
		return input, ErrNegativePrice
	}
	input.Slug = strings.TrimSpace(input.Slug)
	if input.Slug == "" {
		input.Slug = model.Slugify(input.Name)
	}
	if err := model.ValidateSlug(input.Slug); err != nil {
		return input, err
	}
	return input, nil
}

func applyProductInput(product *model.Product, input ProductInput, now time.Time) {
	product.CategoryID = input.CategoryID
	product.Name = input.Name
	product.Slug = input.Slug
	product.Price = input.Price
	product.WoodType = input.WoodType
	product.Dimensions = input.Dimensions
	product.Description = input.Description
	product.ImageURL = input.ImageURL
	product.InStock = input.InStock
	product.UpdatedAt = now
}

// storeError keeps domain errors from the repository and tags the rest as
// data access failures.
func storeError(err error) error {
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrValidation) {
		return err
	}
	return model.WithKind(model.ErrDataAccess, err)
}
