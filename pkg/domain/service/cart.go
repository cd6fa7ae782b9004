package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"woodstore/pkg/domain/model"
)

type CartService interface {
	// Get loads the cart stored under token. A missing or corrupt payload
	// yields an empty cart.
	Get(ctx context.Context, token string) (*model.Cart, error)
	AddItem(ctx context.Context, token string, snapshot model.CartLine) (*model.Cart, error)
	UpdateQuantity(ctx context.Context, token string, productID uuid.UUID, quantity int) (*model.Cart, error)
	RemoveItem(ctx context.Context, token string, productID uuid.UUID) (*model.Cart, error)
	Clear(ctx context.Context, token string) error
}

func NewCartService(storage model.CartStorage) CartService {
	return &cartService{storage: storage}
}

type cartService struct {
	storage model.CartStorage
}

func (s *cartService) Get(ctx context.Context, token string) (*model.Cart, error) {
	payload, err := s.storage.Load(ctx, token)
	if errors.Is(err, model.ErrCartNotFound) {
		return model.NewCart(nil), nil
	}
	if err != nil {
		return nil, model.WithKind(model.ErrDataAccess, err)
	}

	lines, err := model.DecodeCartLines(payload)
	if err != nil {
		log.WithError(err).WithField("token", token).Warn("discarding corrupt cart state")
		return model.NewCart(nil), nil
	}
	return model.NewCart(lines), nil
}

func (s *cartService) AddItem(ctx context.Context, token string, snapshot model.CartLine) (*model.Cart, error) {
	return s.mutate(ctx, token, func(c *model.Cart) { c.AddItem(snapshot) })
}

func (s *cartService) UpdateQuantity(ctx context.Context, token string, productID uuid.UUID, quantity int) (*model.Cart, error) {
	return s.mutate(ctx, token, func(c *model.Cart) { c.UpdateQuantity(productID, quantity) })
}

func (s *cartService) RemoveItem(ctx context.Context, token string, productID uuid.UUID) (*model.Cart, error) {
	return s.mutate(ctx, token, func(c *model.Cart) { c.RemoveItem(productID) })
}

func (s *cartService) Clear(ctx context.Context, token string) error {
	_, err := s.mutate(ctx, token, func(c *model.Cart) { c.Clear() })
	return err
}

func (s *cartService) mutate(ctx context.Context, token string, action func(c *model.Cart)) (*model.Cart, error) {
	cart, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	action(cart)

	payload, err := model.EncodeCartLines(cart.Lines())
	if err != nil {
		return nil, err
	}
	if err := s.storage.Save(ctx, token, payload); err != nil {
		return nil, model.WithKind(model.ErrDataAccess, err)
	}
	return cart, nil
}
