package model

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// CartLine is one product's aggregated quantity. Name, price, image and wood
// type are captured when the product is first added.
type CartLine struct {
	ProductID uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url"`
	WoodType  string          `json:"wood_type"`
	Quantity  int             `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func NewCartLine(p Product) CartLine {
	return CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		WoodType:  p.WoodType,
		Quantity:  1,
	}
}

// Cart keeps its lines in insertion order. Every line present has Quantity >= 1.
type Cart struct {
	lines []CartLine
}

func NewCart(lines []CartLine) *Cart {
	c := &Cart{}
	for _, l := range lines {
		if l.Quantity > 0 {
			c.lines = append(c.lines, l)
		}
	}
	return c
}

func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) AddItem(snapshot CartLine) {
	if i := c.indexOf(snapshot.ProductID); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	snapshot.Quantity = 1
	c.lines = append(c.lines, snapshot)
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
func (c *Cart) UpdateQuantity(productID uuid.UUID, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return
	}
	if i := c.indexOf(productID); i >= 0 {
		c.lines[i].Quantity = quantity
	}
}

func (c *Cart) RemoveItem(productID uuid.UUID) {
	if i := c.indexOf(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Count() int {
	var count int
	for _, l := range c.lines {
		count += l.Quantity
	}
	return count
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c *Cart) indexOf(productID uuid.UUID) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// CartStorage keeps the serialized lines of a cart under its token.
type CartStorage interface {
	// Load returns ErrCartNotFound when nothing was saved under token.
	Load(ctx context.Context, token string) ([]byte, error)
	Save(ctx context.Context, token string, payload []byte) error
}

type persistedCartLine struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	ImageURL string      `json:"image_url"`
	WoodType string      `json:"wood_type"`
	Quantity int         `json:"quantity"`
}

// EncodeCartLines renders lines as an ordered JSON list of
// {id, name, price, image_url, wood_type, quantity}.
func EncodeCartLines(lines []CartLine) ([]byte, error) {
	out := make([]persistedCartLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, persistedCartLine{
			ID:       l.ProductID.String(),
			Name:     l.Name,
			Price:    json.Number(l.Price.String()),
			ImageURL: l.ImageURL,
			WoodType: l.WoodType,
			Quantity: l.Quantity,
		})
	}
	return json.Marshal(out)
}

func DecodeCartLines(payload []byte) ([]CartLine, error) {
	var in []persistedCartLine
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, errors.Wrap(err, "decode cart lines")
	}
	lines := make([]CartLine, 0, len(in))
	for i, l := range in {
		id, err := uuid.Parse(l.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "cart line %d: product id", i)
		}
		price, err := decimal.NewFromString(l.Price.String())
		if err != nil {
			return nil, errors.Wrapf(err, "cart line %d: price", i)
		}
		if l.Quantity < 1 {
			return nil, errors.Errorf("cart line %d: quantity %d", i, l.Quantity)
		}
		lines = append(lines, CartLine{
			ProductID: id,
			Name:      l.Name,
			Price:     price,
			ImageURL:  l.ImageURL,
			WoodType:  l.WoodType,
			Quantity:  l.Quantity,
		})
	}
	return lines, nil
}
