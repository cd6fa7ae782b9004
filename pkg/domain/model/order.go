package model

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type PaymentStatus int

const (
	PaymentPending PaymentStatus = iota
	PaymentSubmitted
	PaymentConfirmed
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentPending:
		return "pending"
	case PaymentSubmitted:
		return "submitted"
	case PaymentConfirmed:
		return "confirmed"
	}
	return "unknown"
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch s {
	case "pending":
		return PaymentPending, nil
	case "submitted":
		return PaymentSubmitted, nil
	case "confirmed":
		return PaymentConfirmed, nil
	}
	return PaymentPending, errors.Errorf("unknown payment status %q", s)
}

func (s PaymentStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type PaymentMethod int

const (
	PaymentUPI PaymentMethod = iota
	PaymentMessaging
)

func (m PaymentMethod) String() string {
	switch m {
	case PaymentUPI:
		return "upi"
	case PaymentMessaging:
		return "whatsapp"
	}
	return "unknown"
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch s {
	case "upi":
		return PaymentUPI, nil
	case "whatsapp":
		return PaymentMessaging, nil
	}
	return PaymentUPI, errors.Errorf("unknown payment method %q", s)
}

func (m PaymentMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

type OrderItem struct {
	ProductID uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url,omitempty"`
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerAddress string          `json:"customer_address"`
	City            string          `json:"city,omitempty"`
	Pincode         string          `json:"pincode,omitempty"`
	Items           []OrderItem     `json:"items"`
	Total           decimal.Decimal `json:"total"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	ScreenshotURL   string          `json:"payment_screenshot_url,omitempty"`
	Version         int             `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItemsFromCart snapshots cart lines at submission time.
func OrderItemsFromCart(lines []CartLine) []OrderItem {
	items := make([]OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price,
			Quantity:  l.Quantity,
			ImageURL:  l.ImageURL,
		})
	}
	return items
}

type DeliveryDetails struct {
	Name    string `json:"name" schema:"name"`
	Phone   string `json:"phone" schema:"phone"`
	Address string `json:"address" schema:"address"`
	City    string `json:"city" schema:"city"`
	Pincode string `json:"pincode" schema:"pincode"`
}

// Validate reports every blank required field. City and pincode are only
// required when withLocality is set.
func (d DeliveryDetails) Validate(withLocality bool) error {
	var missing []string
	check := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	check("name", d.Name)
	check("phone", d.Phone)
	check("address", d.Address)
	if withLocality {
		check("city", d.City)
		check("pincode", d.Pincode)
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrValidation, "missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

type OrderRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, order *Order) error
	Find(ctx context.Context, id uuid.UUID) (*Order, error)
	// Update fails with ErrOptimisticLock unless the stored version is order.Version-1.
	Update(ctx context.Context, order *Order) error
	ListNewestFirst(ctx context.Context) ([]Order, error)
}
