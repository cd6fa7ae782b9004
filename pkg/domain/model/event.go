package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderCreated struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	Total   decimal.Decimal
	Method  PaymentMethod
}

func (e OrderCreated) Type() string { return "OrderCreated" }

type OrderPaymentSubmitted struct {
	OrderID       uuid.UUID
	TransactionID string
	ScreenshotURL string
}

func (e OrderPaymentSubmitted) Type() string { return "OrderPaymentSubmitted" }

type OrderPaymentConfirmed struct {
	OrderID uuid.UUID
}

func (e OrderPaymentConfirmed) Type() string { return "OrderPaymentConfirmed" }

type ProductCreated struct {
	ProductID uuid.UUID
	Name      string
}

func (e ProductCreated) Type() string { return "ProductCreated" }

type ProductUpdated struct {
	ProductID uuid.UUID
}

func (e ProductUpdated) Type() string { return "ProductUpdated" }

type ProductDeleted struct {
	ProductID uuid.UUID
}

func (e ProductDeleted) Type() string { return "ProductDeleted" }

type UserRegistered struct {
	UserID uuid.UUID
	Email  string
}

func (e UserRegistered) Type() string { return "UserRegistered" }

type EnquiryRelayed struct {
	Name    string
	Product string
}

func (e EnquiryRelayed) Type() string { return "EnquiryRelayed" }
