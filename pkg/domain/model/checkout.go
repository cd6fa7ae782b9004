package model

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type CheckoutStage int

const (
	StageCart CheckoutStage = iota
	StageCheckout
	StagePayment
	StageConfirm
	StageDone
)

func (s CheckoutStage) String() string {
	switch s {
	case StageCart:
		return "cart"
	case StageCheckout:
		return "checkout"
	case StagePayment:
		return "payment"
	case StageConfirm:
		return "confirm"
	case StageDone:
		return "done"
	}
	return "unknown"
}

func ParseCheckoutStage(s string) (CheckoutStage, error) {
	switch s {
	case "cart":
		return StageCart, nil
	case "checkout":
		return StageCheckout, nil
	case "payment":
		return StagePayment, nil
	case "confirm":
		return StageConfirm, nil
	case "done":
		return StageDone, nil
	}
	return StageCart, errors.Errorf("unknown checkout stage %q", s)
}

func (s CheckoutStage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// CheckoutMode selects how a checkout ends: ModeUPI asks the customer for
// payment evidence, ModeMessaging hands the order off to a chat link.
type CheckoutMode int

const (
	ModeUPI CheckoutMode = iota
	ModeMessaging
)

func (m CheckoutMode) String() string {
	switch m {
	case ModeUPI:
		return "upi"
	case ModeMessaging:
		return "messaging"
	}
	return "unknown"
}

func ParseCheckoutMode(s string) (CheckoutMode, error) {
	switch s {
	case "upi":
		return ModeUPI, nil
	case "messaging":
		return ModeMessaging, nil
	}
	return ModeUPI, errors.Errorf("unknown checkout mode %q", s)
}

func (m CheckoutMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m CheckoutMode) PaymentMethod() PaymentMethod {
	switch m {
	case ModeMessaging:
		return PaymentMessaging
	case ModeUPI:
	}
	return PaymentUPI
}

// Checkout is one pass of a cart through the checkout stages.
type Checkout struct {
	Token     string
	Mode      CheckoutMode
	Stage     CheckoutStage
	OrderID   uuid.UUID
	UpdatedAt time.Time
}

func NewCheckout(token string, mode CheckoutMode) *Checkout {
	return &Checkout{Token: token, Mode: mode, Stage: StageCart}
}

func (c *Checkout) Begin() error {
	if c.Stage != StageCart {
		return c.invalid("begin")
	}
	c.Stage = StageCheckout
	return nil
}

// ReserveOrder remembers the id the order will be created under, so a
// repeated delivery submission finds the same order.
func (c *Checkout) ReserveOrder(orderID uuid.UUID) error {
	if c.Stage != StageCheckout {
		return c.invalid("reserve an order")
	}
	c.OrderID = orderID
	return nil
}

// AcceptDelivery records the order created from the delivery details.
func (c *Checkout) AcceptDelivery(orderID uuid.UUID) error {
	if c.Stage != StageCheckout {
		return c.invalid("submit delivery details")
	}
	c.OrderID = orderID
	switch c.Mode {
	case ModeUPI:
		c.Stage = StagePayment
	case ModeMessaging:
		c.Stage = StageDone
	}
	return nil
}

func (c *Checkout) MarkPaid() error {
	if c.Stage != StagePayment || c.Mode != ModeUPI {
		return c.invalid("mark paid")
	}
	c.Stage = StageConfirm
	return nil
}

func (c *Checkout) Complete() error {
	if c.Stage != StageConfirm {
		return c.invalid("submit payment")
	}
	c.Stage = StageDone
	return nil
}

func (c *Checkout) Back() error {
	switch c.Stage {
	case StageConfirm:
		c.Stage = StagePayment
	case StageCheckout:
		c.Stage = StageCart
		c.OrderID = uuid.Nil
	case StageCart, StagePayment, StageDone:
		return c.invalid("go back")
	}
	return nil
}

// Restart starts a fresh checkout instance once the previous one is done.
func (c *Checkout) Restart() error {
	if c.Stage != StageDone {
		return c.invalid("restart")
	}
	c.Stage = StageCart
	c.OrderID = uuid.Nil
	return nil
}

func (c *Checkout) invalid(action string) error {
	return errors.Wrapf(ErrInvalidTransition, "cannot %s at stage %s", action, c.Stage)
}

type CheckoutRepository interface {
	// Find returns ErrCheckoutNotFound when token has no checkout yet.
	Find(ctx context.Context, token string) (*Checkout, error)
	Store(ctx context.Context, checkout *Checkout) error
}
