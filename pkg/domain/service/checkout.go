package service

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"woodstore/pkg/domain/model"
)

var (
	ErrCartEmpty  = wrapKind(model.ErrValidation, "cart is empty")
	ErrCartLocked = wrapKind(model.ErrInvalidTransition, "cart cannot change while the order awaits payment")
)

type CheckoutConfig struct {
	Mode           model.CheckoutMode
	StoreName      string
	UPIID          string
	PayeeName      string
	WhatsAppNumber string
}

type PaymentInstructions struct {
	OrderID  uuid.UUID       `json:"order_id"`
	UPIID    string          `json:"upi_id"`
	Payee    string          `json:"payee"`
	Amount   decimal.Decimal `json:"amount"`
	DeepLink string          `json:"deep_link"`
}

type PaymentEvidence struct {
	TransactionID string
	Screenshot    *model.Attachment
}

type CheckoutResult struct {
	Checkout *model.Checkout
	Order    *model.Order
	// MessageLink is set when the checkout ends with a chat hand-off.
	MessageLink string
}

type CheckoutService interface {
	State(ctx context.Context, token string) (*model.Checkout, error)
	Begin(ctx context.Context, token string, identity *model.Identity) (*model.Checkout, error)
	SubmitDelivery(ctx context.Context, token string, identity *model.Identity, details model.DeliveryDetails) (*CheckoutResult, error)
	MarkPaid(ctx context.Context, token string) (*model.Checkout, error)
	SubmitPayment(ctx context.Context, token string, evidence PaymentEvidence) (*model.Checkout, error)
	Back(ctx context.Context, token string) (*model.Checkout, error)
	Restart(ctx context.Context, token string) (*model.Checkout, error)
	PaymentInstructions(ctx context.Context, checkout *model.Checkout) (*PaymentInstructions, error)
	// EnsureCartEditable fails with ErrCartLocked once an order has been placed
	// from the cart and is waiting for payment.
	EnsureCartEditable(ctx context.Context, token string) error
}

func NewCheckoutService(
	cfg CheckoutConfig,
	checkouts model.CheckoutRepository,
	carts CartService,
	orders OrderService,
	media model.MediaStore,
) CheckoutService {
	return &checkoutService{
		cfg:       cfg,
		checkouts: checkouts,
		carts:     carts,
		orders:    orders,
		media:     media,
		now:       time.Now,
	}
}

type checkoutService struct {
	cfg       CheckoutConfig
	checkouts model.CheckoutRepository
	carts     CartService
	orders    OrderService
	media     model.MediaStore
	now       func() time.Time
}

func (s *checkoutService) State(ctx context.Context, token string) (*model.Checkout, error) {
	return s.load(ctx, token)
}

func (s *checkoutService) Begin(ctx context.Context, token string, identity *model.Identity) (*model.Checkout, error) {
	checkout, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	cart, err := s.carts.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrCartEmpty
	}
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	if checkout.Stage == model.StageDone {
		if err := checkout.Restart(); err != nil {
			return nil, err
		}
	}
	if err := checkout.Begin(); err != nil {
		return nil, err
	}
	return checkout, s.store(ctx, checkout)
}

func (s *checkoutService) SubmitDelivery(
	ctx context.Context,
	token string,
	identity *model.Identity,
	details model.DeliveryDetails,
) (*CheckoutResult, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	checkout, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	if checkout.Stage != model.StageCheckout {
		return nil, errors.Wrapf(model.ErrInvalidTransition, "cannot submit delivery details at stage %s", checkout.Stage)
	}
	if err := details.Validate(checkout.Mode == model.ModeUPI); err != nil {
		return nil, err
	}
	cart, err := s.carts.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrCartEmpty
	}

	if checkout.OrderID == uuid.Nil {
		orderID, err := s.orders.NextOrderID()
		if err != nil {
			return nil, err
		}
		if err := checkout.ReserveOrder(orderID); err != nil {
			return nil, err
		}
		if err := s.store(ctx, checkout); err != nil {
			return nil, err
		}
	}

	order, err := s.orders.PlaceReservedOrder(ctx, checkout.OrderID, identity.UserID, details, cart.Lines(), checkout.Mode.PaymentMethod())
	if err != nil {
		return nil, err
	}
	if err := checkout.AcceptDelivery(order.ID); err != nil {
		return nil, err
	}
	if err := s.store(ctx, checkout); err != nil {
		return nil, err
	}

	result := &CheckoutResult{Checkout: checkout, Order: order}
	switch checkout.Mode {
	case model.ModeMessaging:
		result.MessageLink = model.ChatLink(s.cfg.WhatsAppNumber, s.orderMessage(order))
		if err := s.carts.Clear(ctx, token); err != nil {
			log.WithError(err).WithField("order", order.ID).Error("failed to clear cart after order")
		}
	case model.ModeUPI:
	}
	return result, nil
}

func (s *checkoutService) MarkPaid(ctx context.Context, token string) (*model.Checkout, error) {
	return s.transition(ctx, token, (*model.Checkout).MarkPaid)
}

// SubmitPayment records the payment evidence and completes the checkout. The
// cart is cleared only after the order update succeeds.
func (s *checkoutService) SubmitPayment(ctx context.Context, token string, evidence PaymentEvidence) (*model.Checkout, error) {
	transactionID := strings.TrimSpace(evidence.TransactionID)
	if transactionID == "" {
		return nil, requiredField("transaction id")
	}
	checkout, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	if checkout.Stage != model.StageConfirm {
		return nil, errors.Wrapf(model.ErrInvalidTransition, "cannot submit payment at stage %s", checkout.Stage)
	}

	var screenshotURL string
	if evidence.Screenshot != nil {
		name := fmt.Sprintf("%s-%d%s", checkout.OrderID, s.now().UnixMilli(), strings.ToLower(filepath.Ext(evidence.Screenshot.Filename)))
		screenshotURL, err = s.media.Upload(ctx, model.PaymentScreenshotsBucket, name, evidence.Screenshot.Body)
		if err != nil {
			return nil, model.WithKind(model.ErrUpload, err)
		}
	}

	if err := s.orders.SubmitPayment(ctx, checkout.OrderID, transactionID, screenshotURL); err != nil {
		return nil, err
	}
	if err := s.carts.Clear(ctx, token); err != nil {
		return nil, err
	}
	if err := checkout.Complete(); err != nil {
		return nil, err
	}
	return checkout, s.store(ctx, checkout)
}

func (s *checkoutService) Back(ctx context.Context, token string) (*model.Checkout, error) {
	return s.transition(ctx, token, (*model.Checkout).Back)
}

func (s *checkoutService) Restart(ctx context.Context, token string) (*model.Checkout, error) {
	return s.transition(ctx, token, (*model.Checkout).Restart)
}

func (s *checkoutService) PaymentInstructions(ctx context.Context, checkout *model.Checkout) (*PaymentInstructions, error) {
	if checkout.OrderID == uuid.Nil {
		return nil, model.ErrOrderNotFound
	}
	order, err := s.orders.FindOrder(ctx, checkout.OrderID)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("pa", s.cfg.UPIID)
	query.Set("pn", s.cfg.PayeeName)
	query.Set("am", order.Total.StringFixed(2))
	query.Set("cu", "INR")
	query.Set("tn", "Order "+shortID(order.ID))

	return &PaymentInstructions{
		OrderID:  order.ID,
		UPIID:    s.cfg.UPIID,
		Payee:    s.cfg.PayeeName,
		Amount:   order.Total,
		DeepLink: "upi://pay?" + query.Encode(),
	}, nil
}

func (s *checkoutService) EnsureCartEditable(ctx context.Context, token string) error {
	checkout, err := s.load(ctx, token)
	if err != nil {
		return err
	}
	switch checkout.Stage {
	case model.StagePayment, model.StageConfirm:
		return ErrCartLocked
	case model.StageCart, model.StageCheckout, model.StageDone:
	}
	return nil
}

func (s *checkoutService) transition(ctx context.Context, token string, step func(*model.Checkout) error) (*model.Checkout, error) {
	checkout, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := step(checkout); err != nil {
		return nil, err
	}
	return checkout, s.store(ctx, checkout)
}

func (s *checkoutService) load(ctx context.Context, token string) (*model.Checkout, error) {
	checkout, err := s.checkouts.Find(ctx, token)
	if errors.Is(err, model.ErrCheckoutNotFound) {
		return model.NewCheckout(token, s.cfg.Mode), nil
	}
	if err != nil {
		return nil, model.WithKind(model.ErrDataAccess, err)
	}
	return checkout, nil
}

func (s *checkoutService) store(ctx context.Context, checkout *model.Checkout) error {
	checkout.UpdatedAt = s.now().UTC()
	if err := s.checkouts.Store(ctx, checkout); err != nil {
		return model.WithKind(model.ErrDataAccess, err)
	}
	return nil
}

func (s *checkoutService) orderMessage(order *model.Order) []string {
	lines := []string{
		fmt.Sprintf("*New Order from %s Website*", s.cfg.StoreName),
		"",
		"*Customer:* " + order.CustomerName,
		"*Phone:* " + order.CustomerPhone,
		"*Address:* " + order.CustomerAddress,
		"",
		"*Items:*",
	}
	for _, item := range order.Items {
		subtotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		lines = append(lines, fmt.Sprintf("• %s x%d - %s", item.Name, item.Quantity, FormatRupees(subtotal)))
	}
	return append(lines, "", fmt.Sprintf("*Total: %s*", FormatRupees(order.Total)))
}

func shortID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}

// FormatRupees renders amount with Indian digit grouping, e.g. ₹1,23,456.5.
func FormatRupees(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")
	frac = strings.TrimRight(frac, "0")

	if len(intPart) > 3 {
		head, tail := intPart[:len(intPart)-3], intPart[len(intPart)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		groups = append([]string{head}, groups...)
		intPart = strings.Join(groups, ",") + "," + tail
	}

	out := sign + "₹" + intPart
	if frac != "" {
		out += "." + frac
	}
	return out
}
