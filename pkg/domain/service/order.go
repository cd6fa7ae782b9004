package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"woodstore/pkg/domain/model"
)

var (
	ErrOrderCannotBeModified = wrapKind(model.ErrInvalidTransition, "order cannot be modified in its current state")
	ErrOrderIsEmpty          = wrapKind(model.ErrValidation, "cannot place an empty order")
	ErrTransactionIDRequired = wrapKind(model.ErrValidation, "transaction id is required")
)

type OrderService interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, details model.DeliveryDetails, lines []model.CartLine, method model.PaymentMethod) (*model.Order, error)
	NextOrderID() (uuid.UUID, error)
	// PlaceReservedOrder creates the order under a previously reserved id. When
	// that order already exists and is still pending it is returned unchanged.
	PlaceReservedOrder(ctx context.Context, orderID, userID uuid.UUID, details model.DeliveryDetails, lines []model.CartLine, method model.PaymentMethod) (*model.Order, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error)
	SubmitPayment(ctx context.Context, orderID uuid.UUID, transactionID, screenshotURL string) error
	ConfirmPayment(ctx context.Context, orderID uuid.UUID) error
	ListOrders(ctx context.Context) ([]model.Order, error)
}

func NewOrderService(repo model.OrderRepository, dispatcher EventDispatcher) OrderService {
	return &orderService{repo: repo, dispatcher: dispatcher, now: time.Now}
}

type orderService struct {
	repo       model.OrderRepository
	dispatcher EventDispatcher
	now        func() time.Time
}

func (s *orderService) PlaceOrder(
	ctx context.Context,
	userID uuid.UUID,
	details model.DeliveryDetails,
	lines []model.CartLine,
	method model.PaymentMethod,
) (*model.Order, error) {
	if len(lines) == 0 {
		return nil, ErrOrderIsEmpty
	}
	orderID, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}
	return s.placeOrder(ctx, orderID, userID, details, lines, method)
}

func (s *orderService) NextOrderID() (uuid.UUID, error) {
	return s.repo.NextID()
}

func (s *orderService) PlaceReservedOrder(
	ctx context.Context,
	orderID uuid.UUID,
	userID uuid.UUID,
	details model.DeliveryDetails,
	lines []model.CartLine,
	method model.PaymentMethod,
) (*model.Order, error) {
	order, err := s.FindOrder(ctx, orderID)
	switch {
	case err == nil:
		if order.PaymentStatus != model.PaymentPending {
			return nil, ErrOrderCannotBeModified
		}
		return order, nil
	case !errors.Is(err, model.ErrNotFound):
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrOrderIsEmpty
	}
	return s.placeOrder(ctx, orderID, userID, details, lines, method)
}

func (s *orderService) placeOrder(
	ctx context.Context,
	orderID uuid.UUID,
	userID uuid.UUID,
	details model.DeliveryDetails,
	lines []model.CartLine,
	method model.PaymentMethod,
) (*model.Order, error) {
	now := s.now().UTC()
	order := &model.Order{
		ID:              orderID,
		UserID:          userID,
		CustomerName:    details.Name,
		CustomerPhone:   details.Phone,
		CustomerAddress: details.Address,
		City:            details.City,
		Pincode:         details.Pincode,
		Items:           model.OrderItemsFromCart(lines),
		PaymentMethod:   method,
		PaymentStatus:   model.PaymentPending,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.recalculateTotal(order)

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, model.WithKind(model.ErrDataAccess, err)
	}

	dispatch(s.dispatcher, model.OrderCreated{
		OrderID: order.ID,
		UserID:  userID,
		Total:   order.Total,
		Method:  method,
	})
	return order, nil
}

func (s *orderService) FindOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, model.WithKind(model.ErrDataAccess, err)
	}
	return order, nil
}

// SubmitPayment attaches the customer's payment evidence. Repeating the call
// with the transaction id already on record is a no-op.
func (s *orderService) SubmitPayment(ctx context.Context, orderID uuid.UUID, transactionID, screenshotURL string) error {
	if transactionID == "" {
		return ErrTransactionIDRequired
	}
	order, err := s.FindOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.PaymentStatus == model.PaymentSubmitted && order.TransactionID == transactionID {
		return nil
	}
	if order.PaymentStatus != model.PaymentPending {
		return ErrOrderCannotBeModified
	}

	order.TransactionID = transactionID
	order.ScreenshotURL = screenshotURL
	order.PaymentStatus = model.PaymentSubmitted
	if err := s.updateOrder(ctx, order); err != nil {
		return err
	}

	dispatch(s.dispatcher, model.OrderPaymentSubmitted{
		OrderID:       orderID,
		TransactionID: transactionID,
		ScreenshotURL: screenshotURL,
	})
	return nil
}

func (s *orderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.FindOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.PaymentStatus != model.PaymentSubmitted {
		return ErrOrderCannotBeModified
	}

	order.PaymentStatus = model.PaymentConfirmed
	if err := s.updateOrder(ctx, order); err != nil {
		return err
	}

	dispatch(s.dispatcher, model.OrderPaymentConfirmed{OrderID: orderID})
	return nil
}

func (s *orderService) ListOrders(ctx context.Context) ([]model.Order, error) {
	orders, err := s.repo.ListNewestFirst(ctx)
	if err != nil {
		return nil, model.WithKind(model.ErrDataAccess, err)
	}
	return orders, nil
}

func (s *orderService) recalculateTotal(order *model.Order) {
	total := decimal.Zero
	for _, item := range order.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	order.Total = total
}

func (s *orderService) updateOrder(ctx context.Context, order *model.Order) error {
	order.Version++
	order.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, order); err != nil {
		return model.WithKind(model.ErrDataAccess, err)
	}
	return nil
}
