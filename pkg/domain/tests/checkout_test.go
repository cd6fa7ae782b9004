package tests

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"woodstore/pkg/domain/model"
	"woodstore/pkg/domain/service"
)

const cartToken = "6a0c8f52-93b1-4c52-a2d5-2f1e7a4b9c01"

type checkoutFixture struct {
	checkout  service.CheckoutService
	carts     service.CartService
	checkouts *mockCheckoutRepository
	storage   *mockCartStorage
	orders    *mockOrderRepository
	media     *mockMediaStore
}

func setupCheckout(t *testing.T, mode model.CheckoutMode) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		checkouts: newMockCheckoutRepository(),
		storage:   newMockCartStorage(),
		orders:    newMockOrderRepository(),
		media:     &mockMediaStore{},
	}
	f.carts = service.NewCartService(f.storage)
	f.checkout = service.NewCheckoutService(
		service.CheckoutConfig{
			Mode:           mode,
			StoreName:      "EMMES Industries",
			UPIID:          "emmes@upi",
			PayeeName:      "EMMES Industries",
			WhatsAppNumber: "919843167364",
		},
		f.checkouts,
		f.carts,
		service.NewOrderService(f.orders, &mockEventDispatcher{}),
		f.media,
	)
	return f
}

// fillCart puts 2 x 500 and 1 x 1200 in the cart.
func (f *checkoutFixture) fillCart(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	chair := cartLine("Chair", 500)
	table := cartLine("Table", 1200)
	for _, line := range []model.CartLine{chair, chair, table} {
		_, err := f.carts.AddItem(ctx, cartToken, line)
		require.NoError(t, err)
	}
}

func (f *checkoutFixture) cart(t *testing.T) *model.Cart {
	t.Helper()
	cart, err := f.carts.Get(context.Background(), cartToken)
	require.NoError(t, err)
	return cart
}

func (f *checkoutFixture) stage() model.CheckoutStage {
	return f.checkouts.store[cartToken].Stage
}

// toConfirm walks a filled cart up to the Confirm stage.
func (f *checkoutFixture) toConfirm(t *testing.T) *model.Checkout {
	t.Helper()
	ctx := context.Background()
	f.fillCart(t)
	_, err := f.checkout.Begin(ctx, cartToken, customerIdentity())
	require.NoError(t, err)
	_, err = f.checkout.SubmitDelivery(ctx, cartToken, customerIdentity(), delivery())
	require.NoError(t, err)
	checkout, err := f.checkout.MarkPaid(ctx, cartToken)
	require.NoError(t, err)
	require.Equal(t, model.StageConfirm, checkout.Stage)
	return checkout
}

func TestCheckoutBegin(t *testing.T) {
	ctx := context.Background()

	t.Run("Fail on empty cart", func(t *testing.T) {
		f := setupCheckout(t, model.ModeUPI)
		_, err := f.checkout.Begin(ctx, cartToken, customerIdentity())
		assert.ErrorIs(t, err, service.ErrCartEmpty)
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("Fail without identity and stay at cart", func(t *testing.T) {
		f := setupCheckout(t, model.ModeUPI)
		f.fillCart(t)
		_, err := f.checkout.Begin(ctx, cartToken, nil)
		assert.ErrorIs(t, err, model.ErrAuthRequired)

		checkout, err := f.checkout.State(ctx, cartToken)
		require.NoError(t, err)
		assert.Equal(t, model.StageCart, checkout.Stage)
	})

	t.Run("Success", func(t *testing.T) {
		f := setupCheckout(t, model.ModeUPI)
		f.fillCart(t)
		checkout, err := f.checkout.Begin(ctx, cartToken, customerIdentity())
		require.NoError(t, err)
		assert.Equal(t, model.StageCheckout, checkout.Stage)
		assert.Equal(t, model.StageCheckout, f.stage())
	})
}

func TestCheckoutSubmitDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("Fail on missing phone", func(t *testing.T) {
		f := setupCheckout(t, model.ModeUPI)
		f.fillCart(t)
		_, err := f.checkout.Begin(ctx, cartToken, customerIdentity())
		require.NoError(t, err)

		details := delivery()
		details.Phone = ""
		_, err = f.checkout.SubmitDelivery(ctx, cartToken, customerIdentity(), details)
		assert.ErrorIs(t, err, model.ErrValidation)
		assert.Equal(t, model.StageCheckout, f.stage())
		assert.Empty(t, f.orders.store)
	})

	t.Run("Fail before begin", func(t *testing.T) {
		f := setupCheckout(t, model.ModeUPI)
		f.fillCart(t)
		_, err := f.checkout.SubmitDelivery(ctx, cartToken, customerIdentity(), delivery())
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
	})

	t.Run("Order store failure stays at checkout", func(t *testing.T) {
		f := setupCheckout(t, model.ModeUPI)
		f.fillCart(t)
		_, err := f.checkout.Begin(ctx, cartToken, customerIdentity())
		require.NoError(t, err)

		f.orders.createErr = errStoreDown
		_, err = f.checkout.SubmitDelivery(ctx, cartToken, customerIdentity(), delivery())
		assert.ErrorIs(t, err, model.ErrDataAccess)
		assert.Equal(t, model.StageCheckout, f.stage())
		assert.Empty(t, f.orders.store)
		assert.Equal(t, 3, f.cart(t).Count())

		f.orders.createErr = nil
		result, err := f.checkout.SubmitDelivery(ctx, cartToken, customerIdentity(), delivery())
		require.NoError(t, err)
		assert.Equal(t, model.StagePayment, result.Checkout.Stage)
		assert.Len(t, f.orders.store, 1)
	})

	t.Run("Retry after checkout store failure keeps one order", func(t *testing.T) {
		f := setupCheckout(t, model.ModeUPI)
		f.fillCart(t)
		_, err := f.checkout.Begin(ctx, cartToken, customerIdentity())
		require.NoError(t, err)

		payment := model.StagePayment
		f.checkouts.failStage = &payment
		_, err = f.checkout.SubmitDelivery(ctx, cartToken, customerIdentity(), delivery())
		assert.ErrorIs(t, err, model.ErrDataAccess)
		assert.Equal(t, model.StageCheckout, f.stage())
		require.Len(t, f.orders.store, 1)

		f.checkouts.failStage = nil
		result, err := f.checkout.SubmitDelivery(ctx, cartToken, customerIdentity(), delivery())
		require.NoError(t, err)
		assert.Len(t, f.orders.store, 1)
		assert.Contains(t, f.orders.store, result.Order.ID)
		assert.Equal(t, result.Order.ID, result.Checkout.OrderID)
	})

	t.Run("Going back drops the reserved order id", func(t *testing.T) {
		f := setupCheckout(t, model.ModeUPI)
		f.fillCart(t)
		_, err := f.checkout.Begin(ctx, cartToken, customerIdentity())
		require.NoError(t, err)

		f.orders.createErr = errStoreDown
		_, err = f.checkout.SubmitDelivery(ctx, cartToken, customerIdentity(), delivery())
		require.Error(t, err)

		checkout, err := f.checkout.Back(ctx, cartToken)
		require.NoError(t, err)
		assert.Equal(t, model.StageCart, checkout.Stage)
		assert.Equal(t, uuid.Nil, checkout.OrderID)
	})

	t.Run("Creates one pending order", func(t *testing.T) {
		f := setupCheckout(t, model.ModeUPI)
		f.fillCart(t)
		_, err := f.checkout.Begin(ctx, cartToken, customerIdentity())
		require.NoError(t, err)

		result, err := f.checkout.SubmitDelivery(ctx, cartToken, customerIdentity(), delivery())
		require.NoError(t, err)
		assert.Equal(t, model.StagePayment, result.Checkout.Stage)
		assert.Equal(t, result.Order.ID, result.Checkout.OrderID)
		assert.Empty(t, result.MessageLink)

		require.Len(t, f.orders.store, 1)
		order := f.orders.store[result.Order.ID]
		assert.Equal(t, model.PaymentPending, order.PaymentStatus)
		assert.True(t, decimal.NewFromInt(2200).Equal(order.Total))
		assert.Equal(t, 3, f.cart(t).Count())
	})
}

func TestCheckoutPaymentInstructions(t *testing.T) {
	ctx := context.Background()
	f := setupCheckout(t, model.ModeUPI)
	checkout := f.toConfirm(t)

	instructions, err := f.checkout.PaymentInstructions(ctx, checkout)
	require.NoError(t, err)
	assert.Equal(t, "emmes@upi", instructions.UPIID)
	assert.True(t, decimal.NewFromInt(2200).Equal(instructions.Amount))

	require.True(t, strings.HasPrefix(instructions.DeepLink, "upi://pay?"))
	query, err := url.ParseQuery(strings.TrimPrefix(instructions.DeepLink, "upi://pay?"))
	require.NoError(t, err)
	assert.Equal(t, "emmes@upi", query.Get("pa"))
	assert.Equal(t, "2200.00", query.Get("am"))
	assert.Equal(t, "INR", query.Get("cu"))
}

func TestCheckoutSubmitPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Fail on empty transaction id", func(t *testing.T) {
		f := setupCheckout(t, model.ModeUPI)
		f.toConfirm(t)
		_, err := f.checkout.SubmitPayment(ctx, cartToken, service.PaymentEvidence{TransactionID: "  "})
		assert.ErrorIs(t, err, model.ErrValidation)
		assert.Equal(t, model.StageConfirm, f.stage())
	})

	t.Run("Failed order update keeps the cart and the stage", func(t *testing.T) {
		f := setupCheckout(t, model.ModeUPI)
		f.toConfirm(t)
		f.orders.updateErr = errStoreDown

		_, err := f.checkout.SubmitPayment(ctx, cartToken, service.PaymentEvidence{TransactionID: "UTR1"})
		assert.ErrorIs(t, err, model.ErrDataAccess)
		assert.Equal(t, model.StageConfirm, f.stage())
		assert.Equal(t, 3, f.cart(t).Count())
	})

	t.Run("Failed upload keeps the cart and the stage", func(t *testing.T) {
		f := setupCheckout(t, model.ModeUPI)
		f.toConfirm(t)
		f.media.err = errStoreDown

		_, err := f.checkout.SubmitPayment(ctx, cartToken, service.PaymentEvidence{
			TransactionID: "UTR1",
			Screenshot:    &model.Attachment{Filename: "shot.png", Body: strings.NewReader("png")},
		})
		assert.ErrorIs(t, err, model.ErrUpload)
		assert.Equal(t, model.StageConfirm, f.stage())
		assert.Equal(t, 3, f.cart(t).Count())
	})

	t.Run("Success", func(t *testing.T) {
		f := setupCheckout(t, model.ModeUPI)
		confirm := f.toConfirm(t)

		checkout, err := f.checkout.SubmitPayment(ctx, cartToken, service.PaymentEvidence{
			TransactionID: "UTR123456",
			Screenshot:    &model.Attachment{Filename: "Shot.PNG", Body: strings.NewReader("png")},
		})
		require.NoError(t, err)
		assert.Equal(t, model.StageDone, checkout.Stage)
		assert.True(t, f.cart(t).IsEmpty())

		require.Len(t, f.media.uploads, 1)
		shot := f.media.uploads[0]
		assert.Equal(t, model.PaymentScreenshotsBucket, shot.bucket)
		assert.True(t, strings.HasPrefix(shot.name, confirm.OrderID.String()+"-"))
		assert.True(t, strings.HasSuffix(shot.name, ".png"))

		order := f.orders.store[confirm.OrderID]
		assert.Equal(t, model.PaymentSubmitted, order.PaymentStatus)
		assert.Equal(t, "UTR123456", order.TransactionID)
		assert.Contains(t, order.ScreenshotURL, shot.name)
	})
}

func TestCheckoutBackAndRestart(t *testing.T) {
	ctx := context.Background()
	f := setupCheckout(t, model.ModeUPI)
	f.toConfirm(t)

	checkout, err := f.checkout.Back(ctx, cartToken)
	require.NoError(t, err)
	assert.Equal(t, model.StagePayment, checkout.Stage)

	_, err = f.checkout.Back(ctx, cartToken)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = f.checkout.Restart(ctx, cartToken)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = f.checkout.MarkPaid(ctx, cartToken)
	require.NoError(t, err)
	_, err = f.checkout.SubmitPayment(ctx, cartToken, service.PaymentEvidence{TransactionID: "UTR1"})
	require.NoError(t, err)

	checkout, err = f.checkout.Restart(ctx, cartToken)
	require.NoError(t, err)
	assert.Equal(t, model.StageCart, checkout.Stage)
	assert.Equal(t, model.StageCart, f.stage())

	f.fillCart(t)
	_, err = f.checkout.Begin(ctx, cartToken, customerIdentity())
	require.NoError(t, err)
	checkout, err = f.checkout.Back(ctx, cartToken)
	require.NoError(t, err)
	assert.Equal(t, model.StageCart, checkout.Stage)
}

func TestCheckoutBeginAfterDoneStartsOver(t *testing.T) {
	ctx := context.Background()
	f := setupCheckout(t, model.ModeUPI)
	f.toConfirm(t)
	_, err := f.checkout.SubmitPayment(ctx, cartToken, service.PaymentEvidence{TransactionID: "UTR1"})
	require.NoError(t, err)

	f.fillCart(t)
	checkout, err := f.checkout.Begin(ctx, cartToken, customerIdentity())
	require.NoError(t, err)
	assert.Equal(t, model.StageCheckout, checkout.Stage)
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", checkout.OrderID.String())
}

func TestCheckoutMessagingMode(t *testing.T) {
	ctx := context.Background()
	f := setupCheckout(t, model.ModeMessaging)
	f.fillCart(t)
	_, err := f.checkout.Begin(ctx, cartToken, customerIdentity())
	require.NoError(t, err)

	details := delivery()
	details.City = ""
	details.Pincode = ""
	result, err := f.checkout.SubmitDelivery(ctx, cartToken, customerIdentity(), details)
	require.NoError(t, err)

	assert.Equal(t, model.StageDone, result.Checkout.Stage)
	assert.Equal(t, model.PaymentMessaging, result.Order.PaymentMethod)
	assert.True(t, f.cart(t).IsEmpty())

	require.True(t, strings.HasPrefix(result.MessageLink, "https://wa.me/919843167364?text="))
	text, err := url.PathUnescape(strings.TrimPrefix(result.MessageLink, "https://wa.me/919843167364?text="))
	require.NoError(t, err)
	assert.Contains(t, text, "*New Order from EMMES Industries Website*")
	assert.Contains(t, text, "• Chair x2 - ₹1,000")
	assert.Contains(t, text, "*Total: ₹2,200*")

	_, err = f.checkout.MarkPaid(ctx, cartToken)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestFormatRupees(t *testing.T) {
	assert.Equal(t, "₹999", service.FormatRupees(decimal.NewFromInt(999)))
	assert.Equal(t, "₹2,200", service.FormatRupees(decimal.NewFromInt(2200)))
	assert.Equal(t, "₹1,23,456.5", service.FormatRupees(decimal.RequireFromString("123456.50")))
	assert.Equal(t, "₹1,00,00,000", service.FormatRupees(decimal.NewFromInt(10000000)))
}

func TestCheckoutLocksCartWhileAwaitingPayment(t *testing.T) {
	ctx := context.Background()
	f := setupCheckout(t, model.ModeUPI)
	require.NoError(t, f.checkout.EnsureCartEditable(ctx, cartToken))

	f.fillCart(t)
	_, err := f.checkout.Begin(ctx, cartToken, customerIdentity())
	require.NoError(t, err)
	require.NoError(t, f.checkout.EnsureCartEditable(ctx, cartToken))

	_, err = f.checkout.SubmitDelivery(ctx, cartToken, customerIdentity(), delivery())
	require.NoError(t, err)
	err = f.checkout.EnsureCartEditable(ctx, cartToken)
	assert.ErrorIs(t, err, service.ErrCartLocked)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = f.checkout.MarkPaid(ctx, cartToken)
	require.NoError(t, err)
	assert.ErrorIs(t, f.checkout.EnsureCartEditable(ctx, cartToken), service.ErrCartLocked)

	_, err = f.checkout.SubmitPayment(ctx, cartToken, service.PaymentEvidence{TransactionID: "UTR1"})
	require.NoError(t, err)
	assert.NoError(t, f.checkout.EnsureCartEditable(ctx, cartToken))
}
