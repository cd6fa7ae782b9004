package transport

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"woodstore/pkg/domain/model"
	"woodstore/pkg/domain/service"
)

type checkoutResponse struct {
	Mode        model.CheckoutMode           `json:"mode"`
	Stage       model.CheckoutStage          `json:"stage"`
	OrderID     *uuid.UUID                   `json:"order_id,omitempty"`
	Payment     *service.PaymentInstructions `json:"payment,omitempty"`
	Order       *model.Order                 `json:"order,omitempty"`
	MessageLink string                       `json:"message_link,omitempty"`
}

type paymentForm struct {
	TransactionID string `schema:"transaction_id"`
}

func (h *Handler) checkoutResponse(r *http.Request, checkout *model.Checkout) (checkoutResponse, error) {
	resp := checkoutResponse{Mode: checkout.Mode, Stage: checkout.Stage}
	if checkout.OrderID != uuid.Nil {
		orderID := checkout.OrderID
		resp.OrderID = &orderID
	}
	switch checkout.Stage {
	case model.StagePayment, model.StageConfirm:
		payment, err := h.services.Checkout.PaymentInstructions(r.Context(), checkout)
		if err != nil {
			return resp, err
		}
		resp.Payment = payment
	case model.StageCart, model.StageCheckout, model.StageDone:
	}
	return resp, nil
}

func (h *Handler) writeCheckout(w http.ResponseWriter, r *http.Request, checkout *model.Checkout, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := h.checkoutResponse(r, checkout)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getCheckout(w http.ResponseWriter, r *http.Request) {
	checkout, err := h.services.Checkout.State(r.Context(), h.cartToken(w, r))
	h.writeCheckout(w, r, checkout, err)
}

func (h *Handler) beginCheckout(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	checkout, err := h.services.Checkout.Begin(r.Context(), h.cartToken(w, r), identity)
	h.writeCheckout(w, r, checkout, err)
}

func (h *Handler) submitDelivery(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var details model.DeliveryDetails
	if err := decodeJSON(r, &details); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.services.Checkout.SubmitDelivery(r.Context(), h.cartToken(w, r), identity, details)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := h.checkoutResponse(r, result.Checkout)
	if err != nil {
		writeError(w, err)
		return
	}
	resp.Order = result.Order
	resp.MessageLink = result.MessageLink
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	checkout, err := h.services.Checkout.MarkPaid(r.Context(), h.cartToken(w, r))
	h.writeCheckout(w, r, checkout, err)
}

// submitPayment accepts a multipart form with a transaction_id field and an
// optional screenshot file.
func (h *Handler) submitPayment(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		writeError(w, err)
		return
	}
	var form paymentForm
	if err := h.decoder.Decode(&form, r.MultipartForm.Value); err != nil {
		writeError(w, errors.Wrap(model.ErrValidation, err.Error()))
		return
	}

	evidence := service.PaymentEvidence{TransactionID: form.TransactionID}
	file, header, err := r.FormFile("screenshot")
	switch {
	case err == nil:
		defer file.Close()
		evidence.Screenshot = &model.Attachment{Filename: header.Filename, Body: file}
	case errors.Is(err, http.ErrMissingFile):
	default:
		writeError(w, errors.Wrap(model.ErrValidation, "unreadable screenshot"))
		return
	}

	checkout, err := h.services.Checkout.SubmitPayment(r.Context(), h.cartToken(w, r), evidence)
	h.writeCheckout(w, r, checkout, err)
}

func (h *Handler) checkoutBack(w http.ResponseWriter, r *http.Request) {
	checkout, err := h.services.Checkout.Back(r.Context(), h.cartToken(w, r))
	h.writeCheckout(w, r, checkout, err)
}

func (h *Handler) restartCheckout(w http.ResponseWriter, r *http.Request) {
	checkout, err := h.services.Checkout.Restart(r.Context(), h.cartToken(w, r))
	h.writeCheckout(w, r, checkout, err)
}
