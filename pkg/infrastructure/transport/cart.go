package transport

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"woodstore/pkg/domain/model"
)

var errOutOfStock = errors.Wrap(model.ErrValidation, "product is out of stock")

type cartLineResponse struct {
	model.CartLine
	Subtotal decimal.Decimal `json:"subtotal"`
}

type cartResponse struct {
	Items []cartLineResponse `json:"items"`
	Count int                `json:"count"`
	Total decimal.Decimal    `json:"total"`
}

func newCartResponse(cart *model.Cart) cartResponse {
	lines := cart.Lines()
	items := make([]cartLineResponse, 0, len(lines))
	for _, l := range lines {
		items = append(items, cartLineResponse{CartLine: l, Subtotal: l.Subtotal()})
	}
	return cartResponse{Items: items, Count: cart.Count(), Total: cart.Total()}
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.services.Cart.Get(r.Context(), h.cartToken(w, r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	token, ok := h.editableCart(w, r)
	if !ok {
		return
	}
	if err := h.services.Cart.Clear(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(model.NewCart(nil)))
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	product, err := h.services.Catalog.FindProduct(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !product.InStock {
		writeError(w, errOutOfStock)
		return
	}
	token, ok := h.editableCart(w, r)
	if !ok {
		return
	}

	cart, err := h.services.Cart.AddItem(r.Context(), token, model.NewCartLine(*product))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := pathUUID(r, "productID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, ok := h.editableCart(w, r)
	if !ok {
		return
	}

	cart, err := h.services.Cart.UpdateQuantity(r.Context(), token, productID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := pathUUID(r, "productID")
	if err != nil {
		writeError(w, err)
		return
	}

	token, ok := h.editableCart(w, r)
	if !ok {
		return
	}

	cart, err := h.services.Cart.RemoveItem(r.Context(), token, productID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

// editableCart returns the cart token unless the cart is locked by a checkout
// awaiting payment.
func (h *Handler) editableCart(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := h.cartToken(w, r)
	if err := h.services.Checkout.EnsureCartEditable(r.Context(), token); err != nil {
		writeError(w, err)
		return "", false
	}
	return token, true
}
