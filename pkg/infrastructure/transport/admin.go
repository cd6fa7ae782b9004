package transport

import (
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"woodstore/pkg/domain/model"
	"woodstore/pkg/domain/service"
)

type uploadResponse struct {
	URL string `json:"url"`
}

// adminIdentity resolves the caller for back-office routes. Rejection of
// anonymous and non-admin callers happens in the admin service.
func (h *Handler) adminIdentity(w http.ResponseWriter, r *http.Request) (*model.Identity, bool) {
	identity, err := h.identity(r)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return identity, true
}

func (h *Handler) adminListProducts(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.adminIdentity(w, r)
	if !ok {
		return
	}
	products, err := h.services.Admin.ListProducts(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) adminCreateProduct(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.adminIdentity(w, r)
	if !ok {
		return
	}
	var input service.ProductInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	product, err := h.services.Admin.CreateProduct(r.Context(), identity, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) adminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.adminIdentity(w, r)
	if !ok {
		return
	}
	productID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var input service.ProductInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	product, err := h.services.Admin.UpdateProduct(r.Context(), identity, productID, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) adminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.adminIdentity(w, r)
	if !ok {
		return
	}
	productID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := h.services.Admin.DeleteProduct(r.Context(), identity, productID, confirmed); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminUploadImage(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.adminIdentity(w, r)
	if !ok {
		return
	}
	if err := h.parseMultipart(w, r); err != nil {
		writeError(w, err)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, errors.Wrap(model.ErrValidation, "image file is required"))
		return
	}
	defer file.Close()

	url, err := h.services.Admin.UploadProductImage(r.Context(), identity, model.Attachment{
		Filename: header.Filename,
		Body:     file,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
}

func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.adminIdentity(w, r)
	if !ok {
		return
	}
	orders, err := h.services.Admin.ListOrders(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) adminConfirmPayment(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.adminIdentity(w, r)
	if !ok {
		return
	}
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.services.Admin.ConfirmPayment(r.Context(), identity, orderID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
