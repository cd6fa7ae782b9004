package transport

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"woodstore/pkg/domain/model"
)

type productQuery struct {
	Category string `schema:"category"`
	Search   string `schema:"search"`
	Wood     string `schema:"wood"`
	Stock    string `schema:"stock"`
	Sort     string `schema:"sort"`
}

func (q productQuery) filter() (model.ProductFilter, error) {
	stock, err := model.ParseStockFilter(q.Stock)
	if err != nil {
		return model.ProductFilter{}, err
	}
	sort, err := model.ParsePriceSort(q.Sort)
	if err != nil {
		return model.ProductFilter{}, err
	}
	return model.ProductFilter{Search: q.Search, WoodType: q.Wood, Stock: stock, Sort: sort}, nil
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.services.Catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var query productQuery
	if err := h.decoder.Decode(&query, r.URL.Query()); err != nil {
		writeError(w, errors.Wrap(model.ErrValidation, err.Error()))
		return
	}
	filter, err := query.filter()
	if err != nil {
		writeError(w, err)
		return
	}

	products, err := h.services.Catalog.ListProducts(r.Context(), query.Category)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.FilterProducts(products, filter))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	if slug == "" {
		writeError(w, errors.Wrap(model.ErrValidation, "slug is required"))
		return
	}
	product, err := h.services.Catalog.GetProduct(r.Context(), slug)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}
