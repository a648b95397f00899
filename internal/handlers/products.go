package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/realmall/storefront/internal/models"
)

type productList struct {
	Category models.Category  `json:"category"`
	Products []models.Product `json:"products"`
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	category, err := models.ParseCategoryFilter(r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusOK, productList{
		Category: category,
		Products: h.store.Products(category),
	})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.store.Catalog().Get(chi.URLParam(r, "productId"))
	if !ok {
		h.writeError(w, "Product not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, product)
}
