package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/realmall/storefront/internal/storefront"
)

type cartItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.store.Cart().Summary())
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var input cartItemInput
	if !h.decode(w, r, &input) {
		return
	}
	if err := h.store.AddToCart(input.ProductID); err != nil {
		if errors.Is(err, storefront.ErrProductNotFound) {
			h.writeError(w, "Product not found", http.StatusNotFound)
			return
		}
		h.writeError(w, "Failed to add to cart: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, h.store.Cart().Summary())
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	h.store.Cart().Remove(chi.URLParam(r, "productId"))
	h.writeJSON(w, http.StatusOK, h.store.Cart().Summary())
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.store.Cart().Clear()
	h.writeJSON(w, http.StatusOK, h.store.Cart().Summary())
}
