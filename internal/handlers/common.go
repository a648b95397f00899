package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/realmall/storefront/internal/editor"
	"github.com/realmall/storefront/internal/storefront"
)

// maxRequestBytes caps JSON request bodies.
const maxRequestBytes = 1 << 20

type Handler struct {
	store    *storefront.Storefront
	resolver editor.Resolver
	validate *validator.Validate
}

// New builds the HTTP handlers for store. resolver turns the editor's current
// image into bytes for GET /api/editor/image.
func New(store *storefront.Storefront, resolver editor.Resolver) *Handler {
	return &Handler{
		store:    store,
		resolver: resolver,
		validate: validator.New(),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message, "status", code)
	} else {
		slog.Debug(message, "status", code)
	}
	h.writeJSON(w, code, errorResponse{Error: message})
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, fmt.Sprintf("Request body too large (max %d bytes)", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return false
		}
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// Session helpers
func (h *Handler) activeSessionOrError(w http.ResponseWriter) (*editor.Session, bool) {
	session, err := h.store.Editor()
	if err != nil {
		h.writeError(w, "No image editor is open", http.StatusNotFound)
		return nil, false
	}
	return session, true
}
