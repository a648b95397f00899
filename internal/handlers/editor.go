package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/realmall/storefront/internal/editor"
	"github.com/realmall/storefront/internal/models"
	"github.com/realmall/storefront/internal/storefront"
)

type openEditorInput struct {
	ProductID string `json:"product_id" validate:"required"`
}

type promptInput struct {
	// An empty prompt is allowed; a missing one is not.
	Prompt *string `json:"prompt" validate:"required"`
}

type presetInput struct {
	Preset string `json:"preset" validate:"required"`
}

type commitResponse struct {
	Committed bool            `json:"committed"`
	SessionID string          `json:"session_id"`
	Product   *models.Product `json:"product,omitempty"`
}

func (h *Handler) OpenEditor(w http.ResponseWriter, r *http.Request) {
	var input openEditorInput
	if !h.decode(w, r, &input) {
		return
	}
	session, err := h.store.OpenEditor(input.ProductID)
	if err != nil {
		if errors.Is(err, storefront.ErrProductNotFound) {
			h.writeError(w, "Product not found", http.StatusNotFound)
			return
		}
		h.writeError(w, "Failed to open editor: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusCreated, session.View())
}

func (h *Handler) GetEditor(w http.ResponseWriter, r *http.Request) {
	session, ok := h.activeSessionOrError(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, session.View())
}

func (h *Handler) CloseEditor(w http.ResponseWriter, r *http.Request) {
	h.store.CloseEditor()
	w.WriteHeader(http.StatusNoContent)
}

// GetEditorImage streams the bytes of the image currently shown.
func (h *Handler) GetEditorImage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.activeSessionOrError(w)
	if !ok {
		return
	}
	data, mediaType, err := h.resolver.Resolve(r.Context(), session.Current())
	if err != nil {
		slog.Error("Failed to resolve editor image", "session_id", session.ID(), "err", err)
		h.writeError(w, "Failed to load image", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(data); err != nil {
		slog.Error("Unable to write image", "session_id", session.ID(), "err", err)
	}
}

func (h *Handler) SetPrompt(w http.ResponseWriter, r *http.Request) {
	session, ok := h.activeSessionOrError(w)
	if !ok {
		return
	}
	var input promptInput
	if !h.decode(w, r, &input) {
		return
	}
	session.SetPrompt(*input.Prompt)
	h.writeJSON(w, http.StatusOK, session.View())
}

func (h *Handler) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.activeSessionOrError(w)
	if !ok {
		return
	}
	var input presetInput
	if !h.decode(w, r, &input) {
		return
	}
	if err := session.ApplyPreset(input.Preset); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusOK, session.View())
}

// Generate submits the prompt. With ?async=1 it returns 202 as soon as the
// request is in flight; clients poll GET /api/editor for the result.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		session, started, err := h.store.GenerateAsync()
		if err != nil {
			h.writeError(w, "No image editor is open", http.StatusNotFound)
			return
		}
		code := http.StatusAccepted
		if !started {
			code = http.StatusConflict
		}
		h.writeJSON(w, code, session.View())
		return
	}

	session, outcome, err := h.store.Generate(r.Context())
	if err != nil {
		h.writeError(w, "No image editor is open", http.StatusNotFound)
		return
	}

	code := http.StatusOK
	if outcome == editor.OutcomeRejected || outcome == editor.OutcomeDiscarded {
		code = http.StatusConflict
	}
	h.writeJSON(w, code, session.View())
}

func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	session, ok := h.activeSessionOrError(w)
	if !ok {
		return
	}
	code := http.StatusOK
	if !session.Undo() {
		code = http.StatusConflict
	}
	h.writeJSON(w, code, session.View())
}

func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	session, committed, err := h.store.CommitEditor()
	if err != nil {
		h.writeError(w, "No image editor is open", http.StatusNotFound)
		return
	}
	if !committed {
		h.writeJSON(w, http.StatusConflict, session.View())
		return
	}

	resp := commitResponse{Committed: true, SessionID: session.ID()}
	if product, ok := h.store.Catalog().Get(session.ProductID()); ok {
		resp.Product = &product
	}
	h.writeJSON(w, http.StatusOK, resp)
}
