package payment

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lauraedgell33/autoscout-sub002/internal/http/api"
	"github.com/lauraedgell33/autoscout-sub002/internal/http/auth"
	"github.com/lauraedgell33/autoscout-sub002/internal/order"
	"github.com/lauraedgell33/autoscout-sub002/internal/payment"
)

const maxProofSize = 20 << 20

type Handler struct {
	svc *payment.Service
}

func NewHandler(svc *payment.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the payment endpoints on the shared orders route.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/{id}/payment-instructions", h.instructions)
	r.Post("/{id}/payment-proof", h.submitProof)
	r.Get("/{id}/payment-proof", h.proof)
	r.Post("/{id}/confirm-payment", h.confirm)
}

func (h *Handler) instructions(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := parse(w, r)
	if !ok {
		return
	}

	instructions, err := h.svc.Instructions(r.Context(), id, actor)
	if err != nil {
		api.Error(w, err)
		return
	}

	api.JSON(w, http.StatusOK, instructions)
}

func (h *Handler) submitProof(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := parse(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxProofSize); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, fmt.Errorf("%w: proof file is required", order.ErrValidation))
		return
	}
	defer file.Close()

	t, err := h.svc.SubmitProof(r.Context(), id, actor, header.Filename, file)
	if err != nil {
		api.Error(w, err)
		return
	}

	api.JSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) proof(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := parse(w, r)
	if !ok {
		return
	}

	f, err := h.svc.Proof(r.Context(), id, actor)
	if err != nil {
		api.Error(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")

	if _, err := io.Copy(w, f); err != nil {
		// Headers are already out; nothing to do but log.
		slog.Error("failed to stream payment proof", "order_id", id, "error", err)
	}
}

type confirmRequest struct {
	Decision string `json:"decision"` // verified | rejected
	Notes    string `json:"notes,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := parse(w, r)
	if !ok {
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, err := h.svc.Decide(r.Context(), id, actor, payment.Decision{
		Outcome: req.Decision,
		Notes:   req.Notes,
		Reason:  req.Reason,
	})
	if err != nil {
		api.Error(w, err)
		return
	}

	api.JSON(w, http.StatusOK, toResponse(t))
}

func parse(w http.ResponseWriter, r *http.Request) (uuid.UUID, order.Actor, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, order.Actor{}, false
	}

	actor, ok := auth.Actor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return uuid.Nil, order.Actor{}, false
	}

	return id, actor, true
}
