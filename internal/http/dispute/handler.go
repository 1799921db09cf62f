package dispute

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lauraedgell33/autoscout-sub002/internal/dispute"
	"github.com/lauraedgell33/autoscout-sub002/internal/http/api"
	"github.com/lauraedgell33/autoscout-sub002/internal/http/auth"
	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

type Handler struct {
	svc *dispute.Service
}

func NewHandler(svc *dispute.Service) *Handler {
	return &Handler{svc: svc}
}

// OrderRoutes registers the per-order dispute endpoints.
func (h *Handler) OrderRoutes(r chi.Router) {
	r.Post("/{id}/disputes", h.open)
	r.Get("/{id}/disputes", h.listByOrder)
}

// Routes registers the dispute-scoped endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/{id}", h.get)
	r.Post("/{id}/responses", h.respond)
	r.Post("/{id}/resolve", h.resolve)
}

type openRequest struct {
	Against     uuid.UUID `json:"against"`
	Reason      string    `json:"reason"`
	Description string    `json:"description,omitempty"`
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	orderID, actor, ok := parse(w, r)
	if !ok {
		return
	}

	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d, err := h.svc.Open(r.Context(), actor, dispute.OpenParams{
		OrderID:     orderID,
		Against:     req.Against,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		api.Error(w, err)
		return
	}

	api.JSON(w, http.StatusCreated, toResponse(d))
}

func (h *Handler) listByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, actor, ok := parse(w, r)
	if !ok {
		return
	}

	ds, err := h.svc.ListByOrder(r.Context(), orderID, actor)
	if err != nil {
		api.Error(w, err)
		return
	}

	resp := make([]disputeResponse, len(ds))
	for i, d := range ds {
		resp[i] = toResponse(d)
	}

	api.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := parse(w, r)
	if !ok {
		return
	}

	d, responses, err := h.svc.Get(r.Context(), id, actor)
	if err != nil {
		api.Error(w, err)
		return
	}

	resp := toResponse(d)
	resp.Responses = make([]threadResponse, len(responses))

	for i, msg := range responses {
		resp.Responses[i] = toThreadResponse(msg)
	}

	api.JSON(w, http.StatusOK, resp)
}

type respondRequest struct {
	Message string `json:"message"`
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := parse(w, r)
	if !ok {
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := h.svc.Respond(r.Context(), id, actor, req.Message)
	if err != nil {
		api.Error(w, err)
		return
	}

	api.JSON(w, http.StatusCreated, toThreadResponse(*msg))
}

type resolveRequest struct {
	Resolution string          `json:"resolution"`
	Outcome    dispute.Outcome `json:"outcome"`
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := parse(w, r)
	if !ok {
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d, err := h.svc.Resolve(r.Context(), id, actor, req.Resolution, req.Outcome)
	if err != nil {
		api.Error(w, err)
		return
	}

	api.JSON(w, http.StatusOK, toResponse(d))
}

type disputeResponse struct {
	ID          uuid.UUID        `json:"id"`
	OrderID     uuid.UUID        `json:"order_id"`
	RaisedBy    uuid.UUID        `json:"raised_by"`
	Against     uuid.UUID        `json:"against"`
	Reason      string           `json:"reason"`
	Description string           `json:"description,omitempty"`
	Status      dispute.Status   `json:"status"`
	Resolution  *string          `json:"resolution,omitempty"`
	Outcome     *dispute.Outcome `json:"outcome,omitempty"`
	ResolvedBy  *uuid.UUID       `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	Responses   []threadResponse `json:"responses,omitempty"`
}

type threadResponse struct {
	ID        int64     `json:"id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Message   string    `json:"message"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(d *dispute.Dispute) disputeResponse {
	return disputeResponse{
		ID:          d.ID,
		OrderID:     d.OrderID,
		RaisedBy:    d.RaisedBy,
		Against:     d.Against,
		Reason:      d.Reason,
		Description: d.Description,
		Status:      d.Status,
		Resolution:  d.Resolution,
		Outcome:     d.Outcome,
		ResolvedBy:  d.ResolvedBy,
		ResolvedAt:  d.ResolvedAt,
		CreatedAt:   d.CreatedAt,
	}
}

func toThreadResponse(r dispute.Response) threadResponse {
	return threadResponse{
		ID:        r.ID,
		AuthorID:  r.AuthorID,
		Message:   r.Message,
		Admin:     r.Admin,
		CreatedAt: r.CreatedAt,
	}
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
