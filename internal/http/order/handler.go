package order

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lauraedgell33/autoscout-sub002/internal/http/api"
	"github.com/lauraedgell33/autoscout-sub002/internal/http/auth"
	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

// maxUploadSize bounds contract uploads.
const maxUploadSize = 20 << 20

// DocumentStore persists uploaded signed contracts.
type DocumentStore interface {
	Save(orderID uuid.UUID, filename string, r io.Reader) (string, error)
}

type Handler struct {
	svc         *order.Service
	engine      *order.Engine
	files       DocumentStore
	defaultRate decimal.Decimal
}

func NewHandler(svc *order.Service, engine *order.Engine, files DocumentStore, defaultRate decimal.Decimal) *Handler {
	return &Handler{svc: svc, engine: engine, files: files, defaultRate: defaultRate}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/events", h.events)

	r.Post("/{id}/generate-contract", h.transition(order.EdgeGenerateContract))
	r.Post("/{id}/upload-signed-contract", h.uploadSignedContract)
	r.Post("/{id}/ready-for-delivery", h.transition(order.EdgeReadyForDelivery))
	r.Post("/{id}/delivered", h.transition(order.EdgeDeliver))
	r.Post("/{id}/complete", h.transition(order.EdgeComplete))
	r.Post("/{id}/cancel", h.transition(order.EdgeCancel))
}

type createOrderRequest struct {
	BuyerID        *uuid.UUID `json:"buyer_id,omitempty"`
	SellerID       uuid.UUID  `json:"seller_id"`
	DealerID       *uuid.UUID `json:"dealer_id,omitempty"`
	VehicleID      uuid.UUID  `json:"vehicle_id"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	CommissionRate *string    `json:"commission_rate,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Actor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Buyers order for themselves; only admins place orders on behalf of
	// another buyer.
	buyerID := actor.ID

	switch actor.Role {
	case order.RoleBuyer:
	case order.RoleAdmin:
		if req.BuyerID != nil {
			buyerID = *req.BuyerID
		}
	default:
		api.Error(w, fmt.Errorf("%w: only buyers place orders", order.ErrForbidden))
		return
	}

	rate := h.defaultRate

	if req.CommissionRate != nil {
		if actor.Role != order.RoleAdmin {
			api.Error(w, fmt.Errorf("%w: commission rate is fixed", order.ErrForbidden))
			return
		}

		parsed, err := decimal.NewFromString(*req.CommissionRate)
		if err != nil {
			api.Error(w, fmt.Errorf("%w: invalid commission rate", order.ErrValidation))
			return
		}

		rate = parsed
	}

	t, err := h.svc.Create(r.Context(), order.CreateParams{
		BuyerID:        buyerID,
		SellerID:       req.SellerID,
		DealerID:       req.DealerID,
		VehicleID:      req.VehicleID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		CommissionRate: rate,
		Notes:          req.Notes,
	})
	if err != nil {
		api.Error(w, err)
		return
	}

	api.JSON(w, http.StatusCreated, toResponse(t))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Actor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	filter := order.ListFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		status := order.Status(s)
		if !status.Valid() {
			api.Error(w, fmt.Errorf("%w: unknown status %q", order.ErrValidation, s))
			return
		}

		filter.Status = &status
	}

	// Non-admins only see orders they are a party to.
	if actor.Role != order.RoleAdmin {
		filter.PartyID = &actor.ID
	}

	ts, err := h.svc.List(r.Context(), filter)
	if err != nil {
		api.Error(w, err)
		return
	}

	api.JSON(w, http.StatusOK, toResponseList(ts))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	t, actor, ok := h.load(w, r)
	if !ok {
		return
	}

	if actor.Role != order.RoleAdmin && !t.Party(actor.ID) {
		api.Error(w, fmt.Errorf("%w: not a party to this order", order.ErrForbidden))
		return
	}

	api.JSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	t, actor, ok := h.load(w, r)
	if !ok {
		return
	}

	if actor.Role != order.RoleAdmin && !t.Party(actor.ID) {
		api.Error(w, fmt.Errorf("%w: not a party to this order", order.ErrForbidden))
		return
	}

	events, err := h.svc.Events(r.Context(), t.ID)
	if err != nil {
		api.Error(w, err)
		return
	}

	resp := make([]eventResponse, len(events))

	for i, e := range events {
		resp[i] = eventResponse{
			Seq:       e.Seq,
			Edge:      e.Edge,
			From:      e.From,
			To:        e.To,
			ActorID:   e.ActorID,
			ActorRole: e.ActorRole,
			CreatedAt: e.CreatedAt,
		}

		if len(e.Payload) > 0 {
			var payload any
			if err := json.Unmarshal(e.Payload, &payload); err == nil {
				resp[i].Payload = payload
			}
		}
	}

	api.JSON(w, http.StatusOK, resp)
}

type transitionRequest struct {
	Reason string `json:"reason,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// transition builds a handler for the simple edges that carry at most a
// reason and notes.
func (h *Handler) transition(edge order.Edge) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		actor, ok := auth.Actor(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req transitionRequest

		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		t, err := h.engine.Request(r.Context(), id, edge, actor, order.Payload{
			Reason: req.Reason,
			Notes:  req.Notes,
		})
		if err != nil {
			api.Error(w, err)
			return
		}

		api.JSON(w, http.StatusOK, toResponse(t))
	}
}

func (h *Handler) uploadSignedContract(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	actor, ok := auth.Actor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, fmt.Errorf("%w: contract file is required", order.ErrValidation))
		return
	}
	defer file.Close()

	ref, err := h.files.Save(id, header.Filename, file)
	if err != nil {
		api.Error(w, fmt.Errorf("%w: storing signed contract: %v", order.ErrDependency, err))
		return
	}

	t, err := h.engine.Request(r.Context(), id, order.EdgeSignContract, actor, order.Payload{ContractRef: ref})
	if err != nil {
		api.Error(w, err)
		return
	}

	api.JSON(w, http.StatusOK, toResponse(t))
}

// load parses the id, fetches the order, and returns the actor.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*order.Transaction, order.Actor, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return nil, order.Actor{}, false
	}

	actor, ok := auth.Actor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, order.Actor{}, false
	}

	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.Error(w, err)
		return nil, order.Actor{}, false
	}

	return t, actor, true
}
