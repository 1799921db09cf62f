// Package admin exposes the back-office surface: bulk payment decisions,
// bank statement reconciliation, and order statistics. The router guards
// every route with the admin role.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lauraedgell33/autoscout-sub002/internal/http/api"
	"github.com/lauraedgell33/autoscout-sub002/internal/http/auth"
	"github.com/lauraedgell33/autoscout-sub002/internal/order"
	"github.com/lauraedgell33/autoscout-sub002/internal/payment"
	"github.com/lauraedgell33/autoscout-sub002/internal/reconcile"
	"github.com/lauraedgell33/autoscout-sub002/internal/statement"
)

const maxStatementSize = 10 << 20

type Handler struct {
	payments   *payment.Service
	reconciler *reconcile.Service
	orders     *order.Service
}

func NewHandler(payments *payment.Service, reconciler *reconcile.Service, orders *order.Service) *Handler {
	return &Handler{payments: payments, reconciler: reconciler, orders: orders}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/payments/bulk-verify", h.bulkVerify)
	r.Post("/statements/reconcile", h.reconcileStatement)
	r.Get("/statistics", h.statistics)
}

type bulkVerifyRequest struct {
	Items []bulkVerifyItem `json:"items"`
}

type bulkVerifyItem struct {
	OrderID  uuid.UUID `json:"order_id"`
	Decision string    `json:"decision"`
	Notes    string    `json:"notes,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

type bulkVerifyResult struct {
	OrderID uuid.UUID     `json:"order_id"`
	Status  *order.Status `json:"status,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func (h *Handler) bulkVerify(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.Actor(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req bulkVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items := make([]payment.BatchItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = payment.BatchItem{
			OrderID: item.OrderID,
			Decision: payment.Decision{
				Outcome: item.Decision,
				Notes:   item.Notes,
				Reason:  item.Reason,
			},
		}
	}

	results := h.payments.DecideBatch(r.Context(), actor, items)

	resp := make([]bulkVerifyResult, len(results))

	for i, res := range results {
		resp[i] = bulkVerifyResult{OrderID: res.OrderID}

		if res.Err != nil {
			resp[i].Error = res.Err.Error()
			continue
		}

		resp[i].Status = &res.Order.Status
	}

	api.JSON(w, http.StatusOK, resp)
}

func (h *Handler) reconcileStatement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxStatementSize); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "statement file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	entries, err := statement.Parse(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.reconciler.Reconcile(r.Context(), entries)
	if err != nil {
		api.Error(w, err)
		return
	}

	api.JSON(w, http.StatusOK, report)
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.Statistics(r.Context())
	if err != nil {
		api.Error(w, err)
		return
	}

	api.JSON(w, http.StatusOK, stats)
}
