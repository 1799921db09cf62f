// Package export serves the admin order-archive endpoints.
package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lauraedgell33/autoscout-sub002/internal/export"
	"github.com/lauraedgell33/autoscout-sub002/internal/http/api"
	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

type Handler struct {
	svc *export.Service
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.metadata)
	r.Post("/download", h.download)
}

type exportRequest struct {
	Status *order.Status `json:"status,omitempty"`
	After  *time.Time    `json:"after,omitempty"`
	Before *time.Time    `json:"before,omitempty"`
}

func (req exportRequest) filter() order.ListFilter {
	return order.ListFilter{
		Status: req.Status,
		After:  req.After,
		Before: req.Before,
	}
}

type itemResponse struct {
	OrderID   string       `json:"order_id"`
	Code      string       `json:"code"`
	Status    order.Status `json:"status"`
	Amount    int64        `json:"amount"`
	Currency  string       `json:"currency"`
	CreatedAt time.Time    `json:"created_at"`
	Contract  string       `json:"contract,omitempty"`
	Proof     string       `json:"proof,omitempty"`
}

type metadataResponse struct {
	Orders  []itemResponse `json:"orders"`
	Summary string         `json:"summary"`
}

func toItemResponse(item export.Item) itemResponse {
	resp := itemResponse{
		OrderID:   item.Order.ID.String(),
		Code:      item.Order.Code,
		Status:    item.Order.Status,
		Amount:    item.Order.Amount,
		Currency:  item.Order.Currency,
		CreatedAt: item.Order.CreatedAt,
	}

	if item.ContractPath != "" {
		resp.Contract = filepath.Base(item.ContractPath)
	}

	if item.ProofPath != "" {
		resp.Proof = filepath.Base(item.ProofPath)
	}

	return resp
}

func (h *Handler) metadata(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tmpDir, err := os.MkdirTemp("", "escrow-export-*")
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(tmpDir)

	items, err := h.svc.Export(r.Context(), req.filter(), tmpDir)
	if err != nil {
		api.Error(w, err)
		return
	}

	responses := make([]itemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toItemResponse(item))
	}

	api.JSON(w, http.StatusOK, metadataResponse{
		Orders:  responses,
		Summary: h.svc.Summary(items),
	})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tmpDir, err := os.MkdirTemp("", "escrow-export-*")
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(tmpDir)

	items, err := h.svc.Export(r.Context(), req.filter(), tmpDir)
	if err != nil {
		api.Error(w, err)
		return
	}

	summary := h.svc.Summary(items)
	if err := os.WriteFile(filepath.Join(tmpDir, "summary.txt"), []byte(summary), 0o644); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"orders_%s.zip\"", time.Now().Format("20060102")))

	zipWriter := zip.NewWriter(w)
	defer zipWriter.Close()

	err = filepath.Walk(tmpDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		relPath, _ := filepath.Rel(tmpDir, path)

		zf, err := zipWriter.Create(relPath)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(zf, f)

		return err
	})
	if err != nil {
		slog.Error("failed to create archive", "error", err)
	}
}
