// Package api holds the response helpers shared by all HTTP handlers,
// including the mapping from domain errors to status codes.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

type errorResponse struct {
	Error string `json:"error"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error maps a domain error to its HTTP status. Unknown errors become a
// generic 500 so internals never leak to callers.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		JSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, order.ErrValidation):
		JSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, order.ErrForbidden):
		JSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, order.ErrInvalidState):
		JSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, order.ErrConflict), errors.Is(err, order.ErrAlreadyDecided):
		JSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, order.ErrDependency):
		JSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		slog.Error("unhandled error", "error", err)
		JSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
