// Package api exposes the cart and checkout over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nikolayk812/coursecart/internal/cart"
	"github.com/nikolayk812/coursecart/internal/catalog"
	"github.com/nikolayk812/coursecart/internal/checkout"
	"github.com/nikolayk812/coursecart/internal/domain"
	"go.uber.org/zap"
)

type CourseCatalog interface {
	List(ctx context.Context, q catalog.Query) (catalog.Page, error)
	Get(ctx context.Context, slug string) (domain.Course, error)
}

type Handler struct {
	store     *cart.Store
	catalog   CourseCatalog
	validator *checkout.Validator
	logger    *zap.Logger
}

func NewHandler(store *cart.Store, courses CourseCatalog, validator *checkout.Validator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		store:     store,
		catalog:   courses,
		validator: validator,
		logger:    logger,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, code, message string) {
	h.respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondCartError maps store errors to responses.
func (h *Handler) respondCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrNotReady):
		h.respondError(w, http.StatusServiceUnavailable, "cart_not_ready", "cart is still loading")
	case errors.Is(err, cart.ErrClosed):
		h.respondError(w, http.StatusServiceUnavailable, "cart_closed", "cart is shutting down")
	default:
		h.logger.Error("cart operation failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
