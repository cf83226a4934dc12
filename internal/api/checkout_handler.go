package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/coursecart/internal/checkout"
	"github.com/nikolayk812/coursecart/internal/domain"
	"github.com/shopspring/decimal"
)

type ValidateResponse struct {
	Valid   bool                    `json:"valid"`
	Network domain.CardNetwork      `json:"network,omitempty"`
	Form    domain.CheckoutForm     `json:"form"`
	Errors  domain.ValidationErrors `json:"errors"`
}

type ConfirmationResponse struct {
	Reference    uuid.UUID            `json:"reference"`
	Method       domain.PaymentMethod `json:"method"`
	Items        int                  `json:"items"`
	Total        decimal.Decimal      `json:"total"`
	TotalDisplay string               `json:"total_display"`
	PaidAt       time.Time            `json:"paid_at"`
}

type InvalidFormResponse struct {
	ErrorResponse
	Errors domain.ValidationErrors `json:"errors"`
}

// decodeSession replays the submitted form into a fresh session, formatting
// each field as it is set.
func (h *Handler) decodeSession(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	var form domain.CheckoutForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return nil, false
	}

	method, err := domain.ParsePaymentMethod(string(form.Method))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_method", err.Error())
		return nil, false
	}

	session := checkout.NewSession(h.validator)
	session.SetMethod(method)
	for _, field := range domain.Fields {
		session.SetField(field, form.Value(field))
	}

	return session, true
}

func (h *Handler) ValidateCheckout(w http.ResponseWriter, r *http.Request) {
	session, ok := h.decodeSession(w, r)
	if !ok {
		return
	}

	errs := session.Errors()

	h.respondJSON(w, http.StatusOK, ValidateResponse{
		Valid:   errs.Valid(),
		Network: session.Network(),
		Form:    session.Form(),
		Errors:  errs,
	})
}

func (h *Handler) SubmitCheckout(w http.ResponseWriter, r *http.Request) {
	session, ok := h.decodeSession(w, r)
	if !ok {
		return
	}

	confirmation, err := session.Submit(h.store)

	var submitErr *checkout.SubmitError
	switch {
	case err == nil:
	case errors.Is(err, checkout.ErrEmptyCart):
		h.respondError(w, http.StatusConflict, "cart_empty", "cart is empty")
		return
	case errors.As(err, &submitErr):
		h.respondJSON(w, http.StatusUnprocessableEntity, InvalidFormResponse{
			ErrorResponse: ErrorResponse{Error: "checkout form is invalid", Code: "invalid_form"},
			Errors:        submitErr.Errors,
		})
		return
	default:
		h.respondCartError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, ConfirmationResponse{
		Reference:    confirmation.Reference,
		Method:       confirmation.Method,
		Items:        confirmation.Items,
		Total:        confirmation.Total.Amount,
		TotalDisplay: confirmation.Total.Display(),
		PaidAt:       confirmation.PaidAt,
	})
}
