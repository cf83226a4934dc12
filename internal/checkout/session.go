package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/coursecart/internal/domain"
)

var (
	ErrInvalidForm = errors.New("checkout form is invalid")
	ErrEmptyCart   = errors.New("cart is empty")
)

// SubmitError is returned when a form with field errors is submitted.
type SubmitError struct {
	Errors domain.ValidationErrors
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("checkout form has %d invalid field(s)", len(e.Errors))
}

func (e *SubmitError) Unwrap() error {
	return ErrInvalidForm
}

// Cart is what a checkout needs from the cart store. Checkout must empty the
// cart and return exactly the entries it removed.
type Cart interface {
	Len() int
	Checkout() ([]domain.CartEntry, domain.Money, error)
}

// Confirmation describes a completed simulated payment.
type Confirmation struct {
	Reference uuid.UUID
	Method    domain.PaymentMethod
	Items     int
	Entries   []domain.CartEntry
	Total     domain.Money
	PaidAt    time.Time
}

// Session is the state of one checkout form: field values, the payment
// method and which fields the user has already left. Not safe for concurrent use.
type Session struct {
	validator *Validator
	form      domain.CheckoutForm
	touched   map[domain.Field]bool
}

func NewSession(validator *Validator) *Session {
	return &Session{
		validator: validator,
		form:      domain.CheckoutForm{Method: domain.PaymentMethodCard},
		touched:   make(map[domain.Field]bool),
	}
}

// SetField stores raw after applying the field's display formatting and
// returns the stored value.
func (s *Session) SetField(field domain.Field, raw string) string {
	value := Format(field, raw)
	s.form.SetValue(field, value)

	return value
}

func (s *Session) SetMethod(method domain.PaymentMethod) {
	s.form.Method = method
}

// Blur marks field as touched so its error becomes visible.
func (s *Session) Blur(field domain.Field) {
	s.touched[field] = true
}

func (s *Session) Touched(field domain.Field) bool {
	return s.touched[field]
}

func (s *Session) Form() domain.CheckoutForm {
	return s.form
}

func (s *Session) Network() domain.CardNetwork {
	return DetectNetwork(s.form.CardNumber)
}

func (s *Session) Errors() domain.ValidationErrors {
	return s.validator.Validate(s.form)
}

// VisibleErrors returns the errors of touched fields only.
func (s *Session) VisibleErrors() domain.ValidationErrors {
	visible := domain.ValidationErrors{}
	for field, msg := range s.Errors() {
		if s.touched[field] {
			visible[field] = msg
		}
	}

	return visible
}

func (s *Session) Valid() bool {
	return s.Errors().Valid()
}

// Submit completes the checkout. An invalid form marks every field touched
// and returns a *SubmitError; nothing else happens. A valid form clears the
// cart and resets the form, keeping the selected payment method.
func (s *Session) Submit(cart Cart) (Confirmation, error) {
	if cart.Len() == 0 {
		return Confirmation{}, ErrEmptyCart
	}

	if errs := s.Errors(); !errs.Valid() {
		for _, field := range domain.Fields {
			s.touched[field] = true
		}
		return Confirmation{}, &SubmitError{Errors: errs}
	}

	entries, total, err := cart.Checkout()
	if err != nil {
		return Confirmation{}, fmt.Errorf("cart.Checkout: %w", err)
	}
	// emptied by someone else since the check above
	if len(entries) == 0 {
		return Confirmation{}, ErrEmptyCart
	}

	confirmation := Confirmation{
		Reference: uuid.New(),
		Method:    s.form.Method,
		Items:     len(entries),
		Entries:   entries,
		Total:     total,
		PaidAt:    s.validator.now(),
	}

	s.form = domain.CheckoutForm{Method: s.form.Method}
	clear(s.touched)

	return confirmation, nil
}
