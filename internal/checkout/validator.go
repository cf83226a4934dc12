// Package checkout validates checkout forms and drives a single form
// session from first keystroke to confirmation.
package checkout

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nikolayk812/coursecart/internal/domain"
)

const (
	MsgFullName       = "Please enter your full name."
	MsgEmail          = "Please enter a valid email address."
	MsgCardNumberLen  = "Card number must be 16 digits."
	MsgCardNetwork    = "Please enter a valid card number (card type not detected)."
	MsgExpiryFormat   = "Please enter a valid expiry date (MM/YY)."
	MsgExpired        = "Card has expired."
	MsgCVV            = "Please enter a valid 3-digit CVV."
	MsgBillingAddress = "Billing address is required."
)

var (
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	cardNumberPattern = regexp.MustCompile(`^[0-9]{16}$`)
	expiryPattern     = regexp.MustCompile(`^(0[1-9]|1[0-2])/([0-9]{2})$`)
	cvvPattern        = regexp.MustCompile(`^[0-9]{3}$`)
)

// EmailPolicy decides which payment methods require a valid email.
type EmailPolicy string

const (
	// EmailCardOnly checks the email for card payments only; bank transfers
	// are confirmed out of band.
	EmailCardOnly EmailPolicy = "card_only"
	// EmailAlways checks the email for every payment method.
	EmailAlways EmailPolicy = "always"
)

func ParseEmailPolicy(s string) (EmailPolicy, error) {
	switch p := EmailPolicy(s); p {
	case EmailCardOnly, EmailAlways:
		return p, nil
	case "":
		return EmailCardOnly, nil
	default:
		return "", fmt.Errorf("email policy[%s] is not valid", s)
	}
}

type ValidatorOption func(*Validator)

func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		v.now = now
	}
}

func WithEmailPolicy(policy EmailPolicy) ValidatorOption {
	return func(v *Validator) {
		v.emailPolicy = policy
	}
}

// Validator computes field errors for a checkout form. It holds no state
// besides its options and is safe for concurrent use.
type Validator struct {
	now         func() time.Time
	emailPolicy EmailPolicy
}

func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		now:         time.Now,
		emailPolicy: EmailCardOnly,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

func (v *Validator) Validate(form domain.CheckoutForm) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	isCard := form.Method != domain.PaymentMethodBank

	if len(strings.Fields(form.CardholderName)) < 2 {
		errs[domain.FieldCardholderName] = MsgFullName
	}

	if isCard || v.emailPolicy == EmailAlways {
		if !emailPattern.MatchString(form.Email) {
			errs[domain.FieldEmail] = MsgEmail
		}
	}

	if isCard {
		if msg := validateCardNumber(form.CardNumber); msg != "" {
			errs[domain.FieldCardNumber] = msg
		}
		if msg := validateExpiry(form.Expiry, v.now()); msg != "" {
			errs[domain.FieldExpiry] = msg
		}
		if !cvvPattern.MatchString(form.CVV) {
			errs[domain.FieldCVV] = MsgCVV
		}
	}

	if strings.TrimSpace(form.BillingAddress) == "" {
		errs[domain.FieldBillingAddress] = MsgBillingAddress
	}

	return errs
}

func validateCardNumber(number string) string {
	digits := StripCardNumber(number)

	if !cardNumberPattern.MatchString(digits) {
		return MsgCardNumberLen
	}
	if DetectNetwork(digits) == domain.NetworkNone {
		return MsgCardNetwork
	}

	return ""
}

// validateExpiry accepts MM/YY. A card stays valid through the last instant
// of month MM of year 2000+YY.
func validateExpiry(expiry string, now time.Time) string {
	m := expiryPattern.FindStringSubmatch(expiry)
	if m == nil {
		return MsgExpiryFormat
	}

	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])

	expiresAt := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, now.Location())
	if expiresAt.Before(now) {
		return MsgExpired
	}

	return ""
}
