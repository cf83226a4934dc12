package domain

import "fmt"

type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodBank PaymentMethod = "bank"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentMethodCard, PaymentMethodBank:
		return m, nil
	case "":
		return PaymentMethodCard, nil
	default:
		return "", fmt.Errorf("payment method[%s] is not valid", s)
	}
}

type CardNetwork string

const (
	NetworkNone       CardNetwork = ""
	NetworkVisa       CardNetwork = "Visa"
	NetworkMastercard CardNetwork = "Mastercard"
	NetworkVerve      CardNetwork = "Verve"
)

type Field string

const (
	FieldCardholderName Field = "cardholderName"
	FieldEmail          Field = "email"
	FieldCardNumber     Field = "cardNumber"
	FieldExpiry         Field = "expiry"
	FieldCVV            Field = "cvv"
	FieldBillingAddress Field = "billingAddress"
)

// Fields lists every checkout form field in display order.
var Fields = []Field{
	FieldCardholderName,
	FieldEmail,
	FieldCardNumber,
	FieldExpiry,
	FieldCVV,
	FieldBillingAddress,
}

func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}

	return "", fmt.Errorf("field[%s] is not valid", s)
}

type CheckoutForm struct {
	Method         PaymentMethod `json:"method"`
	CardholderName string        `json:"cardholderName"`
	Email          string        `json:"email"`
	CardNumber     string        `json:"cardNumber"`
	Expiry         string        `json:"expiry"`
	CVV            string        `json:"cvv"`
	BillingAddress string        `json:"billingAddress"`
}

func (f CheckoutForm) Value(field Field) string {
	switch field {
	case FieldCardholderName:
		return f.CardholderName
	case FieldEmail:
		return f.Email
	case FieldCardNumber:
		return f.CardNumber
	case FieldExpiry:
		return f.Expiry
	case FieldCVV:
		return f.CVV
	case FieldBillingAddress:
		return f.BillingAddress
	}

	return ""
}

func (f *CheckoutForm) SetValue(field Field, value string) {
	switch field {
	case FieldCardholderName:
		f.CardholderName = value
	case FieldEmail:
		f.Email = value
	case FieldCardNumber:
		f.CardNumber = value
	case FieldExpiry:
		f.Expiry = value
	case FieldCVV:
		f.CVV = value
	case FieldBillingAddress:
		f.BillingAddress = value
	}
}

// ValidationErrors maps a field to its message. A field without a key is valid.
type ValidationErrors map[Field]string

func (e ValidationErrors) Valid() bool {
	return len(e) == 0
}
