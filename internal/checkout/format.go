package checkout

import (
	"strings"
	"unicode"

	"github.com/nikolayk812/coursecart/internal/domain"
)

const (
	cardNumberSeparator = '-'
	expirySeparator     = '/'

	maxCardNumberLen = 19
	maxExpiryLen     = 5
	maxCVVLen        = 4
)

// Format applies the display transform of field to a raw keystroke value.
// Fields without a transform are returned unchanged.
func Format(field domain.Field, raw string) string {
	switch field {
	case domain.FieldCardNumber:
		return FormatCardNumber(raw)
	case domain.FieldExpiry:
		return FormatExpiry(raw)
	case domain.FieldCVV:
		return FormatCVV(raw)
	default:
		return raw
	}
}

// FormatCardNumber groups digits in blocks of four: "4111-1111-1111-1111".
func FormatCardNumber(raw string) string {
	digits := digitsOnly(raw)

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && i%4 == 0 {
			b.WriteRune(cardNumberSeparator)
		}
		b.WriteRune(r)
	}

	return truncate(b.String(), maxCardNumberLen)
}

// FormatExpiry inserts the slash once a third digit is typed: "1225" -> "12/25".
func FormatExpiry(raw string) string {
	digits := digitsOnly(raw)
	if len(digits) <= 2 {
		return digits
	}

	year := truncate(digits[2:], 2)

	return truncate(digits[:2]+string(expirySeparator)+year, maxExpiryLen)
}

func FormatCVV(raw string) string {
	return truncate(digitsOnly(raw), maxCVVLen)
}

// StripCardNumber removes separators from a card number.
func StripCardNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if r == cardNumberSeparator || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
