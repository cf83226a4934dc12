package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NGN is the storefront's default currency.
var NGN = currency.MustParseISO("NGN")

type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

func NewMoney(amount decimal.Decimal, unit currency.Unit) Money {
	return Money{Amount: amount, Currency: unit}
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// Display renders the amount for people: narrow currency symbol, grouped
// thousands and exactly two fraction digits, e.g. "₦4,250.00".
func (m Money) Display() string {
	p := message.NewPrinter(language.English)
	amount := p.Sprintf("%v", number.Decimal(m.Amount.Round(2).InexactFloat64(), number.Scale(2)))

	return fmt.Sprint(currency.NarrowSymbol(m.Currency)) + amount
}
