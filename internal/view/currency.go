package view

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var ngnPrinter = message.NewPrinter(language.MustParse("en-NG"))

// FormatNGN renders an amount as a grouped naira string with two decimal
// places, e.g. ₦1,234,567.89.
func FormatNGN(amount decimal.Decimal) string {
	f, _ := amount.Float64()
	return ngnPrinter.Sprintf("₦%v", number.Decimal(f, number.Scale(2)))
}
