// Package billing holds the pure parts of a sale: GST extraction from
// tax-inclusive prices, invoice number formatting and the cart.
package billing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line is one priced entry. UnitPrice already includes tax.
type Line struct {
	Quantity       int
	UnitPrice      decimal.Decimal
	TaxRatePercent int
}

// Totals are kept at full precision; call Rounded for presentation.
type Totals struct {
	Subtotal   decimal.Decimal
	GSTAmount  decimal.Decimal
	GrandTotal decimal.Decimal
}

// Rounded returns the totals rounded half away from zero to two places.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:   t.Subtotal.Round(2),
		GSTAmount:  t.GSTAmount.Round(2),
		GrandTotal: t.GrandTotal.Round(2),
	}
}

// LineAmounts splits a line into its gross, tax and net parts:
//
//	gross = qty * price
//	tax   = gross * rate / (100 + rate)
//	net   = gross - tax
func LineAmounts(line Line) (gross, tax, net decimal.Decimal) {
	gross = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	if line.TaxRatePercent == 0 {
		return gross, decimal.Zero, gross
	}
	rate := decimal.NewFromInt(int64(line.TaxRatePercent))
	tax = gross.Mul(rate).Div(hundred.Add(rate))
	net = gross.Sub(tax)
	return gross, tax, net
}

// Calculate sums the lines. An empty slice yields zero totals.
func Calculate(lines []Line) Totals {
	totals := Totals{
		Subtotal:   decimal.Zero,
		GSTAmount:  decimal.Zero,
		GrandTotal: decimal.Zero,
	}
	for _, line := range lines {
		gross, tax, net := LineAmounts(line)
		totals.GrandTotal = totals.GrandTotal.Add(gross)
		totals.GSTAmount = totals.GSTAmount.Add(tax)
		totals.Subtotal = totals.Subtotal.Add(net)
	}
	return totals
}
