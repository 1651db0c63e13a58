package pricing

import (
	"github.com/shopspring/decimal"
)

var (
	taxRate      = decimal.RequireFromString("0.08")
	flatShipping = decimal.RequireFromString("5.99")
	hundred      = decimal.NewFromInt(100)
)

// Line is a priced quantity used for totals.
type Line struct {
	Price    float64
	Quantity int
}

type Totals struct {
	Subtotal float64
	Tax      float64
	Shipping float64
	Total    float64
}

// ComputeTotals sums lines exactly and rounds tax and total to cents.
// tax = round(subtotal*0.08, 2), shipping is flat, total = round(sum, 2).
func ComputeTotals(lines []Line) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	total := subtotal.Add(tax).Add(flatShipping).Round(2)

	return Totals{
		Subtotal: subtotal.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Shipping: flatShipping.InexactFloat64(),
		Total:    total.InexactFloat64(),
	}
}

// MinorUnits converts an amount to integer cents.
func MinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

// RoundCents rounds an arbitrary sum to two decimals.
func RoundCents(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// LineTotal returns round(price*qty, 2).
func LineTotal(price float64, qty int) float64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty))).Round(2).InexactFloat64()
}
