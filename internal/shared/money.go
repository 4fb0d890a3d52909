package shared

import "github.com/shopspring/decimal"

// CurrencySymbol prefixes formatted Turkish lira amounts.
const CurrencySymbol = "₺"

// RoundTRY rounds a lira amount to kuruş, halves away from zero.
func RoundTRY(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// FormatTRY formats a lira amount with two decimals, e.g. ₺45.50 or -₺3.00.
func FormatTRY(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	if d.IsNegative() {
		return "-" + CurrencySymbol + d.Neg().StringFixed(2)
	}
	return CurrencySymbol + d.StringFixed(2)
}

// FormatPercent formats a percentage with one decimal, e.g. 38.9%.
func FormatPercent(p float64) string {
	return decimal.NewFromFloat(p).StringFixed(1) + "%"
}
