package handler

import "github.com/shopspring/decimal"

// Request DTOs accept JSON numbers as float64; the domain works in
// decimals. Conversion happens once, at the HTTP boundary.

func toDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func toDecimalPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}
