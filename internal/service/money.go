package service

import "github.com/shopspring/decimal"

// addAmounts adds stored amounts without accumulating float error.
func addAmounts(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}
