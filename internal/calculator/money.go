// Package calculator derives read models and aggregates from stored records.
//
// Stored amounts are float64; every sum, ratio and percentage here is
// computed with decimal arithmetic and rounded half away from zero to two
// places before it is handed back.
package calculator

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// round2 rounds half away from zero to two decimal places.
func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// Round rounds an amount the same way aggregates are rounded.
func Round(v float64) float64 {
	return round2(dec(v))
}

func sum(values ...float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(dec(v))
	}
	return total
}

// percentOf returns part / whole * 100, or 0 when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// PercentChange compares cur against prev. A previous value of zero yields
// 100 when cur is positive and 0 otherwise.
func PercentChange(cur, prev float64) float64 {
	c, p := dec(cur), dec(prev)
	if p.IsZero() {
		if c.IsPositive() {
			return 100
		}
		return 0
	}
	return round2(c.Sub(p).Div(p.Abs()).Mul(hundred))
}

// FormatMoney renders amount in the given ISO currency, e.g. "₹1,500.00".
// Unknown currency codes fall back to "<amount> <code>".
func FormatMoney(amount float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%s %s", dec(amount).StringFixed(2), currency)
	}
	minor := dec(amount).Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), currency).Display()
}
