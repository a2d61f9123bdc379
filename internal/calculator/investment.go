package calculator

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/finwise/internal/models"
)

// InvestmentView is a holding with its valuation.
type InvestmentView struct {
	*models.Investment

	Invested     float64 `json:"invested"`
	CurrentValue float64 `json:"currentValue"`
	Gain         float64 `json:"gain"`
	GainPercent  float64 `json:"gainPercent"`
}

// Allocation is the share of the portfolio held in one investment type.
type Allocation struct {
	Type    models.InvestmentType `json:"type"`
	Value   float64               `json:"value"`
	Percent float64               `json:"percent"`
}

// InvestmentSummary values a whole portfolio.
type InvestmentSummary struct {
	Count         int          `json:"count"`
	TotalInvested float64      `json:"totalInvested"`
	CurrentValue  float64      `json:"currentValue"`
	TotalGain     float64      `json:"totalGain"`
	GainPercent   float64      `json:"gainPercent"`
	Allocation    []Allocation `json:"allocation"`
}

func valuation(i *models.Investment) (invested, current decimal.Decimal) {
	qty := dec(i.Quantity)
	return qty.Mul(dec(i.PurchasePrice)), qty.Mul(dec(i.CurrentPrice))
}

// Value derives the valuation of one holding.
func Value(i *models.Investment) InvestmentView {
	invested, current := valuation(i)
	gain := current.Sub(invested)
	return InvestmentView{
		Investment:   i,
		Invested:     round2(invested),
		CurrentValue: round2(current),
		Gain:         round2(gain),
		GainPercent:  round2(percentOf(gain, invested)),
	}
}

// SummarizeInvestments values a portfolio and its allocation by type,
// largest first.
func SummarizeInvestments(investments []*models.Investment) InvestmentSummary {
	invested, current := decimal.Zero, decimal.Zero
	byType := make(map[models.InvestmentType]decimal.Decimal)
	for _, i := range investments {
		inv, cur := valuation(i)
		invested = invested.Add(inv)
		current = current.Add(cur)
		byType[i.Type] = byType[i.Type].Add(cur)
	}

	allocation := make([]Allocation, 0, len(byType))
	for t, v := range byType {
		allocation = append(allocation, Allocation{
			Type:    t,
			Value:   round2(v),
			Percent: round2(percentOf(v, current)),
		})
	}
	slices.SortFunc(allocation, func(a, b Allocation) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})

	gain := current.Sub(invested)
	return InvestmentSummary{
		Count:         len(investments),
		TotalInvested: round2(invested),
		CurrentValue:  round2(current),
		TotalGain:     round2(gain),
		GainPercent:   round2(percentOf(gain, invested)),
		Allocation:    allocation,
	}
}
