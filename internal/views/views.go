// Package views presents the dashboard aggregate differently per user role.
//
// The three roles share one Dashboard; each RoleView decides which figures
// become cards, how they are labelled and which tips accompany them.
package views

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/finwise/internal/calculator"
	"github.com/mmynk/finwise/internal/models"
)

// Card is one headline figure on the dashboard.
type Card struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`

	// Display is Value formatted for the user (currency or percentage).
	Display string `json:"display"`
}

// View is the role-specific presentation of a dashboard.
type View struct {
	Role     models.Role       `json:"role"`
	Headline string            `json:"headline"`
	Cards    []Card            `json:"cards"`
	Tips     []string          `json:"tips"`
	Labels   map[string]string `json:"labels"`
}

// RoleView renders a dashboard for one role.
type RoleView interface {
	Role() models.Role
	Render(d *calculator.Dashboard, currency string) View
}

// For returns the view for role. Unknown roles get the individual view.
func For(role models.Role) RoleView {
	switch role {
	case models.RoleStudent:
		return studentView{}
	case models.RoleBusiness:
		return businessView{}
	default:
		return individualView{}
	}
}

func moneyCard(key, label string, amount float64, currency string) Card {
	return Card{Key: key, Label: label, Value: amount, Display: calculator.FormatMoney(amount, currency)}
}

func percentCard(key, label string, percent float64) Card {
	return Card{Key: key, Label: label, Value: percent, Display: fmt.Sprintf("%.1f%%", percent)}
}

type individualView struct{}

func (individualView) Role() models.Role { return models.RoleIndividual }

func (v individualView) Render(d *calculator.Dashboard, currency string) View {
	return View{
		Role:     v.Role(),
		Headline: "Your finances at a glance",
		Cards: []Card{
			moneyCard("totalBalance", "Total Balance", d.TotalBalance, currency),
			moneyCard("income", "Monthly Income", d.MonthlyIncome, currency),
			moneyCard("expense", "Monthly Expenses", d.MonthlyExpense, currency),
			moneyCard("net", "Net Savings", d.MonthlyNet, currency),
			percentCard("savingsRate", "Savings Rate", d.SavingsRate),
		},
		Tips: []string{
			"Aim to save at least 20% of your monthly income.",
			"Keep three to six months of expenses in an emergency fund.",
			"Review recurring bills each quarter and cancel what you no longer use.",
		},
		Labels: map[string]string{
			"income":   "Income",
			"expense":  "Expenses",
			"net":      "Net Savings",
			"category": "Spending by Category",
		},
	}
}

type studentView struct{}

func (studentView) Role() models.Role { return models.RoleStudent }

func (v studentView) Render(d *calculator.Dashboard, currency string) View {
	left := decimal.Max(decimal.NewFromFloat(d.MonthlyIncome).Sub(decimal.NewFromFloat(d.MonthlyExpense)), decimal.Zero)
	daily := decimal.Zero
	if d.DaysLeftInMonth > 0 {
		daily = left.Div(decimal.NewFromInt(int64(d.DaysLeftInMonth)))
	}

	return View{
		Role:     v.Role(),
		Headline: "Make your allowance last the month",
		Cards: []Card{
			moneyCard("totalBalance", "Total Balance", d.TotalBalance, currency),
			moneyCard("income", "Allowance / Income", d.MonthlyIncome, currency),
			moneyCard("expense", "Spent This Month", d.MonthlyExpense, currency),
			moneyCard("left", "Left to Spend", calculator.Round(left.InexactFloat64()), currency),
			moneyCard("dailyBudget", "Daily Budget", calculator.Round(daily.InexactFloat64()), currency),
		},
		Tips: []string{
			"Use student discounts for software, transport and entertainment.",
			"Buy used textbooks or borrow them from the library.",
			"Cook in batches; eating out is the fastest way to overspend.",
		},
		Labels: map[string]string{
			"income":   "Allowance",
			"expense":  "Spending",
			"net":      "Left Over",
			"category": "Where Your Money Went",
		},
	}
}

type businessView struct{}

func (businessView) Role() models.Role { return models.RoleBusiness }

func (v businessView) Render(d *calculator.Dashboard, currency string) View {
	return View{
		Role:     v.Role(),
		Headline: "Business performance this month",
		Cards: []Card{
			moneyCard("totalBalance", "Cash Position", d.TotalBalance, currency),
			moneyCard("income", "Revenue", d.MonthlyIncome, currency),
			moneyCard("expense", "Operating Expenses", d.MonthlyExpense, currency),
			moneyCard("net", "Net Profit", d.MonthlyNet, currency),
			percentCard("profitMargin", "Profit Margin", d.SavingsRate),
		},
		Tips: []string{
			"Separate business and personal accounts for cleaner books.",
			"Set aside a share of every payment for taxes.",
			"Chase overdue invoices before they age past 30 days.",
		},
		Labels: map[string]string{
			"income":   "Revenue",
			"expense":  "Operating Expenses",
			"net":      "Net Profit",
			"category": "Expense Breakdown",
		},
	}
}
