package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/mmynk/finwise/internal/calculator"
)

// Report is the monthly statement of one user.
type Report struct {
	Name      string
	Currency  string
	Generated time.Time

	Dashboard *calculator.Dashboard
	Budgets   []calculator.BudgetProgress
	Goals     []calculator.GoalProgress
	Bills     []calculator.BillView
	Trend     []calculator.MonthSummary
}

// Title is the report heading, e.g. "Financial report: May 2024".
func (r *Report) Title() string {
	month, err := time.Parse("2006-01", r.Dashboard.Month)
	if err != nil {
		return "Financial report: " + r.Dashboard.Month
	}
	return "Financial report: " + month.Format("January 2006")
}

func (r *Report) money(v float64) string {
	return calculator.FormatMoney(v, r.Currency)
}

// cell escapes text for a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// Markdown renders the report as GitHub-flavoured Markdown.
func (r *Report) Markdown() string {
	d := r.Dashboard
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Title())
	fmt.Fprintf(&b, "Prepared for %s on %s.\n\n", cell(r.Name), r.Generated.Format(time.DateOnly))

	b.WriteString("## Overview\n\n| | Amount |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Total balance | %s |\n", r.money(d.TotalBalance))
	fmt.Fprintf(&b, "| Income | %s (%+.1f%%) |\n", r.money(d.MonthlyIncome), d.IncomeChange)
	fmt.Fprintf(&b, "| Expenses | %s (%+.1f%%) |\n", r.money(d.MonthlyExpense), d.ExpenseChange)
	fmt.Fprintf(&b, "| Net | %s |\n", r.money(d.MonthlyNet))
	fmt.Fprintf(&b, "| Savings rate | %.1f%% |\n\n", d.SavingsRate)

	if len(d.SpendingByCategory) > 0 {
		b.WriteString("## Spending by category\n\n| Category | Amount | Share |\n|---|---:|---:|\n")
		for _, c := range d.SpendingByCategory {
			fmt.Fprintf(&b, "| %s | %s | %.1f%% |\n", cell(c.Category), r.money(c.Amount), c.Percent)
		}
		b.WriteString("\n")
	}

	if len(r.Budgets) > 0 {
		b.WriteString("## Budgets\n\n| Budget | Spent | Limit | Used | Status |\n|---|---:|---:|---:|---|\n")
		for _, p := range r.Budgets {
			fmt.Fprintf(&b, "| %s | %s | %s | %.1f%% | %s |\n",
				cell(p.Name), r.money(p.Spent), r.money(p.Amount), p.PercentUsed, strings.ReplaceAll(string(p.Status), "_", " "))
		}
		b.WriteString("\n")
	}

	if len(r.Goals) > 0 {
		b.WriteString("## Goals\n\n| Goal | Saved | Target | Progress |\n|---|---:|---:|---:|\n")
		for _, g := range r.Goals {
			fmt.Fprintf(&b, "| %s | %s | %s | %.1f%% |\n", cell(g.Name), r.money(g.CurrentAmount), r.money(g.TargetAmount), g.Progress)
		}
		b.WriteString("\n")
	}

	if len(r.Bills) > 0 {
		b.WriteString("## Open bills\n\n| Bill | Amount | Due | Status |\n|---|---:|---|---|\n")
		for _, v := range r.Bills {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", cell(v.Name), r.money(v.Amount), v.DueDate.Format(time.DateOnly), v.Status)
		}
		b.WriteString("\n")
	}

	if len(r.Trend) > 1 {
		fmt.Fprintf(&b, "## Last %d months\n\n| Month | Income | Expenses | Net |\n|---|---:|---:|---:|\n", len(r.Trend))
		for _, m := range r.Trend {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", m.Month, r.money(m.Income), r.money(m.Expense), r.money(m.Net))
		}
		b.WriteString("\n")
	}

	return b.String()
}

const pageStyle = `body{font-family:system-ui,sans-serif;max-width:50rem;margin:2rem auto;color:#222}
table{border-collapse:collapse;width:100%;margin-bottom:1.5rem}
th,td{border-bottom:1px solid #ddd;padding:.35rem .5rem}
@media print{body{margin:0}}`

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders the report as a standalone printable page.
func (r *Report) HTML() ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(r.Markdown()), &body); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n<style>%s</style>\n</head>\n<body>\n",
		html.EscapeString(r.Title()), pageStyle)
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
