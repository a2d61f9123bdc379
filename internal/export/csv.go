// Package export renders a user's records as CSV files and as a printable
// Markdown/HTML report.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/finwise/internal/calculator"
	"github.com/mmynk/finwise/internal/models"
)

func amount(v float64) string {
	return strconv.FormatFloat(calculator.Round(v), 'f', 2, 64)
}

// text neutralizes user supplied cells that a spreadsheet would evaluate as
// a formula.
func text(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

// WriteTransactions writes one row per transaction. accountNames maps
// account IDs to display names; unknown IDs are written as is.
func WriteTransactions(w io.Writer, txns []*models.Transaction, accountNames map[string]string) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write([]string{"Date", "Type", "Category", "Description", "Account", "Amount", "Payment Method", "Tags"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, t := range txns {
		account, ok := accountNames[t.AccountID]
		if !ok {
			account = t.AccountID
		}
		row := []string{
			t.Date.Format(time.DateOnly),
			string(t.Type),
			text(t.Category),
			text(t.Description),
			text(account),
			amount(t.Amount),
			text(t.PaymentMethod),
			text(strings.Join(t.Tags, ";")),
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write transaction %s: %w", t.ID, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteAccounts writes one row per account.
func WriteAccounts(w io.Writer, accounts []*models.Account) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write([]string{"Name", "Type", "Institution", "Currency", "Balance", "Active"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, a := range accounts {
		row := []string{text(a.Name), string(a.Type), text(a.Institution), a.Currency, amount(a.Balance), strconv.FormatBool(a.IsActive)}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write account %s: %w", a.ID, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteSummary writes one row per month followed by a totals row.
func WriteSummary(w io.Writer, months []calculator.MonthSummary) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write([]string{"Month", "Income", "Expenses", "Net", "Savings Rate", "Top Category"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	income, expense := decimal.Zero, decimal.Zero
	for _, m := range months {
		top := ""
		if m.TopCategory != nil {
			top = text(m.TopCategory.Category)
		}
		row := []string{m.Month, amount(m.Income), amount(m.Expense), amount(m.Net), fmt.Sprintf("%.1f%%", m.SavingsRate), top}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write month %s: %w", m.Month, err)
		}
		income = income.Add(decimal.NewFromFloat(m.Income))
		expense = expense.Add(decimal.NewFromFloat(m.Expense))
	}

	total := []string{"Total", income.StringFixed(2), expense.StringFixed(2), income.Sub(expense).StringFixed(2), "", ""}
	if err := csvWriter.Write(total); err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
