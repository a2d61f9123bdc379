package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/finwise/internal/calculator"
	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage/sqlite"
)

var testNow = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) (*sqlite.SQLiteStore, *models.User) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "export-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
		os.Remove(tmpFile.Name())
	})

	user := models.NewUser("li@example.com", "Li | Wei", "hash")
	user.Currency = "USD"
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return store, user
}

func seed(t *testing.T, store *sqlite.SQLiteStore, userID string) *models.Account {
	t.Helper()
	ctx := context.Background()

	account := &models.Account{Name: "Checking", Type: models.AccountChecking, Balance: 8500, Currency: "USD", IsActive: true}
	account.UserID = userID
	if err := store.Accounts().Insert(ctx, account); err != nil {
		t.Fatalf("insert account: %v", err)
	}

	for _, txn := range []*models.Transaction{
		{AccountID: account.ID, Type: models.Income, Amount: 3000, Category: "Salary", Date: time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)},
		{AccountID: account.ID, Type: models.Expense, Amount: 1500, Category: "Food", Description: "Groceries, weekly", Date: time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC), Tags: []string{"home", "food"}},
		{AccountID: account.ID, Type: models.Expense, Amount: 500, Category: "Travel", Date: time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)},
	} {
		txn.UserID = userID
		if err := store.Transactions().Insert(ctx, txn); err != nil {
			t.Fatalf("insert transaction: %v", err)
		}
	}

	budget := &models.Budget{Name: "Food", Category: "Food", Amount: 2000, Period: models.PeriodMonthly, AlertThreshold: 80}
	budget.UserID = userID
	if err := store.Budgets().Insert(ctx, budget); err != nil {
		t.Fatalf("insert budget: %v", err)
	}
	return account
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v\n%s", err, data)
	}
	return rows
}

func TestExportTransactions(t *testing.T) {
	store, user := setupStore(t)
	seed(t, store, user.ID)
	e := New(store, func() time.Time { return testNow })

	tests := []struct {
		name     string
		from, to time.Time
		wantRows int
	}{
		{name: "all", wantRows: 3},
		{name: "May only", from: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), to: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), wantRows: 2},
		{name: "open start", to: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), wantRows: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := e.Transactions(context.Background(), &buf, user.ID, tt.from, tt.to); err != nil {
				t.Fatalf("Transactions failed: %v", err)
			}
			rows := readCSV(t, buf.Bytes())
			if len(rows) != tt.wantRows+1 {
				t.Fatalf("got %d rows, want %d plus header", len(rows)-1, tt.wantRows)
			}
			if rows[0][0] != "Date" {
				t.Errorf("header = %v", rows[0])
			}
		})
	}

	var buf bytes.Buffer
	if err := e.Transactions(context.Background(), &buf, user.ID, time.Time{}, time.Time{}); err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	rows := readCSV(t, buf.Bytes())
	// Newest first.
	newest := rows[1]
	if newest[0] != "2024-05-10" || newest[4] != "Checking" || newest[5] != "500.00" {
		t.Errorf("newest row = %v", newest)
	}
	food := rows[2]
	if food[3] != "Groceries, weekly" || food[7] != "home;food" {
		t.Errorf("food row = %v", food)
	}
}

func TestExportAccounts(t *testing.T) {
	store, user := setupStore(t)
	seed(t, store, user.ID)

	var buf bytes.Buffer
	if err := New(store, nil).Accounts(context.Background(), &buf, user.ID); err != nil {
		t.Fatalf("Accounts failed: %v", err)
	}
	rows := readCSV(t, buf.Bytes())
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	want := []string{"Checking", "checking", "", "USD", "8500.00", "true"}
	for i, v := range want {
		if rows[1][i] != v {
			t.Errorf("column %d = %q, want %q", i, rows[1][i], v)
		}
	}
}

func TestWriteSummary(t *testing.T) {
	months := []calculator.MonthSummary{
		{Month: "2024-04", Income: 3000, Expense: 0, Net: 3000, SavingsRate: 100},
		{Month: "2024-05", Income: 0, Expense: 2000, Net: -2000, TopCategory: &calculator.CategoryAmount{Category: "Food"}},
	}
	var buf bytes.Buffer
	if err := WriteSummary(&buf, months); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}
	rows := readCSV(t, buf.Bytes())
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header, 2 months and totals", len(rows))
	}
	if rows[2][5] != "Food" {
		t.Errorf("top category = %q", rows[2][5])
	}
	total := rows[3]
	if total[0] != "Total" || total[1] != "3000.00" || total[2] != "2000.00" || total[3] != "1000.00" {
		t.Errorf("totals = %v", total)
	}
}

func TestWriteSummaryCents(t *testing.T) {
	months := []calculator.MonthSummary{
		{Month: "2024-03", Income: 1000.10, Expense: 0.07},
		{Month: "2024-04", Income: 2000.20, Expense: 3000.36},
		{Month: "2024-05", Income: 0.03, Expense: 0.01},
	}
	var buf bytes.Buffer
	if err := WriteSummary(&buf, months); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}
	rows := readCSV(t, buf.Bytes())
	total := rows[len(rows)-1]
	want := []string{"Total", "3000.33", "3000.44", "-0.11"}
	for i, v := range want {
		if total[i] != v {
			t.Errorf("totals column %d = %q, want %q", i, total[i], v)
		}
	}
}

func TestFormulaCellsEscaped(t *testing.T) {
	txns := []*models.Transaction{{
		Base:        models.Base{ID: "t1"},
		AccountID:   "a1",
		Type:        models.Expense,
		Amount:      12,
		Category:    "+Food",
		Description: "=HYPERLINK(\"http://evil\")",
		Date:        testNow,
		Tags:        []string{"@home"},
	}}
	var buf bytes.Buffer
	if err := WriteTransactions(&buf, txns, map[string]string{"a1": "-Cash"}); err != nil {
		t.Fatalf("WriteTransactions failed: %v", err)
	}
	row := readCSV(t, buf.Bytes())[1]
	tests := []struct {
		column int
		want   string
	}{
		{2, "'+Food"},
		{3, "'=HYPERLINK(\"http://evil\")"},
		{4, "'-Cash"},
		{5, "12.00"},
		{7, "'@home"},
	}
	for _, tt := range tests {
		if row[tt.column] != tt.want {
			t.Errorf("column %d = %q, want %q", tt.column, row[tt.column], tt.want)
		}
	}

	buf.Reset()
	accounts := []*models.Account{{Name: "=1+1", Type: models.AccountCash, Currency: "USD", Balance: -5}}
	if err := WriteAccounts(&buf, accounts); err != nil {
		t.Fatalf("WriteAccounts failed: %v", err)
	}
	row = readCSV(t, buf.Bytes())[1]
	if row[0] != "'=1+1" || row[4] != "-5.00" {
		t.Errorf("account row = %v", row)
	}
}

func TestExportSummary(t *testing.T) {
	store, user := setupStore(t)
	seed(t, store, user.ID)

	var buf bytes.Buffer
	if err := New(store, func() time.Time { return testNow }).Summary(context.Background(), &buf, user.ID, 3); err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	rows := readCSV(t, buf.Bytes())
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want 5", len(rows))
	}
	if rows[1][0] != "2024-03" || rows[3][0] != "2024-05" || rows[3][2] != "2000.00" {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestReport(t *testing.T) {
	store, user := setupStore(t)
	seed(t, store, user.ID)
	e := New(store, func() time.Time { return testNow })

	r, err := e.Report(context.Background(), user.ID, time.Time{})
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if r.Dashboard.MonthlyExpense != 2000 || len(r.Budgets) != 1 || r.Budgets[0].Spent != 1500 {
		t.Errorf("unexpected report %+v", r.Dashboard)
	}
	if len(r.Trend) != ReportMonths {
		t.Errorf("trend has %d months", len(r.Trend))
	}

	md := r.Markdown()
	for _, want := range []string{"# Financial report: May 2024", `Li \| Wei`, "| Food | $1,500.00 | 75.0% |", "## Budgets"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}

	page, err := r.HTML()
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	for _, want := range []string{"<title>Financial report: May 2024</title>", "<table>", "<h2>Overview</h2>"} {
		if !bytes.Contains(page, []byte(want)) {
			t.Errorf("html missing %q", want)
		}
	}

	t.Run("past month", func(t *testing.T) {
		r, err := e.Report(context.Background(), user.ID, time.Date(2024, time.April, 20, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("Report failed: %v", err)
		}
		if r.Dashboard.Month != "2024-04" || r.Dashboard.MonthlyIncome != 3000 || r.Dashboard.MonthlyExpense != 0 {
			t.Errorf("unexpected April dashboard %+v", r.Dashboard)
		}
	})

	t.Run("future month", func(t *testing.T) {
		_, err := e.Report(context.Background(), user.ID, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})
}
