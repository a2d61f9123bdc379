package insights

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/finwise/internal/auth"
	"github.com/mmynk/finwise/internal/calculator"
	"github.com/mmynk/finwise/internal/middleware"
	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage/sqlite"
)

var testNow = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func setupStore(t *testing.T) (*sqlite.SQLiteStore, *models.User) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "insights-test-*.db")
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

	user := models.NewUser("ana@example.com", "Ana", "hash")
	user.Currency = "USD"
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return store, user
}

// seed stores a month with income, one large Food expense, an exceeded
// budget and a bill due in two days.
func seed(t *testing.T, store *sqlite.SQLiteStore, userID string) {
	t.Helper()
	ctx := context.Background()

	account := &models.Account{Name: "Checking", Type: models.AccountChecking, Balance: 10000, IsActive: true}
	account.UserID = userID
	if err := store.Accounts().Insert(ctx, account); err != nil {
		t.Fatalf("insert account: %v", err)
	}

	txns := []*models.Transaction{
		{AccountID: account.ID, Type: models.Income, Amount: 5000, Category: "Salary", Date: testNow.AddDate(0, 0, -10)},
		{AccountID: account.ID, Type: models.Expense, Amount: 1500, Category: "Food", Date: testNow.AddDate(0, 0, -2)},
		{AccountID: account.ID, Type: models.Expense, Amount: 700, Category: "Food", Date: testNow.AddDate(0, -1, 0)},
	}
	for _, txn := range txns {
		txn.UserID = userID
		if err := store.Transactions().Insert(ctx, txn); err != nil {
			t.Fatalf("insert transaction: %v", err)
		}
	}

	budget := &models.Budget{
		Name: "Groceries", Category: "Food", Amount: 1000, Period: models.PeriodMonthly,
		AlertThreshold: 80, StartDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	budget.UserID = userID
	if err := store.Budgets().Insert(ctx, budget); err != nil {
		t.Fatalf("insert budget: %v", err)
	}

	bill := &models.Bill{
		Name: "Internet", Amount: 60, DueDate: time.Date(2024, time.May, 17, 0, 0, 0, 0, time.UTC),
		Category: "Bills & Utilities", Frequency: models.FrequencyMonthly, ReminderDays: 3,
	}
	bill.UserID = userID
	if err := store.Bills().Insert(ctx, bill); err != nil {
		t.Fatalf("insert bill: %v", err)
	}
}

func TestCollect(t *testing.T) {
	store, user := setupStore(t)
	seed(t, store, user.ID)

	s := Collect(context.Background(), store, user.ID, testNow)

	if s.Month != "2024-05" || s.Currency != "USD" {
		t.Errorf("month/currency = %s/%s", s.Month, s.Currency)
	}
	if s.TotalBalance != 10000 {
		t.Errorf("TotalBalance = %v, want 10000", s.TotalBalance)
	}
	if s.Income != 5000 || s.Expense != 1500 || s.Net != 3500 {
		t.Errorf("totals = %v/%v/%v, want 5000/1500/3500", s.Income, s.Expense, s.Net)
	}
	if s.SavingsRate != 70 {
		t.Errorf("SavingsRate = %v, want 70", s.SavingsRate)
	}
	if len(s.Top) != 1 || s.Top[0].Category != "Food" || s.Top[0].Percent != 100 {
		t.Errorf("Top = %+v", s.Top)
	}
	if len(s.AtRisk) != 1 || s.AtRisk[0].PercentUsed != 150 {
		t.Errorf("AtRisk = %+v", s.AtRisk)
	}
	if len(s.Upcoming) != 1 || s.Upcoming[0].DaysUntilDue != 2 {
		t.Errorf("Upcoming = %+v", s.Upcoming)
	}

	md := s.Markdown()
	for _, want := range []string{"Finances for 2024-05", "Budgets at risk", "Internet", "Food"} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q:\n%s", want, md)
		}
	}
}

func TestCollectEmpty(t *testing.T) {
	store, user := setupStore(t)

	s := Collect(context.Background(), store, user.ID, testNow)
	if s.Income != 0 || s.Expense != 0 || len(s.Top) != 0 || len(s.AtRisk) != 0 || len(s.Upcoming) != 0 {
		t.Errorf("expected an empty snapshot, got %+v", s)
	}
}

func TestRulesInsights(t *testing.T) {
	tests := []struct {
		name   string
		s      Snapshot
		titles []string
	}{
		{
			name:   "no activity",
			s:      Snapshot{Currency: "USD"},
			titles: []string{"No activity yet"},
		},
		{
			name:   "overspending",
			s:      Snapshot{Currency: "USD", Income: 100, Expense: 150, Net: -50, SavingsRate: -50},
			titles: []string{"Spending exceeds income"},
		},
		{
			name:   "low savings",
			s:      Snapshot{Currency: "USD", Income: 100, Expense: 90, Net: 10, SavingsRate: 10},
			titles: []string{"Low savings rate"},
		},
		{
			name: "full month",
			s: Snapshot{
				Currency: "USD", Income: 5000, Expense: 1500, Net: 3500, SavingsRate: 70,
				Top:      []calculator.CategoryAmount{{Category: "Food", Amount: 1500, Percent: 100}},
				AtRisk:   []BudgetRisk{{Name: "Groceries", PercentUsed: 150, Status: calculator.BudgetExceeded}},
				Upcoming: []BillDue{{Name: "Internet", Amount: 60, DaysUntilDue: 0, Status: models.BillUpcoming}},
			},
			titles: []string{"Great savings rate", "Spending is concentrated", "Budget exceeded", "Bill due today"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Rules{}.Insights(context.Background(), tt.s)
			if err != nil {
				t.Fatalf("Insights failed: %v", err)
			}
			if len(got) != len(tt.titles) {
				t.Fatalf("got %d insights, want %d: %+v", len(got), len(tt.titles), got)
			}
			for i, title := range tt.titles {
				if got[i].Title != title {
					t.Errorf("insight %d title = %q, want %q", i, got[i].Title, title)
				}
			}
		})
	}
}

func TestRulesReply(t *testing.T) {
	s := Snapshot{
		Currency: "USD", Income: 5000, Expense: 1500, Net: 3500, SavingsRate: 70,
		Top: []calculator.CategoryAmount{{Category: "Food", Amount: 1500, Percent: 100}},
	}
	tests := []struct {
		question string
		want     string
	}{
		{"How are my budgets?", "on track"},
		{"Any bills coming?", "no bills due soon"},
		{"Where do I spend the most?", "Food"},
		{"Am I saving enough?", "70.0%"},
		{"hello", "$5,000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			reply, err := Rules{}.Reply(context.Background(), s, nil, tt.question)
			if err != nil {
				t.Fatalf("Reply failed: %v", err)
			}
			if !strings.Contains(reply, tt.want) {
				t.Errorf("reply %q does not contain %q", reply, tt.want)
			}
		})
	}
}

func TestParseInsights(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    int
		wantErr bool
	}{
		{
			name: "plain",
			text: `{"insights":[{"title":"A","message":"first","kind":"tip"},{"title":"B","message":"second","kind":"warning"}]}`,
			want: 2,
		},
		{
			name: "fenced with unknown kind",
			text: "```json\n{\"insights\":[{\"title\":\"A\",\"message\":\"m\",\"kind\":\"odd\"}]}\n```",
			want: 1,
		},
		{
			name: "skips empty messages",
			text: `{"insights":[{"title":"A","message":""},{"title":"B","message":"ok"}]}`,
			want: 1,
		},
		{name: "not json", text: "sorry, I cannot", wantErr: true},
		{name: "missing key", text: `{"tips":[]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInsights(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Fatalf("got %d insights, want %d", len(got), tt.want)
			}
			for _, in := range got {
				if in.Kind != KindTip && in.Kind != KindWarning && in.Kind != KindPraise {
					t.Errorf("unexpected kind %q", in.Kind)
				}
			}
		})
	}
}

// scripted records what it was asked and answers with fixed text.
type scripted struct {
	histories [][]models.ChatMessage
	err       error
}

func (m *scripted) Name() string { return "scripted" }

func (m *scripted) Reply(_ context.Context, _ Snapshot, history []models.ChatMessage, question string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.histories = append(m.histories, history)
	return "answer to " + question, nil
}

func (m *scripted) Insights(context.Context, Snapshot) ([]Insight, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []Insight{{Title: "scripted", Message: "ok", Kind: KindTip}}, nil
}

func TestAssistantChat(t *testing.T) {
	store, user := setupStore(t)
	model := &scripted{}
	a := NewAssistant(store, model, fixedClock)
	ctx := context.Background()

	conv, err := a.Chat(ctx, user.ID, "", "  What did I   spend on food this month and last month combined?  ")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if conv.ID == "" || len(conv.Messages) != 2 {
		t.Fatalf("unexpected conversation %+v", conv)
	}
	if !strings.HasSuffix(conv.Title, "…") || !strings.HasPrefix(conv.Title, "What did I spend") {
		t.Errorf("Title = %q", conv.Title)
	}

	conv, err = a.Chat(ctx, user.ID, conv.ID, "And rent?")
	if err != nil {
		t.Fatalf("second Chat failed: %v", err)
	}
	if len(conv.Messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(conv.Messages))
	}
	if len(model.histories[1]) != 2 {
		t.Errorf("second turn saw %d history messages, want 2", len(model.histories[1]))
	}
	if conv.Messages[3].Content != "answer to And rent?" {
		t.Errorf("reply = %q", conv.Messages[3].Content)
	}

	t.Run("empty message", func(t *testing.T) {
		_, err := a.Chat(ctx, user.ID, "", "   ")
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})

	t.Run("other user's conversation", func(t *testing.T) {
		if _, err := a.Chat(ctx, "someone-else", conv.ID, "hi"); err == nil {
			t.Error("expected an error for a foreign conversation")
		}
	})
}

func TestWithFallback(t *testing.T) {
	store, user := setupStore(t)
	failing := &scripted{err: errors.New("quota exceeded")}
	a := NewAssistant(store, WithFallback(failing, Rules{}), fixedClock)

	conv, err := a.Chat(context.Background(), user.ID, "", "any bills?")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if got := conv.Messages[1].Content; got != "You have no bills due soon." {
		t.Errorf("reply = %q", got)
	}

	insights, _, err := a.Insights(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Insights failed: %v", err)
	}
	if len(insights) == 0 || insights[0].Title != "No activity yet" {
		t.Errorf("insights = %+v", insights)
	}

	if m := WithFallback(nil, Rules{}); m.Name() != "rules" {
		t.Errorf("nil primary should yield the fallback, got %s", m.Name())
	}
}

func TestAssistantService(t *testing.T) {
	store, user := setupStore(t)
	seed(t, store, user.ID)

	jwtManager := auth.NewJWTManager("test-secret-key-that-is-long-enough", time.Hour, 24*time.Hour)
	token, err := jwtManager.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewAssistantService(NewAssistant(store, Rules{}, fixedClock), logger)
	path, handler := NewAssistantServiceHandler(svc,
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor()))
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewAssistantClient(server.Client(), server.URL)
	ctx := context.Background()

	authed := func(req connect.AnyRequest) {
		req.Header().Set("Authorization", "Bearer "+token)
	}

	t.Run("requires a token", func(t *testing.T) {
		_, err := client.ListConversations(ctx, connect.NewRequest(&ListConversationsRequest{}))
		if connect.CodeOf(err) != connect.CodeUnauthenticated {
			t.Errorf("code = %v, want unauthenticated", connect.CodeOf(err))
		}
	})

	req := connect.NewRequest(&ChatRequest{Message: "How are my budgets?"})
	authed(req)
	chat, err := client.Chat(ctx, req)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if !strings.Contains(chat.Msg.Reply, "Groceries") {
		t.Errorf("reply = %q", chat.Msg.Reply)
	}
	convID := chat.Msg.Conversation.ID

	insightsReq := connect.NewRequest(&GetInsightsRequest{})
	authed(insightsReq)
	insights, err := client.GetInsights(ctx, insightsReq)
	if err != nil {
		t.Fatalf("GetInsights failed: %v", err)
	}
	if insights.Msg.Model != "rules" || len(insights.Msg.Insights) == 0 {
		t.Errorf("unexpected insights response %+v", insights.Msg)
	}
	if insights.Msg.Snapshot.Expense != 1500 {
		t.Errorf("snapshot expense = %v", insights.Msg.Snapshot.Expense)
	}

	listReq := connect.NewRequest(&ListConversationsRequest{})
	authed(listReq)
	list, err := client.ListConversations(ctx, listReq)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(list.Msg.Conversations) != 1 || list.Msg.Conversations[0].MessageCount != 2 {
		t.Errorf("conversations = %+v", list.Msg.Conversations)
	}

	delReq := connect.NewRequest(&ConversationRequest{ID: convID})
	authed(delReq)
	if _, err := client.DeleteConversation(ctx, delReq); err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}

	getReq := connect.NewRequest(&ConversationRequest{ID: convID})
	authed(getReq)
	_, err = client.GetConversation(ctx, getReq)
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("code = %v, want not found", connect.CodeOf(err))
	}
}
