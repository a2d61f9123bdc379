package api

import (
	"context"
	"net/http"

	"github.com/mmynk/finwise/internal/middleware"
	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/service"
)

// respond runs fn for the authenticated user and writes its result.
func respond(w http.ResponseWriter, r *http.Request, status int, fn func(ctx context.Context, userID string) (any, error)) {
	data, err := fn(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, status, data)
}

// create decodes the body over doc, which carries the defaults, then
// responds with fn's result.
func create(w http.ResponseWriter, r *http.Request, doc any, fn func(ctx context.Context, userID string) (any, error)) {
	if err := decode(w, r, doc); err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, fn)
}

// update reads the body and hands it to fn for merging over the stored record.
func update(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, id string, body []byte) (any, error)) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return fn(ctx, userID, r.PathValue("id"), body)
	})
}

func remove(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, id string) error) {
	id := r.PathValue("id")
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return map[string]string{"id": id}, fn(ctx, userID, id)
	})
}

// Accounts

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Accounts.List(ctx, userID)
	})
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	a := &models.Account{IsActive: true}
	create(w, r, a, func(ctx context.Context, userID string) (any, error) {
		return a, s.svc.Accounts.Create(ctx, userID, a)
	})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Accounts.Get(ctx, userID, r.PathValue("id"))
	})
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	update(w, r, func(ctx context.Context, userID, id string, body []byte) (any, error) {
		return s.svc.Accounts.Update(ctx, userID, id, merge[*models.Account](body))
	})
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	remove(w, r, s.svc.Accounts.Delete)
}

// Transactions

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.TransactionFilter{
		Type:      models.TransactionType(q.Get("type")),
		Category:  q.Get("category"),
		AccountID: q.Get("accountId"),
	}
	var err error
	if filter.From, err = queryDate(r, "from", false); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.To, err = queryDate(r, "to", true); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Transactions.List(ctx, userID, filter)
	})
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	txn := &models.Transaction{Date: s.now().UTC()}
	create(w, r, txn, func(ctx context.Context, userID string) (any, error) {
		return txn, s.svc.Transactions.Create(ctx, userID, txn)
	})
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Transactions.Get(ctx, userID, r.PathValue("id"))
	})
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	update(w, r, func(ctx context.Context, userID, id string, body []byte) (any, error) {
		return s.svc.Transactions.Update(ctx, userID, id, merge[*models.Transaction](body))
	})
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	remove(w, r, s.svc.Transactions.Delete)
}

// Budgets

func (s *Server) budgetSummary(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Budgets.Summary(ctx, userID)
	})
}

func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Budgets.List(ctx, userID)
	})
}

func (s *Server) createBudget(w http.ResponseWriter, r *http.Request) {
	b := &models.Budget{Period: models.PeriodMonthly}
	create(w, r, b, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Budgets.Create(ctx, userID, b)
	})
}

func (s *Server) getBudget(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Budgets.Get(ctx, userID, r.PathValue("id"))
	})
}

func (s *Server) updateBudget(w http.ResponseWriter, r *http.Request) {
	update(w, r, func(ctx context.Context, userID, id string, body []byte) (any, error) {
		return s.svc.Budgets.Update(ctx, userID, id, merge[*models.Budget](body))
	})
}

func (s *Server) deleteBudget(w http.ResponseWriter, r *http.Request) {
	remove(w, r, s.svc.Budgets.Delete)
}

// Goals

type contributeRequest struct {
	Amount float64 `json:"amount"`
	Note   string  `json:"note"`
}

func (s *Server) goalSummary(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Goals.Summary(ctx, userID)
	})
}

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Goals.List(ctx, userID)
	})
}

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	g := &models.Goal{Category: "Other"}
	create(w, r, g, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Goals.Create(ctx, userID, g)
	})
}

func (s *Server) getGoal(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Goals.Get(ctx, userID, r.PathValue("id"))
	})
}

func (s *Server) updateGoal(w http.ResponseWriter, r *http.Request) {
	update(w, r, func(ctx context.Context, userID, id string, body []byte) (any, error) {
		return s.svc.Goals.Update(ctx, userID, id, merge[*models.Goal](body))
	})
}

func (s *Server) deleteGoal(w http.ResponseWriter, r *http.Request) {
	remove(w, r, s.svc.Goals.Delete)
}

func (s *Server) contribute(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Goals.Contribute(ctx, userID, r.PathValue("id"), req.Amount, req.Note)
	})
}

// Bills

type payRequest struct {
	AccountID string `json:"accountId"`
}

func (s *Server) billSummary(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Bills.Summary(ctx, userID)
	})
}

func (s *Server) listBills(w http.ResponseWriter, r *http.Request) {
	status := models.BillStatus(r.URL.Query().Get("status"))
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Bills.List(ctx, userID, status)
	})
}

func (s *Server) createBill(w http.ResponseWriter, r *http.Request) {
	b := &models.Bill{ReminderDays: models.DefaultReminderDays}
	create(w, r, b, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Bills.Create(ctx, userID, b)
	})
}

func (s *Server) getBill(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Bills.Get(ctx, userID, r.PathValue("id"))
	})
}

func (s *Server) updateBill(w http.ResponseWriter, r *http.Request) {
	update(w, r, func(ctx context.Context, userID, id string, body []byte) (any, error) {
		return s.svc.Bills.Update(ctx, userID, id, merge[*models.Bill](body))
	})
}

func (s *Server) deleteBill(w http.ResponseWriter, r *http.Request) {
	remove(w, r, s.svc.Bills.Delete)
}

// payBill accepts an empty body; the account is optional.
func (s *Server) payBill(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req payRequest
	if len(body) > 0 {
		if err := decodeBytes(body, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Bills.Pay(ctx, userID, r.PathValue("id"), req.AccountID)
	})
}

// Investments

func (s *Server) investmentSummary(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Investments.Summary(ctx, userID)
	})
}

func (s *Server) listInvestments(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Investments.List(ctx, userID)
	})
}

// investmentInput tells an absent currentPrice apart from a zero one.
type investmentInput struct {
	*models.Investment
	CurrentPrice *float64 `json:"currentPrice"`
}

func (s *Server) createInvestment(w http.ResponseWriter, r *http.Request) {
	in := investmentInput{Investment: &models.Investment{PurchaseDate: s.now().UTC()}}
	create(w, r, &in, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Investments.Create(ctx, userID, in.Investment, in.CurrentPrice)
	})
}

func (s *Server) getInvestment(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Investments.Get(ctx, userID, r.PathValue("id"))
	})
}

func (s *Server) updateInvestment(w http.ResponseWriter, r *http.Request) {
	update(w, r, func(ctx context.Context, userID, id string, body []byte) (any, error) {
		return s.svc.Investments.Update(ctx, userID, id, merge[*models.Investment](body))
	})
}

func (s *Server) deleteInvestment(w http.ResponseWriter, r *http.Request) {
	remove(w, r, s.svc.Investments.Delete)
}
