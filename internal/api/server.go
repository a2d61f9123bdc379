// Package api exposes the finance services over a JSON REST API.
//
// Every response uses the same envelope:
//
//	{"success": true, "data": ...}
//	{"success": false, "message": "..."}
//
// All routes except registration, login, token refresh and the health
// check require a bearer access token.
package api

import (
	"net/http"
	"time"

	"github.com/mmynk/finwise/internal/auth"
	"github.com/mmynk/finwise/internal/export"
	"github.com/mmynk/finwise/internal/middleware"
	"github.com/mmynk/finwise/internal/service"
)

// Config holds the dependencies of the REST server.
type Config struct {
	Services *service.Services
	Auth     *service.AuthService
	JWT      *auth.JWTManager
	Exporter *export.Exporter

	// Realtime serves the WebSocket endpoint. It runs behind authentication.
	Realtime http.Handler

	// Metrics is optional; when set requests are instrumented and /metrics
	// is served.
	Metrics *middleware.Metrics

	// CORSOrigin is sent in Access-Control-Allow-Origin. Defaults to "*".
	CORSOrigin string

	// Now is used for export file names. Defaults to time.Now.
	Now func() time.Time
}

// Server routes REST requests to the services.
type Server struct {
	svc      *service.Services
	auth     *service.AuthService
	exporter *export.Exporter
	now      func() time.Time

	mux     *http.ServeMux
	handler http.Handler
}

// New creates the server and registers every route.
func New(cfg Config) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	s := &Server{
		svc:      cfg.Services,
		auth:     cfg.Auth,
		exporter: cfg.Exporter,
		now:      cfg.Now,
		mux:      http.NewServeMux(),
	}

	authed := middleware.Authenticate(cfg.JWT, unauthorized)
	s.routes(authed, cfg.Realtime)
	if cfg.Metrics != nil {
		s.mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	mws := []func(http.Handler) http.Handler{middleware.CORS(cfg.CORSOrigin), middleware.LogRequests}
	if cfg.Metrics != nil {
		mws = append(mws, cfg.Metrics.Instrument)
	}
	s.handler = middleware.Chain(s.mux, mws...)
	return s
}

// Handle mounts an extra handler, such as a Connect service, on the
// server's mux so it shares the middleware chain.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes(authed func(http.Handler) http.Handler, realtime http.Handler) {
	handle := func(pattern string, h http.HandlerFunc) {
		s.mux.Handle(pattern, authed(h))
	}

	s.mux.HandleFunc("GET /health", s.health)
	s.mux.HandleFunc("POST /auth/register", s.register)
	s.mux.HandleFunc("POST /auth/login", s.login)
	s.mux.HandleFunc("POST /auth/refresh", s.refresh)
	handle("GET /auth/me", s.me)
	handle("PUT /auth/profile", s.updateProfile)
	handle("PUT /auth/password", s.changePassword)

	handle("GET /accounts", s.listAccounts)
	handle("POST /accounts", s.createAccount)
	handle("GET /accounts/{id}", s.getAccount)
	handle("PUT /accounts/{id}", s.updateAccount)
	handle("DELETE /accounts/{id}", s.deleteAccount)

	handle("GET /transactions", s.listTransactions)
	handle("POST /transactions", s.createTransaction)
	handle("GET /transactions/{id}", s.getTransaction)
	handle("PUT /transactions/{id}", s.updateTransaction)
	handle("DELETE /transactions/{id}", s.deleteTransaction)

	handle("GET /budgets/summary", s.budgetSummary)
	handle("GET /budgets", s.listBudgets)
	handle("POST /budgets", s.createBudget)
	handle("GET /budgets/{id}", s.getBudget)
	handle("PUT /budgets/{id}", s.updateBudget)
	handle("DELETE /budgets/{id}", s.deleteBudget)

	handle("GET /goals/summary", s.goalSummary)
	handle("GET /goals", s.listGoals)
	handle("POST /goals", s.createGoal)
	handle("GET /goals/{id}", s.getGoal)
	handle("PUT /goals/{id}", s.updateGoal)
	handle("DELETE /goals/{id}", s.deleteGoal)
	handle("POST /goals/{id}/contribute", s.contribute)

	handle("GET /bills/summary", s.billSummary)
	handle("GET /bills", s.listBills)
	handle("POST /bills", s.createBill)
	handle("GET /bills/{id}", s.getBill)
	handle("PUT /bills/{id}", s.updateBill)
	handle("DELETE /bills/{id}", s.deleteBill)
	handle("POST /bills/{id}/pay", s.payBill)

	handle("GET /investments/summary", s.investmentSummary)
	handle("GET /investments", s.listInvestments)
	handle("POST /investments", s.createInvestment)
	handle("GET /investments/{id}", s.getInvestment)
	handle("PUT /investments/{id}", s.updateInvestment)
	handle("DELETE /investments/{id}", s.deleteInvestment)

	handle("GET /notifications", s.listNotifications)
	handle("GET /notifications/unread-count", s.unreadCount)
	handle("PUT /notifications/read-all", s.markAllRead)
	handle("PUT /notifications/{id}/read", s.markRead)
	handle("DELETE /notifications/{id}", s.deleteNotification)

	handle("GET /dashboard", s.dashboard)
	handle("GET /reports/monthly", s.monthlyReport)

	handle("GET /export/transactions", s.exportTransactions)
	handle("GET /export/accounts", s.exportAccounts)
	handle("GET /export/summary", s.exportSummary)
	handle("GET /export/report", s.exportReport)
	handle("GET /export/pdf", s.exportPDF)

	if realtime != nil {
		s.mux.Handle("GET /ws", authed(realtime))
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}
