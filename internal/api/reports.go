package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmynk/finwise/internal/middleware"
	"github.com/mmynk/finwise/internal/service"
)

// Notifications

// DefaultNotificationLimit caps a notification listing without ?limit.
const DefaultNotificationLimit = 50

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", DefaultNotificationLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Notifications.List(ctx, userID, unreadOnly, limit)
	})
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		n, err := s.svc.Notifications.UnreadCount(ctx, userID)
		return map[string]int{"count": n}, err
	})
}

func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		n, err := s.svc.Notifications.MarkAllRead(ctx, userID)
		return map[string]int{"count": n}, err
	})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, func(ctx context.Context, userID string) (any, error) {
		return s.svc.Notifications.MarkRead(ctx, userID, r.PathValue("id"))
	})
}

func (s *Server) deleteNotification(w http.ResponseWriter, r *http.Request) {
	remove(w, r, s.svc.Notifications.Delete)
}

// Dashboard and reports

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, s.svc.Dashboard.Dashboard(r.Context(), middleware.GetUserID(r.Context())))
}

func (s *Server) monthlyReport(w http.ResponseWriter, r *http.Request) {
	months, err := queryInt(r, "months", 6)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, s.svc.Dashboard.MonthlyReport(r.Context(), middleware.GetUserID(r.Context()), months))
}

// Exports

// attachment buffers render so a failure can still be reported as JSON.
func (s *Server) attachment(w http.ResponseWriter, r *http.Request, name, contentType string, render func(buf *bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	if name != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) exportName(kind, ext string) string {
	return fmt.Sprintf("finwise-%s-%s.%s", kind, s.now().Format(time.DateOnly), ext)
}

func (s *Server) exportTransactions(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from", false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := queryDate(r, "to", true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID := middleware.GetUserID(r.Context())
	s.attachment(w, r, s.exportName("transactions", "csv"), "text/csv", func(buf *bytes.Buffer) error {
		return s.exporter.Transactions(r.Context(), buf, userID, from, to)
	})
}

func (s *Server) exportAccounts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	s.attachment(w, r, s.exportName("accounts", "csv"), "text/csv", func(buf *bytes.Buffer) error {
		return s.exporter.Accounts(r.Context(), buf, userID)
	})
}

func (s *Server) exportSummary(w http.ResponseWriter, r *http.Request) {
	months, err := queryInt(r, "months", 12)
	if err != nil {
		writeError(w, r, err)
		return
	}
	months = min(max(months, 1), service.MaxTrendMonths)
	userID := middleware.GetUserID(r.Context())
	s.attachment(w, r, s.exportName("summary", "csv"), "text/csv", func(buf *bytes.Buffer) error {
		return s.exporter.Summary(r.Context(), buf, userID, months)
	})
}

// exportReport serves the printable report. ?month=YYYY-MM selects a past
// month; ?format=md returns the Markdown source.
func (s *Server) exportReport(w http.ResponseWriter, r *http.Request) {
	var month time.Time
	if raw := r.URL.Query().Get("month"); raw != "" {
		var err error
		if month, err = time.Parse("2006-01", raw); err != nil {
			writeError(w, r, badRequest("month must be formatted as YYYY-MM"))
			return
		}
	}
	report, err := s.exporter.Report(r.Context(), middleware.GetUserID(r.Context()), month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "md" {
		s.attachment(w, r, "", "text/markdown; charset=utf-8", func(buf *bytes.Buffer) error {
			_, err := buf.WriteString(report.Markdown())
			return err
		})
		return
	}
	s.attachment(w, r, "", "text/html; charset=utf-8", func(buf *bytes.Buffer) error {
		page, err := report.HTML()
		if err != nil {
			return err
		}
		_, err = buf.Write(page)
		return err
	})
}

func (s *Server) exportPDF(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotImplemented,
		"PDF export is not available; open /export/report and print it to PDF")
}
