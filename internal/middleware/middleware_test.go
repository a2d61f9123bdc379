package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/finwise/internal/auth"
	"github.com/mmynk/finwise/internal/models"
)

func TestAuthenticate(t *testing.T) {
	jwtManager := auth.NewJWTManager("middleware-test-secret-0123456789", time.Minute, time.Hour)
	pair, err := jwtManager.GeneratePair(&models.User{ID: "user-1", Email: "a@example.com"})
	if err != nil {
		t.Fatal(err)
	}

	var gotUser string
	var gotErr error
	handler := Authenticate(jwtManager, func(w http.ResponseWriter, err error) {
		gotErr = err
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUserID(r.Context())
	}))

	tests := []struct {
		name     string
		header   string
		query    string
		wantCode int
		wantErr  error
	}{
		{"bearer header", "Bearer " + pair.AccessToken, "", http.StatusOK, nil},
		{"query token", "", "?token=" + pair.AccessToken, http.StatusOK, nil},
		{"missing token", "", "", http.StatusUnauthorized, auth.ErrMissingToken},
		{"malformed header", "Token abc", "", http.StatusUnauthorized, auth.ErrInvalidToken},
		{"refresh token rejected", "Bearer " + pair.RefreshToken, "", http.StatusUnauthorized, auth.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser, gotErr = "", nil
			req := httptest.NewRequest(http.MethodGet, "/accounts"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantErr == nil && gotUser != "user-1" {
				t.Errorf("user id = %q, want user-1", gotUser)
			}
			if tt.wantErr != nil && !errors.Is(gotErr, tt.wantErr) {
				t.Errorf("error = %v, want %v", gotErr, tt.wantErr)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	called := false
	h := CORS("https://app.example.com")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/accounts", nil))
	if rec.Code != http.StatusNoContent || called {
		t.Errorf("preflight: status %d, handler called %v", rec.Code, called)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allow origin = %q", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts", nil))
	if !called {
		t.Error("GET should reach the handler")
	}
}

func TestMetricsInstrument(t *testing.T) {
	m := NewMetrics()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /accounts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := Chain(mux, m.Instrument, LogRequests)

	for _, id := range []string{"a", "b"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/accounts/"+id, nil))
	}

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.EventPublished("notification:new")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`finwise_http_requests_total{method="GET",route="GET /accounts/{id}",status="404"} 2`,
		`finwise_websocket_connections 1`,
		`finwise_realtime_events_total{event="notification:new"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
