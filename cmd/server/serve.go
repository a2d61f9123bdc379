package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/google/subcommands"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/finwise/internal/api"
	"github.com/mmynk/finwise/internal/auth"
	"github.com/mmynk/finwise/internal/config"
	"github.com/mmynk/finwise/internal/export"
	"github.com/mmynk/finwise/internal/insights"
	"github.com/mmynk/finwise/internal/middleware"
	"github.com/mmynk/finwise/internal/realtime"
	"github.com/mmynk/finwise/internal/scheduler"
	"github.com/mmynk/finwise/internal/service"
	"github.com/mmynk/finwise/pkg/logging"
)

const shutdownTimeout = 15 * time.Second

type serveCmd struct {
	port       string
	noSchedule bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API (default command)" }
func (*serveCmd) Usage() string {
	return `serve [-port <port>] [-no-schedule]

  Runs the REST API, the realtime socket, the assistant service and the
  bill reminder schedule. Settings come from the environment and .env.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.port, "port", "", "listen port (overrides PORT)")
	f.BoolVar(&c.noSchedule, "no-schedule", false, "do not run the reminder schedule")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		return fail("%v", err)
	}
	if c.port != "" {
		cfg.Port = c.port
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fail("%v", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "backend", cfg.Storage)

	clock := func() time.Time { return time.Now().UTC() }
	metrics := middleware.NewMetrics()
	hub := realtime.NewHub(metrics)
	go hub.Run(ctx)

	svc := service.New(store, hub, clock)
	jwt := auth.NewJWTManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authSvc := service.NewAuthService(auth.NewPasswordAuthenticator(store, cfg.DefaultCurrency), jwt, store, slog.Default())

	server := api.New(api.Config{
		Services:   svc,
		Auth:       authSvc,
		JWT:        jwt,
		Exporter:   export.New(store, clock),
		Realtime:   hub.Handler(),
		Metrics:    metrics,
		CORSOrigin: cfg.CORSOrigin,
	})

	assistant := insights.NewAssistant(store, newModel(ctx, cfg), clock)
	assistantPath, assistantHandler := insights.NewAssistantServiceHandler(
		insights.NewAssistantService(assistant, slog.Default()),
		connect.WithInterceptors(middleware.RequireAuth(jwt), middleware.LoggingInterceptor()),
	)
	server.Handle(assistantPath, assistantHandler)

	if !c.noSchedule {
		sched, err := scheduler.New(cfg.ReminderSchedule, svc.Reminders, slog.Default())
		if err != nil {
			return fail("%v", err)
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				slog.Warn("Scheduler did not stop cleanly", "error", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr: ":" + cfg.Port,
		// h2c serves HTTP/2 without TLS for Connect clients.
		Handler:           h2c.NewHandler(server, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", httpServer.Addr, "env", cfg.Env, "assistant", assistantPath)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fail("server failed: %v", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}

// newModel picks Gemini when an API key is configured, backed by the rule
// based model.
func newModel(ctx context.Context, cfg *config.Config) insights.Model {
	if cfg.GeminiAPIKey == "" {
		slog.Info("GEMINI_API_KEY not set, assistant uses built-in rules")
		return insights.Rules{}
	}
	gemini, err := insights.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Warn("Gemini unavailable, assistant uses built-in rules", "error", err)
		return insights.Rules{}
	}
	return insights.WithFallback(gemini, insights.Rules{})
}
