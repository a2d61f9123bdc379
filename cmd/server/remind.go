package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"

	"github.com/google/subcommands"

	"github.com/mmynk/finwise/internal/config"
	"github.com/mmynk/finwise/internal/scheduler"
	"github.com/mmynk/finwise/internal/service"
	"github.com/mmynk/finwise/pkg/logging"
)

type remindCmd struct{}

func (*remindCmd) Name() string     { return "remind" }
func (*remindCmd) Synopsis() string { return "send due bill reminders and settle auto-pay bills once" }
func (*remindCmd) Usage() string {
	return `remind

  Runs one reminder sweep over every user's unpaid bills and exits. Useful
  from an external cron when the server runs with -no-schedule.
`
}

func (*remindCmd) SetFlags(*flag.FlagSet) {}

func (*remindCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		return fail("%v", err)
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fail("%v", err)
	}
	defer store.Close()

	svc := service.New(store, nil, nil)
	sched, err := scheduler.New(cfg.ReminderSchedule, svc.Reminders, slog.Default())
	if err != nil {
		return fail("%v", err)
	}
	result, err := sched.RunOnce(ctx)
	if err != nil {
		return fail("sweep failed: %v", err)
	}
	fmt.Printf("reminders sent: %d, auto-paid: %d, failed: %d\n", result.Reminders, result.AutoPaid, result.Failed)
	if result.Failed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
