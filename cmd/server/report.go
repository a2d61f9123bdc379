package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/mmynk/finwise/internal/auth"
	"github.com/mmynk/finwise/internal/config"
	"github.com/mmynk/finwise/internal/export"
	"github.com/mmynk/finwise/internal/storage"
)

type reportCmd struct {
	email  string
	month  string
	format string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "print a user's monthly financial report" }
func (*reportCmd) Usage() string {
	return `report -email <email> [-month YYYY-MM] [-format term|md|html]

  Prints the monthly report of a user. The default month is the current one
  and the default format renders Markdown for the terminal.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "email of the user")
	f.StringVar(&c.month, "month", "", "month to report, YYYY-MM (defaults to the current month)")
	f.StringVar(&c.format, "format", "term", "output format: term, md or html")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.email == "" {
		fmt.Fprintln(os.Stderr, "Error: -email is required")
		return subcommands.ExitUsageError
	}
	var month time.Time
	if c.month != "" {
		var err error
		if month, err = time.Parse("2006-01", c.month); err != nil {
			fmt.Fprintf(os.Stderr, "Error: -month must be YYYY-MM, got %q\n", c.month)
			return subcommands.ExitUsageError
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fail("%v", err)
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fail("%v", err)
	}
	defer store.Close()

	user, err := store.GetUserByEmail(ctx, auth.NormalizeEmail(c.email))
	if errors.Is(err, storage.ErrNotFound) {
		return fail("no user with email %s", c.email)
	}
	if err != nil {
		return fail("%v", err)
	}

	report, err := export.New(store, nil).Report(ctx, user.ID, month)
	if err != nil {
		return fail("%v", err)
	}

	switch c.format {
	case "md":
		fmt.Print(report.Markdown())
	case "html":
		page, err := report.HTML()
		if err != nil {
			return fail("%v", err)
		}
		os.Stdout.Write(page)
	case "term":
		if err := printMarkdown(report.Markdown()); err != nil {
			return fail("%v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format %q\n", c.format)
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}

// printMarkdown renders md for the terminal.
func printMarkdown(md string) error {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	fmt.Print(out)
	return nil
}
