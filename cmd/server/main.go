package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/mmynk/finwise/internal/config"
	"github.com/mmynk/finwise/internal/storage"
	"github.com/mmynk/finwise/internal/storage/mongodb"
	"github.com/mmynk/finwise/internal/storage/sqlite"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	commander.Register(&serveCmd{}, "")
	commander.Register(&remindCmd{}, "maintenance")
	commander.Register(&reportCmd{}, "maintenance")

	flag.Parse()
	if flag.NArg() == 0 {
		// serve is the default command.
		_ = flag.CommandLine.Parse([]string{"serve"})
	}
	os.Exit(int(commander.Execute(context.Background())))
}

// openStore connects to the backend selected by STORAGE.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage {
	case config.StorageMongo:
		store, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		return store, nil
	default:
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		return store, nil
	}
}

func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}
