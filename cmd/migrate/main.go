// Command migrate runs goose against the embedded ledger schema.
//
//	migrate [up|down|status|redo|version|reset] [args...]
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/ledgerport/internal/config"
	"github.com/MrJamesThe3rd/ledgerport/internal/database"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	command := "up"

	var args []string

	if len(os.Args) > 1 {
		command, args = os.Args[1], os.Args[2:]
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.ConnectionString(), 1)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.MigrateCommand(ctx, db, command, args...); err != nil {
		slog.Error("migration failed", "command", command, "error", err)
		db.Close()
		os.Exit(1)
	}

	slog.Info("migration finished", "command", command)
}
