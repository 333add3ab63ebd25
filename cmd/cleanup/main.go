// Command cleanup runs a single log retention purge. It exists for
// external scheduling (cron, systemd timers) alongside the in-server
// ticker; purging by cutoff is idempotent, so overlapping runs are safe.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shelfgrid/shelfgrid/internal/audit"
	"github.com/shelfgrid/shelfgrid/internal/config"
	"github.com/shelfgrid/shelfgrid/internal/oplog"
	"github.com/shelfgrid/shelfgrid/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	logService := oplog.NewService(postgres.NewLogRepository(db), cfg.Retention.LogWindow, audit.NewSlogLogger())
	removed, err := logService.Purge(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Purge failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %d log entries.\n", removed)
}
