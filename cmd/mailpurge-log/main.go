package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joshsymonds/mailpurge/internal/runlog"
	"github.com/joshsymonds/mailpurge/internal/runtime"
)

type logConfig struct {
	dbPath string
	limit  int
}

func main() {
	cfg := parseLogFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailpurge-log failed", "error", err)
		os.Exit(1)
	}
}

func parseLogFlags() logConfig {
	dbPath := flag.String("db", os.ExpandEnv("$HOME/.mailpurge/runs.db"), "run log database path")
	limit := flag.Int("limit", 20, "number of runs to show")
	flag.Parse()
	return logConfig{dbPath: *dbPath, limit: *limit}
}

func run(cfg logConfig) error {
	store, err := runlog.OpenBolt(cfg.dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List(context.Background())
	if err != nil {
		return err
	}
	if cfg.limit > 0 && len(entries) > cfg.limit {
		entries = entries[:cfg.limit]
	}
	if len(entries) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	fmt.Printf("%-25s %-10s %10s %10s  %s\n",
		"STARTED", "END", "ESTIMATE", "PROCESSED", "ERROR")
	for _, entry := range entries {
		end := string(entry.EndType)
		if end == "" {
			end = "open"
		}
		fmt.Printf("%-25s %-10s %10d %10d  %s\n",
			entry.StartedAt.Local().Format(time.RFC3339),
			end, entry.EstimatedCount, entry.Processed, entry.Error)
	}
	return nil
}
