package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joshsymonds/mailpurge/internal/estimate"
	"github.com/joshsymonds/mailpurge/internal/rate"
	"github.com/joshsymonds/mailpurge/internal/runtime"
)

const hoursPerDay = 24

type estimateConfig struct {
	cfgDir   string
	days     int
	topN     int
	minCount int
	pageSize int
	rps      int
}

func main() {
	cfg := parseEstimateFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailpurge-estimate failed", "error", err)
		os.Exit(1)
	}
}

func parseEstimateFlags() estimateConfig {
	cfgDir := flag.String("config", os.ExpandEnv("$HOME/.gmailctl"), "gmailctl auth directory")
	days := flag.Int("days", 30, "lookback window in days")
	topN := flag.Int("top", 20, "number of senders to report")
	minCount := flag.Int("min", 5, "minimum messages in window to include a sender")
	pageSize := flag.Int("page-size", 500, "Gmail list page size (<=500)")
	rps := flag.Int("rps", 4, "max requests per second")
	flag.Parse()

	return estimateConfig{
		cfgDir:   *cfgDir,
		days:     *days,
		topN:     *topN,
		minCount: *minCount,
		pageSize: *pageSize,
		rps:      *rps,
	}
}

func run(cfg estimateConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := runtime.NewTokenProvider(cfg.cfgDir)
	if err != nil {
		return err
	}
	svc, err := runtime.NewGmailService(ctx, provider)
	if err != nil {
		return err
	}
	client := runtime.NewGoogleAPIClient(svc)

	limiter := rate.NewPerSecond(cfg.rps)
	defer limiter.Stop()

	estSvc := estimate.NewService(client, limiter, runtime.DefaultLogger())
	targets, err := estSvc.Run(ctx, estimate.Options{
		Window:   time.Duration(cfg.days) * hoursPerDay * time.Hour,
		TopN:     cfg.topN,
		MinCount: cfg.minCount,
		PageSize: cfg.pageSize,
	})
	if err != nil {
		return fmt.Errorf("run estimate: %w", err)
	}

	// comma separated sender=count, ready for mailpurge-delete -senders
	parts := make([]string, 0, len(targets))
	for _, target := range targets {
		parts = append(parts, fmt.Sprintf("%s=%d", target.Sender, target.EstimatedCount))
	}
	fmt.Println(strings.Join(parts, ","))
	return nil
}
