package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/joshsymonds/mailpurge/internal/gmail"
	"github.com/joshsymonds/mailpurge/internal/purge"
	"github.com/joshsymonds/mailpurge/internal/queue"
	"github.com/joshsymonds/mailpurge/internal/rate"
	"github.com/joshsymonds/mailpurge/internal/runlog"
	"github.com/joshsymonds/mailpurge/internal/runtime"
	"github.com/joshsymonds/mailpurge/internal/token"
)

type deleteConfig struct {
	cfgDir   string
	dbPath   string
	senders  string
	rules    string
	pageSize int
	interval time.Duration
	login    bool
	quiet    bool
}

func main() {
	cfg := parseDeleteFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailpurge-delete failed", "error", err)
		os.Exit(1)
	}
}

func parseDeleteFlags() deleteConfig {
	cfgDir := flag.String("config", os.ExpandEnv("$HOME/.gmailctl"), "gmailctl auth directory")
	dbPath := flag.String("db", os.ExpandEnv("$HOME/.mailpurge/runs.db"), "run log database path")
	senders := flag.String("senders", "", "comma separated sender[=estimate] targets")
	rules := flag.String("rules", "", "optional YAML rules file narrowing the deletion query")
	pageSize := flag.Int("page-size", 1000, "messages per delete batch (<=1000)")
	interval := flag.Duration("interval", 150*time.Millisecond, "minimum delay between batches")
	login := flag.Bool("login", false, "run the interactive OAuth flow first")
	quiet := flag.Bool("quiet", false, "suppress the progress bar")
	flag.Parse()

	return deleteConfig{
		cfgDir:   *cfgDir,
		dbPath:   *dbPath,
		senders:  *senders,
		rules:    *rules,
		pageSize: *pageSize,
		interval: *interval,
		login:    *login,
		quiet:    *quiet,
	}
}

func run(cfg deleteConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	logger := runtime.DefaultLogger()

	if cfg.login {
		if err := runtime.Bootstrap(ctx, cfg.cfgDir); err != nil {
			return err
		}
	}

	targets, err := parseTargets(cfg.senders)
	if err != nil {
		return err
	}
	rules, err := gmail.LoadRules(cfg.rules)
	if err != nil {
		return err
	}

	provider, err := runtime.NewTokenProvider(cfg.cfgDir)
	if err != nil {
		return err
	}
	svc, err := runtime.NewGmailService(ctx, provider)
	if err != nil {
		return err
	}
	client := runtime.NewGoogleAPIClient(svc)
	account, err := runtime.AccountEmail(ctx, svc)
	if err != nil {
		return fmt.Errorf("resolve account: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.dbPath), 0o700); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	durable, err := runlog.OpenBolt(cfg.dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = durable.Close() }()
	handled, err := runlog.NewHandledStore(durable)
	if err != nil {
		return err
	}

	limiter := rate.NewInterval(cfg.interval)
	defer limiter.Stop()

	ctrl := purge.NewController(purge.Config{
		Client:    client,
		Guard:     token.NewGuard(provider),
		Limiter:   limiter,
		Durable:   durable,
		Local:     runlog.NewMemoryStore(),
		Handled:   handled,
		Estimator: purge.PaceEstimator{PerItem: 2 * time.Millisecond},
		Logger:    logger,
		Account:   account,
	})
	runner := queue.NewRunner(logger)
	if err := queue.RegisterDelete(runner, ctrl); err != nil {
		return err
	}

	total := 0
	for _, target := range targets {
		total += target.EstimatedCount
	}
	onProgress := progressSink(cfg.quiet, total)

	payload := queue.DeletePayload{Targets: targets, Rules: rules, PageSize: cfg.pageSize}
	result := runner.Execute(ctx, queue.JobDelete, payload, onProgress)

	switch {
	case result.Success:
		fmt.Printf("deleted %d messages across %d senders\n", result.Processed, len(targets))
		return nil
	case result.Cancelled:
		fmt.Printf("stopped after %d messages\n", result.Processed)
		return nil
	default:
		if ctrl.ReauthRequired() {
			logger.Warn("credentials rejected; rerun with -login")
		}
		return fmt.Errorf("run failed after %d messages: %s", result.Processed, result.Err)
	}
}

func progressSink(quiet bool, total int) func(queue.Progress) {
	if quiet {
		return nil
	}
	bar := progressbar.NewOptions(max(total, 1),
		progressbar.OptionSetDescription("deleting"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return func(p queue.Progress) {
		_ = bar.Set(p.Processed)
	}
}

func parseTargets(input string) ([]purge.Target, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("no senders supplied; use -senders addr=estimate,addr=estimate")
	}
	var targets []purge.Target
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sender, rawCount, found := strings.Cut(part, "=")
		sender = strings.TrimSpace(sender)
		if sender == "" {
			return nil, fmt.Errorf("target %q: empty sender", part)
		}
		count := 0
		if found {
			var err error
			count, err = strconv.Atoi(strings.TrimSpace(rawCount))
			if err != nil || count < 0 {
				return nil, fmt.Errorf("target %q: bad estimate", part)
			}
		}
		targets = append(targets, purge.Target{Sender: sender, EstimatedCount: count})
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no senders supplied")
	}
	return targets, nil
}
