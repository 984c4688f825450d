// Package estimate builds a deletion target list by ranking recent senders.
package estimate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/joshsymonds/mailpurge/internal/gmail"
	"github.com/joshsymonds/mailpurge/internal/purge"
	"github.com/joshsymonds/mailpurge/internal/rate"
)

// Options controls the estimation scan.
type Options struct {
	Window   time.Duration
	TopN     int
	PageSize int
	// MinCount drops senders with fewer messages than this in the window.
	MinCount int
}

// Service scans recent mail and counts messages per sender. The counts feed
// deletion runs as estimated totals.
type Service struct {
	Client  gmail.Client
	Limiter rate.Limiter
	Logger  *slog.Logger
	Clock   func() time.Time
}

// NewService constructs a Service with sane defaults.
func NewService(client gmail.Client, limiter rate.Limiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{Client: client, Limiter: limiter, Logger: logger, Clock: time.Now}
}

// Run returns the top senders in the lookback window, ordered by message
// count descending.
func (s *Service) Run(ctx context.Context, opts Options) ([]purge.Target, error) {
	if opts.Window <= 0 {
		return nil, fmt.Errorf("window must be positive")
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = 20
	}
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 500
	}
	minCount := opts.MinCount
	if minCount < 1 {
		minCount = 1
	}

	s.Logger.InfoContext(ctx, "estimating senders", slog.Duration("window", opts.Window))

	query := gmail.Query{Raw: fmt.Sprintf("newer_than:%dd", daysFromDuration(opts.Window))}
	counts := map[string]int{}
	pageToken := ""
	for {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		page, err := s.Client.List(ctx, query, pageToken, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		for _, id := range page.IDs {
			if err := s.wait(ctx); err != nil {
				return nil, err
			}
			from, err := s.Client.GetFrom(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("get sender of %s: %w", id, err)
			}
			if addr := addressOf(from); addr != "" {
				counts[addr]++
			}
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return rank(counts, topN, minCount), nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.Limiter == nil {
		return nil
	}
	if err := s.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

func rank(counts map[string]int, topN, minCount int) []purge.Target {
	targets := make([]purge.Target, 0, len(counts))
	for sender, count := range counts {
		if count < minCount {
			continue
		}
		targets = append(targets, purge.Target{Sender: sender, EstimatedCount: count})
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].EstimatedCount == targets[j].EstimatedCount {
			return targets[i].Sender < targets[j].Sender
		}
		return targets[i].EstimatedCount > targets[j].EstimatedCount
	})
	if topN < len(targets) {
		targets = targets[:topN]
	}
	return targets
}

func daysFromDuration(window time.Duration) int {
	const day = 24 * time.Hour
	days := int(window / day)
	if window%day != 0 {
		days++
	}
	if days <= 0 {
		days = 1
	}
	return days
}
