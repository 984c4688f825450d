package purge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joshsymonds/mailpurge/internal/gmail"
	"github.com/joshsymonds/mailpurge/internal/rate"
	"github.com/joshsymonds/mailpurge/internal/token"
)

const (
	// DefaultPageSize is the Gmail batch-delete ceiling.
	DefaultPageSize = 1000
	// maxIterations bounds one target's fetch/delete loop. A healthy
	// cursor converges long before this; hitting the cap means the store
	// keeps returning pages and the run must not spin forever.
	maxIterations = 30
)

// batchProcessor drives one target's paginated fetch-then-delete loop.
type batchProcessor struct {
	client   gmail.Client
	guard    *token.Guard
	limiter  rate.Limiter
	rules    *gmail.Rules
	pageSize int
	log      *slog.Logger
}

// run deletes everything matching the target's query. onBatch is invoked
// after every successful delete with the batch size and whether a cursor
// remains outstanding. Returns errCancelled when cancellation was observed;
// otherwise a *token.AuthError, *APIError, *RunawayError, or a pacing error.
func (p *batchProcessor) run(ctx context.Context, target Target, cancel *Canceller, onBatch func(deleted int, morePages bool)) error {
	query := gmail.BuildQuery(target.Sender, p.rules)
	pageSize := p.pageSize
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}

	pageToken := ""
	for iter := 1; iter <= maxIterations; iter++ {
		if cancel.Cancelled() {
			return errCancelled
		}
		if _, err := p.guard.Fresh(ctx); err != nil {
			return err
		}

		page, err := p.client.List(ctx, query, pageToken, pageSize)
		if err != nil {
			return &APIError{Op: "fetch page", Err: err}
		}
		if cancel.Cancelled() {
			return errCancelled
		}
		if len(page.IDs) == 0 {
			// target fully processed
			return nil
		}

		if err := p.client.BatchDelete(ctx, page.IDs); err != nil {
			return &APIError{Op: "delete batch", Err: err}
		}
		morePages := page.NextPageToken != ""
		onBatch(len(page.IDs), morePages)
		p.log.DebugContext(ctx, "batch deleted",
			"sender", target.Sender, "count", len(page.IDs), "iteration", iter)

		if cancel.Cancelled() {
			return errCancelled
		}
		if !morePages {
			return nil
		}
		pageToken = page.NextPageToken

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				if cancel.Cancelled() {
					return errCancelled
				}
				return fmt.Errorf("inter-batch pacing: %w", err)
			}
		}
	}
	return &RunawayError{Sender: target.Sender, Iterations: maxIterations}
}
