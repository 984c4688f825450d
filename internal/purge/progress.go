package purge

import (
	"math"
	"sync"
	"time"
)

// Update is one progress observation, pushed after every successful batch.
type Update struct {
	Processed     int
	Total         int
	Percent       int
	ETA           string
	CurrentTarget string
	Exhausted     bool
}

// Sink receives progress updates.
type Sink func(Update)

// Estimator projects how long the remaining work will take.
type Estimator interface {
	Estimate(remaining int) time.Duration
}

// PaceEstimator assumes a fixed per-message deletion pace.
type PaceEstimator struct {
	PerItem time.Duration
}

func (e PaceEstimator) Estimate(remaining int) time.Duration {
	if remaining <= 0 {
		return 0
	}
	per := e.PerItem
	if per <= 0 {
		per = 50 * time.Millisecond
	}
	return time.Duration(remaining) * per
}

// Reporter owns the processed count and fans normalized progress out to every
// registered sink, so internal state and external observers never keep
// separate books.
type Reporter struct {
	mu        sync.Mutex
	total     int
	processed int
	target    string
	estimator Estimator
	sinks     []Sink
}

// NewReporter tracks progress toward total estimated messages. A zero total
// means the total is unknown.
func NewReporter(total int, estimator Estimator) *Reporter {
	return &Reporter{total: total, estimator: estimator}
}

// AddSink registers an observer. Not safe to call once the run has started.
func (r *Reporter) AddSink(sink Sink) {
	if sink == nil {
		return
	}
	r.sinks = append(r.sinks, sink)
}

// SetTarget records which target the run is currently processing.
func (r *Reporter) SetTarget(sender string) {
	r.mu.Lock()
	r.target = sender
	r.mu.Unlock()
}

// Record adds one successful batch, computes the normalized update, and
// pushes it to every sink. morePages reports whether a page cursor is still
// outstanding for the current target.
func (r *Reporter) Record(batch int, morePages bool) Update {
	r.mu.Lock()
	r.processed += batch
	update := r.updateLocked(morePages)
	sinks := r.sinks
	r.mu.Unlock()

	for _, sink := range sinks {
		sink(update)
	}
	return update
}

// Snapshot returns the current progress without recording anything.
func (r *Reporter) Snapshot() Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLocked(true)
}

func (r *Reporter) updateLocked(morePages bool) Update {
	update := Update{
		Processed:     r.processed,
		Total:         r.total,
		CurrentTarget: r.target,
		Exhausted:     !morePages,
	}
	update.Percent = percent(r.processed, r.total, morePages)
	if r.estimator != nil && r.total > 0 {
		remaining := r.total - r.processed
		if eta := r.estimator.Estimate(remaining); eta > 0 {
			update.ETA = eta.Round(time.Second).String()
		}
	}
	return update
}

// percent normalizes progress: with a known total it is the rounded share,
// capped at 100. With an unknown total it reads 50 while a cursor remains
// outstanding and 100 once exhausted.
func percent(processed, total int, morePages bool) int {
	if total > 0 {
		pct := int(math.Round(float64(processed) / float64(total) * 100))
		if pct > 100 {
			pct = 100
		}
		return pct
	}
	if morePages {
		return 50
	}
	return 100
}
