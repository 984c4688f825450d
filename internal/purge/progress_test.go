package purge

import (
	"testing"
	"time"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		name      string
		processed int
		total     int
		morePages bool
		want      int
	}{
		{name: "zero-of-known", processed: 0, total: 200, morePages: true, want: 0},
		{name: "half", processed: 100, total: 200, morePages: true, want: 50},
		{name: "rounds", processed: 1, total: 3, morePages: true, want: 33},
		{name: "caps-at-100", processed: 500, total: 200, morePages: false, want: 100},
		{name: "unknown-total-in-flight", processed: 40, total: 0, morePages: true, want: 50},
		{name: "unknown-total-exhausted", processed: 40, total: 0, morePages: false, want: 100},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			if got := percent(tc.processed, tc.total, tc.morePages); got != tc.want {
				t.Fatalf("percent(%d,%d,%v) = %d, want %d",
					tc.processed, tc.total, tc.morePages, got, tc.want)
			}
		})
	}
}

func TestReporterFansOutToAllSinks(t *testing.T) {
	r := NewReporter(100, PaceEstimator{PerItem: time.Second})
	var first, second []Update
	r.AddSink(func(u Update) { first = append(first, u) })
	r.AddSink(func(u Update) { second = append(second, u) })
	r.AddSink(nil) // ignored

	r.SetTarget("noise@example.com")
	u := r.Record(25, true)

	if u.Processed != 25 || u.Percent != 25 {
		t.Fatalf("unexpected update: %+v", u)
	}
	if u.CurrentTarget != "noise@example.com" {
		t.Fatalf("target not carried: %+v", u)
	}
	if u.ETA != "1m15s" {
		t.Fatalf("unexpected eta %q", u.ETA)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("sink fan-out: %d/%d", len(first), len(second))
	}
	if first[0] != second[0] {
		t.Fatal("sinks observed different updates")
	}
}

func TestReporterAccumulates(t *testing.T) {
	r := NewReporter(0, nil)
	r.Record(10, true)
	u := r.Record(5, false)
	if u.Processed != 15 {
		t.Fatalf("processed = %d, want 15", u.Processed)
	}
	if u.Percent != 100 {
		t.Fatalf("exhausted unknown-total percent = %d, want 100", u.Percent)
	}
	if u.ETA != "" {
		t.Fatalf("unknown total must not produce an eta, got %q", u.ETA)
	}
}

func TestPaceEstimator(t *testing.T) {
	est := PaceEstimator{PerItem: 100 * time.Millisecond}
	if got := est.Estimate(10); got != time.Second {
		t.Fatalf("estimate = %v", got)
	}
	if got := est.Estimate(0); got != 0 {
		t.Fatalf("no remaining work must estimate zero, got %v", got)
	}
	if got := (PaceEstimator{}).Estimate(20); got != time.Second {
		t.Fatalf("default pace estimate = %v", got)
	}
}
