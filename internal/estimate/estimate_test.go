package estimate

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/joshsymonds/mailpurge/internal/gmail"
)

type fakeClient struct {
	pages []gmail.ListPage
	froms map[gmail.MessageID]string
	query string
}

func (f *fakeClient) List(ctx context.Context, q gmail.Query, pageToken string, pageSize int) (gmail.ListPage, error) {
	_, _, _ = ctx, pageToken, pageSize
	f.query = q.Raw
	if len(f.pages) == 0 {
		return gmail.ListPage{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeClient) BatchDelete(ctx context.Context, ids []gmail.MessageID) error {
	_, _ = ctx, ids
	return nil
}

func (f *fakeClient) GetFrom(ctx context.Context, id gmail.MessageID) (string, error) {
	_ = ctx
	return f.froms[id], nil
}

func (f *fakeClient) Ready() bool { return true }

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunRanksSendersByCount(t *testing.T) {
	client := &fakeClient{
		pages: []gmail.ListPage{
			{IDs: []gmail.MessageID{"1", "2", "3"}, NextPageToken: "next"},
			{IDs: []gmail.MessageID{"4", "5"}},
		},
		froms: map[gmail.MessageID]string{
			"1": "Newsletter <news@example.com>",
			"2": "news@example.com",
			"3": "Promo <promo@example.com>",
			"4": "NEWS@example.com",
			"5": "promo@example.com",
		},
	}
	svc := NewService(client, nil, slogDiscard())

	targets, err := svc.Run(context.Background(), Options{Window: 48 * time.Hour})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("targets = %+v", targets)
	}
	if targets[0].Sender != "news@example.com" || targets[0].EstimatedCount != 3 {
		t.Fatalf("top target %+v", targets[0])
	}
	if targets[1].Sender != "promo@example.com" || targets[1].EstimatedCount != 2 {
		t.Fatalf("second target %+v", targets[1])
	}
	if client.query != "newer_than:2d" {
		t.Fatalf("query %q", client.query)
	}
}

func TestRunAppliesMinCountAndTopN(t *testing.T) {
	client := &fakeClient{
		pages: []gmail.ListPage{{IDs: []gmail.MessageID{"1", "2", "3", "4"}}},
		froms: map[gmail.MessageID]string{
			"1": "a@example.com",
			"2": "a@example.com",
			"3": "b@example.com",
			"4": "c@example.com",
		},
	}
	svc := NewService(client, nil, slogDiscard())

	targets, err := svc.Run(context.Background(),
		Options{Window: 24 * time.Hour, MinCount: 2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(targets) != 1 || targets[0].Sender != "a@example.com" {
		t.Fatalf("targets = %+v", targets)
	}

	client.pages = []gmail.ListPage{{IDs: []gmail.MessageID{"1", "3", "4"}}}
	targets, err = svc.Run(context.Background(),
		Options{Window: 24 * time.Hour, TopN: 2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("topN not applied: %+v", targets)
	}
}

func TestRunRejectsBadWindow(t *testing.T) {
	svc := NewService(&fakeClient{}, nil, slogDiscard())
	if _, err := svc.Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for zero window")
	}
}

func TestAddressOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "News <news@example.com>", want: "news@example.com"},
		{in: "news@example.com", want: "news@example.com"},
		{in: "UPPER@Example.Com", want: "upper@example.com"},
		{in: "", want: ""},
		{in: "no-address-here", want: ""},
		{in: "<broken@example.com", want: "broken@example.com"},
	}
	for _, tt := range tests {
		if got := addressOf(tt.in); got != tt.want {
			t.Fatalf("addressOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
