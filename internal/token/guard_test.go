package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

type fakeProvider struct {
	remaining    time.Duration
	tokenCalls   int
	refreshCalls int
	err          error
}

func (f *fakeProvider) Token(ctx context.Context) (*oauth2.Token, error) {
	_ = ctx
	f.tokenCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{AccessToken: "lazy"}, nil
}

func (f *fakeProvider) ForceRefresh(ctx context.Context) (*oauth2.Token, error) {
	_ = ctx
	f.refreshCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{AccessToken: "forced"}, nil
}

func (f *fakeProvider) Peek() *oauth2.Token { return nil }

func (f *fakeProvider) TimeRemaining(now time.Time) time.Duration {
	_ = now
	return f.remaining
}

func TestFreshForcesRefreshNearExpiry(t *testing.T) {
	fake := &fakeProvider{remaining: time.Minute}
	guard := NewGuard(fake)

	tok, err := guard.Fresh(context.Background())
	if err != nil {
		t.Fatalf("fresh failed: %v", err)
	}
	if tok.AccessToken != "forced" {
		t.Fatalf("expected forced refresh, got %q", tok.AccessToken)
	}
	if fake.refreshCalls != 1 || fake.tokenCalls != 0 {
		t.Fatalf("calls refresh=%d token=%d", fake.refreshCalls, fake.tokenCalls)
	}
}

func TestFreshUsesLazyPathWhenHealthy(t *testing.T) {
	fake := &fakeProvider{remaining: time.Hour}
	guard := NewGuard(fake)

	tok, err := guard.Fresh(context.Background())
	if err != nil {
		t.Fatalf("fresh failed: %v", err)
	}
	if tok.AccessToken != "lazy" {
		t.Fatalf("expected lazy token, got %q", tok.AccessToken)
	}
	if fake.tokenCalls != 1 || fake.refreshCalls != 0 {
		t.Fatalf("calls refresh=%d token=%d", fake.refreshCalls, fake.tokenCalls)
	}
}

func TestFreshClassifiesFailuresAsAuthError(t *testing.T) {
	fake := &fakeProvider{remaining: time.Hour, err: errors.New("revoked")}
	guard := NewGuard(fake)

	_, err := guard.Fresh(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestGuardThresholdBoundary(t *testing.T) {
	// exactly at the threshold counts as healthy; strictly below forces
	fake := &fakeProvider{remaining: DefaultRefreshThreshold}
	guard := NewGuard(fake)
	if _, err := guard.Fresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fake.refreshCalls != 0 {
		t.Fatalf("expected lazy path at threshold, refresh=%d", fake.refreshCalls)
	}

	fake = &fakeProvider{remaining: DefaultRefreshThreshold - time.Second}
	guard = NewGuard(fake)
	if _, err := guard.Fresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fake.refreshCalls != 1 {
		t.Fatalf("expected forced refresh below threshold, refresh=%d", fake.refreshCalls)
	}
}
