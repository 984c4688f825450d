// Package token guards credential freshness for long-running deletion runs.
package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Provider supplies OAuth credentials to the deletion engine.
type Provider interface {
	// Token returns a usable credential, refreshing only if the cached one
	// has expired.
	Token(ctx context.Context) (*oauth2.Token, error)
	// ForceRefresh discards the cached credential and obtains a new one.
	ForceRefresh(ctx context.Context) (*oauth2.Token, error)
	// Peek returns the cached credential without any network call, or nil.
	Peek() *oauth2.Token
	// TimeRemaining reports how long the cached credential stays valid
	// relative to now. Zero when no credential is cached.
	TimeRemaining(now time.Time) time.Duration
}

// OAuthProvider implements Provider on top of an oauth2.Config and the
// refresh token persisted by the auth bootstrap.
type OAuthProvider struct {
	mu      sync.Mutex
	cfg     *oauth2.Config
	current *oauth2.Token
}

// NewOAuthProvider wraps cfg with the previously persisted token. The token
// must carry a refresh token; its access token may already be stale.
func NewOAuthProvider(cfg *oauth2.Config, tok *oauth2.Token) (*OAuthProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("oauth config must not be nil")
	}
	if tok == nil || tok.RefreshToken == "" {
		return nil, fmt.Errorf("token must carry a refresh token")
	}
	return &OAuthProvider{cfg: cfg, current: tok}, nil
}

func (p *OAuthProvider) Token(ctx context.Context) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current.Valid() {
		return cloneToken(p.current), nil
	}
	return p.refreshLocked(ctx)
}

func (p *OAuthProvider) ForceRefresh(ctx context.Context) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshLocked(ctx)
}

// refreshLocked exchanges the refresh token for a new access token. Callers
// hold p.mu.
func (p *OAuthProvider) refreshLocked(ctx context.Context) (*oauth2.Token, error) {
	stale := &oauth2.Token{RefreshToken: p.current.RefreshToken}
	fresh, err := p.cfg.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = p.current.RefreshToken
	}
	p.current = fresh
	return cloneToken(fresh), nil
}

func (p *OAuthProvider) Peek() *oauth2.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	return cloneToken(p.current)
}

func (p *OAuthProvider) TimeRemaining(now time.Time) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.current.Expiry.IsZero() {
		return 0
	}
	remaining := p.current.Expiry.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Source adapts the provider to the oauth2.TokenSource shape expected by the
// Google API client. Refreshes flow through the provider, so the guard's view
// of the cached credential never drifts from what the transport uses.
func (p *OAuthProvider) Source(ctx context.Context) oauth2.TokenSource {
	return sourceFunc(func() (*oauth2.Token, error) { return p.Token(ctx) })
}

type sourceFunc func() (*oauth2.Token, error)

func (f sourceFunc) Token() (*oauth2.Token, error) { return f() }

func cloneToken(tok *oauth2.Token) *oauth2.Token {
	cp := *tok
	return &cp
}

var _ Provider = (*OAuthProvider)(nil)
