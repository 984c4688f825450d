package token

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// DefaultRefreshThreshold is how much remaining lifetime triggers a forced
// refresh before the next batch rather than risking mid-call expiry.
const DefaultRefreshThreshold = 2 * time.Minute

// AuthError marks a credential failure that requires the user to
// re-authenticate before another run can proceed.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Guard hands out a usable credential before every batch, forcing a refresh
// when the cached one is close to expiry.
type Guard struct {
	Provider  Provider
	Threshold time.Duration
	Clock     func() time.Time
}

// NewGuard constructs a Guard with the default threshold.
func NewGuard(provider Provider) *Guard {
	return &Guard{
		Provider:  provider,
		Threshold: DefaultRefreshThreshold,
		Clock:     time.Now,
	}
}

// Fresh returns a credential guaranteed to outlive the next batch. Any
// failure is classified as an AuthError.
func (g *Guard) Fresh(ctx context.Context) (*oauth2.Token, error) {
	threshold := g.Threshold
	if threshold <= 0 {
		threshold = DefaultRefreshThreshold
	}
	var (
		tok *oauth2.Token
		err error
	)
	if g.Provider.TimeRemaining(g.Clock()) < threshold {
		tok, err = g.Provider.ForceRefresh(ctx)
	} else {
		tok, err = g.Provider.Token(ctx)
	}
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	return tok, nil
}
