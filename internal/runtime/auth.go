// Package runtime wires the engine to real Google credentials and services.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mbrt/gmailctl/cmd/gmailctl/localcred"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/joshsymonds/mailpurge/internal/token"
)

const (
	credentialsFile = "credentials.json"
	tokenFile       = "token.json"
)

// Bootstrap runs the interactive OAuth flow through gmailctl's local
// credential provider, writing credentials.json and token.json into cfgDir.
// Subsequent runs read those files directly via NewTokenProvider.
func Bootstrap(ctx context.Context, cfgDir string) error {
	_, err := (localcred.Provider{}).ServiceWithScopes(ctx, cfgDir, gapi.MailGoogleComScope)
	if err != nil {
		return fmt.Errorf("bootstrap credentials in %s: %w", cfgDir, err)
	}
	return nil
}

// NewTokenProvider builds the engine's token provider from the credential
// files persisted in cfgDir. Permanent deletion needs the full mail scope.
func NewTokenProvider(cfgDir string) (*token.OAuthProvider, error) {
	creds, err := os.ReadFile(filepath.Join(cfgDir, credentialsFile)) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("read oauth credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(creds, gapi.MailGoogleComScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth credentials: %w", err)
	}

	raw, err := os.ReadFile(filepath.Join(cfgDir, tokenFile)) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	provider, err := token.NewOAuthProvider(cfg, &tok)
	if err != nil {
		return nil, fmt.Errorf("build token provider: %w", err)
	}
	return provider, nil
}

// NewGmailService builds the Gmail API service on top of the shared token
// provider, so the transport and the token guard see the same credential.
func NewGmailService(ctx context.Context, provider *token.OAuthProvider) (*gapi.Service, error) {
	svc, err := gapi.NewService(ctx,
		option.WithTokenSource(oauth2.ReuseTokenSource(nil, provider.Source(ctx))))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

// AccountEmail returns the authenticated mailbox address.
func AccountEmail(ctx context.Context, svc *gapi.Service) (string, error) {
	profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}
	return profile.EmailAddress, nil
}

// DefaultLogger is the process-wide slog setup shared by the binaries.
func DefaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
