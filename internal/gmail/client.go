package gmail

import "context"

// Client is the message-store surface required by the deletion engine.
type Client interface {
	// List returns up to pageSize IDs matching q, starting at pageToken.
	List(ctx context.Context, q Query, pageToken string, pageSize int) (ListPage, error)
	// BatchDelete permanently removes the given messages in one call.
	BatchDelete(ctx context.Context, ids []MessageID) error
	// GetFrom returns the From header value of a message. Used by the
	// target estimator, not by the deletion loop.
	GetFrom(ctx context.Context, id MessageID) (string, error)
	// Ready reports whether the client is wired up and able to issue calls.
	Ready() bool
}
