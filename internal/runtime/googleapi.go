// internal/runtime/googleapi.go — adapts *gmail.Service to our small interface
package runtime

import (
	"context"
	"fmt"

	gapi "google.golang.org/api/gmail/v1"

	gc "github.com/joshsymonds/mailpurge/internal/gmail"
)

type googleClient struct{ svc *gapi.Service }

// NewGoogleAPIClient wraps a Gmail API service in the engine's client
// interface.
func NewGoogleAPIClient(svc *gapi.Service) gc.Client { return &googleClient{svc} }

func (g *googleClient) List(ctx context.Context, q gc.Query, pageToken string, pageSize int) (gc.ListPage, error) {
	call := g.svc.Users.Messages.List("me").Q(q.Raw).MaxResults(int64(pageSize))
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return gc.ListPage{}, fmt.Errorf("list messages: %w", err)
	}
	page := gc.ListPage{NextPageToken: res.NextPageToken}
	for _, m := range res.Messages {
		page.IDs = append(page.IDs, gc.MessageID(m.Id))
	}
	return page, nil
}

func (g *googleClient) BatchDelete(ctx context.Context, ids []gc.MessageID) error {
	req := &gapi.BatchDeleteMessagesRequest{Ids: toStrings(ids)}
	if err := g.svc.Users.Messages.BatchDelete("me", req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("batch delete %d messages: %w", len(ids), err)
	}
	return nil
}

func (g *googleClient) GetFrom(ctx context.Context, id gc.MessageID) (string, error) {
	msg, err := g.svc.Users.Messages.Get("me", string(id)).
		Format("metadata").MetadataHeaders("From").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get message %s: %w", id, err)
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			if h.Name == "From" {
				return h.Value, nil
			}
		}
	}
	return "", nil
}

func (g *googleClient) Ready() bool { return g.svc != nil }

func toStrings(ids []gc.MessageID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
