// Package gmail defines the narrow message-store surface mailpurge needs.
package gmail

// MessageID identifies a single message in the store.
type MessageID string

// Query is a fully formed Gmail search query.
type Query struct {
	Raw string
}

// ListPage is one page of matching message IDs. An empty IDs slice together
// with an empty NextPageToken signals exhaustion.
type ListPage struct {
	IDs           []MessageID
	NextPageToken string
}
