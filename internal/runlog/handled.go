package runlog

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const handledBucket = "handled_senders"

// HandledStore records which senders have already had a deletion run taken
// against them. Writes are best effort; a failed mark never aborts a run.
type HandledStore struct {
	db    *bbolt.DB
	Clock func() time.Time
}

// NewHandledStore reuses the run-log database for the handled-senders bucket.
func NewHandledStore(store *BoltStore) (*HandledStore, error) {
	err := store.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(handledBucket))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create handled bucket: %w", err)
	}
	return &HandledStore{db: store.db, Clock: store.Clock}, nil
}

// Mark stamps the sender with the current time.
func (s *HandledStore) Mark(ctx context.Context, sender string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(handledBucket))
		return b.Put([]byte(sender), []byte(s.Clock().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return fmt.Errorf("mark sender %s handled: %w", sender, err)
	}
	return nil
}

// Handled reports whether the sender was previously marked.
func (s *HandledStore) Handled(ctx context.Context, sender string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(handledBucket))
		found = b.Get([]byte(sender)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("check sender %s: %w", sender, err)
	}
	return found, nil
}
