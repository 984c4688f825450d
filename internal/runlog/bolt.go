package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const runsBucket = "runs"

// BoltStore is the durable run log, backed by a local bbolt database.
type BoltStore struct {
	db    *bbolt.DB
	Clock func() time.Time
}

// OpenBolt opens (or creates) the database at path and ensures the runs
// bucket exists.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}
	return &BoltStore{db: db, Clock: time.Now}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

func (s *BoltStore) Create(ctx context.Context, entry Entry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	entry.ID = uuid.NewString()
	if entry.StartedAt.IsZero() {
		entry.StartedAt = s.Clock()
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return putEntry(tx, entry)
	})
	if err != nil {
		return "", fmt.Errorf("create run entry: %w", err)
	}
	return entry.ID, nil
}

func (s *BoltStore) UpdateProgress(ctx context.Context, id string, processed int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		entry, err := getEntry(tx, id)
		if err != nil {
			return err
		}
		entry.Processed = processed
		return putEntry(tx, entry)
	})
	if err != nil {
		return fmt.Errorf("update run entry %s: %w", id, err)
	}
	return nil
}

func (s *BoltStore) Complete(ctx context.Context, id string, end EndType, processed int, errMsg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		entry, err := getEntry(tx, id)
		if err != nil {
			return err
		}
		if !entry.Open() {
			return fmt.Errorf("entry %s already completed as %s", id, entry.EndType)
		}
		entry.EndType = end
		entry.Processed = processed
		entry.Error = errMsg
		entry.EndedAt = s.Clock()
		return putEntry(tx, entry)
	})
	if err != nil {
		return fmt.Errorf("complete run entry %s: %w", id, err)
	}
	return nil
}

// List returns all entries, most recently started first.
func (s *BoltStore) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var entries []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))
		return b.ForEach(func(_, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list run entries: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartedAt.After(entries[j].StartedAt)
	})
	return entries, nil
}

// Get returns a single entry by ID.
func (s *BoltStore) Get(ctx context.Context, id string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	var entry Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		entry, err = getEntry(tx, id)
		return err
	})
	if err != nil {
		return Entry{}, fmt.Errorf("get run entry %s: %w", id, err)
	}
	return entry, nil
}

func putEntry(tx *bbolt.Tx, entry Entry) error {
	b := tx.Bucket([]byte(runsBucket))
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return b.Put([]byte(entry.ID), raw)
}

func getEntry(tx *bbolt.Tx, id string) (Entry, error) {
	b := tx.Bucket([]byte(runsBucket))
	raw := b.Get([]byte(id))
	if raw == nil {
		return Entry{}, fmt.Errorf("entry %s not found", id)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

var _ Store = (*BoltStore)(nil)
