package buffer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const defaultBucket = "events"

// Store is the on-disk event outbox. Keys embed the enqueue timestamp so a
// cursor walk yields events in production order.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open creates or opens the outbox file and its bucket. The parent directory
// is created when missing.
func Open(path string, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = defaultBucket
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, bucket: []byte(bucket)}, nil
}

// Enqueue parks an undelivered event.
func (s *Store) Enqueue(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	item.normalize()
	item.bucketKey = orderedKey(item)

	encoded, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(item.bucketKey, encoded)
	})
}

// GetBatch reads up to limit items in enqueue order without consuming them.
// Entries that fail to decode are skipped rather than wedging the drain.
func (s *Store) GetBatch(limit int) ([]Item, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var batch []Item
	err := s.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(s.bucket).Cursor()
		for key, value := cursor.First(); key != nil && len(batch) < limit; key, value = cursor.Next() {
			var item Item
			if err := json.Unmarshal(value, &item); err != nil {
				continue
			}
			item.bucketKey = append([]byte(nil), key...)
			batch = append(batch, item)
		}
		return nil
	})
	return batch, err
}

// Remove deletes a previously read item. Items that never went through
// GetBatch are located by their id instead of the bucket key.
func (s *Store) Remove(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if len(item.bucketKey) == 0 {
		return s.removeByID(item.ID)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete(item.bucketKey)
	})
}

// Requeue re-inserts a failed item at the back of the order.
func (s *Store) Requeue(item Item) error {
	item.bucketKey = nil
	item.Timestamp = time.Now()
	return s.Enqueue(item)
}

// Size reports the number of parked events.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Cleanup drops events enqueued before the cutoff.
func (s *Store) Cleanup(cutoff time.Time) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(s.bucket).Cursor()
		for key, value := cursor.First(); key != nil; key, value = cursor.Next() {
			var item Item
			if err := json.Unmarshal(value, &item); err != nil {
				continue
			}
			if item.Timestamp.Before(cutoff) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) removeByID(id string) error {
	if id == "" {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(s.bucket).Cursor()
		for key, value := cursor.First(); key != nil; key, value = cursor.Next() {
			var item Item
			if err := json.Unmarshal(value, &item); err != nil {
				continue
			}
			if item.ID == id {
				return cursor.Delete()
			}
		}
		return nil
	})
}

func orderedKey(item Item) []byte {
	return []byte(fmt.Sprintf("%020d_%s", item.Timestamp.UnixNano(), item.ID))
}
