package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

const (
	BucketRuns = "runs"
)

// ErrNotFound is returned by Get for unknown IDs.
var ErrNotFound = errors.New("history item not found")

// Store persists run history in a bbolt file.
type Store struct {
	db       *bbolt.DB
	filePath string
}

// DefaultPath is $HOME/.kvbench/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "locate home directory")
	}
	return filepath.Join(home, ".kvbench", "history.db"), nil
}

// NewStore opens (creating if needed) the history file at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create history directory")
	}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open history %s", path)
	}

	// Initialize Buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create history bucket")
	}

	return &Store{
		db:       db,
		filePath: path,
	}, nil
}

func (s *Store) Path() string {
	return s.filePath
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores item and prunes the oldest entries beyond MaxItems.
func (s *Store) Save(item HistoryItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return errors.Wrap(err, "encode history item")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		if err := b.Put([]byte(item.ID), data); err != nil {
			return err
		}

		n := 0
		if err := b.ForEach(func(_, _ []byte) error { n++; return nil }); err != nil {
			return err
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil && n > MaxItems; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return err
			}
			n--
		}
		return nil
	})
}

// List returns every item, newest first.
func (s *Store) List() ([]HistoryItem, error) {
	var items []HistoryItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		c := b.Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err != nil {
				return errors.Wrapf(err, "decode history item %s", k)
			}
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

func (s *Store) Get(id string) (*HistoryItem, error) {
	var item HistoryItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		v := b.Get([]byte(id))
		if v == nil {
			return errors.Wrap(ErrNotFound, id)
		}
		return json.Unmarshal(v, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}
