package store

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"kvbench/internal/workload"
)

const defaultBoltFile = "kvbench.db"

// Bolt runs the benchmark against an embedded bbolt file. bbolt allows a
// single writer per file, so handles on the same path share one *bbolt.DB.
type Bolt struct {
	shared *sharedBolt
	bucket []byte
}

type sharedBolt struct {
	db   *bbolt.DB
	path string
	refs int
}

var (
	boltMu  sync.Mutex
	boltDBs = make(map[string]*sharedBolt)
)

// NewBolt opens (or reuses) the bbolt file under opts.Path. The set name is
// used as the bucket.
func NewBolt(opts Options) (*Bolt, error) {
	path := opts.Path
	if path == "" {
		path = defaultBoltFile
	} else if filepath.Ext(path) == "" {
		path = filepath.Join(path, defaultBoltFile)
	}
	bucket := []byte(opts.Set)
	if len(bucket) == 0 {
		bucket = []byte("demo")
	}

	boltMu.Lock()
	defer boltMu.Unlock()

	s, ok := boltDBs[path]
	if !ok {
		db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, errors.Wrapf(err, "open bolt file %s", path)
		}
		s = &sharedBolt{db: db, path: path}
		boltDBs[path] = s
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		if s.refs == 0 {
			s.db.Close()
			delete(boltDBs, path)
		}
		return nil, errors.Wrap(err, "create bucket")
	}
	s.refs++
	return &Bolt{shared: s, bucket: bucket}, nil
}

func boltKey(key int) []byte {
	return []byte(recordKey("", key))
}

func (b *Bolt) Get(ctx context.Context, key int) Status {
	if st, done := contextStatus(ctx.Err()); done {
		return st
	}
	found := false
	err := b.shared.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(b.bucket).Get(boltKey(key)) != nil
		return nil
	})
	if err != nil {
		return StatusClientError
	}
	if !found {
		return StatusNotFound
	}
	return StatusOK
}

func (b *Bolt) Put(ctx context.Context, key int, payload workload.Payload) Status {
	if st, done := contextStatus(ctx.Err()); done {
		return st
	}
	err := b.shared.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.bucket).Put(boltKey(key), payload.Encode())
	})
	if err != nil {
		return StatusServerError
	}
	return StatusOK
}

// Close releases the handle; the last one closes the file.
func (b *Bolt) Close() error {
	boltMu.Lock()
	defer boltMu.Unlock()

	b.shared.refs--
	if b.shared.refs > 0 {
		return nil
	}
	delete(boltDBs, b.shared.path)
	return b.shared.db.Close()
}

func init() {
	Register("bolt", func(_ context.Context, opts Options) (Client, error) {
		return NewBolt(opts)
	})
}
