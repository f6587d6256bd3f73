package store

import (
	"context"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"kvbench/internal/workload"
)

// Badger runs the benchmark against an embedded badger database. Handles
// opened on the same path share one *badger.DB; an empty path means an
// in-memory database.
type Badger struct {
	shared *sharedBadger
	set    string
}

type sharedBadger struct {
	db   *badger.DB
	refs int
}

var (
	badgerMu  sync.Mutex
	badgerDBs = make(map[string]*sharedBadger)
)

// NewBadger opens (or reuses) the database at opts.Path.
func NewBadger(opts Options) (*Badger, error) {
	badgerMu.Lock()
	defer badgerMu.Unlock()

	if s, ok := badgerDBs[opts.Path]; ok {
		s.refs++
		return &Badger{shared: s, set: opts.Set}, nil
	}

	bopts := badger.DefaultOptions(opts.Path).WithLogger(nil)
	if opts.Path == "" {
		bopts = bopts.WithInMemory(true)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger database")
	}
	s := &sharedBadger{db: db, refs: 1}
	badgerDBs[opts.Path] = s
	return &Badger{shared: s, set: opts.Set}, nil
}

func (b *Badger) key(key int) []byte {
	return []byte(recordKey(b.set, key))
}

func (b *Badger) Get(ctx context.Context, key int) Status {
	if st, done := contextStatus(ctx.Err()); done {
		return st
	}
	err := b.shared.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key(key))
		if err != nil {
			return err
		}
		return item.Value(func([]byte) error { return nil })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return StatusNotFound
	}
	return badgerStatus(err)
}

func (b *Badger) Put(ctx context.Context, key int, payload workload.Payload) Status {
	if st, done := contextStatus(ctx.Err()); done {
		return st
	}
	err := b.shared.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key(key), payload.Encode())
	})
	return badgerStatus(err)
}

// Close releases the handle; the last one closes the database.
func (b *Badger) Close() error {
	badgerMu.Lock()
	defer badgerMu.Unlock()

	b.shared.refs--
	if b.shared.refs > 0 {
		return nil
	}
	for path, s := range badgerDBs {
		if s == b.shared {
			delete(badgerDBs, path)
		}
	}
	return b.shared.db.Close()
}

func badgerStatus(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, badger.ErrConflict):
		return StatusServerError
	default:
		return StatusClientError
	}
}

func init() {
	Register("badger", func(_ context.Context, opts Options) (Client, error) {
		return NewBadger(opts)
	})
}
