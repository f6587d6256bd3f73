// Package store defines the store client capability driven by the benchmark
// workers and the backends that implement it.
//
// A Client never returns an error for an individual operation: the outcome is
// folded into a Status so that a failing store shows up in the status-code
// histogram instead of stopping the run.
package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"kvbench/internal/workload"
)

// Status is the per-operation outcome code.
type Status int

// Status codes shared by the bundled backends. The aerospike backend passes
// server result codes through unchanged, and these values line up with them.
const (
	StatusClientError Status = -1
	StatusOK          Status = 0
	StatusServerError Status = 1
	StatusNotFound    Status = 2
	StatusTimeout     Status = 9
)

func (s Status) String() string {
	return strconv.Itoa(int(s))
}

// Client is the store capability a worker drives. Implementations must be safe
// for concurrent use by the operations of one batch.
type Client interface {
	Get(ctx context.Context, key int) Status
	Put(ctx context.Context, key int, payload workload.Payload) Status
	Close() error
}

// Options configures a backend. Each backend reads the fields it needs.
type Options struct {
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	Timeout   time.Duration `yaml:"timeout"`
	Namespace string        `yaml:"namespace"`
	Set       string        `yaml:"set"`
	User      string        `yaml:"user,omitempty"`
	Password  string        `yaml:"-"`
	Path      string        `yaml:"path,omitempty"`
	Profile   string        `yaml:"profile,omitempty"`
	Seed      int64         `yaml:"-"`
}

// Creator opens a new client handle. Every worker opens its own.
type Creator func(ctx context.Context, opts Options) (Client, error)

var (
	creatorsMu sync.RWMutex
	creators   = make(map[string]Creator)
)

// ErrUnknownStore is returned by Open for unregistered names.
var ErrUnknownStore = errors.New("unknown store")

// Register makes a backend available under name.
func Register(name string, c Creator) {
	creatorsMu.Lock()
	defer creatorsMu.Unlock()
	if _, dup := creators[name]; dup {
		panic("store: Register called twice for " + name)
	}
	creators[name] = c
}

// Names lists registered backends in sorted order.
func Names() []string {
	creatorsMu.RLock()
	defer creatorsMu.RUnlock()
	names := make([]string, 0, len(creators))
	for n := range creators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open creates a client for the named backend.
func Open(ctx context.Context, name string, opts Options) (Client, error) {
	creatorsMu.RLock()
	c, ok := creators[name]
	creatorsMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownStore, "%q (available: %v)", name, Names())
	}
	client, err := c(ctx, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s store", name)
	}
	return client, nil
}

// recordKey is the string form of a key used by string-keyed backends.
func recordKey(set string, key int) string {
	if set == "" {
		return strconv.Itoa(key)
	}
	return fmt.Sprintf("%s:%d", set, key)
}

// contextStatus maps context failures to statuses.
func contextStatus(err error) (Status, bool) {
	switch errors.Cause(err) {
	case context.DeadlineExceeded:
		return StatusTimeout, true
	case context.Canceled:
		return StatusClientError, true
	}
	return StatusOK, false
}
