package store

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"kvbench/internal/workload"
)

// Latency profiles for the in-process store.
const (
	ProfileNone   = ""
	ProfileFast   = "fast"
	ProfileMedium = "medium"
	ProfileSlow   = "slow"
	ProfileSpike  = "spike"
	ProfileError  = "error"
)

// Table is an in-process key space shared by every Memory handle opened on it.
type Table struct {
	mu   sync.RWMutex
	data map[int]workload.Payload
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{data: make(map[int]workload.Payload)}
}

// Len is the number of stored keys.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data)
}

var sharedTable = NewTable()

// Memory is a simulated store. It answers from a map after an artificial
// delay chosen by its profile, and the "error" profile fails a share of the
// operations.
type Memory struct {
	table   *Table
	profile string
}

// NewMemory returns a handle on table using the given latency profile.
func NewMemory(table *Table, profile string) (*Memory, error) {
	switch profile {
	case ProfileNone, ProfileFast, ProfileMedium, ProfileSlow, ProfileSpike, ProfileError:
	default:
		return nil, errors.Errorf("unknown memory profile %q", profile)
	}
	return &Memory{table: table, profile: profile}, nil
}

func (m *Memory) Get(ctx context.Context, key int) Status {
	if st, failed := m.simulate(ctx); failed {
		return st
	}
	m.table.mu.RLock()
	_, ok := m.table.data[key]
	m.table.mu.RUnlock()
	if !ok {
		return StatusNotFound
	}
	return StatusOK
}

func (m *Memory) Put(ctx context.Context, key int, payload workload.Payload) Status {
	if st, failed := m.simulate(ctx); failed {
		return st
	}
	m.table.mu.Lock()
	m.table.data[key] = payload
	m.table.mu.Unlock()
	return StatusOK
}

func (m *Memory) Close() error {
	return nil
}

// simulate sleeps for the profile's delay and reports an injected failure.
func (m *Memory) simulate(ctx context.Context) (Status, bool) {
	var delay time.Duration
	switch m.profile {
	case ProfileNone:
		return StatusOK, false
	case ProfileFast:
		delay = time.Duration(rand.Intn(2000)) * time.Microsecond
	case ProfileMedium:
		delay = time.Duration(rand.Intn(8)+2) * time.Millisecond
	case ProfileSlow:
		delay = time.Duration(rand.Intn(30)+20) * time.Millisecond
	case ProfileSpike:
		// usually fast, occasionally very slow
		if rand.Float32() < 0.05 {
			delay = 40 * time.Millisecond
		} else {
			delay = time.Millisecond
		}
	case ProfileError:
		delay = time.Duration(rand.Intn(1000)) * time.Microsecond
		rnd := rand.Float32()
		if rnd < 0.2 {
			return StatusServerError, true
		} else if rnd < 0.4 {
			return StatusTimeout, true
		}
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		st, _ := contextStatus(ctx.Err())
		return st, true
	case <-t.C:
		return StatusOK, false
	}
}

func init() {
	Register("memory", func(_ context.Context, opts Options) (Client, error) {
		return NewMemory(sharedTable, opts.Profile)
	})
}
