package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	astypes "github.com/aerospike/aerospike-client-go/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvbench/internal/workload"
)

func TestRegistry(t *testing.T) {
	names := Names()
	for _, want := range []string{"aerospike", "badger", "bolt", "memory", "redis"} {
		assert.Contains(t, names, want)
	}

	_, err := Open(context.Background(), "cassandra", Options{})
	require.Error(t, err)
	assert.Equal(t, ErrUnknownStore, errors.Cause(err))

	assert.Panics(t, func() {
		Register("memory", nil)
	})
}

// exerciseClient runs the same read-after-write checks against any backend.
func exerciseClient(t *testing.T, c Client) {
	t.Helper()
	ctx := context.Background()

	assert.Equal(t, StatusNotFound, c.Get(ctx, 1))
	assert.Equal(t, StatusOK, c.Put(ctx, 1, workload.Datagen(1, workload.String, 16)))
	assert.Equal(t, StatusOK, c.Get(ctx, 1))
	assert.Equal(t, StatusOK, c.Put(ctx, 2, workload.Datagen(2, workload.Bytes, 8)))
	assert.Equal(t, StatusOK, c.Put(ctx, 3, workload.Datagen(3, workload.Integer, 0)))
	assert.Equal(t, StatusOK, c.Get(ctx, 3))
}

func TestMemory(t *testing.T) {
	table := NewTable()
	m, err := NewMemory(table, ProfileNone)
	require.NoError(t, err)
	exerciseClient(t, m)
	assert.Equal(t, 3, table.Len())

	// handles on one table see each other's writes
	other, err := NewMemory(table, ProfileNone)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, other.Get(context.Background(), 2))
	require.NoError(t, m.Close())
}

func TestMemoryUnknownProfile(t *testing.T) {
	_, err := NewMemory(NewTable(), "glacial")
	assert.Error(t, err)

	_, err = Open(context.Background(), "memory", Options{Profile: "glacial"})
	assert.Error(t, err)
}

func TestMemoryCancelledContext(t *testing.T) {
	m, err := NewMemory(NewTable(), ProfileSlow)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	assert.Equal(t, StatusTimeout, m.Get(ctx, 1))

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, StatusClientError, m.Put(ctx, 1, workload.Payload{}))
}

func TestMemoryErrorProfile(t *testing.T) {
	m, err := NewMemory(NewTable(), ProfileError)
	require.NoError(t, err)

	seen := make(map[Status]int)
	for i := 0; i < 500; i++ {
		seen[m.Put(context.Background(), i, workload.Payload{})]++
	}
	assert.Greater(t, seen[StatusOK], 0)
	assert.Greater(t, seen[StatusServerError], 0)
	assert.Greater(t, seen[StatusTimeout], 0)
}

func TestBadgerInMemory(t *testing.T) {
	b, err := NewBadger(Options{Set: "demo"})
	require.NoError(t, err)

	exerciseClient(t, b)

	// a second handle shares the database
	b2, err := NewBadger(Options{Set: "demo"})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, b2.Get(context.Background(), 1))

	require.NoError(t, b2.Close())
	require.NoError(t, b.Close())
}

func TestBolt(t *testing.T) {
	dir := t.TempDir()
	b, err := NewBolt(Options{Path: dir, Set: "bench"})
	require.NoError(t, err)

	exerciseClient(t, b)

	b2, err := NewBolt(Options{Path: dir, Set: "bench"})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, b2.Get(context.Background(), 2))

	require.NoError(t, b.Close())
	require.NoError(t, b2.Close())

	_, err = os.Stat(filepath.Join(dir, defaultBoltFile))
	assert.NoError(t, err)
}

type fakeResultError struct{ code astypes.ResultCode }

func (e fakeResultError) Error() string                  { return fmt.Sprintf("result code %d", e.code) }
func (e fakeResultError) ResultCode() astypes.ResultCode { return e.code }

func TestAerospikeStatus(t *testing.T) {
	assert.Equal(t, StatusOK, aerospikeStatus(nil))
	assert.Equal(t, StatusTimeout, aerospikeStatus(fakeResultError{astypes.TIMEOUT}))
	assert.Equal(t, StatusNotFound, aerospikeStatus(errors.Wrap(fakeResultError{astypes.KEY_NOT_FOUND_ERROR}, "get")))
	assert.Equal(t, StatusClientError, aerospikeStatus(errors.New("boom")))
}

func TestRedisStatus(t *testing.T) {
	assert.Equal(t, StatusOK, redisStatus(nil))
	assert.Equal(t, StatusTimeout, redisStatus(context.DeadlineExceeded))
	assert.Equal(t, StatusClientError, redisStatus(errors.New("dial tcp: refused")))
}

func TestAerospikePoliciesCarryTimeout(t *testing.T) {
	read, write := aerospikePolicies(10 * time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, read.Timeout)
	assert.Equal(t, 10*time.Millisecond, read.SocketTimeout)
	assert.Equal(t, 10*time.Millisecond, write.Timeout)
	assert.Equal(t, 10*time.Millisecond, write.SocketTimeout)

	read, write = aerospikePolicies(time.Second)
	assert.Equal(t, time.Second, read.Timeout)
	assert.LessOrEqual(t, read.SocketTimeout, time.Second)
	assert.Equal(t, time.Second, write.Timeout)

	read, _ = aerospikePolicies(0)
	assert.Zero(t, read.Timeout)
}

func TestRedisOptions(t *testing.T) {
	o := redisOptions(Options{Host: "127.0.0.1", Port: 6379, Namespace: "3", Timeout: 25 * time.Millisecond})
	assert.Equal(t, "127.0.0.1:6379", o.Addr)
	assert.Equal(t, 3, o.DB)
	assert.Equal(t, 25*time.Millisecond, o.ReadTimeout)

	assert.Equal(t, 0, redisOptions(Options{Namespace: "test"}).DB)
	assert.Equal(t, 0, redisOptions(Options{Namespace: "-1"}).DB)
}

// TestLiveBackends talks to real servers when they are reachable.
func TestLiveBackends(t *testing.T) {
	if os.Getenv("KVBENCH_LIVE") == "" {
		t.Skip("set KVBENCH_LIVE=1 to run against local aerospike and redis")
	}

	for name, port := range map[string]int{"aerospike": 3000, "redis": 6379} {
		t.Run(name, func(t *testing.T) {
			c, err := Open(context.Background(), name, Options{
				Host:      "127.0.0.1",
				Port:      port,
				Timeout:   time.Second,
				Namespace: "test",
				Set:       "kvbench" + strconv.FormatInt(time.Now().UnixNano(), 36),
			})
			if err != nil {
				t.Skipf("%s not available: %v", name, err)
			}
			defer c.Close()
			exerciseClient(t, c)
		})
	}
}

func TestRecordKey(t *testing.T) {
	assert.Equal(t, "7", recordKey("", 7))
	assert.Equal(t, "demo:7", recordKey("demo", 7))
}
