package store

import (
	"context"
	"time"

	as "github.com/aerospike/aerospike-client-go"
	astypes "github.com/aerospike/aerospike-client-go/types"
	"github.com/pkg/errors"

	"kvbench/internal/workload"
)

// binName is the single bin every benchmark record is written to.
const binName = "k"

type resultCoder interface {
	ResultCode() astypes.ResultCode
}

// Aerospike drives an Aerospike cluster. Records live in namespace/set and are
// keyed by the integer benchmark key.
type Aerospike struct {
	client *as.Client
	ns     string
	set    string

	read  *as.BasePolicy
	write *as.WritePolicy
}

// NewAerospike connects to the cluster seed host. The connect timeout keeps
// the client default; opts.Timeout bounds each transaction.
func NewAerospike(opts Options) (*Aerospike, error) {
	policy := as.NewClientPolicy()
	policy.User = opts.User
	policy.Password = opts.Password

	client, err := as.NewClientWithPolicy(policy, opts.Host, opts.Port)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s:%d", opts.Host, opts.Port)
	}
	read, write := aerospikePolicies(opts.Timeout)
	return &Aerospike{client: client, ns: opts.Namespace, set: opts.Set, read: read, write: write}, nil
}

func aerospikePolicies(timeout time.Duration) (*as.BasePolicy, *as.WritePolicy) {
	read := as.NewPolicy()
	write := as.NewWritePolicy(0, 0)
	if timeout > 0 {
		for _, p := range []*as.BasePolicy{read, &write.BasePolicy} {
			p.Timeout = timeout
			// the per-attempt socket timeout must not exceed the total
			if p.SocketTimeout == 0 || p.SocketTimeout > timeout {
				p.SocketTimeout = timeout
			}
		}
	}
	return read, write
}

func (a *Aerospike) Get(ctx context.Context, key int) Status {
	if st, done := contextStatus(ctx.Err()); done {
		return st
	}
	k, err := as.NewKey(a.ns, a.set, key)
	if err != nil {
		return aerospikeStatus(err)
	}
	rec, err := a.client.Get(a.read, k)
	if err != nil {
		return aerospikeStatus(err)
	}
	if rec == nil {
		return Status(astypes.KEY_NOT_FOUND_ERROR)
	}
	return StatusOK
}

func (a *Aerospike) Put(ctx context.Context, key int, payload workload.Payload) Status {
	if st, done := contextStatus(ctx.Err()); done {
		return st
	}
	k, err := as.NewKey(a.ns, a.set, key)
	if err != nil {
		return aerospikeStatus(err)
	}
	err = a.client.Put(a.write, k, as.BinMap{binName: payload.Value()})
	return aerospikeStatus(err)
}

func (a *Aerospike) Close() error {
	a.client.Close()
	return nil
}

// aerospikeStatus passes server result codes through as statuses.
func aerospikeStatus(err error) Status {
	if err == nil {
		return StatusOK
	}
	var rc resultCoder
	if errors.As(err, &rc) {
		return Status(rc.ResultCode())
	}
	return StatusClientError
}

func init() {
	Register("aerospike", func(_ context.Context, opts Options) (Client, error) {
		return NewAerospike(opts)
	})
}
