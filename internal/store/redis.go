package store

import (
	"context"
	"net"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"kvbench/internal/workload"
)

// Redis stores each benchmark record as a plain string value.
type Redis struct {
	client *redis.Client
	set    string
}

// NewRedis connects and pings the server so a bad address fails at open.
func NewRedis(ctx context.Context, opts Options) (*Redis, error) {
	client := redis.NewClient(redisOptions(opts))
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return &Redis{client: client, set: opts.Set}, nil
}

// redisOptions selects the database from a numeric namespace; any other
// namespace uses DB 0.
func redisOptions(opts Options) *redis.Options {
	db, err := strconv.Atoi(opts.Namespace)
	if err != nil || db < 0 {
		db = 0
	}
	return &redis.Options{
		Addr:         net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Username:     opts.User,
		Password:     opts.Password,
		DB:           db,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	}
}

func (r *Redis) Get(ctx context.Context, key int) Status {
	err := r.client.Get(ctx, recordKey(r.set, key)).Err()
	if err == redis.Nil {
		return StatusNotFound
	}
	return redisStatus(err)
}

func (r *Redis) Put(ctx context.Context, key int, payload workload.Payload) Status {
	return redisStatus(r.client.Set(ctx, recordKey(r.set, key), payload.Encode(), 0).Err())
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func redisStatus(err error) Status {
	if err == nil {
		return StatusOK
	}
	if st, ok := contextStatus(err); ok {
		return st
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return StatusTimeout
	}
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		return StatusServerError
	}
	return StatusClientError
}

func init() {
	Register("redis", func(ctx context.Context, opts Options) (Client, error) {
		return NewRedis(ctx, opts)
	})
}
