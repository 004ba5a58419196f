package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/devindex/internal/domain"
)

const (
	defaultPendingTTL  = 10 * time.Minute
	defaultPollTimeout = 2 * time.Second
)

// store is the consumer interface for the Redis queue (ISP).
type store interface {
	Ping(ctx context.Context) error
	LPush(ctx context.Context, key string, value []byte) error
	BRPop(ctx context.Context, key string, timeout time.Duration) ([]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

// RedisOptions configures a Redis queue.
type RedisOptions struct {
	// Prefix namespaces the queue keys.
	Prefix string
	// PendingTTL bounds how long a pending marker survives a lost job.
	PendingTTL time.Duration
	// PollTimeout is the BRPOP timeout; Dequeue re-checks ctx between polls.
	PollTimeout time.Duration
}

// Redis is a queue on a Redis list shared by every replica.
type Redis struct {
	store       store
	prefix      string
	pendingTTL  time.Duration
	pollTimeout time.Duration
}

// NewRedis creates a Redis-backed queue.
func NewRedis(s store, opts RedisOptions) *Redis {
	r := &Redis{
		store:       s,
		prefix:      opts.Prefix,
		pendingTTL:  opts.PendingTTL,
		pollTimeout: opts.PollTimeout,
	}
	if r.prefix == "" {
		r.prefix = "devindex"
	}
	if r.pendingTTL <= 0 {
		r.pendingTTL = defaultPendingTTL
	}
	if r.pollTimeout <= 0 {
		r.pollTimeout = defaultPollTimeout
	}
	return r
}

func (r *Redis) listKey() string {
	return r.prefix + ":reindex:jobs"
}

func (r *Redis) pendingKey(job Job) string {
	return r.prefix + ":reindex:pending:" + job.TenantID + ":" + job.DeviceID
}

// Enqueue adds the job unless one for the same device is still pending.
// It reports whether the job was added.
func (r *Redis) Enqueue(ctx context.Context, job Job) (bool, error) {
	ok, err := r.store.SetNX(ctx, r.pendingKey(job), []byte(job.ID.String()), r.pendingTTL)
	if err != nil {
		return false, fmt.Errorf("%w: mark pending: %w", domain.ErrQueueUnavailable, err)
	}
	if !ok {
		return false, nil
	}

	data, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("marshal job: %w", err)
	}
	if err := r.store.LPush(ctx, r.listKey(), data); err != nil {
		// Without the job the marker would suppress requests until it expires.
		_ = r.store.Del(ctx, r.pendingKey(job))
		return false, fmt.Errorf("%w: push job: %w", domain.ErrQueueUnavailable, err)
	}
	return true, nil
}

// Dequeue blocks until a job is available or ctx is done.
func (r *Redis) Dequeue(ctx context.Context) (Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Job{}, err
		}
		data, err := r.store.BRPop(ctx, r.listKey(), r.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			return Job{}, fmt.Errorf("%w: pop job: %w", domain.ErrQueueUnavailable, err)
		}
		if data == nil {
			continue
		}
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			return Job{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}

// Release clears the job's pending marker, so the next request for the device
// is queued again.
func (r *Redis) Release(ctx context.Context, job Job) error {
	if err := r.store.Del(ctx, r.pendingKey(job)); err != nil {
		return fmt.Errorf("%w: clear pending: %w", domain.ErrQueueUnavailable, err)
	}
	return nil
}

// Len returns the number of queued jobs.
func (r *Redis) Len(ctx context.Context) (int64, error) {
	n, err := r.store.LLen(ctx, r.listKey())
	if err != nil {
		return 0, fmt.Errorf("%w: queue length: %w", domain.ErrQueueUnavailable, err)
	}
	return n, nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}
