package jobqueue

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/devindex/internal/domain"
)

const defaultMemoryCapacity = 1024

// Memory is a bounded in-process queue. Jobs are lost on restart.
type Memory struct {
	jobs chan Job

	mu      sync.Mutex
	pending map[pendingKey]struct{}
}

// NewMemory creates an in-process queue holding up to capacity jobs.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &Memory{
		jobs:    make(chan Job, capacity),
		pending: make(map[pendingKey]struct{}),
	}
}

// Enqueue adds the job unless one for the same device is still pending.
// It reports whether the job was added.
func (m *Memory) Enqueue(_ context.Context, job Job) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := job.pending()
	if _, ok := m.pending[k]; ok {
		return false, nil
	}
	select {
	case m.jobs <- job:
		m.pending[k] = struct{}{}
		return true, nil
	default:
		return false, fmt.Errorf("%w: queue full (%d jobs)", domain.ErrQueueUnavailable, cap(m.jobs))
	}
}

// Dequeue blocks until a job is available or ctx is done.
func (m *Memory) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-m.jobs:
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Release clears the job's pending marker, so the next request for the device
// is queued again.
func (m *Memory) Release(_ context.Context, job Job) error {
	m.mu.Lock()
	delete(m.pending, job.pending())
	m.mu.Unlock()
	return nil
}

// Len returns the number of queued jobs.
func (m *Memory) Len(_ context.Context) (int64, error) {
	return int64(len(m.jobs)), nil
}

// Ping always succeeds.
func (m *Memory) Ping(_ context.Context) error { return nil }
