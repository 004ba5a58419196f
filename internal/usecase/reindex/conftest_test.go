package reindex

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/devindex/internal/domain/device"
	"github.com/kailas-cloud/devindex/internal/repository/jobqueue"
)

type mockRepo struct {
	saveFn   func(ctx context.Context, tenantID string, d device.Device) error
	deleteFn func(ctx context.Context, tenantID, deviceID string) error
}

func (m *mockRepo) Save(ctx context.Context, tenantID string, d device.Device) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, tenantID, d)
	}
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, tenantID, deviceID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, tenantID, deviceID)
	}
	return nil
}

type mockFetcher struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, tenantID, deviceID string) ([]device.Device, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, tenantID, deviceID string) ([]device.Device, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.fn(ctx, tenantID, deviceID)
}

func (m *mockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func deviceWith(t testing.TB, id string, attrs map[string]any) device.Device {
	t.Helper()
	d := device.Device{ID: id}
	for name, v := range attrs {
		a, err := device.NewAttribute(device.ScopeInventory, name, v)
		if err != nil {
			t.Fatalf("NewAttribute: %v", err)
		}
		d.Attributes = append(d.Attributes, a)
	}
	return d
}

func testWorker(svc *Service) *Worker {
	return NewWorker(svc, WorkerConfig{
		Workers:           2,
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		AttemptTimeout:    time.Second,
		DequeueErrorDelay: time.Millisecond,
	}, zap.NewNop())
}

func newService(repo Repository, f Fetcher) (*Service, *jobqueue.Memory) {
	q := jobqueue.NewMemory(16)
	return New(repo, q, map[string]Fetcher{"inventory": f}), q
}
