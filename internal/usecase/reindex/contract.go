package reindex

import (
	"context"

	"github.com/kailas-cloud/devindex/internal/domain/device"
	"github.com/kailas-cloud/devindex/internal/repository/jobqueue"
)

// Repository writes device documents.
type Repository interface {
	Save(ctx context.Context, tenantID string, d device.Device) error
	Delete(ctx context.Context, tenantID, deviceID string) error
}

// Fetcher reads the current state of a device from an upstream service.
// It returns no devices when the device no longer exists.
type Fetcher interface {
	Fetch(ctx context.Context, tenantID, deviceID string) ([]device.Device, error)
}

// Queue carries accepted jobs to the workers.
type Queue interface {
	Enqueue(ctx context.Context, job jobqueue.Job) (bool, error)
	Dequeue(ctx context.Context) (jobqueue.Job, error)
	Release(ctx context.Context, job jobqueue.Job) error
	Len(ctx context.Context) (int64, error)
}
