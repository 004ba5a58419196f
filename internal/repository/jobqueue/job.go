// Package jobqueue holds the reindex job queue: an in-process channel queue and
// a Redis list queue. Both coalesce jobs that are still pending for a device.
package jobqueue

import (
	"time"

	"github.com/google/uuid"
)

// Job asks for one device to be re-read from an upstream service and reindexed.
type Job struct {
	ID         uuid.UUID `json:"id"`
	TenantID   string    `json:"tenant_id"`
	DeviceID   string    `json:"device_id"`
	Service    string    `json:"service"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewJob creates a job with a fresh ID.
func NewJob(tenantID, deviceID, service string) Job {
	return Job{
		ID:         uuid.New(),
		TenantID:   tenantID,
		DeviceID:   deviceID,
		Service:    service,
		EnqueuedAt: time.Now().UTC(),
	}
}

type pendingKey struct {
	tenantID string
	deviceID string
}

func (j Job) pending() pendingKey {
	return pendingKey{tenantID: j.TenantID, deviceID: j.DeviceID}
}
