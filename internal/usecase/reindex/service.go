package reindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/devindex/internal/domain"
	"github.com/kailas-cloud/devindex/internal/metrics"
	"github.com/kailas-cloud/devindex/internal/repository/jobqueue"
)

// Outcome is the terminal state of a reindex job.
type Outcome string

// Reindex outcomes.
const (
	Indexed  Outcome = "indexed"
	Removed  Outcome = "removed"
	Rejected Outcome = "rejected"
	Failed   Outcome = "failed"
)

// Service accepts reindex requests and applies reindex jobs.
type Service struct {
	repo     Repository
	queue    Queue
	fetchers map[string]Fetcher
}

// New creates a reindex service. fetchers maps service names to their clients.
func New(repo Repository, queue Queue, fetchers map[string]Fetcher) *Service {
	return &Service{repo: repo, queue: queue, fetchers: fetchers}
}

// Request validates the service name and queues a job for the device.
// A request for a device that already has a pending job is absorbed by it.
func (s *Service) Request(ctx context.Context, tenantID, deviceID, service string) error {
	if tenantID == "" || deviceID == "" {
		metrics.ReindexRequestsTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: tenant and device are required", domain.ErrInvalidRequest)
	}
	if _, ok := s.fetchers[service]; !ok {
		metrics.ReindexRequestsTotal.WithLabelValues("unknown_service").Inc()
		return fmt.Errorf("%w: %q", domain.ErrUnknownService, service)
	}

	queued, err := s.queue.Enqueue(ctx, jobqueue.NewJob(tenantID, deviceID, service))
	if err != nil {
		metrics.ReindexRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("enqueue reindex: %w", err)
	}
	if queued {
		metrics.ReindexRequestsTotal.WithLabelValues("queued").Inc()
	} else {
		metrics.ReindexRequestsTotal.WithLabelValues("coalesced").Inc()
	}
	return nil
}

// Apply runs one attempt of the job: fetch the device and write or remove its
// document. A Rejected outcome comes with a non-retryable error.
func (s *Service) Apply(ctx context.Context, job jobqueue.Job) (Outcome, error) {
	fetcher, ok := s.fetchers[job.Service]
	if !ok {
		return Rejected, fmt.Errorf("%w: %q", domain.ErrUnknownService, job.Service)
	}

	devices, err := fetcher.Fetch(ctx, job.TenantID, job.DeviceID)
	if err != nil {
		if isRejection(err) {
			return Rejected, err
		}
		return Failed, fmt.Errorf("fetch device: %w", err)
	}

	if len(devices) == 0 {
		if err := s.repo.Delete(ctx, job.TenantID, job.DeviceID); err != nil {
			return Failed, err
		}
		return Removed, nil
	}

	d := devices[0]
	d.ID = job.DeviceID
	d.TenantID = job.TenantID
	if err := s.repo.Save(ctx, job.TenantID, d); err != nil {
		if isRejection(err) {
			return Rejected, err
		}
		return Failed, err
	}
	return Indexed, nil
}

// isRejection reports errors that another attempt cannot fix.
func isRejection(err error) bool {
	return errors.Is(err, domain.ErrUnsupportedType) ||
		errors.Is(err, domain.ErrInvalidRequest) ||
		errors.Is(err, domain.ErrUnknownService)
}
