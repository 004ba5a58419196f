package reindex

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/devindex/internal/metrics"
	"github.com/kailas-cloud/devindex/internal/repository/jobqueue"
)

// WorkerConfig controls the reindex worker pool.
type WorkerConfig struct {
	Workers        int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	AttemptTimeout time.Duration
	// DequeueErrorDelay is the pause after a queue read failure.
	DequeueErrorDelay time.Duration
	// DepthInterval is how often the queue depth gauge is refreshed. Zero disables it.
	DepthInterval time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 200 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 10 * time.Second
	}
	if c.DequeueErrorDelay <= 0 {
		c.DequeueErrorDelay = time.Second
	}
	return c
}

// Worker drains the job queue with a fixed pool of goroutines.
type Worker struct {
	svc    *Service
	queue  Queue
	cfg    WorkerConfig
	logger *zap.Logger
}

// NewWorker creates a worker pool that applies jobs through svc.
func NewWorker(svc *Service, cfg WorkerConfig, logger *zap.Logger) *Worker {
	return &Worker{svc: svc, queue: svc.queue, cfg: cfg.withDefaults(), logger: logger}
}

// Run consumes jobs until ctx is canceled. A job taken off the queue is
// finished even when ctx is canceled mid-way.
func (w *Worker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range w.cfg.Workers {
		g.Go(func() error {
			w.loop(gctx, i)
			return nil
		})
	}
	if w.cfg.DepthInterval > 0 {
		g.Go(func() error {
			w.trackDepth(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("reindex workers: %w", err)
	}
	return nil
}

func (w *Worker) loop(ctx context.Context, n int) {
	log := w.logger.With(zap.Int("worker", n))
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("dequeue reindex job", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.cfg.DequeueErrorDelay):
			}
			continue
		}
		w.Process(context.WithoutCancel(ctx), job)
	}
}

// Process runs a job to its terminal outcome, retrying transient failures.
func (w *Worker) Process(ctx context.Context, job jobqueue.Job) Outcome {
	start := time.Now()
	log := w.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID),
		zap.String("device_id", job.DeviceID),
		zap.String("service", job.Service),
	)

	// Requests arriving from here on schedule a fresh run.
	if err := w.queue.Release(ctx, job); err != nil {
		log.Warn("release pending marker", zap.Error(err))
	}

	attempts := 0
	outcome := Failed
	op := func() error {
		attempts++
		actx, cancel := context.WithTimeout(ctx, w.cfg.AttemptTimeout)
		defer cancel()

		o, err := w.svc.Apply(actx, job)
		outcome = o
		if err == nil {
			return nil
		}
		if o == Rejected {
			return backoff.Permanent(err)
		}
		log.Debug("reindex attempt failed", zap.Int("attempt", attempts), zap.Error(err))
		return err
	}

	err := backoff.Retry(op, w.policy(ctx))

	metrics.ReindexJobsTotal.WithLabelValues(string(outcome)).Inc()
	metrics.ReindexDuration.WithLabelValues(string(outcome)).Observe(time.Since(start).Seconds())
	metrics.ReindexAttempts.Observe(float64(attempts))

	fields := []zap.Field{
		zap.String("outcome", string(outcome)),
		zap.Int("attempts", attempts),
		zap.Duration("duration", time.Since(start)),
	}
	switch {
	case err == nil:
		log.Info("device reindexed", fields...)
	case outcome == Rejected:
		log.Warn("reindex rejected", append(fields, zap.Error(err))...)
	default:
		log.Error("reindex failed", append(fields, zap.Error(err))...)
	}
	return outcome
}

func (w *Worker) policy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = w.cfg.InitialBackoff
	eb.MaxInterval = w.cfg.MaxBackoff
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(w.cfg.MaxAttempts-1)), ctx)
}

func (w *Worker) trackDepth(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.DepthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.queue.Len(ctx)
			if err != nil {
				w.logger.Debug("queue depth", zap.Error(err))
				continue
			}
			metrics.QueueDepth.Set(float64(n))
		}
	}
}
