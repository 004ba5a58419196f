package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/devindex/internal/config"
	logpkg "github.com/kailas-cloud/devindex/internal/logger"
	"github.com/kailas-cloud/devindex/internal/metrics"
	devicerepo "github.com/kailas-cloud/devindex/internal/repository/device"
	"github.com/kailas-cloud/devindex/internal/tenant"
	chiTransport "github.com/kailas-cloud/devindex/internal/transport/chi"
	healthuc "github.com/kailas-cloud/devindex/internal/usecase/health"
	reindexuc "github.com/kailas-cloud/devindex/internal/usecase/reindex"
	searchuc "github.com/kailas-cloud/devindex/internal/usecase/search"
	"github.com/kailas-cloud/devindex/internal/version"
)

func runServer(ctx context.Context, env string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting devindex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("queue_driver", cfg.Queue.Driver),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	queue, closeQueue, err := openQueue(ctx, cfg.Queue, logger)
	if err != nil {
		return err
	}
	defer closeQueue()

	verifier, err := tenant.NewVerifier(tenant.VerifierConfig{
		HMACSecret:       cfg.Auth.JWTSecret,
		RSAPublicKeyPath: cfg.Auth.JWTPublicKeyPath,
	})
	if err != nil {
		return fmt.Errorf("jwt verifier: %w", err)
	}

	metrics.RegisterDomainMetrics()

	repo := devicerepo.New(store).WithTimeout(ms(cfg.Store.TimeoutMs))
	searchSvc := searchuc.New(repo)
	reindexSvc := reindexuc.New(repo, queue, fetchers(cfg))
	healthSvc := healthuc.New(store, queue)

	worker := reindexuc.NewWorker(reindexSvc, reindexuc.WorkerConfig{
		Workers:        cfg.Reindex.Workers,
		MaxAttempts:    cfg.Reindex.MaxAttempts,
		InitialBackoff: ms(cfg.Reindex.InitialBackoffMs),
		MaxBackoff:     ms(cfg.Reindex.MaxBackoffMs),
		AttemptTimeout: ms(cfg.Reindex.AttemptTimeoutMs),
		DepthInterval:  15 * time.Second,
	}, logger.Named("reindex"))

	server := chiTransport.NewServer(searchSvc, reindexSvc, healthSvc,
		tenant.ClaimResolver{Verifier: verifier}, logger).
		WithPagination(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  sec(cfg.HTTP.ReadTimeoutSec),
		WriteTimeout: sec(cfg.HTTP.WriteTimeoutSec),
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	workersDone := make(chan error, 1)
	go func() { workersDone <- worker.Run(workerCtx) }()
	logger.Info("Reindex workers started", zap.Int("workers", cfg.Reindex.Workers))

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serveErr:
		if err != nil {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), sec(cfg.HTTP.ShutdownSec))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// In-flight jobs finish; queued ones wait for the next start.
	stopWorkers()
	select {
	case err := <-workersDone:
		if err != nil {
			logger.Error("Reindex workers stopped with error", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Warn("Reindex workers did not stop in time")
	}

	logger.Info("Server stopped gracefully")
	return nil
}
