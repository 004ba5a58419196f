package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/devindex/internal/config"
	"github.com/kailas-cloud/devindex/internal/db"
	dbbleve "github.com/kailas-cloud/devindex/internal/db/bleve"
	dbelastic "github.com/kailas-cloud/devindex/internal/db/elastic"
	dbredis "github.com/kailas-cloud/devindex/internal/db/redis"
	"github.com/kailas-cloud/devindex/internal/repository/jobqueue"
	"github.com/kailas-cloud/devindex/internal/transport/inventory"
	reindexuc "github.com/kailas-cloud/devindex/internal/usecase/reindex"
)

// jobQueue is what the composition root needs from a job queue driver.
type jobQueue interface {
	reindexuc.Queue
	Ping(ctx context.Context) error
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func sec(n int) time.Duration { return time.Duration(n) * time.Second }

// openStore creates the configured document store and waits until it answers.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (db.Store, error) {
	def, err := db.DeviceMapping(cfg.Index, cfg.Shards, cfg.Replicas).Build()
	if err != nil {
		return nil, fmt.Errorf("device mapping: %w", err)
	}

	var store db.Store
	switch cfg.Driver {
	case config.DriverBleve:
		store, err = dbbleve.NewStore(dbbleve.Config{
			DataDir:        cfg.Bleve.DataDir,
			MaxOpenIndexes: cfg.Bleve.MaxOpenIndexes,
		}, def)
	case config.DriverElasticsearch:
		store, err = dbelastic.NewStore(dbelastic.Config{
			Addresses: cfg.Elasticsearch.Addrs,
			Username:  cfg.Elasticsearch.Username,
			Password:  cfg.Elasticsearch.Password,
		}, def)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}

	if err := store.WaitForReady(ctx, sec(cfg.ReadinessTimeout)); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s store not ready: %w", cfg.Driver, err)
	}
	logger.Info("Connected to document store", zap.String("driver", cfg.Driver), zap.String("index", cfg.Index))
	return store, nil
}

// openQueue creates the configured job queue. The returned func releases its connections.
func openQueue(ctx context.Context, cfg config.QueueConfig, logger *zap.Logger) (jobQueue, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return jobqueue.NewMemory(cfg.Capacity), func() {}, nil
	case config.DriverRedis:
		store, err := dbredis.NewStore(dbredis.Config{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create redis queue store: %w", err)
		}
		if err := store.WaitForReady(ctx, 10*time.Second); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("redis not ready: %w", err)
		}
		logger.Info("Connected to redis queue", zap.Strings("addrs", cfg.Redis.Addrs))
		q := jobqueue.NewRedis(store, jobqueue.RedisOptions{
			Prefix:      cfg.Redis.KeyPrefix,
			PendingTTL:  sec(cfg.PendingTTLSec),
			PollTimeout: sec(cfg.PollTimeoutSec),
		})
		return q, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
	}
}

// fetchers maps each configured reindex service name to its client.
func fetchers(cfg config.Config) map[string]reindexuc.Fetcher {
	out := make(map[string]reindexuc.Fetcher, len(cfg.Reindex.Services))
	for _, name := range cfg.Reindex.Services {
		if name == inventory.ServiceName {
			out[name] = inventory.NewClient(cfg.Inventory.Addr, ms(cfg.Inventory.TimeoutMs))
		}
	}
	return out
}
