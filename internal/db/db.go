package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/devindex/internal/domain/document"
	"github.com/kailas-cloud/devindex/internal/domain/search/query"
)

// Store is the document store facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces
type Store interface {
	Pinger
	DocumentStore
	FieldLister
	Migrator
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DocumentStore is the tenant-scoped document capability.
// Put is a full replace and is visible to the next Search in the same tenant.
// Delete of a missing document is not an error. A tenant without a partition
// searches as empty.
type DocumentStore interface {
	Put(ctx context.Context, tenantID string, doc document.Document) error
	Delete(ctx context.Context, tenantID, docID string) error
	DeleteAll(ctx context.Context, tenantID string) error
	Search(ctx context.Context, tenantID string, q *query.Query) (*SearchResult, error)
}

// FieldLister reports the field names a tenant's partition has seen.
type FieldLister interface {
	Fields(ctx context.Context, tenantID string) (map[string]struct{}, error)
}

// Migrator installs index templates and base indexes.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// QueueStore provides the list and key primitives behind the Redis job queue.
type QueueStore interface {
	Pinger
	LPush(ctx context.Context, key string, value []byte) error
	BRPop(ctx context.Context, key string, timeout time.Duration) ([]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}
