package search

import (
	"context"

	"github.com/kailas-cloud/devindex/internal/domain/device"
	"github.com/kailas-cloud/devindex/internal/domain/search/query"
)

// Repository defines the storage contract for device search.
type Repository interface {
	KnownFields(ctx context.Context, tenantID string) (map[string]struct{}, error)
	Search(ctx context.Context, q *query.Query) ([]device.Device, int, error)
}
