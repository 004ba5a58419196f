package device

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/devindex/internal/db"
	"github.com/kailas-cloud/devindex/internal/domain"
	domdevice "github.com/kailas-cloud/devindex/internal/domain/device"
	"github.com/kailas-cloud/devindex/internal/domain/document"
	"github.com/kailas-cloud/devindex/internal/domain/search/query"
)

// store is the consumer interface for device documents (ISP).
type store interface {
	db.DocumentStore
	db.FieldLister
}

// Repo implements usecase/search.Repository and usecase/reindex.Repository.
type Repo struct {
	store   store
	timeout time.Duration
}

// New creates a device repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// WithTimeout bounds every store call. Zero leaves calls bounded only by the caller's context.
func (r *Repo) WithTimeout(d time.Duration) *Repo {
	r.timeout = d
	return r
}

func (r *Repo) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Save encodes the device and replaces its document in the tenant's partition.
func (r *Repo) Save(ctx context.Context, tenantID string, d domdevice.Device) error {
	doc, err := document.Encode(tenantID, d)
	if err != nil {
		return fmt.Errorf("encode device %s: %w", d.ID, err)
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()
	if err := r.store.Put(ctx, tenantID, doc); err != nil {
		return unavailable("put device "+d.ID, err)
	}
	return nil
}

// Delete removes the device's document. Removing a missing device is not an error.
func (r *Repo) Delete(ctx context.Context, tenantID, deviceID string) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	if err := r.store.Delete(ctx, tenantID, deviceID); err != nil {
		return unavailable("delete device "+deviceID, err)
	}
	return nil
}

// DeleteTenant removes every document of the tenant.
func (r *Repo) DeleteTenant(ctx context.Context, tenantID string) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	if err := r.store.DeleteAll(ctx, tenantID); err != nil {
		return unavailable("delete tenant "+tenantID, err)
	}
	return nil
}

// KnownFields returns the typed field names the tenant's partition has seen.
func (r *Repo) KnownFields(ctx context.Context, tenantID string) (map[string]struct{}, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	fields, err := r.store.Fields(ctx, tenantID)
	if err != nil {
		return nil, unavailable("list fields", err)
	}
	return fields, nil
}

// Search runs a translated query and decodes the matching documents.
func (r *Repo) Search(ctx context.Context, q *query.Query) ([]domdevice.Device, int, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	res, err := r.store.Search(ctx, q.TenantID, q)
	if err != nil {
		return nil, 0, unavailable("search", err)
	}
	if res == nil {
		return []domdevice.Device{}, 0, nil
	}
	devices := make([]domdevice.Device, 0, len(res.Documents))
	for _, doc := range res.Documents {
		devices = append(devices, document.Decode(doc))
	}
	return devices, res.Total, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
