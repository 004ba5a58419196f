package devindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/devindex/internal/db"
	dbbleve "github.com/kailas-cloud/devindex/internal/db/bleve"
	devicerepo "github.com/kailas-cloud/devindex/internal/repository/device"
	searchuc "github.com/kailas-cloud/devindex/internal/usecase/search"
)

const indexName = "devices"

// Client is the embedded devindex entry point.
type Client struct {
	store     db.Store
	repo      *devicerepo.Repo
	searchSvc *searchuc.Service
}

// New creates a Client over an embedded bleve store. Without WithDataDir the
// indexes live in memory and are lost on Close.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	def, err := db.DeviceMapping(indexName, 1, 0).Build()
	if err != nil {
		return nil, fmt.Errorf("devindex: device mapping: %w", err)
	}
	store, err := dbbleve.NewStore(dbbleve.Config{
		DataDir:        cfg.dataDir,
		MaxOpenIndexes: cfg.maxOpenIndexes,
	}, def)
	if err != nil {
		return nil, fmt.Errorf("devindex: create store: %w", err)
	}
	return wireClient(store, cfg), nil
}

func wireClient(store db.Store, cfg *clientConfig) *Client {
	repo := devicerepo.New(store).WithTimeout(cfg.timeout)
	return &Client{
		store:     store,
		repo:      repo,
		searchSvc: searchuc.New(repo),
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks the store.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Index replaces the device's document in the tenant's index.
func (c *Client) Index(ctx context.Context, tenantID string, d Device) error {
	if tenantID == "" || d.ID == "" {
		return fmt.Errorf("index: %w: tenant and device id are required", ErrInvalidRequest)
	}
	dd, err := toDomainDevice(d)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := c.repo.Save(ctx, tenantID, dd); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	return nil
}

// Remove deletes the device from the tenant's index. Removing an unknown
// device is not an error.
func (c *Client) Remove(ctx context.Context, tenantID, deviceID string) error {
	if err := c.repo.Delete(ctx, tenantID, deviceID); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// RemoveTenant deletes every device of the tenant.
func (c *Client) RemoveTenant(ctx context.Context, tenantID string) error {
	if err := c.repo.DeleteTenant(ctx, tenantID); err != nil {
		return fmt.Errorf("remove tenant: %w", err)
	}
	return nil
}

// Search starts a query over the tenant's devices.
func (c *Client) Search(tenantID string) *SearchBuilder {
	return &SearchBuilder{client: c, tenantID: tenantID}
}

var errNoTenant = errors.New("tenant is required")
