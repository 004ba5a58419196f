// Package inventory is the HTTP client for the inventory service, the source of
// truth the reindexer reads devices from.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kailas-cloud/devindex/internal/domain"
	"github.com/kailas-cloud/devindex/internal/domain/device"
)

const (
	// ServiceName is the reindex service name served by this client.
	ServiceName = "inventory"

	defaultTimeout = 10 * time.Second
	searchPath     = "api/internal/v2/inventory/tenants/%s/filters/search"
)

// Client looks devices up in the inventory service.
type Client struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
}

// NewClient creates an inventory client. A zero timeout selects the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:    &http.Client{},
		baseURL: baseURL,
		timeout: timeout,
	}
}

type searchFilter struct {
	Scope     string `json:"scope"`
	Attribute string `json:"attribute"`
	Type      string `json:"type"`
	Value     any    `json:"value"`
}

type searchRequest struct {
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Filters []searchFilter `json:"filters"`
}

type attributeDTO struct {
	Name  string `json:"name"`
	Scope string `json:"scope"`
	Value any    `json:"value"`
}

type deviceDTO struct {
	ID         string         `json:"id"`
	Attributes []attributeDTO `json:"attributes"`
	UpdatedTS  time.Time      `json:"updated_ts"`
}

// Fetch returns the devices whose identity id equals deviceID: none when the
// device no longer exists, otherwise one.
func (c *Client) Fetch(ctx context.Context, tenantID, deviceID string) ([]device.Device, error) {
	endpoint, err := url.JoinPath(c.baseURL, fmt.Sprintf(searchPath, url.PathEscape(tenantID)))
	if err != nil {
		return nil, fmt.Errorf("build inventory url: %w", err)
	}
	body, err := json.Marshal(searchRequest{
		Page:    1,
		PerPage: 1,
		Filters: []searchFilter{{
			Scope:     device.ScopeIdentity,
			Attribute: "id",
			Type:      "$eq",
			Value:     deviceID,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal inventory request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create inventory request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	rsp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInventoryUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, rsp.Body)
		_ = rsp.Body.Close()
	}()

	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s %s returned %s",
			domain.ErrInventoryUnavailable, req.Method, req.URL.Path, rsp.Status)
	}

	dec := json.NewDecoder(rsp.Body)
	dec.UseNumber()
	var dtos []deviceDTO
	if err := dec.Decode(&dtos); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrInventoryUnavailable, err)
	}

	devices := make([]device.Device, 0, len(dtos))
	for _, dto := range dtos {
		d, err := toDevice(tenantID, dto)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// toDevice converts an inventory device. Attributes without a scope belong to
// the inventory scope.
func toDevice(tenantID string, dto deviceDTO) (device.Device, error) {
	d := device.Device{
		ID:        dto.ID,
		TenantID:  tenantID,
		UpdatedAt: dto.UpdatedTS,
	}
	for _, a := range dto.Attributes {
		scope := a.Scope
		if scope == "" {
			scope = device.ScopeInventory
		}
		attr, err := device.NewAttribute(scope, a.Name, a.Value)
		if err != nil {
			return device.Device{}, fmt.Errorf("device %s attribute %s/%s: %w", dto.ID, scope, a.Name, err)
		}
		d.Attributes = append(d.Attributes, attr)
	}
	return d, nil
}
