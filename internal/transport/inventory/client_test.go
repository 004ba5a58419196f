package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kailas-cloud/devindex/internal/domain"
	"github.com/kailas-cloud/devindex/internal/domain/device"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/api/internal/v2/inventory/tenants/t1/filters/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Page != 1 || req.PerPage != 1 || len(req.Filters) != 1 {
			t.Errorf("request = %+v", req)
		}
		f := req.Filters[0]
		if f.Scope != "identity" || f.Attribute != "id" || f.Type != "$eq" || f.Value != "d1" {
			t.Errorf("filter = %+v", f)
		}
		_, _ = io.WriteString(w, `[{
			"id": "d1",
			"updated_ts": "2024-05-01T10:00:00Z",
			"attributes": [
				{"name": "mac", "scope": "identity", "value": "00:11"},
				{"name": "big", "value": 140737488355328},
				{"name": "ips", "scope": "inventory", "value": ["10.0.0.1", "10.0.0.2"]}
			]
		}]`)
	}))
	defer srv.Close()

	devices, err := NewClient(srv.URL, time.Second).Fetch(context.Background(), "t1", "d1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("devices = %v", devices)
	}
	d := devices[0]
	if d.ID != "d1" || d.TenantID != "t1" {
		t.Errorf("device = %+v", d)
	}
	if !d.UpdatedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("UpdatedAt = %v", d.UpdatedAt)
	}
	big, ok := d.Attribute(device.ScopeInventory, "big")
	if !ok || int64(big.Values[0].Num()) != int64(1)<<47 {
		t.Errorf("big = %+v (scope defaulting or precision lost)", big)
	}
	if ips, ok := d.Attribute(device.ScopeInventory, "ips"); !ok || len(ips.Values) != 2 {
		t.Errorf("ips = %+v", ips)
	}
	if _, ok := d.Attribute(device.ScopeIdentity, "mac"); !ok {
		t.Error("identity mac missing")
	}
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	devices, err := NewClient(srv.URL, 0).Fetch(context.Background(), "t1", "gone")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("devices = %v", devices)
	}
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: domain.ErrInventoryUnavailable,
		},
		{
			name: "bad body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{not json`)
			},
			want: domain.ErrInventoryUnavailable,
		},
		{
			name: "unsupported attribute",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `[{"id":"d1","attributes":[{"name":"obj","value":{"a":1}}]}]`)
			},
			want: domain.ErrUnsupportedType,
		},
		{
			name: "attribute without name",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `[{"id":"d1","attributes":[{"name":"","value":"v"}]}]`)
			},
			want: domain.ErrInvalidRequest,
		},
		{
			name: "inexact integer",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `[{"id":"d1","attributes":[{"name":"n","value":9007199254740993}]}]`)
			},
			want: domain.ErrUnsupportedType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Fetch(context.Background(), "t1", "d1")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Fetch(context.Background(), "t1", "d1")
	if !errors.Is(err, domain.ErrInventoryUnavailable) {
		t.Errorf("expected ErrInventoryUnavailable, got %v", err)
	}
}
