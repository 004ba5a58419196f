package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/devindex/internal/db"
	"github.com/kailas-cloud/devindex/internal/db/bleve"
	"github.com/kailas-cloud/devindex/internal/domain/device"
	devicerepo "github.com/kailas-cloud/devindex/internal/repository/device"
	"github.com/kailas-cloud/devindex/internal/repository/jobqueue"
	"github.com/kailas-cloud/devindex/internal/tenant"
	healthuc "github.com/kailas-cloud/devindex/internal/usecase/health"
	reindexuc "github.com/kailas-cloud/devindex/internal/usecase/reindex"
	searchuc "github.com/kailas-cloud/devindex/internal/usecase/search"
)

const jwtSecret = "test-secret"

type testEnv struct {
	server  *Server
	handler http.Handler
	store   *bleve.Store
	repo    *devicerepo.Repo
	queue   *jobqueue.Memory
}

type nopFetcher struct{}

func (nopFetcher) Fetch(context.Context, string, string) ([]device.Device, error) { return nil, nil }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := bleve.NewStore(bleve.Config{}, db.DeviceMapping("devices", 1, 0).MustBuild())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)

	verifier, err := tenant.NewVerifier(tenant.VerifierConfig{HMACSecret: jwtSecret})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	repo := devicerepo.New(store)
	queue := jobqueue.NewMemory(8)
	srv := NewServer(
		searchuc.New(repo),
		reindexuc.New(repo, queue, map[string]reindexuc.Fetcher{"inventory": nopFetcher{}}),
		healthuc.New(store, queue),
		tenant.ClaimResolver{Verifier: verifier},
		zap.NewNop(),
	)
	return &testEnv{server: srv, handler: srv.Handler(), store: store, repo: repo, queue: queue}
}

func (e *testEnv) seed(t *testing.T, tenantID, id string, attrs map[string]any) {
	t.Helper()
	d := device.Device{ID: id}
	for name, v := range attrs {
		a, err := device.NewAttribute(device.ScopeInventory, name, v)
		if err != nil {
			t.Fatalf("NewAttribute: %v", err)
		}
		d.Attributes = append(d.Attributes, a)
	}
	if err := e.repo.Save(context.Background(), tenantID, d); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func (e *testEnv) seedExample(t *testing.T) {
	t.Helper()
	e.seed(t, "t1", "D1", map[string]any{"string": "Lorem ipsum dolor sit amet", "number": float64(int64(1) << 47)})
	e.seed(t, "t1", "D2", map[string]any{"string": "consectetur adipiscing elit", "number": 420.69})
	e.seed(t, "t1", "D3", map[string]any{"string": "sed do eiusmod", "number": 1.0})
}

func (e *testEnv) do(t *testing.T, method, path, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth != "" {
		r.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, r)
	return rr
}

func bearer(t *testing.T, tenantID string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tenant.Claims{
		Tenant: tenantID,
		User:   true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(jwtSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + tok
}

func decodeDevices(t *testing.T, rr *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(bytes.NewReader(rr.Body.Bytes()))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func attrValue(d map[string]any, name string) any {
	attrs, _ := d["attributes"].([]any)
	for _, a := range attrs {
		m := a.(map[string]any)
		if m["name"] == name {
			return m["value"]
		}
	}
	return nil
}

func TestAlive(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodGet, InternalPrefix+"/alive", "", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rr.Body.String())
	}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodGet, InternalPrefix+"/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Checks["store"] != "ok" || resp.Checks["queue"] != "ok" {
		t.Errorf("health = %+v", resp)
	}

	e.store.Close()
	rr = e.do(t, http.MethodGet, InternalPrefix+"/health", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status after close = %d, want 503", rr.Code)
	}
}

func TestInternalSearch_EqKeepsLargeInteger(t *testing.T) {
	e := newTestEnv(t)
	e.seedExample(t)

	body := `{"filters":[{"scope":"inventory","attribute":"number","type":"$eq","value":140737488355328}]}`
	rr := e.do(t, http.MethodPost, InternalPrefix+"/inventory/tenants/t1/search", "", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-Total-Count"); got != "1" {
		t.Errorf("X-Total-Count = %q, want 1", got)
	}

	devices := decodeDevices(t, rr)
	if len(devices) != 1 || devices[0]["id"] != "D1" {
		t.Fatalf("devices = %v, want [D1]", devices)
	}
	// Internal surface renders single values as bare scalars.
	if got := attrValue(devices[0], "number"); got != json.Number("140737488355328") {
		t.Errorf("number = %#v, want 140737488355328", got)
	}
}

func TestManagementSearch_InSortedByNumber(t *testing.T) {
	e := newTestEnv(t)
	e.seedExample(t)

	body := `{
		"filters":[{"scope":"inventory","attribute":"string","type":"$in",
			"value":["Lorem ipsum dolor sit amet","consectetur adipiscing elit"]}],
		"sort":[{"scope":"inventory","attribute":"number","order":"asc"}]
	}`
	rr := e.do(t, http.MethodPost, ManagementPrefix+"/devices/search", bearer(t, "t1"), body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	devices := decodeDevices(t, rr)
	if len(devices) != 2 || devices[0]["id"] != "D2" || devices[1]["id"] != "D1" {
		t.Fatalf("devices = %v, want [D2 D1]", devices)
	}
	// Management surface always renders lists.
	seq, ok := attrValue(devices[1], "number").([]any)
	if !ok || len(seq) != 1 || seq[0] != json.Number("140737488355328") {
		t.Errorf("D1 number = %#v", attrValue(devices[1], "number"))
	}
}

func TestManagementSearch_Alias(t *testing.T) {
	e := newTestEnv(t)
	e.seedExample(t)

	rr := e.do(t, http.MethodPost, ManagementPrefix+"/inventory/search", bearer(t, "t1"), `{}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if got := len(decodeDevices(t, rr)); got != 3 {
		t.Errorf("devices = %d, want 3", got)
	}
}

func TestManagementSearch_EmptyTenant(t *testing.T) {
	e := newTestEnv(t)
	e.seedExample(t)

	rr := e.do(t, http.MethodPost, ManagementPrefix+"/devices/search", bearer(t, "t2"), `{}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
	if got := rr.Header().Get("X-Total-Count"); got != "0" {
		t.Errorf("X-Total-Count = %q, want 0", got)
	}
}

func TestManagementSearch_Unauthorized(t *testing.T) {
	e := newTestEnv(t)
	e.seedExample(t)

	wrongKey, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, tenant.Claims{Tenant: "t1"}).
		SignedString([]byte("other"))

	tests := []struct {
		name string
		auth string
	}{
		{name: "no credential", auth: ""},
		{name: "basic scheme", auth: "Basic dXNlcjpwYXNz"},
		{name: "garbage token", auth: "Bearer not-a-jwt"},
		{name: "wrong key", auth: "Bearer " + wrongKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.do(t, http.MethodPost, ManagementPrefix+"/devices/search", tt.auth, `{}`)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rr.Code)
			}
			if resp := decodeError(t, rr); resp.Code != codeUnauthorized {
				t.Errorf("code = %q, want %q", resp.Code, codeUnauthorized)
			}
		})
	}
}

func TestSearch_BadRequests(t *testing.T) {
	e := newTestEnv(t)
	e.seedExample(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "unknown operator", body: `{"filters":[{"scope":"inventory","attribute":"number","type":"$near","value":1}]}`},
		{name: "range on bool", body: `{"filters":[{"scope":"inventory","attribute":"x","type":"$gt","value":true}]}`},
		{name: "in without list", body: `{"filters":[{"scope":"inventory","attribute":"x","type":"$in","value":"a"}]}`},
		{name: "bad sort order", body: `{"sort":[{"scope":"inventory","attribute":"number","order":"up"}]}`},
		{name: "malformed json", body: `{"filters":`},
		{name: "page past result window", body: `{"page":501,"per_page":20}`},
		{name: "page overflowing offset", body: `{"page":922337203685477580,"per_page":20}`},
		{name: "scope with underscore", body: `{"filters":[{"scope":"my_scope","attribute":"x","type":"$eq","value":"v"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.do(t, http.MethodPost, InternalPrefix+"/inventory/tenants/t1/search", "", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", rr.Code, rr.Body.String())
			}
			if resp := decodeError(t, rr); resp.Code != codeBadRequest {
				t.Errorf("code = %q, want %q", resp.Code, codeBadRequest)
			}
		})
	}
}

func TestSearch_StoreUnavailable(t *testing.T) {
	e := newTestEnv(t)
	e.store.Close()

	rr := e.do(t, http.MethodPost, InternalPrefix+"/inventory/tenants/t1/search", "", `{}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Message != "document store unavailable" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestSearch_PaginationHeaders(t *testing.T) {
	e := newTestEnv(t)
	e.seedExample(t)

	rr := e.do(t, http.MethodPost, InternalPrefix+"/inventory/tenants/t1/search", "", `{"page":2,"per_page":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-Total-Count"); got != "3" {
		t.Errorf("X-Total-Count = %q, want 3", got)
	}
	link := rr.Header().Get("Link")
	for _, want := range []string{
		`page=1&per_page=1>; rel="first"`,
		`page=1&per_page=1>; rel="prev"`,
		`page=3&per_page=1>; rel="next"`,
		`page=3&per_page=1>; rel="last"`,
	} {
		if !strings.Contains(link, want) {
			t.Errorf("Link %q lacks %q", link, want)
		}
	}
	devices := decodeDevices(t, rr)
	if len(devices) != 1 || devices[0]["id"] != "D2" {
		t.Errorf("page 2 = %v, want [D2]", devices)
	}
}

func TestSearch_AttributesAndDeviceIDs(t *testing.T) {
	e := newTestEnv(t)
	e.seedExample(t)

	body := `{"device_ids":["D1","D3"],"attributes":[{"scope":"inventory","attribute":"string"}]}`
	rr := e.do(t, http.MethodPost, InternalPrefix+"/inventory/tenants/t1/search", "", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	devices := decodeDevices(t, rr)
	if len(devices) != 2 || devices[0]["id"] != "D1" || devices[1]["id"] != "D3" {
		t.Fatalf("devices = %v, want [D1 D3]", devices)
	}
	for _, d := range devices {
		if attrValue(d, "number") != nil {
			t.Errorf("device %v: number not filtered out", d["id"])
		}
		if attrValue(d, "string") == nil {
			t.Errorf("device %v: string missing", d["id"])
		}
	}
}

func TestReindex(t *testing.T) {
	e := newTestEnv(t)
	e.seedExample(t)
	path := InternalPrefix + "/tenants/t1/devices/D1/reindex"

	rr := e.do(t, http.MethodPost, path+"?service=inventory", "", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rr.Code, rr.Body.String())
	}
	if n, _ := e.queue.Len(context.Background()); n != 1 {
		t.Errorf("queue len = %d, want 1", n)
	}

	rr = e.do(t, http.MethodPost, path+"?service=deployments", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Message != "unknown service name" {
		t.Errorf("message = %q, want unknown service name", resp.Message)
	}
	if n, _ := e.queue.Len(context.Background()); n != 1 {
		t.Errorf("queue len = %d, want 1", n)
	}

	// The index is untouched by the rejected request.
	rr = e.do(t, http.MethodPost, InternalPrefix+"/inventory/tenants/t1/search", "", `{}`)
	if got := len(decodeDevices(t, rr)); got != 3 {
		t.Errorf("devices = %d, want 3", got)
	}
}

func TestSearch_PageSizeLimits(t *testing.T) {
	e := newTestEnv(t)
	e.seedExample(t)
	srv := e.server.WithPagination(2, 2)
	handler := srv.Handler()

	for _, body := range []string{`{}`, `{"per_page":50}`} {
		r := httptest.NewRequest(http.MethodPost, InternalPrefix+"/inventory/tenants/t1/search", strings.NewReader(body))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, r)
		if got := len(decodeDevices(t, rr)); got != 2 {
			t.Errorf("body %s: devices = %d, want 2", body, got)
		}
		if got := rr.Header().Get("X-Total-Count"); got != "3" {
			t.Errorf("body %s: X-Total-Count = %q, want 3", body, got)
		}
	}
}
