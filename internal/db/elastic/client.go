package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	es "github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"

	"github.com/kailas-cloud/devindex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for an Elasticsearch store.
type Config struct {
	Addresses []string
	Username  string
	Password  string
}

// Store implements db.Store on a single shared Elasticsearch index.
// Tenants are isolated by a tenantID term on every query and routed by tenant,
// so one tenant's documents live on one shard.
type Store struct {
	client *es.Client
	def    *db.MappingDefinition
}

// NewStore creates an Elasticsearch store. def names the index and types its fields.
func NewStore(cfg Config, def *db.MappingDefinition) (*Store, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("addresses is required")
	}
	if def == nil {
		return nil, fmt.Errorf("mapping definition is required")
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mapping: %w", err)
	}

	client, err := es.NewClient(es.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid Elasticsearch configuration: %w", err)
	}
	return &Store{client: client, def: def}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	res, err := esapi.PingRequest{}.Do(ctx, s.client)
	if err := check(db.OpPing, res, err); err != nil {
		return err
	}
	drain(res)
	return nil
}

// Close is a no-op: the HTTP client holds no resources that need releasing.
func (s *Store) Close() {}

// WaitForReady polls Ping until the cluster responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for elasticsearch: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) index() string {
	return s.def.Name
}

// docID keys documents by tenant so equal device IDs of different tenants never collide.
func docID(tenantID, id string) string {
	return tenantID + ":" + id
}

// check converts a transport error or an error status into a *db.Error.
// On success the caller owns res.Body.
func check(op string, res *esapi.Response, err error) error {
	if err != nil {
		return &db.Error{Op: op, Err: err}
	}
	if res.IsError() {
		defer drain(res)
		return &db.Error{Op: op, Err: statusError(res)}
	}
	return nil
}

func statusError(res *esapi.Response) error {
	var body struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&body); err == nil && body.Error.Type != "" {
		return fmt.Errorf("status %d: %s: %s", res.StatusCode, body.Error.Type, body.Error.Reason)
	}
	return fmt.Errorf("status %d", res.StatusCode)
}

func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}

func decode(op string, res *esapi.Response, v any) error {
	defer drain(res)
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
