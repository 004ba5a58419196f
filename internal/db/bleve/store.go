package bleve

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	blevesearch "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/devindex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const defaultMaxOpenIndexes = 64

// Config holds settings for the embedded store.
// An empty DataDir keeps every tenant index in memory.
type Config struct {
	DataDir        string
	MaxOpenIndexes int
}

// Store implements db.Store on bleve with one index per tenant.
// On disk, at most MaxOpenIndexes tenant indexes stay open; the least
// recently used one is closed when another has to be opened.
type Store struct {
	dataDir string
	mapping mapping.IndexMapping

	mu     sync.RWMutex
	mem    map[string]blevesearch.Index
	open   *lru.Cache[string, blevesearch.Index]
	closed bool
}

// NewStore creates an embedded store. def supplies the static field types.
func NewStore(cfg Config, def *db.MappingDefinition) (*Store, error) {
	if def == nil {
		return nil, fmt.Errorf("mapping definition is required")
	}
	s := &Store{dataDir: cfg.DataDir, mapping: indexMapping(def)}

	if cfg.DataDir == "" {
		s.mem = make(map[string]blevesearch.Index)
		return s, nil
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	size := cfg.MaxOpenIndexes
	if size <= 0 {
		size = defaultMaxOpenIndexes
	}
	cache, err := lru.NewWithEvict[string, blevesearch.Index](size, func(_ string, idx blevesearch.Index) {
		_ = idx.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("create index cache: %w", err)
	}
	s.open = cache
	return s, nil
}

// indexMapping builds the bleve mapping: every string is a single keyword token,
// so equality, ranges and regexps apply to whole values.
func indexMapping(def *db.MappingDefinition) mapping.IndexMapping {
	im := blevesearch.NewIndexMapping()
	im.DefaultAnalyzer = keyword.Name
	im.StoreDynamic = true
	im.DocValuesDynamic = true

	doc := blevesearch.NewDocumentMapping()
	for _, f := range def.Fields {
		var fm *mapping.FieldMapping
		switch f.Type {
		case db.FieldDouble:
			fm = blevesearch.NewNumericFieldMapping()
		case db.FieldBoolean:
			fm = blevesearch.NewBooleanFieldMapping()
		default:
			// Dates are kept as RFC 3339 keywords, which sort chronologically.
			fm = blevesearch.NewTextFieldMapping()
			fm.Analyzer = keyword.Name
		}
		fm.Store = true
		fm.DocValues = true
		doc.AddFieldMappingsAt(f.Name, fm)
	}
	present := blevesearch.NewTextFieldMapping()
	present.Analyzer = keyword.Name
	present.Store = false
	doc.AddFieldMappingsAt(presentField, present)

	im.DefaultMapping = doc
	return im
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	return nil
}

// WaitForReady returns once the store answers Ping. The embedded store is ready
// as soon as it is constructed.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("store not ready: %w", err)
	}
	return ctx.Err()
}

// Migrate is a no-op: tenant indexes get their mapping when first written.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Close closes every open tenant index.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for tenant, idx := range s.mem {
		_ = idx.Close()
		delete(s.mem, tenant)
	}
	if s.open != nil {
		s.open.Purge()
	}
}

// withIndex runs fn against the tenant's index. When the index does not exist
// and create is false it returns db.ErrIndexNotFound.
func (s *Store) withIndex(tenantID string, create bool, fn func(blevesearch.Index) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return db.ErrClosed
	}
	if idx, ok := s.lookup(tenantID); ok {
		defer s.mu.RUnlock()
		return fn(idx)
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return db.ErrClosed
	}
	idx, ok := s.lookup(tenantID)
	if !ok {
		var err error
		idx, err = s.openIndex(tenantID, create)
		if err != nil {
			return err
		}
		s.remember(tenantID, idx)
	}
	return fn(idx)
}

func (s *Store) lookup(tenantID string) (blevesearch.Index, bool) {
	if s.mem != nil {
		idx, ok := s.mem[tenantID]
		return idx, ok
	}
	return s.open.Get(tenantID)
}

func (s *Store) remember(tenantID string, idx blevesearch.Index) {
	if s.mem != nil {
		s.mem[tenantID] = idx
		return
	}
	s.open.Add(tenantID, idx)
}

func (s *Store) openIndex(tenantID string, create bool) (blevesearch.Index, error) {
	if s.mem != nil {
		if !create {
			return nil, db.ErrIndexNotFound
		}
		idx, err := blevesearch.NewMemOnly(s.mapping)
		if err != nil {
			return nil, &db.Error{Op: db.OpOpen, Err: err}
		}
		return idx, nil
	}

	path := s.tenantPath(tenantID)
	idx, err := blevesearch.Open(path)
	if err == nil {
		return idx, nil
	}
	if !errors.Is(err, blevesearch.ErrorIndexPathDoesNotExist) {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	if !create {
		return nil, db.ErrIndexNotFound
	}
	idx, err = blevesearch.New(path, s.mapping)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	return idx, nil
}

// drop closes and forgets the tenant's index and removes its files.
func (s *Store) drop(tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return db.ErrClosed
	}
	if s.mem != nil {
		if idx, ok := s.mem[tenantID]; ok {
			_ = idx.Close()
			delete(s.mem, tenantID)
		}
		return nil
	}
	s.open.Remove(tenantID)
	if err := os.RemoveAll(s.tenantPath(tenantID)); err != nil {
		return &db.Error{Op: db.OpDeleteAll, Err: err}
	}
	return nil
}

func (s *Store) tenantPath(tenantID string) string {
	return filepath.Join(s.dataDir, "tenant-"+hex.EncodeToString([]byte(tenantID))+".bleve")
}
