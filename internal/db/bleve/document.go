package bleve

import (
	"context"
	"errors"
	"sort"

	blevesearch "github.com/blevesearch/bleve/v2"

	"github.com/kailas-cloud/devindex/internal/db"
	"github.com/kailas-cloud/devindex/internal/domain/device"
	"github.com/kailas-cloud/devindex/internal/domain/document"
)

// presentField lists the typed fields a document carries; bleve has no exists query.
const presentField = "_present"

// Put indexes the document into the tenant's index, replacing any previous
// version. Bleve indexing is synchronous, so the write is immediately searchable.
func (s *Store) Put(ctx context.Context, tenantID string, doc document.Document) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpPut, Err: err}
	}
	body := make(map[string]any, len(doc.Fields)+1)
	var present []string
	for k, v := range doc.Fields {
		body[k] = v
		if _, _, _, ok := device.ParseFieldName(k); ok {
			present = append(present, k)
		}
	}
	sort.Strings(present)
	body[presentField] = present

	err := s.withIndex(tenantID, true, func(idx blevesearch.Index) error {
		return idx.Index(doc.ID, body)
	})
	if err != nil {
		return &db.Error{Op: db.OpPut, Err: err}
	}
	return nil
}

// Delete removes the document. Missing documents and tenants are not errors.
func (s *Store) Delete(ctx context.Context, tenantID, docID string) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	err := s.withIndex(tenantID, false, func(idx blevesearch.Index) error {
		return idx.Delete(docID)
	})
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	return nil
}

// DeleteAll drops the tenant's index.
func (s *Store) DeleteAll(ctx context.Context, tenantID string) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpDeleteAll, Err: err}
	}
	return s.drop(tenantID)
}

// Fields returns the field names indexed for the tenant.
func (s *Store) Fields(ctx context.Context, tenantID string) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpFields, Err: err}
	}
	out := make(map[string]struct{})
	err := s.withIndex(tenantID, false, func(idx blevesearch.Index) error {
		names, err := idx.Fields()
		if err != nil {
			return err
		}
		for _, n := range names {
			out[n] = struct{}{}
		}
		return nil
	})
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return nil, &db.Error{Op: db.OpFields, Err: err}
	}
	return out, nil
}
