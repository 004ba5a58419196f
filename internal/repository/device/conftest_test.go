package device

import (
	"context"
	"testing"

	"github.com/kailas-cloud/devindex/internal/db"
	"github.com/kailas-cloud/devindex/internal/domain/document"
	"github.com/kailas-cloud/devindex/internal/domain/search/query"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	putFn       func(ctx context.Context, tenantID string, doc document.Document) error
	deleteFn    func(ctx context.Context, tenantID, docID string) error
	deleteAllFn func(ctx context.Context, tenantID string) error
	searchFn    func(ctx context.Context, tenantID string, q *query.Query) (*db.SearchResult, error)
	fieldsFn    func(ctx context.Context, tenantID string) (map[string]struct{}, error)
}

func (m *mockStore) Put(ctx context.Context, tenantID string, doc document.Document) error {
	if m.putFn != nil {
		return m.putFn(ctx, tenantID, doc)
	}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, tenantID, docID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, tenantID, docID)
	}
	return nil
}

func (m *mockStore) DeleteAll(ctx context.Context, tenantID string) error {
	if m.deleteAllFn != nil {
		return m.deleteAllFn(ctx, tenantID)
	}
	return nil
}

func (m *mockStore) Search(ctx context.Context, tenantID string, q *query.Query) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, tenantID, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) Fields(ctx context.Context, tenantID string) (map[string]struct{}, error) {
	if m.fieldsFn != nil {
		return m.fieldsFn(ctx, tenantID)
	}
	return map[string]struct{}{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}
