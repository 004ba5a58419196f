package elastic

import (
	"context"
	"net/http"

	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/elastic/go-elasticsearch/v7/esutil"

	"github.com/kailas-cloud/devindex/internal/db"
	"github.com/kailas-cloud/devindex/internal/domain/document"
)

// Put indexes the document with refresh=true, so the next search sees it.
func (s *Store) Put(ctx context.Context, tenantID string, doc document.Document) error {
	res, err := esapi.IndexRequest{
		Index:      s.index(),
		DocumentID: docID(tenantID, doc.ID),
		Routing:    tenantID,
		Body:       esutil.NewJSONReader(doc.Fields),
		Refresh:    "true",
	}.Do(ctx, s.client)
	if err := check(db.OpPut, res, err); err != nil {
		return err
	}
	drain(res)
	return nil
}

// Delete removes the document. A missing document or index is not an error.
func (s *Store) Delete(ctx context.Context, tenantID, id string) error {
	res, err := esapi.DeleteRequest{
		Index:      s.index(),
		DocumentID: docID(tenantID, id),
		Routing:    tenantID,
		Refresh:    "true",
	}.Do(ctx, s.client)
	if err == nil && res.StatusCode == http.StatusNotFound {
		drain(res)
		return nil
	}
	if err := check(db.OpDelete, res, err); err != nil {
		return err
	}
	drain(res)
	return nil
}

// DeleteAll removes every document of the tenant.
func (s *Store) DeleteAll(ctx context.Context, tenantID string) error {
	body := map[string]any{
		"query": map[string]any{
			"term": map[string]any{document.FieldTenantID: tenantID},
		},
	}
	refresh := true
	res, err := esapi.DeleteByQueryRequest{
		Index:     []string{s.index()},
		Body:      esutil.NewJSONReader(body),
		Routing:   []string{tenantID},
		Conflicts: "proceed",
		Refresh:   &refresh,
	}.Do(ctx, s.client)
	if err == nil && res.StatusCode == http.StatusNotFound {
		drain(res)
		return nil
	}
	if err := check(db.OpDeleteAll, res, err); err != nil {
		return err
	}
	drain(res)
	return nil
}

type mappingResponse map[string]struct {
	Mappings struct {
		Properties map[string]any `json:"properties"`
	} `json:"mappings"`
}

// Fields returns the field names mapped in the shared index. The index is
// shared, so the set covers every tenant.
func (s *Store) Fields(ctx context.Context, _ string) (map[string]struct{}, error) {
	res, err := esapi.IndicesGetMappingRequest{
		Index: []string{s.index()},
	}.Do(ctx, s.client)
	if err == nil && res.StatusCode == http.StatusNotFound {
		drain(res)
		return map[string]struct{}{}, nil
	}
	if err := check(db.OpFields, res, err); err != nil {
		return nil, err
	}
	var body mappingResponse
	if err := decode(db.OpFields, res, &body); err != nil {
		return nil, err
	}
	out := make(map[string]struct{})
	for _, idx := range body {
		collectFields(out, "", idx.Mappings.Properties)
	}
	return out, nil
}

// collectFields flattens object mappings into dotted leaf paths.
func collectFields(out map[string]struct{}, prefix string, props map[string]any) {
	for name, raw := range props {
		path := prefix + name
		if m, ok := raw.(map[string]any); ok {
			if nested, ok := m["properties"].(map[string]any); ok {
				collectFields(out, path+".", nested)
				continue
			}
		}
		out[path] = struct{}{}
	}
}
