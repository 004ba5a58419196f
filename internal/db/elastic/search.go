package elastic

import (
	"context"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/elastic/go-elasticsearch/v7/esutil"

	"github.com/kailas-cloud/devindex/internal/db"
	"github.com/kailas-cloud/devindex/internal/domain/device"
	"github.com/kailas-cloud/devindex/internal/domain/document"
	"github.com/kailas-cloud/devindex/internal/domain/search/query"
)

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string         `json:"_id"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs the query routed to the tenant's shard.
func (s *Store) Search(ctx context.Context, tenantID string, q *query.Query) (*db.SearchResult, error) {
	body, err := buildSearchBody(q)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	res, err := esapi.SearchRequest{
		Index:          []string{s.index()},
		Body:           esutil.NewJSONReader(body),
		Routing:        []string{tenantID},
		TrackTotalHits: true,
	}.Do(ctx, s.client)
	if err == nil && res.StatusCode == http.StatusNotFound {
		drain(res)
		return &db.SearchResult{}, nil
	}
	if err := check(db.OpSearch, res, err); err != nil {
		return nil, err
	}

	var sr searchResponse
	if err := decode(db.OpSearch, res, &sr); err != nil {
		return nil, err
	}
	out := &db.SearchResult{
		Total:     sr.Hits.Total.Value,
		Documents: make([]document.Document, 0, len(sr.Hits.Hits)),
	}
	for _, hit := range sr.Hits.Hits {
		id, _ := hit.Source[document.FieldID].(string)
		if id == "" {
			id = hit.ID
		}
		out.Documents = append(out.Documents, document.Document{
			ID:       id,
			TenantID: tenantID,
			Fields:   hit.Source,
		})
	}
	return out, nil
}

// buildSearchBody renders the query as an Elasticsearch request body: positive
// clauses go to bool.filter, negated ones to bool.must_not.
func buildSearchBody(q *query.Query) (map[string]any, error) {
	filter := make([]any, 0, len(q.Clauses))
	var mustNot []any
	for i := range q.Clauses {
		c := &q.Clauses[i]
		clause, err := buildClause(c)
		if err != nil {
			return nil, err
		}
		if c.Negate {
			mustNot = append(mustNot, clause)
		} else {
			filter = append(filter, clause)
		}
	}
	boolQuery := map[string]any{"filter": filter}
	if len(mustNot) > 0 {
		boolQuery["must_not"] = mustNot
	}

	size := q.Size
	if size <= 0 {
		size = 20
	}
	return map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"sort":  buildSort(q.Sort),
		"from":  q.From,
		"size":  size,
	}, nil
}

func buildClause(c *query.Clause) (map[string]any, error) {
	switch c.Kind {
	case query.KindTerm:
		if len(c.Values) != 1 {
			return nil, fmt.Errorf("term clause on %s needs one value", c.Field)
		}
		return map[string]any{"term": map[string]any{c.Field: c.Values[0].Any()}}, nil
	case query.KindTerms:
		values := make([]any, len(c.Values))
		for i, v := range c.Values {
			values[i] = v.Any()
		}
		return map[string]any{"terms": map[string]any{c.Field: values}}, nil
	case query.KindRange:
		bounds := make(map[string]any, 2)
		for name, v := range map[string]*device.Value{
			"gt": c.Range.GT, "gte": c.Range.GTE, "lt": c.Range.LT, "lte": c.Range.LTE,
		} {
			if v != nil {
				bounds[name] = v.Any()
			}
		}
		if len(bounds) == 0 {
			return nil, fmt.Errorf("range clause on %s has no bounds", c.Field)
		}
		return map[string]any{"range": map[string]any{c.Field: bounds}}, nil
	case query.KindExists:
		should := make([]any, len(c.Fields))
		for i, f := range c.Fields {
			should[i] = map[string]any{"exists": map[string]any{"field": f}}
		}
		return map[string]any{"bool": map[string]any{
			"should":               should,
			"minimum_should_match": 1,
		}}, nil
	case query.KindRegexp:
		return map[string]any{"regexp": map[string]any{c.Field: map[string]any{"value": c.Pattern}}}, nil
	}
	return nil, fmt.Errorf("unsupported clause kind %s", c.Kind)
}

// buildSort puts missing values last and breaks ties by the document id.
// unmapped_type keeps sorting on a never-seen field from failing the search.
func buildSort(keys []query.Sort) []any {
	out := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		order, mode := "asc", "min"
		if k.Desc {
			order, mode = "desc", "max"
		}
		out = append(out, map[string]any{k.Field: map[string]any{
			"order":         order,
			"mode":          mode,
			"missing":       "_last",
			"unmapped_type": string(fieldType(k.Type)),
		}})
	}
	return append(out, map[string]any{document.FieldID: map[string]any{"order": "asc"}})
}

func fieldType(t device.Type) db.FieldType {
	switch t {
	case device.TypeNumber:
		return db.FieldDouble
	case device.TypeBool:
		return db.FieldBoolean
	default:
		return db.FieldKeyword
	}
}
