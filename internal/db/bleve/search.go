package bleve

import (
	"context"
	"errors"
	"fmt"

	blevesearch "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/devindex/internal/db"
	"github.com/kailas-cloud/devindex/internal/domain/device"
	"github.com/kailas-cloud/devindex/internal/domain/document"
	"github.com/kailas-cloud/devindex/internal/domain/search/query"
)

// Search runs the query against the tenant's index. A tenant without an index
// yields an empty result.
func (s *Store) Search(ctx context.Context, tenantID string, q *query.Query) (*db.SearchResult, error) {
	bq, err := buildQuery(q)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	size := q.Size
	if size <= 0 {
		size = 20
	}
	req := blevesearch.NewSearchRequestOptions(bq, size, q.From, false)
	req.Fields = []string{"*"}
	req.SortByCustom(buildSort(q.Sort))

	var res *blevesearch.SearchResult
	err = s.withIndex(tenantID, false, func(idx blevesearch.Index) error {
		var serr error
		res, serr = idx.SearchInContext(ctx, req)
		return serr
	})
	if errors.Is(err, db.ErrIndexNotFound) {
		return &db.SearchResult{}, nil
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	out := &db.SearchResult{
		Total:     int(res.Total),
		Documents: make([]document.Document, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		fields := make(map[string]any, len(hit.Fields))
		for k, v := range hit.Fields {
			fields[k] = v
		}
		out.Documents = append(out.Documents, document.Document{
			ID:       hit.ID,
			TenantID: tenantID,
			Fields:   fields,
		})
	}
	return out, nil
}

// buildQuery renders the clause list as a conjunction of bleve queries.
func buildQuery(q *query.Query) (bquery.Query, error) {
	if len(q.Clauses) == 0 {
		return blevesearch.NewMatchAllQuery(), nil
	}
	parts := make([]bquery.Query, 0, len(q.Clauses))
	for i := range q.Clauses {
		bq, err := buildClause(&q.Clauses[i])
		if err != nil {
			return nil, err
		}
		if q.Clauses[i].Negate {
			bq = negate(bq)
		}
		parts = append(parts, bq)
	}
	return blevesearch.NewConjunctionQuery(parts...), nil
}

func negate(q bquery.Query) bquery.Query {
	b := blevesearch.NewBooleanQuery()
	b.AddMust(blevesearch.NewMatchAllQuery())
	b.AddMustNot(q)
	return b
}

func buildClause(c *query.Clause) (bquery.Query, error) {
	switch c.Kind {
	case query.KindTerm:
		if len(c.Values) != 1 {
			return nil, fmt.Errorf("term clause on %s needs one value", c.Field)
		}
		return equals(c.Field, c.Values[0]), nil
	case query.KindTerms:
		if len(c.Values) == 0 {
			return blevesearch.NewMatchNoneQuery(), nil
		}
		alts := make([]bquery.Query, len(c.Values))
		for i, v := range c.Values {
			alts[i] = equals(c.Field, v)
		}
		return blevesearch.NewDisjunctionQuery(alts...), nil
	case query.KindRange:
		return rangeQuery(c)
	case query.KindExists:
		alts := make([]bquery.Query, len(c.Fields))
		for i, f := range c.Fields {
			tq := blevesearch.NewTermQuery(f)
			tq.SetField(presentField)
			alts[i] = tq
		}
		return blevesearch.NewDisjunctionQuery(alts...), nil
	case query.KindRegexp:
		rq := blevesearch.NewRegexpQuery(c.Pattern)
		rq.SetField(c.Field)
		return rq, nil
	}
	return nil, fmt.Errorf("unsupported clause kind %s", c.Kind)
}

func equals(field string, v device.Value) bquery.Query {
	switch v.Type() {
	case device.TypeNumber:
		n := v.Num()
		incl := true
		nq := blevesearch.NewNumericRangeInclusiveQuery(&n, &n, &incl, &incl)
		nq.SetField(field)
		return nq
	case device.TypeBool:
		bq := blevesearch.NewBoolFieldQuery(v.Bool())
		bq.SetField(field)
		return bq
	default:
		tq := blevesearch.NewTermQuery(v.Str())
		tq.SetField(field)
		return tq
	}
}

func rangeQuery(c *query.Clause) (bquery.Query, error) {
	var minV, maxV *device.Value
	var minIncl, maxIncl bool
	switch {
	case c.Range.GT != nil:
		minV = c.Range.GT
	case c.Range.GTE != nil:
		minV, minIncl = c.Range.GTE, true
	}
	switch {
	case c.Range.LT != nil:
		maxV = c.Range.LT
	case c.Range.LTE != nil:
		maxV, maxIncl = c.Range.LTE, true
	}
	if minV == nil && maxV == nil {
		return nil, fmt.Errorf("range clause on %s has no bounds", c.Field)
	}

	switch c.Type {
	case device.TypeNumber:
		var lo, hi *float64
		if minV != nil {
			n := minV.Num()
			lo = &n
		}
		if maxV != nil {
			n := maxV.Num()
			hi = &n
		}
		nq := blevesearch.NewNumericRangeInclusiveQuery(lo, hi, &minIncl, &maxIncl)
		nq.SetField(c.Field)
		return nq, nil
	case device.TypeString:
		var lo, hi string
		if minV != nil {
			lo = minV.Str()
		}
		if maxV != nil {
			hi = maxV.Str()
		}
		tq := blevesearch.NewTermRangeInclusiveQuery(lo, hi, &minIncl, &maxIncl)
		tq.SetField(c.Field)
		return tq, nil
	}
	return nil, fmt.Errorf("range clause on %s: unsupported type %q", c.Field, c.Type)
}

// buildSort maps sort keys to bleve sort fields; missing values sort last and
// the document id breaks ties.
func buildSort(keys []query.Sort) search.SortOrder {
	order := make(search.SortOrder, 0, len(keys)+1)
	for _, k := range keys {
		sf := &search.SortField{
			Field:   k.Field,
			Desc:    k.Desc,
			Type:    search.SortFieldAsString,
			Mode:    search.SortFieldMin,
			Missing: search.SortFieldMissingLast,
		}
		if k.Type == device.TypeNumber {
			sf.Type = search.SortFieldAsNumber
		}
		if k.Desc {
			sf.Mode = search.SortFieldMax
		}
		order = append(order, sf)
	}
	return append(order, &search.SortDocID{})
}
