package elastic

import (
	"context"
	"net/http"

	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/elastic/go-elasticsearch/v7/esutil"

	"github.com/kailas-cloud/devindex/internal/db"
)

// Migrate installs the index template and creates the index when it is missing.
func (s *Store) Migrate(ctx context.Context) error {
	res, err := esapi.IndicesPutIndexTemplateRequest{
		Name: s.index(),
		Body: esutil.NewJSONReader(buildTemplate(s.def)),
	}.Do(ctx, s.client)
	if err := check(db.OpMigrate, res, err); err != nil {
		return err
	}
	drain(res)

	res, err = esapi.IndicesExistsRequest{Index: []string{s.index()}}.Do(ctx, s.client)
	if err != nil {
		return &db.Error{Op: db.OpMigrate, Err: err}
	}
	status := res.StatusCode
	drain(res)
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return &db.Error{Op: db.OpMigrate, Err: statusCode(status)}
	}

	res, err = esapi.IndicesCreateRequest{Index: s.index()}.Do(ctx, s.client)
	if err := check(db.OpMigrate, res, err); err != nil {
		return err
	}
	drain(res)
	return nil
}

type statusCode int

func (c statusCode) Error() string { return "unexpected status " + http.StatusText(int(c)) }

// buildTemplate renders the mapping definition as a composable index template.
func buildTemplate(def *db.MappingDefinition) map[string]any {
	props := make(map[string]any, len(def.Fields))
	for _, f := range def.Fields {
		props[f.Name] = map[string]any{"type": string(f.Type)}
	}
	dynamic := make([]any, 0, len(def.Dynamic))
	for _, r := range def.Dynamic {
		dynamic = append(dynamic, map[string]any{
			r.Name: map[string]any{
				"match":   r.Match,
				"mapping": map[string]any{"type": string(r.Type)},
			},
		})
	}
	return map[string]any{
		"index_patterns": []string{def.Name + "*"},
		"priority":       1,
		"template": map[string]any{
			"settings": map[string]any{
				"number_of_shards":   def.Shards,
				"number_of_replicas": def.Replicas,
			},
			"mappings": map[string]any{
				"_source":           map[string]any{"enabled": true},
				"dynamic_templates": dynamic,
				"properties":        props,
			},
		},
	}
}
