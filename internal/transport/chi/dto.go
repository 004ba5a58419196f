package chi

import (
	"time"

	"github.com/kailas-cloud/devindex/internal/domain"
	"github.com/kailas-cloud/devindex/internal/domain/device"
	"github.com/kailas-cloud/devindex/internal/domain/search/filter"
	"github.com/kailas-cloud/devindex/internal/domain/search/request"
)

// SearchRequest is the body of both search endpoints.
type SearchRequest struct {
	Page       int               `json:"page"`
	PerPage    int               `json:"per_page"`
	Filters    []FilterPredicate `json:"filters"`
	Sort       []SortCriteria    `json:"sort"`
	Attributes []SelectAttribute `json:"attributes"`
	DeviceIDs  []string          `json:"device_ids"`
}

// FilterPredicate is a single filter term.
type FilterPredicate struct {
	Scope     string `json:"scope"`
	Attribute string `json:"attribute"`
	Type      string `json:"type"`
	Value     any    `json:"value"`
}

// SortCriteria is a single sort key.
type SortCriteria struct {
	Scope     string `json:"scope"`
	Attribute string `json:"attribute"`
	Order     string `json:"order"`
}

// SelectAttribute names an attribute to include in the response.
type SelectAttribute struct {
	Scope     string `json:"scope"`
	Attribute string `json:"attribute"`
}

// DeviceResponse is a device as returned by the search endpoints.
type DeviceResponse struct {
	ID         string              `json:"id"`
	Name       string              `json:"name,omitempty"`
	Attributes []AttributeResponse `json:"attributes"`
	UpdatedTS  *time.Time          `json:"updated_ts,omitempty"`
}

// AttributeResponse is one device attribute. Value is a list or a scalar
// depending on the surface.
type AttributeResponse struct {
	Name  string `json:"name"`
	Scope string `json:"scope"`
	Value any    `json:"value"`
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (b SearchRequest) toDomain() (request.Request, error) {
	terms := make([]filter.Term, 0, len(b.Filters))
	for i, f := range b.Filters {
		t, err := filter.NewTerm(f.Scope, f.Attribute, filter.Operator(f.Type), f.Value)
		if err != nil {
			return request.Request{}, domain.NewFilterError(i, f.Scope, f.Attribute, err)
		}
		terms = append(terms, t)
	}

	sorts := make([]request.Sort, 0, len(b.Sort))
	for _, s := range b.Sort {
		sorts = append(sorts, request.Sort{
			Scope:     s.Scope,
			Attribute: s.Attribute,
			Order:     request.Order(s.Order),
		})
	}

	var keys []device.Key
	for _, a := range b.Attributes {
		keys = append(keys, device.Key{Scope: a.Scope, Name: a.Attribute})
	}

	return request.New(terms, sorts, b.Page, b.PerPage, keys, b.DeviceIDs)
}

// projection renders an attribute's values for the wire.
type projection func(device.Attribute) any

// sequenceProjection always renders a list.
func sequenceProjection(a device.Attribute) any { return a.Sequence() }

// scalarProjection collapses one-element lists to the bare value.
func scalarProjection(a device.Attribute) any { return a.Scalar() }

func devicesToResponse(devices []device.Device, project projection) []DeviceResponse {
	out := make([]DeviceResponse, 0, len(devices))
	for _, d := range devices {
		attrs := make([]AttributeResponse, 0, len(d.Attributes))
		for _, a := range d.Attributes {
			attrs = append(attrs, AttributeResponse{Name: a.Name, Scope: a.Scope, Value: project(a)})
		}
		resp := DeviceResponse{ID: d.ID, Name: d.Name, Attributes: attrs}
		if !d.UpdatedAt.IsZero() {
			ts := d.UpdatedAt.UTC()
			resp.UpdatedTS = &ts
		}
		out = append(out, resp)
	}
	return out
}
