package query

import (
	"fmt"

	"github.com/kailas-cloud/devindex/internal/domain"
	"github.com/kailas-cloud/devindex/internal/domain/device"
	"github.com/kailas-cloud/devindex/internal/domain/document"
	"github.com/kailas-cloud/devindex/internal/domain/search/filter"
	"github.com/kailas-cloud/devindex/internal/domain/search/request"
)

// Option tunes translation.
type Option func(*translator)

// WithKnownFields lets sort resolution skip type variants the tenant has never
// stored. Without it, an unfiltered sort key always targets the numeric variant.
func WithKnownFields(fields map[string]struct{}) Option {
	return func(t *translator) { t.known = fields }
}

type translator struct {
	known map[string]struct{}
	hints map[device.Key]device.Type
}

// Translate converts a validated search request into a tenant-scoped query.
// Filter fields are chosen by the type of the filter's own value, so queries are
// type-exact. Nothing is sent to a store when translation fails.
func Translate(tenantID string, req request.Request, opts ...Option) (*Query, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant ID is required", domain.ErrInvalidRequest)
	}
	t := &translator{hints: make(map[device.Key]device.Type)}
	for _, o := range opts {
		o(t)
	}

	q := &Query{
		TenantID: tenantID,
		From:     req.Offset(),
		Size:     req.PerPage(),
	}
	q.Clauses = append(q.Clauses, Clause{
		Kind:   KindTerm,
		Field:  document.FieldTenantID,
		Type:   device.TypeString,
		Values: []device.Value{device.String(tenantID)},
	})

	if ids := req.DeviceIDs(); len(ids) > 0 {
		values := make([]device.Value, len(ids))
		for i, id := range ids {
			values[i] = device.String(id)
		}
		q.Clauses = append(q.Clauses, Clause{
			Kind:   KindTerms,
			Field:  document.FieldID,
			Type:   device.TypeString,
			Values: values,
		})
	}

	for i, term := range req.Filters() {
		c, err := t.clause(term)
		if err != nil {
			return nil, domain.NewFilterError(i, term.Scope(), term.Attribute(), err)
		}
		q.Clauses = append(q.Clauses, c)
	}

	for _, s := range req.Sort() {
		typ := t.sortType(s.Scope, s.Attribute)
		q.Sort = append(q.Sort, Sort{
			Field: device.FieldName(s.Scope, s.Attribute, typ),
			Type:  typ,
			Desc:  s.Order == request.Desc,
		})
	}
	return q, nil
}

func (t *translator) clause(term filter.Term) (Clause, error) {
	op := term.Op()
	if !op.IsValid() {
		return Clause{}, fmt.Errorf("%w: %q", domain.ErrUnknownOperator, op)
	}

	if op == filter.Exists {
		fields := make([]string, len(device.Types))
		for i, typ := range device.Types {
			fields[i] = device.FieldName(term.Scope(), term.Attribute(), typ)
		}
		return Clause{Kind: KindExists, Fields: fields, Negate: !term.Flag()}, nil
	}

	typ := term.ValueType()
	if !typ.IsValid() {
		return Clause{}, fmt.Errorf("%w: %s has no operand", domain.ErrInvalidFilterValue, op)
	}
	key := device.Key{Scope: term.Scope(), Name: term.Attribute()}
	if _, seen := t.hints[key]; !seen {
		t.hints[key] = typ
	}

	c := Clause{
		Field:  device.FieldName(term.Scope(), term.Attribute(), typ),
		Type:   typ,
		Values: term.Values(),
		Negate: op.IsNegated(),
	}
	switch op {
	case filter.Eq, filter.Ne:
		c.Kind = KindTerm
	case filter.In, filter.Nin:
		c.Kind = KindTerms
	case filter.Gt, filter.Gte, filter.Lt, filter.Lte:
		if typ == device.TypeBool {
			return Clause{}, fmt.Errorf("%w: %s on a boolean", domain.ErrInvalidFilterValue, op)
		}
		c.Kind = KindRange
		c.Range = rangeFor(op, term.Value())
		c.Values = nil
	case filter.Regex:
		if typ != device.TypeString {
			return Clause{}, fmt.Errorf("%w: %s needs a string pattern", domain.ErrInvalidFilterValue, op)
		}
		c.Kind = KindRegexp
		c.Pattern = term.Value().Str()
		c.Values = nil
	default:
		return Clause{}, fmt.Errorf("%w: %q", domain.ErrUnknownOperator, op)
	}
	return c, nil
}

func rangeFor(op filter.Operator, v device.Value) Range {
	switch op {
	case filter.Gt:
		return Range{GT: &v}
	case filter.Gte:
		return Range{GTE: &v}
	case filter.Lt:
		return Range{LT: &v}
	default:
		return Range{LTE: &v}
	}
}

// sortType picks the field variant for a sort key: the type of a filter on the
// same attribute if any, else the first variant in num, str, bool order that the
// tenant is known to hold, else num.
func (t *translator) sortType(scope, attribute string) device.Type {
	if typ, ok := t.hints[device.Key{Scope: scope, Name: attribute}]; ok {
		return typ
	}
	if t.known != nil {
		for _, typ := range device.Types {
			if _, ok := t.known[device.FieldName(scope, attribute, typ)]; ok {
				return typ
			}
		}
	}
	return device.TypeNumber
}
