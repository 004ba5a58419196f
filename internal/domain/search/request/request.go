package request

import (
	"fmt"

	"github.com/kailas-cloud/devindex/internal/domain"
	"github.com/kailas-cloud/devindex/internal/domain/device"
	"github.com/kailas-cloud/devindex/internal/domain/search/filter"
)

// Pagination limits.
const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 500
	MaxSortTerms   = 8
	MaxDeviceIDs   = 1000

	// MaxResultWindow bounds offset+per_page, matching the Elasticsearch
	// index.max_result_window default.
	MaxResultWindow = 10000
)

// Order is a sort direction.
type Order string

const (
	// Asc sorts ascending.
	Asc Order = "asc"
	// Desc sorts descending.
	Desc Order = "desc"
)

// Sort is a single sort key over a (scope, attribute) pair.
type Sort struct {
	Scope     string
	Attribute string
	Order     Order
}

// Request is a validated device search: AND-ed filters, composite sort,
// pagination, attribute selection and an optional id allow-list.
type Request struct {
	filters    []filter.Term
	sort       []Sort
	page       int
	perPage    int
	attributes []device.Key
	deviceIDs  []string
}

// New validates and normalizes search parameters.
// Defaults: page=1, per_page=20. per_page is clamped to MaxPerPage and the
// page must end within MaxResultWindow.
func New(
	filters []filter.Term,
	sort []Sort,
	page, perPage int,
	attributes []device.Key,
	deviceIDs []string,
) (Request, error) {
	if len(filters) > filter.MaxTerms {
		return Request{}, fmt.Errorf("%w: too many filters (max %d)", domain.ErrInvalidRequest, filter.MaxTerms)
	}
	if len(sort) > MaxSortTerms {
		return Request{}, fmt.Errorf("%w: too many sort terms (max %d)", domain.ErrInvalidRequest, MaxSortTerms)
	}
	sort = append([]Sort(nil), sort...)
	for i, s := range sort {
		if err := device.ValidateKey(s.Scope, s.Attribute); err != nil {
			return Request{}, fmt.Errorf("sort %d: %w", i, err)
		}
		switch s.Order {
		case Asc, Desc:
		case "":
			sort[i].Order = Asc
		default:
			return Request{}, fmt.Errorf("%w: sort %d: order must be asc or desc, got %q",
				domain.ErrInvalidRequest, i, s.Order)
		}
	}
	for i, a := range attributes {
		if err := device.ValidateKey(a.Scope, a.Name); err != nil {
			return Request{}, fmt.Errorf("attribute %d: %w", i, err)
		}
	}
	if len(deviceIDs) > MaxDeviceIDs {
		return Request{}, fmt.Errorf("%w: too many device ids (max %d)", domain.ErrInvalidRequest, MaxDeviceIDs)
	}
	if page <= 0 {
		page = DefaultPage
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page-1 > (MaxResultWindow-perPage)/perPage {
		return Request{}, fmt.Errorf("%w: page %d is past the result window of %d devices",
			domain.ErrInvalidRequest, page, MaxResultWindow)
	}

	return Request{
		filters:    filters,
		sort:       sort,
		page:       page,
		perPage:    perPage,
		attributes: attributes,
		deviceIDs:  deviceIDs,
	}, nil
}

// Filters returns the AND-ed filter terms in request order.
func (r *Request) Filters() []filter.Term { return r.filters }

// Sort returns the sort keys, primary first.
func (r *Request) Sort() []Sort { return r.sort }

// Page returns the 1-based page number.
func (r *Request) Page() int { return r.page }

// PerPage returns the page size.
func (r *Request) PerPage() int { return r.perPage }

// Offset returns the number of results to skip.
func (r *Request) Offset() int { return (r.page - 1) * r.perPage }

// Attributes returns the attribute selection. Empty means all attributes.
func (r *Request) Attributes() []device.Key { return r.attributes }

// DeviceIDs returns the id allow-list. Empty means no restriction.
func (r *Request) DeviceIDs() []string { return r.deviceIDs }
