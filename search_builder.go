package devindex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/devindex/internal/domain/device"
	"github.com/kailas-cloud/devindex/internal/domain/search/filter"
	"github.com/kailas-cloud/devindex/internal/domain/search/request"
)

// SearchBuilder is a fluent builder for device queries. Filters are AND-ed.
// The first invalid call is reported by Do.
type SearchBuilder struct {
	client   *Client
	tenantID string

	filters    []filter.Term
	sort       []request.Sort
	page       int
	perPage    int
	attributes []device.Key
	deviceIDs  []string

	err error
}

// Where adds a filter on the attribute. value must fit op: a list for In and
// Nin, a boolean for Exists, a pattern for Regex, a scalar otherwise.
func (b *SearchBuilder) Where(scope, attribute string, op Operator, value any) *SearchBuilder {
	if b.err != nil {
		return b
	}
	t, err := filter.NewTerm(scope, attribute, op, value)
	if err != nil {
		b.err = fmt.Errorf("filter %d: %w", len(b.filters), err)
		return b
	}
	b.filters = append(b.filters, t)
	return b
}

// SortBy adds a sort key. Keys apply in the order they are added.
func (b *SearchBuilder) SortBy(scope, attribute string, order Order) *SearchBuilder {
	b.sort = append(b.sort, request.Sort{Scope: scope, Attribute: attribute, Order: order})
	return b
}

// Page selects a 1-based page of perPage results.
func (b *SearchBuilder) Page(page, perPage int) *SearchBuilder {
	b.page = page
	b.perPage = perPage
	return b
}

// Select limits returned attributes to the listed one. Call repeatedly to add more.
func (b *SearchBuilder) Select(scope, attribute string) *SearchBuilder {
	b.attributes = append(b.attributes, device.Key{Scope: scope, Name: attribute})
	return b
}

// IDs restricts results to the listed device ids.
func (b *SearchBuilder) IDs(ids ...string) *SearchBuilder {
	b.deviceIDs = append(b.deviceIDs, ids...)
	return b
}

// Do runs the query.
func (b *SearchBuilder) Do(ctx context.Context) (Result, error) {
	if b.err != nil {
		return Result{}, fmt.Errorf("search: %w", b.err)
	}
	if b.tenantID == "" {
		return Result{}, fmt.Errorf("search: %w: %w", ErrInvalidRequest, errNoTenant)
	}
	req, err := request.New(b.filters, b.sort, b.page, b.perPage, b.attributes, b.deviceIDs)
	if err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}
	page, err := b.client.searchSvc.Search(ctx, b.tenantID, req)
	if err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}

	res := Result{
		Devices: make([]Device, 0, len(page.Devices())),
		Total:   page.Total(),
		Page:    page.Page(),
		PerPage: page.PerPage(),
	}
	for _, d := range page.Devices() {
		res.Devices = append(res.Devices, fromDomainDevice(d))
	}
	return res, nil
}
