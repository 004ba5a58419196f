package result

import "github.com/kailas-cloud/devindex/internal/domain/device"

// Page is one page of search results plus the total number of matches.
type Page struct {
	devices []device.Device
	total   int
	page    int
	perPage int
}

// New creates a result page.
func New(devices []device.Device, total, page, perPage int) Page {
	if devices == nil {
		devices = []device.Device{}
	}
	return Page{devices: devices, total: total, page: page, perPage: perPage}
}

// Devices returns the devices on this page, in result order.
func (p Page) Devices() []device.Device { return p.devices }

// Total returns the number of matching devices across all pages.
func (p Page) Total() int { return p.total }

// Page returns the 1-based page number.
func (p Page) Page() int { return p.page }

// PerPage returns the page size.
func (p Page) PerPage() int { return p.perPage }

// LastPage returns the number of the last non-empty page (1 when there are no results).
func (p Page) LastPage() int {
	if p.perPage <= 0 || p.total <= 0 {
		return 1
	}
	return (p.total + p.perPage - 1) / p.perPage
}

// HasNext reports whether a page follows this one.
func (p Page) HasNext() bool { return p.page < p.LastPage() }
