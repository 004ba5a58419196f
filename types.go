package devindex

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/devindex/internal/domain/device"
	"github.com/kailas-cloud/devindex/internal/domain/search/filter"
	"github.com/kailas-cloud/devindex/internal/domain/search/request"
)

// Device is a tenant-owned device and its attributes.
type Device struct {
	ID         string
	Name       string
	Attributes []Attribute
	UpdatedAt  time.Time
}

// Attribute is a scoped device attribute. Value is a string, a number or a
// boolean, or a slice of one of those. Search results return single values
// as scalars.
type Attribute struct {
	Scope string
	Name  string
	Value any
}

// Operator is a filter operator.
type Operator = filter.Operator

// Filter operators.
const (
	Eq     = filter.Eq
	Ne     = filter.Ne
	Gt     = filter.Gt
	Gte    = filter.Gte
	Lt     = filter.Lt
	Lte    = filter.Lte
	In     = filter.In
	Nin    = filter.Nin
	Exists = filter.Exists
	Regex  = filter.Regex
)

// Order is a sort direction.
type Order = request.Order

// Sort directions.
const (
	Asc  = request.Asc
	Desc = request.Desc
)

// Result is one page of search results.
type Result struct {
	Devices []Device
	Total   int
	Page    int
	PerPage int
}

func toDomainDevice(d Device) (device.Device, error) {
	out := device.Device{ID: d.ID, Name: d.Name, UpdatedAt: d.UpdatedAt}
	for _, a := range d.Attributes {
		attr, err := device.NewAttribute(a.Scope, a.Name, a.Value)
		if err != nil {
			return device.Device{}, fmt.Errorf("device %s: %w", d.ID, err)
		}
		out.Attributes = append(out.Attributes, attr)
	}
	return out, nil
}

func fromDomainDevice(d device.Device) Device {
	out := Device{ID: d.ID, Name: d.Name, UpdatedAt: d.UpdatedAt}
	for _, a := range d.Attributes {
		out.Attributes = append(out.Attributes, Attribute{Scope: a.Scope, Name: a.Name, Value: a.Scalar()})
	}
	return out
}
