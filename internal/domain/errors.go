package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedType signals an attribute value that is not a string, number or boolean.
	ErrUnsupportedType = errors.New("unsupported attribute type")
	// ErrUnknownOperator signals a filter operator outside the supported set.
	ErrUnknownOperator = errors.New("unknown filter operator")
	// ErrInvalidFilterValue signals a filter value whose shape does not fit its operator.
	ErrInvalidFilterValue = errors.New("invalid filter value")
	// ErrInvalidRequest signals a malformed search request (missing scope, bad sort order, etc).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnauthorized signals a missing or invalid caller credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnknownService signals a reindex request naming an unknown upstream service.
	ErrUnknownService = errors.New("unknown service name")

	// ErrStoreUnavailable signals a document store timeout or connection failure.
	ErrStoreUnavailable = errors.New("document store unavailable")
	// ErrInventoryUnavailable signals a failed call to the inventory collaborator.
	ErrInventoryUnavailable = errors.New("inventory service unavailable")
	// ErrQueueUnavailable signals a full or unreachable reindex job queue.
	ErrQueueUnavailable = errors.New("job queue unavailable")
)

// FilterError wraps a translation error with the position and target of the offending filter.
type FilterError struct {
	Index     int
	Scope     string
	Attribute string
	Err       error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %d (%s/%s): %s", e.Index, e.Scope, e.Attribute, e.Err.Error())
}

func (e *FilterError) Unwrap() error { return e.Err }

// NewFilterError creates a FilterError.
func NewFilterError(index int, scope, attribute string, err error) error {
	return &FilterError{Index: index, Scope: scope, Attribute: attribute, Err: err}
}
