package devindex

import "github.com/kailas-cloud/devindex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrUnsupportedType    = domain.ErrUnsupportedType
	ErrUnknownOperator    = domain.ErrUnknownOperator
	ErrInvalidFilterValue = domain.ErrInvalidFilterValue
	ErrInvalidRequest     = domain.ErrInvalidRequest
	ErrStoreUnavailable   = domain.ErrStoreUnavailable
)
