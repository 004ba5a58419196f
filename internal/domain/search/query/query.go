package query

import "github.com/kailas-cloud/devindex/internal/domain/device"

// Kind is the shape of a clause.
type Kind int

// Clause kinds.
const (
	// KindTerm matches a field equal to a single value.
	KindTerm Kind = iota + 1
	// KindTerms matches a field equal to any of the values.
	KindTerms
	// KindRange matches a field within the bounds.
	KindRange
	// KindExists matches documents carrying any of the fields.
	KindExists
	// KindRegexp matches a string field against a pattern, anchored on both ends.
	KindRegexp
)

func (k Kind) String() string {
	switch k {
	case KindTerm:
		return "term"
	case KindTerms:
		return "terms"
	case KindRange:
		return "range"
	case KindExists:
		return "exists"
	case KindRegexp:
		return "regexp"
	}
	return "unknown"
}

// Range holds the bounds of a range clause. Unset bounds are nil.
type Range struct {
	GT  *device.Value
	GTE *device.Value
	LT  *device.Value
	LTE *device.Value
}

// Clause is one conjunct of a query, resolved to concrete typed fields.
// A negated clause must not match; documents lacking the field satisfy it.
type Clause struct {
	Kind    Kind
	Field   string
	Fields  []string
	Type    device.Type
	Values  []device.Value
	Range   Range
	Pattern string
	Negate  bool
}

// Sort is a resolved sort key.
type Sort struct {
	Field string
	Type  device.Type
	Desc  bool
}

// Query is the store-neutral form of a search: clauses are AND-ed, sort keys
// apply primary first and drivers break ties by document id.
type Query struct {
	TenantID string
	Clauses  []Clause
	Sort     []Sort
	From     int
	Size     int
}
