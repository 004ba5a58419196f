package filter

import (
	"fmt"
	"regexp/syntax"

	"github.com/kailas-cloud/devindex/internal/domain"
	"github.com/kailas-cloud/devindex/internal/domain/device"
)

// MaxTerms is the maximum number of filter terms per request.
const MaxTerms = 64

// Operator is a filter term type.
type Operator string

// Supported operators.
const (
	Eq     Operator = "$eq"
	Ne     Operator = "$ne"
	Gt     Operator = "$gt"
	Gte    Operator = "$gte"
	Lt     Operator = "$lt"
	Lte    Operator = "$lte"
	In     Operator = "$in"
	Nin    Operator = "$nin"
	Exists Operator = "$exists"
	Regex  Operator = "$regex"
)

// IsValid reports whether o is a supported operator.
func (o Operator) IsValid() bool {
	switch o {
	case Eq, Ne, Gt, Gte, Lt, Lte, In, Nin, Exists, Regex:
		return true
	}
	return false
}

// IsRange reports whether o is one of the range bounds.
func (o Operator) IsRange() bool {
	return o == Gt || o == Gte || o == Lt || o == Lte
}

// IsNegated reports whether o also matches documents lacking the field.
func (o Operator) IsNegated() bool { return o == Ne || o == Nin }

// Term is a single validated filter: scope/attribute, operator and a value whose
// shape fits the operator.
type Term struct {
	scope     string
	attribute string
	op        Operator
	values    []device.Value
	flag      bool
}

// NewTerm validates and creates a Term.
// $in/$nin take a non-empty list of one type, $exists a boolean,
// $regex a pattern string, the rest a scalar. Range bounds reject booleans.
func NewTerm(scope, attribute string, op Operator, value any) (Term, error) {
	if err := device.ValidateKey(scope, attribute); err != nil {
		return Term{}, fmt.Errorf("filter: %w", err)
	}
	if !op.IsValid() {
		return Term{}, fmt.Errorf("%w: %q", domain.ErrUnknownOperator, op)
	}
	t := Term{scope: scope, attribute: attribute, op: op}

	switch op {
	case Exists:
		b, ok := value.(bool)
		if !ok {
			return Term{}, invalidValue(op, "a boolean", value)
		}
		t.flag = b
	case In, Nin:
		values, err := parseList(value)
		if err != nil {
			return Term{}, fmt.Errorf("%w: %s: %w", domain.ErrInvalidFilterValue, op, err)
		}
		t.values = values
	case Regex:
		pattern, ok := value.(string)
		if !ok {
			return Term{}, invalidValue(op, "a string pattern", value)
		}
		if _, err := syntax.Parse(pattern, syntax.Perl); err != nil {
			return Term{}, fmt.Errorf("%w: %s: %w", domain.ErrInvalidFilterValue, op, err)
		}
		t.values = []device.Value{device.String(pattern)}
	default:
		v, err := parseScalar(value)
		if err != nil {
			return Term{}, fmt.Errorf("%w: %s expects a scalar: %w", domain.ErrInvalidFilterValue, op, err)
		}
		if op.IsRange() && v.Type() == device.TypeBool {
			return Term{}, invalidValue(op, "a string or number", value)
		}
		t.values = []device.Value{v}
	}
	return t, nil
}

func invalidValue(op Operator, want string, got any) error {
	return fmt.Errorf("%w: %s expects %s, got %T", domain.ErrInvalidFilterValue, op, want, got)
}

func parseScalar(value any) (device.Value, error) {
	switch value.(type) {
	case []any, []string, []float64, []bool, nil:
		return device.Value{}, fmt.Errorf("got %T", value)
	}
	return device.ParseValue(value)
}

func parseList(value any) ([]device.Value, error) {
	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	case []float64:
		for _, f := range v {
			items = append(items, f)
		}
	default:
		return nil, fmt.Errorf("expects a list, got %T", value)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("list is empty")
	}
	out := make([]device.Value, 0, len(items))
	for _, item := range items {
		v, err := parseScalar(item)
		if err != nil {
			return nil, fmt.Errorf("list item %v: %w", item, err)
		}
		if len(out) > 0 && v.Type() != out[0].Type() {
			return nil, fmt.Errorf("list mixes %s and %s values", out[0].Type(), v.Type())
		}
		out = append(out, v)
	}
	return out, nil
}

// Scope returns the attribute scope.
func (t Term) Scope() string { return t.scope }

// Attribute returns the attribute name.
func (t Term) Attribute() string { return t.attribute }

// Op returns the operator.
func (t Term) Op() Operator { return t.op }

// Values returns the operand values: one for scalar operators, the set for $in/$nin,
// the pattern for $regex, none for $exists.
func (t Term) Values() []device.Value { return t.values }

// Value returns the first operand.
func (t Term) Value() device.Value {
	if len(t.values) == 0 {
		return device.Value{}
	}
	return t.values[0]
}

// Flag returns the $exists flag.
func (t Term) Flag() bool { return t.flag }

// ValueType returns the runtime type of the operand. $exists has none.
func (t Term) ValueType() device.Type {
	if len(t.values) == 0 {
		return ""
	}
	return t.values[0].Type()
}
