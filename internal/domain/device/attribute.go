package device

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/devindex/internal/domain"
)

// Well-known attribute scopes.
const (
	ScopeInventory = "inventory"
	ScopeIdentity  = "identity"
	ScopeSystem    = "system"
	ScopeTags      = "tags"
)

// Attribute is a scoped, possibly multi-valued device attribute.
// A scalar attribute holds exactly one value.
type Attribute struct {
	Scope  string
	Name   string
	Values []Value
}

// NewAttribute parses raw, a scalar or a slice of scalars, into an Attribute.
func NewAttribute(scope, name string, raw any) (Attribute, error) {
	if err := ValidateKey(scope, name); err != nil {
		return Attribute{}, err
	}
	values, err := parseValues(raw)
	if err != nil {
		return Attribute{}, fmt.Errorf("attribute %s/%s: %w", scope, name, err)
	}
	return Attribute{Scope: scope, Name: name, Values: values}, nil
}

func parseValues(raw any) ([]Value, error) {
	switch v := raw.(type) {
	case []any:
		out := make([]Value, 0, len(v))
		for _, item := range v {
			if _, nested := item.([]any); nested {
				return nil, fmt.Errorf("%w: nested array", domain.ErrUnsupportedType)
			}
			val, err := ParseValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case []string:
		out := make([]Value, len(v))
		for i, s := range v {
			out[i] = String(s)
		}
		return out, nil
	case []float64:
		out := make([]Value, 0, len(v))
		for _, f := range v {
			val, err := numberOf(f)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case []bool:
		out := make([]Value, len(v))
		for i, b := range v {
			out[i] = Bool(b)
		}
		return out, nil
	case []Value:
		return append([]Value(nil), v...), nil
	default:
		val, err := ParseValue(raw)
		if err != nil {
			return nil, err
		}
		return []Value{val}, nil
	}
}

// Sequence returns the values as a list, even for a scalar attribute.
func (a Attribute) Sequence() []any {
	out := make([]any, len(a.Values))
	for i, v := range a.Values {
		out[i] = v.Any()
	}
	return out
}

// Scalar returns the bare value of a single-valued attribute and the list otherwise.
func (a Attribute) Scalar() any {
	if len(a.Values) == 1 {
		return a.Values[0].Any()
	}
	return a.Sequence()
}

// ValidateKey checks a (scope, name) pair. The scope ends at the first
// underscore of a typed field name, so it must not contain one.
func ValidateKey(scope, name string) error {
	if scope == "" || name == "" {
		return fmt.Errorf("%w: attribute scope and name are required", domain.ErrInvalidRequest)
	}
	if strings.ContainsRune(scope, '_') {
		return fmt.Errorf("%w: attribute scope %q must not contain '_'", domain.ErrInvalidRequest, scope)
	}
	return nil
}

// FieldName builds the typed field name scope_name_tag. Dots in the name are
// escaped so the store never reads them as object paths.
func FieldName(scope, name string, t Type) string {
	return scope + "_" + escapeName(name) + "_" + string(t)
}

// escapeName turns '\' into `\\` and '.' into `\d`.
func escapeName(name string) string {
	if !strings.ContainsAny(name, `.\`) {
		return name
	}
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '.':
			b.WriteString(`\d`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func unescapeName(name string) (string, bool) {
	if !strings.ContainsRune(name, '\\') {
		return name, true
	}
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		if name[i] != '\\' {
			b.WriteByte(name[i])
			continue
		}
		if i+1 == len(name) {
			return "", false
		}
		i++
		switch name[i] {
		case '\\':
			b.WriteByte('\\')
		case 'd':
			b.WriteByte('.')
		default:
			return "", false
		}
	}
	return b.String(), true
}

// ParseFieldName splits a typed field name into scope, name and type tag.
// The scope ends at the first underscore and the tag starts after the last one.
func ParseFieldName(field string) (scope, name string, t Type, ok bool) {
	first := strings.IndexByte(field, '_')
	last := strings.LastIndexByte(field, '_')
	if first <= 0 || last <= first+1 || last == len(field)-1 {
		return "", "", "", false
	}
	t = Type(field[last+1:])
	if !t.IsValid() {
		return "", "", "", false
	}
	name, ok = unescapeName(field[first+1 : last])
	if !ok {
		return "", "", "", false
	}
	return field[:first], name, t, true
}
