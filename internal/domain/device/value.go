package device

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/kailas-cloud/devindex/internal/domain"
)

// Type is the runtime type tag of an attribute value. It is embedded in indexed field names.
type Type string

const (
	// TypeString tags string values.
	TypeString Type = "str"
	// TypeNumber tags numeric values, integer or floating point.
	TypeNumber Type = "num"
	// TypeBool tags boolean values.
	TypeBool Type = "bool"
)

// Types lists every type tag in sort-precedence order.
var Types = []Type{TypeNumber, TypeString, TypeBool}

// IsValid reports whether t is a known type tag.
func (t Type) IsValid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBool:
		return true
	}
	return false
}

// Value is a tagged union of string, number and boolean.
type Value struct {
	typ Type
	s   string
	n   float64
	b   bool
}

// String creates a string value.
func String(s string) Value { return Value{typ: TypeString, s: s} }

// Number creates a numeric value.
func Number(n float64) Value { return Value{typ: TypeNumber, n: n} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{typ: TypeBool, b: b} }

// ParseValue classifies a decoded scalar. Booleans are checked before numbers.
func ParseValue(raw any) (Value, error) {
	switch v := raw.(type) {
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case json.Number:
		return numberFromJSON(v)
	case float64:
		return numberOf(v)
	case float32:
		return numberOf(float64(v))
	case int:
		return intOf(int64(v))
	case int8:
		return Number(float64(v)), nil
	case int16:
		return Number(float64(v)), nil
	case int32:
		return Number(float64(v)), nil
	case int64:
		return intOf(v)
	case uint:
		return uintOf(uint64(v))
	case uint8:
		return Number(float64(v)), nil
	case uint16:
		return Number(float64(v)), nil
	case uint32:
		return Number(float64(v)), nil
	case uint64:
		return uintOf(v)
	case Value:
		if !v.typ.IsValid() {
			return Value{}, fmt.Errorf("%w: zero value", domain.ErrUnsupportedType)
		}
		return v, nil
	default:
		return Value{}, fmt.Errorf("%w: %T", domain.ErrUnsupportedType, raw)
	}
}

// numberFromJSON converts a decoded JSON number. Integer literals must be
// exactly representable as float64; decimal fractions round as usual.
func numberFromJSON(n json.Number) (Value, error) {
	lit := n.String()
	if !strings.ContainsAny(lit, ".eE") {
		i, ok := new(big.Int).SetString(lit, 10)
		if !ok {
			return Value{}, fmt.Errorf("%w: number %q", domain.ErrUnsupportedType, lit)
		}
		f, acc := new(big.Float).SetInt(i).Float64()
		if acc != big.Exact {
			return Value{}, inexact(lit)
		}
		return Number(f), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("%w: number %q: %w", domain.ErrUnsupportedType, lit, err)
	}
	return numberOf(f)
}

func intOf(i int64) (Value, error) {
	f := float64(i)
	if f >= math.MaxInt64 || int64(f) != i {
		return Value{}, inexact(strconv.FormatInt(i, 10))
	}
	return Number(f), nil
}

func uintOf(u uint64) (Value, error) {
	f := float64(u)
	if f >= math.MaxUint64 || uint64(f) != u {
		return Value{}, inexact(strconv.FormatUint(u, 10))
	}
	return Number(f), nil
}

func inexact(lit string) error {
	return fmt.Errorf("%w: integer %s is not exactly representable", domain.ErrUnsupportedType, lit)
}

func numberOf(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: non-finite number", domain.ErrUnsupportedType)
	}
	return Number(f), nil
}

// Type returns the runtime type tag.
func (v Value) Type() Type { return v.typ }

// Str returns the string payload.
func (v Value) Str() string { return v.s }

// Num returns the numeric payload.
func (v Value) Num() float64 { return v.n }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.b }

// Any returns the payload as a plain Go value (string, float64 or bool).
func (v Value) Any() any {
	switch v.typ {
	case TypeString:
		return v.s
	case TypeNumber:
		return v.n
	case TypeBool:
		return v.b
	}
	return nil
}

// Equal reports whether two values have the same type and payload.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeString:
		return v.s == o.s
	case TypeNumber:
		return v.n == o.n
	case TypeBool:
		return v.b == o.b
	}
	return true
}

// MarshalJSON encodes the payload without the type tag.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

func (v Value) String() string { return fmt.Sprint(v.Any()) }
