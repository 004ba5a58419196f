package document

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/devindex/internal/domain/device"
)

// Reserved document fields that are not attributes.
const (
	FieldID        = "id"
	FieldTenantID  = "tenantID"
	FieldName      = "name"
	FieldUpdatedAt = "updatedAt"
)

// Document is the flat, indexed form of a device.
// Attribute values live under typed field names and are always lists.
type Document struct {
	ID       string
	TenantID string
	Fields   map[string]any
}

// Encode flattens a device into its typed-field projection.
// The raw attribute list is not kept; each value goes to scope_name_tag.
func Encode(tenantID string, d device.Device) (Document, error) {
	if tenantID == "" {
		return Document{}, fmt.Errorf("tenant ID is required")
	}
	if d.ID == "" {
		return Document{}, fmt.Errorf("device ID is required")
	}

	fields := map[string]any{
		FieldID:       d.ID,
		FieldTenantID: tenantID,
	}
	if d.Name != "" {
		fields[FieldName] = d.Name
	}
	if !d.UpdatedAt.IsZero() {
		fields[FieldUpdatedAt] = d.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}

	for _, attr := range d.Attributes {
		if err := device.ValidateKey(attr.Scope, attr.Name); err != nil {
			return Document{}, err
		}
		for _, v := range attr.Values {
			if _, err := device.ParseValue(v); err != nil {
				return Document{}, fmt.Errorf("attribute %s/%s: %w", attr.Scope, attr.Name, err)
			}
			field := device.FieldName(attr.Scope, attr.Name, v.Type())
			if isReserved(field) {
				return Document{}, fmt.Errorf("attribute %s/%s collides with reserved field", attr.Scope, attr.Name)
			}
			list, _ := fields[field].([]any)
			fields[field] = append(list, v.Any())
		}
	}

	return Document{ID: d.ID, TenantID: tenantID, Fields: fields}, nil
}

// Decode restores a device from a stored document. Attribute values come back
// as lists regardless of the cardinality they were written with.
func Decode(doc Document) device.Device {
	d := device.Device{ID: doc.ID, TenantID: doc.TenantID}
	if s, ok := doc.Fields[FieldID].(string); ok && d.ID == "" {
		d.ID = s
	}
	if s, ok := doc.Fields[FieldTenantID].(string); ok && d.TenantID == "" {
		d.TenantID = s
	}
	d.Name = firstString(doc.Fields[FieldName])
	if ts := firstString(doc.Fields[FieldUpdatedAt]); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			d.UpdatedAt = t
		}
	}
	d.Attributes = DecodeAttributes(doc.Fields)
	return d
}

// DecodeAttributes maps typed fields back to attributes, merging the type
// variants of one (scope, name). Fields that are not typed attributes are skipped.
func DecodeAttributes(fields map[string]any) []device.Attribute {
	type entry struct {
		key    device.Key
		byType map[device.Type][]device.Value
	}
	entries := make(map[device.Key]*entry)

	for field, raw := range fields {
		if isReserved(field) {
			continue
		}
		scope, name, typ, ok := device.ParseFieldName(field)
		if !ok {
			continue
		}
		values := valuesOf(raw, typ)
		if len(values) == 0 {
			continue
		}
		k := device.Key{Scope: scope, Name: name}
		e, ok := entries[k]
		if !ok {
			e = &entry{key: k, byType: make(map[device.Type][]device.Value)}
			entries[k] = e
		}
		e.byType[typ] = append(e.byType[typ], values...)
	}

	out := make([]device.Attribute, 0, len(entries))
	for _, e := range entries {
		attr := device.Attribute{Scope: e.key.Scope, Name: e.key.Name}
		for _, t := range []device.Type{device.TypeString, device.TypeNumber, device.TypeBool} {
			attr.Values = append(attr.Values, e.byType[t]...)
		}
		out = append(out, attr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope != out[j].Scope {
			return out[i].Scope < out[j].Scope
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// valuesOf normalizes a stored field (scalar or list) and drops values whose
// runtime type disagrees with the field's tag.
func valuesOf(raw any, typ device.Type) []device.Value {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case nil:
		return nil
	default:
		items = []any{v}
	}
	out := make([]device.Value, 0, len(items))
	for _, item := range items {
		v, err := device.ParseValue(item)
		if err != nil || v.Type() != typ {
			continue
		}
		out = append(out, v)
	}
	return out
}

func firstString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			s, _ := v[0].(string)
			return s
		}
	}
	return ""
}

func isReserved(field string) bool {
	switch field {
	case FieldID, FieldTenantID, FieldName, FieldUpdatedAt:
		return true
	}
	return strings.HasPrefix(field, "_")
}
