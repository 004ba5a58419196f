package document

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/devindex/internal/domain"
	"github.com/kailas-cloud/devindex/internal/domain/device"
)

const tenant = "123456789012345678901234"

func mustAttr(t *testing.T, scope, name string, raw any) device.Attribute {
	t.Helper()
	a, err := device.NewAttribute(scope, name, raw)
	if err != nil {
		t.Fatalf("NewAttribute: %v", err)
	}
	return a
}

func TestEncode_TypedFields(t *testing.T) {
	d := device.Device{
		ID:   "d1",
		Name: "rpi",
		Attributes: []device.Attribute{
			mustAttr(t, "inventory", "string", "Lorem ipsum dolor sit amet"),
			mustAttr(t, "inventory", "number", float64(int64(1)<<47)),
			mustAttr(t, "inventory", "enabled", true),
		},
	}

	doc, err := Encode(tenant, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != "d1" || doc.TenantID != tenant {
		t.Errorf("got id=%q tenant=%q", doc.ID, doc.TenantID)
	}
	if doc.Fields[FieldTenantID] != tenant {
		t.Errorf("tenantID field = %v", doc.Fields[FieldTenantID])
	}

	tests := []struct {
		field string
		want  any
	}{
		{"inventory_string_str", "Lorem ipsum dolor sit amet"},
		{"inventory_number_num", float64(int64(1) << 47)},
		{"inventory_enabled_bool", true},
	}
	for _, tt := range tests {
		list, ok := doc.Fields[tt.field].([]any)
		if !ok {
			t.Fatalf("field %s missing or not a list: %#v", tt.field, doc.Fields[tt.field])
		}
		if len(list) != 1 || list[0] != tt.want {
			t.Errorf("field %s = %v, want [%v]", tt.field, list, tt.want)
		}
	}
	if _, ok := doc.Fields["attributes"]; ok {
		t.Error("raw attributes must not be persisted")
	}
}

func TestEncode_SameNameDifferentTypes(t *testing.T) {
	d := device.Device{ID: "d1", Attributes: []device.Attribute{
		mustAttr(t, "inventory", "number", "42"),
	}}
	doc, err := Encode(tenant, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other, err := Encode(tenant, device.Device{ID: "d2", Attributes: []device.Attribute{
		mustAttr(t, "inventory", "number", 42),
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := doc.Fields["inventory_number_str"]; !ok {
		t.Error("expected inventory_number_str")
	}
	if _, ok := other.Fields["inventory_number_num"]; !ok {
		t.Error("expected inventory_number_num")
	}
}

func TestEncode_ScopesAreIndependent(t *testing.T) {
	d := device.Device{ID: "d1", Attributes: []device.Attribute{
		mustAttr(t, "inventory", "mac", "a"),
		mustAttr(t, "identity", "mac", "b"),
	}}
	doc, err := Encode(tenant, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Fields["inventory_mac_str"].([]any)[0] != "a" || doc.Fields["identity_mac_str"].([]any)[0] != "b" {
		t.Errorf("scopes collided: %v", doc.Fields)
	}
}

func TestEncode_Errors(t *testing.T) {
	if _, err := Encode("", device.Device{ID: "x"}); err == nil {
		t.Error("expected error for empty tenant")
	}
	if _, err := Encode(tenant, device.Device{}); err == nil {
		t.Error("expected error for empty device id")
	}
	bad := device.Device{ID: "x", Attributes: []device.Attribute{
		{Scope: "inventory", Name: "broken", Values: []device.Value{{}}},
	}}
	if _, err := Encode(tenant, bad); !errors.Is(err, domain.ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
	underscored := device.Device{ID: "x", Attributes: []device.Attribute{
		{Scope: "my_scope", Name: "x", Values: []device.Value{device.String("v")}},
	}}
	if _, err := Encode(tenant, underscored); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("scope with underscore: expected ErrInvalidRequest, got %v", err)
	}
}

func TestDecode_DottedNamesRoundTrip(t *testing.T) {
	d := device.Device{ID: "d1", Attributes: []device.Attribute{
		mustAttr(t, "inventory", "rootfs-image.version", "3.1.0"),
		mustAttr(t, "inventory", "rootfs-image", "core"),
		mustAttr(t, "identity", "mac_address", "00:11"),
	}}
	doc, err := Encode(tenant, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for field := range doc.Fields {
		if strings.Contains(field, ".") {
			t.Errorf("field %q contains a dot", field)
		}
	}

	got := Decode(doc)
	for _, a := range d.Attributes {
		back, ok := got.Attribute(a.Scope, a.Name)
		if !ok || len(back.Values) != 1 || !back.Values[0].Equal(a.Values[0]) {
			t.Errorf("%s/%s = %+v", a.Scope, a.Name, back)
		}
	}
	if len(got.Attributes) != len(d.Attributes) {
		t.Errorf("attributes = %+v", got.Attributes)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d := device.Device{
		ID:        "d1",
		Name:      "rpi",
		UpdatedAt: updated,
		Attributes: []device.Attribute{
			mustAttr(t, "inventory", "string", "Lorem"),
			mustAttr(t, "inventory", "number", 420.69),
			mustAttr(t, "system", "group", "prod"),
		},
	}
	doc, err := Encode(tenant, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := Decode(doc)
	if got.ID != "d1" || got.TenantID != tenant || got.Name != "rpi" {
		t.Errorf("identity fields: %+v", got)
	}
	if !got.UpdatedAt.Equal(updated) {
		t.Errorf("updatedAt = %v, want %v", got.UpdatedAt, updated)
	}
	if len(got.Attributes) != 3 {
		t.Fatalf("expected 3 attributes, got %d: %+v", len(got.Attributes), got.Attributes)
	}
	num, ok := got.Attribute("inventory", "number")
	if !ok || len(num.Values) != 1 || num.Values[0].Num() != 420.69 {
		t.Errorf("number attribute = %+v", num)
	}
	if seq := num.Sequence(); len(seq) != 1 {
		t.Errorf("decoded values must be sequences, got %v", seq)
	}
}

func TestDecodeAttributes_ScalarStoredFields(t *testing.T) {
	// Stores may hand back single-valued fields unwrapped.
	attrs := DecodeAttributes(map[string]any{
		"id":                   "d1",
		"inventory_number_num": float64(7),
		"inventory_flag_bool":  true,
		"inventory_label_str":  []any{"a", "b"},
		"inventory_odd_num":    "not a number",
		"garbage":              1,
	})
	if len(attrs) != 3 {
		t.Fatalf("expected 3 attributes, got %+v", attrs)
	}
	if attrs[0].Name != "flag" || attrs[1].Name != "label" || attrs[2].Name != "number" {
		t.Errorf("attributes not sorted by name: %+v", attrs)
	}
	if len(attrs[1].Values) != 2 {
		t.Errorf("label values = %v", attrs[1].Values)
	}
}

func TestDecodeAttributes_MergesTypeVariants(t *testing.T) {
	attrs := DecodeAttributes(map[string]any{
		"inventory_number_str": []any{"42"},
		"inventory_number_num": []any{float64(42)},
	})
	if len(attrs) != 1 {
		t.Fatalf("expected one merged attribute, got %+v", attrs)
	}
	if len(attrs[0].Values) != 2 || attrs[0].Values[0].Type() != device.TypeString {
		t.Errorf("values = %+v", attrs[0].Values)
	}
}
