package device

import "time"

// Device is a tenant-owned device with its current attribute set.
type Device struct {
	ID         string
	TenantID   string
	Name       string
	Attributes []Attribute
	UpdatedAt  time.Time
}

// Attribute returns the attribute with the given scope and name.
func (d Device) Attribute(scope, name string) (Attribute, bool) {
	for _, a := range d.Attributes {
		if a.Scope == scope && a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Select keeps only the attributes listed in keys. An empty list keeps everything.
func (d Device) Select(keys []Key) Device {
	if len(keys) == 0 {
		return d
	}
	want := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	kept := make([]Attribute, 0, len(keys))
	for _, a := range d.Attributes {
		if _, ok := want[Key{Scope: a.Scope, Name: a.Name}]; ok {
			kept = append(kept, a)
		}
	}
	d.Attributes = kept
	return d
}

// Key identifies an attribute by scope and name.
type Key struct {
	Scope string
	Name  string
}
