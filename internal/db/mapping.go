package db

import (
	"errors"
	"path"
	"strconv"

	"github.com/kailas-cloud/devindex/internal/domain/device"
	"github.com/kailas-cloud/devindex/internal/domain/document"
)

// FieldType is the index type assigned to a field.
type FieldType string

// Field types understood by the drivers.
const (
	FieldKeyword FieldType = "keyword"
	FieldDouble  FieldType = "double"
	FieldBoolean FieldType = "boolean"
	FieldDate    FieldType = "date"
)

// MappingField is a statically mapped field.
type MappingField struct {
	Name string
	Type FieldType
}

// DynamicRule maps every field matching a glob to a type.
type DynamicRule struct {
	Name  string
	Match string
	Type  FieldType
}

// MappingDefinition describes how the devices index types its fields.
type MappingDefinition struct {
	Name     string
	Shards   int
	Replicas int
	Fields   []MappingField
	Dynamic  []DynamicRule
}

// MappingBuilder is a fluent builder for mapping definitions.
type MappingBuilder struct {
	def MappingDefinition
}

// NewMapping starts building a mapping for the named index.
func NewMapping(name string) *MappingBuilder {
	return &MappingBuilder{def: MappingDefinition{Name: name, Shards: 1, Replicas: 1}}
}

// Shards sets the primary shard count.
func (b *MappingBuilder) Shards(n int) *MappingBuilder {
	b.def.Shards = n
	return b
}

// Replicas sets the replica count.
func (b *MappingBuilder) Replicas(n int) *MappingBuilder {
	b.def.Replicas = n
	return b
}

// Keyword adds an exact-match string field.
func (b *MappingBuilder) Keyword(name string) *MappingBuilder {
	b.def.Fields = append(b.def.Fields, MappingField{Name: name, Type: FieldKeyword})
	return b
}

// Date adds a timestamp field.
func (b *MappingBuilder) Date(name string) *MappingBuilder {
	b.def.Fields = append(b.def.Fields, MappingField{Name: name, Type: FieldDate})
	return b
}

// Dynamic adds a rule typing all fields that match the glob.
func (b *MappingBuilder) Dynamic(name, match string, typ FieldType) *MappingBuilder {
	b.def.Dynamic = append(b.def.Dynamic, DynamicRule{Name: name, Match: match, Type: typ})
	return b
}

// Build validates and returns the mapping definition.
func (b *MappingBuilder) Build() (*MappingDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}

// MustBuild calls Build and panics on error.
func (b *MappingBuilder) MustBuild() *MappingDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// DeviceMapping is the mapping for device documents: reserved fields are static,
// typed attribute fields are typed by their suffix.
func DeviceMapping(name string, shards, replicas int) *MappingBuilder {
	b := NewMapping(name).
		Shards(shards).
		Replicas(replicas).
		Keyword(document.FieldID).
		Keyword(document.FieldTenantID).
		Keyword(document.FieldName).
		Date(document.FieldUpdatedAt)
	for _, typ := range device.Types {
		b.Dynamic(string(typ)+"_values", "*_"+string(typ), fieldTypeOf(typ))
	}
	return b
}

func fieldTypeOf(t device.Type) FieldType {
	switch t {
	case device.TypeNumber:
		return FieldDouble
	case device.TypeBool:
		return FieldBoolean
	default:
		return FieldKeyword
	}
}

// Validate checks that the mapping definition is well-formed.
func (m *MappingDefinition) Validate() error {
	if m.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(m.Name) {
		return errors.New("index name contains invalid characters")
	}
	if m.Shards <= 0 {
		return errors.New("shards must be positive")
	}
	if m.Replicas < 0 {
		return errors.New("replicas must not be negative")
	}

	seen := make(map[string]bool)
	for i := range m.Fields {
		f := &m.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true
	}
	for i := range m.Dynamic {
		r := &m.Dynamic[i]
		if r.Name == "" || r.Match == "" {
			return errors.New("dynamic rule name and match are required at index " + strconv.Itoa(i))
		}
		if _, err := path.Match(r.Match, ""); err != nil {
			return errors.New("dynamic rule " + r.Name + " has a bad pattern")
		}
	}
	return nil
}

// TypeOf returns the index type of a field, static fields first.
func (m *MappingDefinition) TypeOf(field string) (FieldType, bool) {
	for _, f := range m.Fields {
		if f.Name == field {
			return f.Type, true
		}
	}
	for _, r := range m.Dynamic {
		if ok, _ := path.Match(r.Match, field); ok {
			return r.Type, true
		}
	}
	return "", false
}

// IsValidIdentifier returns true if s matches [a-z0-9_.-]+, the lowercase set
// both drivers accept for index names.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isLower := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == '.' || r == '-'
		if !isLower && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
