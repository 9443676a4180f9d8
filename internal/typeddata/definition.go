package typeddata

import "strings"

var scalarTypes = map[string]bool{
	"any":       true,
	"string":    true,
	"integer":   true,
	"float":     true,
	"boolean":   true,
	"email":     true,
	"uri":       true,
	"timestamp": true,
	"language":  true,
}

// Definition describes the expected shape of a typed value.
//
// DataType uses colon-separated qualifiers, e.g. "entity:node:article".
// A nil Properties map leaves the shape open: any property name is valid.
type Definition struct {
	DataType   string
	Label      string
	Item       *Definition
	Properties map[string]*Definition
	// Condition, when set, must also hold for IsSatisfiedBy to succeed.
	Condition func(value any) bool
}

// NewDefinition returns an open definition of the given data type.
func NewDefinition(dataType string) *Definition {
	return &Definition{DataType: dataType}
}

// ListOf returns a list definition whose items follow item.
func ListOf(item *Definition) *Definition {
	return &Definition{DataType: "list", Item: item}
}

// WithProperty declares a property and returns d.
func (d *Definition) WithProperty(name string, def *Definition) *Definition {
	if d.Properties == nil {
		d.Properties = make(map[string]*Definition)
	}
	d.Properties[name] = def
	return d
}

// IsScalar reports whether d describes a primitive value.
func (d *Definition) IsScalar() bool {
	return d != nil && scalarTypes[d.DataType]
}

// IsList reports whether d describes a list.
func (d *Definition) IsList() bool {
	return d != nil && (d.DataType == "list" || d.Item != nil)
}

// IsSatisfiedBy reports whether value is of d's data type or one of its
// more specific variants.
func (d *Definition) IsSatisfiedBy(value any) bool {
	if d == nil || value == nil {
		return false
	}
	if !matchesDataType(d.DataType, DataTypeOf(value)) {
		return false
	}
	if d.Condition != nil && !d.Condition(value) {
		return false
	}
	return true
}

// matchesDataType reports whether got is want or a qualified variant of
// it. Variants follow a colon; within proto: types a dot separates
// package qualifiers as well, so "proto:cms" matches "proto:cms.Article".
func matchesDataType(want, got string) bool {
	if want == "" || want == "any" || got == want {
		return true
	}
	if strings.HasPrefix(got, want+":") {
		return true
	}
	return strings.HasPrefix(want, "proto:") && strings.HasPrefix(got, want+".")
}

func (d *Definition) property(name string) (*Definition, bool) {
	if d == nil || d.Properties == nil {
		return nil, true
	}
	p, ok := d.Properties[name]
	return p, ok
}

func (d *Definition) item() *Definition {
	if d == nil {
		return nil
	}
	return d.Item
}
