package resolve

import "github.com/hanpama/sdlresolver/internal/schema"

// FieldResolverFunc computes a field value. The result may be a
// *deferred.Value.
type FieldResolverFunc func(value any, args map[string]any, rc *Context, info *FieldInfo) (any, error)

// TypeResolverFunc names the concrete object type of value. An empty name
// means the type is unknown.
type TypeResolverFunc func(value any, rc *Context, info *FieldInfo) (string, error)

// Mapping binds producer input names to the steps computing them.
type Mapping map[string]FieldResolverFunc

// Invocable is a configured unit of work usable as a resolver step.
type Invocable interface {
	Invoke(value any, args map[string]any, rc *Context, info *FieldInfo) (any, error)
}

// ProducerSource instantiates named producers with an input mapping.
type ProducerSource interface {
	Instantiate(id string, mapping Mapping) (Invocable, error)
}

// FieldInfo carries the static schema facts of the field being resolved.
type FieldInfo struct {
	ParentType string
	FieldName  string
	ReturnType *schema.TypeRef
	// AbstractType is set while resolving the concrete type of an
	// interface or union value.
	AbstractType string
	// Path is the response path of the field: field names and list indexes.
	Path   []any
	Schema *schema.Schema
}

// ReturnTypeName returns the named type at the core of the return type.
func (i *FieldInfo) ReturnTypeName() string {
	if i == nil || i.ReturnType == nil {
		return ""
	}
	return i.ReturnType.GetNamedType()
}

// returnsComposite reports whether the field yields a list, an object or an
// abstract type rather than a single leaf.
func (i *FieldInfo) returnsComposite() bool {
	if i == nil || i.ReturnType == nil {
		return false
	}
	if schema.IsList(i.ReturnType) {
		return true
	}
	if i.Schema == nil {
		return false
	}
	t := i.Schema.Types[i.ReturnTypeName()]
	return t != nil && !t.IsLeaf()
}
