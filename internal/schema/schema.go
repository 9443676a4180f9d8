package schema

import "github.com/vektah/gqlparser/v2/ast"

// Schema is the execution schema resolvers are dispatched against.
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type // All named types keyed by name
	Directives       map[string]*Directive
	Description      string

	// AST is the validated source schema when built from SDL. Executable
	// documents are validated against it.
	AST *ast.Schema `json:"-"`
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.Types[s.QueryType] }

// GetMutationType returns the root mutation type (may be nil if absent)
func (s *Schema) GetMutationType() *Type { return s.Types[s.MutationType] }

// GetSubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

// Type is a named type of the schema. Which of the member slices are set
// depends on Kind.
type Type struct {
	Name        string
	Kind        TypeKind
	Description string

	Fields        []*Field // objects and interfaces
	Interfaces    []string
	PossibleTypes []string // interfaces and unions, declaration order
	EnumValues    []*EnumValue
	InputFields   []*InputValue

	SpecifiedByURL *string
	OneOf          bool
	BuiltIn        bool // prelude type, never rendered
}

// Field is an output field of an object or interface type.
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue
	IsDeprecated      bool
	DeprecationReason string
}

// TypeKind is the introspection kind of a named type.
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any
	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
	BuiltIn      bool
}


// Field returns the field named name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// IsAbstract reports whether t is an interface or union.
func (t *Type) IsAbstract() bool {
	return t != nil && (t.Kind == TypeKindInterface || t.Kind == TypeKindUnion)
}

// IsLeaf reports whether t is a scalar or enum.
func (t *Type) IsLeaf() bool {
	return t != nil && (t.Kind == TypeKindScalar || t.Kind == TypeKindEnum)
}

// PossibleTypes returns the concrete types of an abstract type in
// declaration order. For an object type it returns the type itself.
func (s *Schema) PossibleTypes(name string) []*Type {
	t := s.Types[name]
	if t == nil {
		return nil
	}
	if t.Kind == TypeKindObject {
		return []*Type{t}
	}
	out := make([]*Type, 0, len(t.PossibleTypes))
	for _, n := range t.PossibleTypes {
		if pt := s.Types[n]; pt != nil {
			out = append(out, pt)
		}
	}
	return out
}

// IsPossibleType reports whether the object type named concrete can stand
// in for the abstract type named abstract.
func (s *Schema) IsPossibleType(abstract, concrete string) bool {
	if abstract == concrete {
		return true
	}
	for _, t := range s.PossibleTypes(abstract) {
		if t.Name == concrete {
			return true
		}
	}
	return false
}
