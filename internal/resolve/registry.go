package resolve

import (
	"fmt"
	"sort"

	"github.com/hanpama/sdlresolver/internal/schema"
	"github.com/hanpama/sdlresolver/internal/typeddata"
	"github.com/jensneuse/abstractlogger"
)

// Registry maps schema fields and abstract types to resolvers.
//
// Registration happens while the schema is wired up; once resolution has
// started the registry is only read.
type Registry struct {
	dataTypes      map[string]*typeddata.Definition
	fieldResolvers map[string]map[string]FieldResolverFunc
	typeResolvers  map[string]TypeResolverFunc

	defaultFieldResolver FieldResolverFunc
	defaultTypeResolver  TypeResolverFunc

	logger abstractlogger.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithDefaultFieldResolver replaces the fallback used for unregistered fields.
func WithDefaultFieldResolver(fn FieldResolverFunc) Option {
	return func(r *Registry) { r.defaultFieldResolver = fn }
}

// WithDefaultTypeResolver replaces the fallback used for abstract types
// without a registered resolver.
func WithDefaultTypeResolver(fn TypeResolverFunc) Option {
	return func(r *Registry) { r.defaultTypeResolver = fn }
}

// WithLogger sets the logger that reports fields served by the default
// resolver.
func WithLogger(logger abstractlogger.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry returns an empty registry. dataTypes maps concrete object
// type names to the data definitions used by default type resolution.
func NewRegistry(dataTypes map[string]*typeddata.Definition, opts ...Option) *Registry {
	r := &Registry{
		dataTypes:      dataTypes,
		fieldResolvers: make(map[string]map[string]FieldResolverFunc),
		typeResolvers:  make(map[string]TypeResolverFunc),
		logger:         abstractlogger.NoopLogger,
	}
	r.defaultFieldResolver = r.resolveFieldDefault
	r.defaultTypeResolver = r.resolveTypeDefault
	for _, opt := range opts {
		opt(r)
	}
	if r.dataTypes == nil {
		r.dataTypes = map[string]*typeddata.Definition{}
	}
	return r
}

// AddFieldResolver registers fn for typeName.fieldName. A nil fn is
// accepted here and reported when the field is resolved.
func (r *Registry) AddFieldResolver(typeName, fieldName string, fn FieldResolverFunc) *Registry {
	fields := r.fieldResolvers[typeName]
	if fields == nil {
		fields = make(map[string]FieldResolverFunc)
		r.fieldResolvers[typeName] = fields
	}
	fields[fieldName] = fn
	return r
}

// AddTypeResolver registers fn for the interface or union named abstract.
func (r *Registry) AddTypeResolver(abstract string, fn TypeResolverFunc) *Registry {
	r.typeResolvers[abstract] = fn
	return r
}

// FieldResolver returns the resolver registered for typeName.fieldName.
func (r *Registry) FieldResolver(typeName, fieldName string) (FieldResolverFunc, bool) {
	fn, ok := r.fieldResolvers[typeName][fieldName]
	return fn, ok
}

// TypeResolver returns the resolver registered for abstract.
func (r *Registry) TypeResolver(abstract string) (TypeResolverFunc, bool) {
	fn, ok := r.typeResolvers[abstract]
	return fn, ok
}

// ResolveField resolves info.FieldName on value. A registered resolver's
// result is returned verbatim; otherwise the default field resolver runs.
func (r *Registry) ResolveField(value any, args map[string]any, rc *Context, info *FieldInfo) (any, error) {
	if fn, ok := r.FieldResolver(info.ParentType, info.FieldName); ok {
		if fn == nil {
			return nil, &NotInvocableError{Kind: "field resolver", Type: info.ParentType, Field: info.FieldName}
		}
		return fn(value, args, rc, info)
	}
	r.logger.Debug("resolve.field.default",
		abstractlogger.String("type", info.ParentType),
		abstractlogger.String("field", info.FieldName),
	)
	return r.defaultFieldResolver(value, args, rc, info)
}

// ResolveType names the concrete type of value for the abstract type in
// info. A registered resolver wins when it returns a name; otherwise the
// default type resolver runs. An empty result means unresolvable.
func (r *Registry) ResolveType(value any, rc *Context, info *FieldInfo) (string, error) {
	abstract := abstractTypeName(info)
	if fn, ok := r.TypeResolver(abstract); ok {
		if fn == nil {
			return "", &NotInvocableError{Kind: "type resolver", Type: abstract}
		}
		name, err := fn(value, rc, info)
		if err != nil {
			return "", err
		}
		if name != "" {
			return name, nil
		}
	}
	return r.defaultTypeResolver(value, rc, info)
}

// resolveFieldDefault reads a typed-data property named after the field
// when value exposes one, and falls back to DefaultFieldResolver.
// Leaf fields receive the property's string form.
func (r *Registry) resolveFieldDefault(value any, args map[string]any, rc *Context, info *FieldInfo) (any, error) {
	if data, ok := typeddata.AsComplex(value); ok && typeddata.HasProperty(data, info.FieldName) {
		prop, _ := data.Property(info.FieldName)
		if prop == nil {
			return nil, nil
		}
		if info.returnsComposite() {
			return prop, nil
		}
		return typeddata.String(prop), nil
	}
	return DefaultFieldResolver(value, args, rc, info)
}

// resolveTypeDefault returns the first possible type, in declaration order,
// whose data definition is satisfied by value.
func (r *Registry) resolveTypeDefault(value any, rc *Context, info *FieldInfo) (string, error) {
	if info.Schema == nil {
		return "", nil
	}
	for _, t := range info.Schema.PossibleTypes(abstractTypeName(info)) {
		if def := r.dataTypes[t.Name]; def != nil && def.IsSatisfiedBy(value) {
			return t.Name, nil
		}
	}
	return "", nil
}

// ValidateCompliance lists mismatches between the registry and s:
// resolvers for fields or types s does not declare, and abstract types
// that neither have a type resolver nor data definitions for any of their
// possible types.
func (r *Registry) ValidateCompliance(s *schema.Schema) []string {
	var problems []string
	for typeName, fields := range r.fieldResolvers {
		t := s.Types[typeName]
		if t == nil {
			problems = append(problems, fmt.Sprintf("field resolvers registered for unknown type %s", typeName))
			continue
		}
		for fieldName := range fields {
			if t.Field(fieldName) == nil {
				problems = append(problems, fmt.Sprintf("field resolver registered for unknown field %s.%s", typeName, fieldName))
			}
		}
	}
	for abstract := range r.typeResolvers {
		if t := s.Types[abstract]; t == nil || !t.IsAbstract() {
			problems = append(problems, fmt.Sprintf("type resolver registered for %s, which is not an interface or union", abstract))
		}
	}
	for name, t := range s.Types {
		if !t.IsAbstract() {
			continue
		}
		if _, ok := r.typeResolvers[name]; ok {
			continue
		}
		covered := false
		for _, pt := range t.PossibleTypes {
			if r.dataTypes[pt] != nil {
				covered = true
				break
			}
		}
		if !covered {
			problems = append(problems, fmt.Sprintf("abstract type %s has no type resolver and no data definitions for its possible types", name))
		}
	}
	sort.Strings(problems)
	return problems
}

func abstractTypeName(info *FieldInfo) string {
	if info.AbstractType != "" {
		return info.AbstractType
	}
	return info.ReturnTypeName()
}
