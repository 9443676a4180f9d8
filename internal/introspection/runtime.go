package introspection

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	executor "github.com/hanpama/sdlresolver/internal/executor"
	schema "github.com/hanpama/sdlresolver/internal/schema"
)

// Wrap returns a Runtime answering __schema and __type from original and
// the fields of the introspection types. Everything else goes to base.
// Execute against Extend(original).
func Wrap(base executor.Runtime, original *schema.Schema) executor.Runtime {
	return &runtime{base: base, schema: original}
}

type runtime struct {
	base   executor.Runtime
	schema *schema.Schema
}

func (r *runtime) ResolveField(ctx context.Context, field executor.FieldContext, source any, args map[string]any) (any, error) {
	if v, ok := r.resolveMeta(field, source, args); ok {
		return v, nil
	}
	return r.base.ResolveField(ctx, field, source, args)
}

func (r *runtime) Settle(ctx context.Context, value any) (any, error) {
	return r.base.Settle(ctx, value)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any, field executor.FieldContext) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value, field)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	switch typeName {
	case "__TypeKind", "__DirectiveLocation":
		return fmt.Sprint(value), nil
	}
	return r.base.SerializeLeafValue(ctx, typeName, value)
}

func (r *runtime) resolveMeta(field executor.FieldContext, source any, args map[string]any) (any, bool) {
	if field.ObjectType == r.schema.QueryType {
		switch field.Field {
		case "__schema":
			return r.schema, true
		case "__type":
			name, _ := args["name"].(string)
			if t := r.schema.Types[name]; t != nil {
				return t, true
			}
			return nil, true
		}
	}
	switch src := source.(type) {
	case *schema.Schema:
		return schemaField(src, field.Field)
	case *schema.Type:
		return typeField(r.schema, src, field.Field, args)
	case *schema.TypeRef:
		return typeRefField(r.schema, src, field.Field, args)
	case *schema.Field:
		return fieldField(src, field.Field, args)
	case *schema.InputValue:
		return inputValueField(src, field.Field)
	case *schema.EnumValue:
		return enumValueField(src, field.Field)
	case *schema.Directive:
		return directiveField(src, field.Field, args)
	}
	return nil, false
}

func schemaField(s *schema.Schema, field string) (any, bool) {
	switch field {
	case "types":
		out := make([]*schema.Type, 0, len(s.Types))
		for _, t := range s.Types {
			out = append(out, t)
		}
		return byName(out, func(t *schema.Type) string { return t.Name }), true
	case "queryType":
		return orNil(s.GetQueryType()), true
	case "mutationType":
		return orNil(s.GetMutationType()), true
	case "subscriptionType":
		return orNil(s.GetSubscriptionType()), true
	case "directives":
		out := make([]*schema.Directive, 0, len(s.Directives))
		for _, d := range s.Directives {
			out = append(out, d)
		}
		return byName(out, func(d *schema.Directive) string { return d.Name }), true
	case "description":
		return optional(s.Description), true
	}
	return nil, false
}

func typeField(s *schema.Schema, t *schema.Type, field string, args map[string]any) (any, bool) {
	switch field {
	case "kind":
		return string(t.Kind), true
	case "name":
		return t.Name, true
	case "description":
		return optional(t.Description), true
	case "specifiedByURL":
		if t.SpecifiedByURL == nil {
			return nil, true
		}
		return *t.SpecifiedByURL, true
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		return visible(t.Fields, args, func(f *schema.Field) bool { return f.IsDeprecated }), true
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		return lookupTypes(s, t.Interfaces), true
	case "possibleTypes":
		if !t.IsAbstract() {
			return nil, true
		}
		return lookupTypes(s, t.PossibleTypes), true
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil, true
		}
		return visible(t.EnumValues, args, func(v *schema.EnumValue) bool { return v.IsDeprecated }), true
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil, true
		}
		return visible(t.InputFields, args, func(v *schema.InputValue) bool { return v.IsDeprecated }), true
	case "isOneOf":
		return t.OneOf, true
	case "ofType":
		return nil, true
	}
	return nil, false
}

// typeRefField answers __Type fields for wrapped references. A named
// reference is answered by the type it names.
func typeRefField(s *schema.Schema, tr *schema.TypeRef, field string, args map[string]any) (any, bool) {
	if tr.Kind == schema.TypeRefKindNamed {
		if t := s.Types[tr.Named]; t != nil {
			return typeField(s, t, field, args)
		}
		return nil, true
	}
	switch field {
	case "kind":
		return string(tr.Kind), true
	case "ofType":
		return tr.OfType, true
	}
	return nil, true
}

func fieldField(f *schema.Field, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return f.Name, true
	case "description":
		return optional(f.Description), true
	case "args":
		return visible(f.Arguments, args, func(v *schema.InputValue) bool { return v.IsDeprecated }), true
	case "type":
		return f.Type, true
	case "isDeprecated":
		return f.IsDeprecated, true
	case "deprecationReason":
		return deprecationReason(f.IsDeprecated, f.DeprecationReason), true
	}
	return nil, false
}

func inputValueField(v *schema.InputValue, field string) (any, bool) {
	switch field {
	case "name":
		return v.Name, true
	case "description":
		return optional(v.Description), true
	case "type":
		return v.Type, true
	case "defaultValue":
		if v.DefaultValue == nil {
			return nil, true
		}
		return schema.RenderValue(v.DefaultValue), true
	case "isDeprecated":
		return v.IsDeprecated, true
	case "deprecationReason":
		return deprecationReason(v.IsDeprecated, v.DeprecationReason), true
	}
	return nil, false
}

func enumValueField(v *schema.EnumValue, field string) (any, bool) {
	switch field {
	case "name":
		return v.Name, true
	case "description":
		return optional(v.Description), true
	case "isDeprecated":
		return v.IsDeprecated, true
	case "deprecationReason":
		return deprecationReason(v.IsDeprecated, v.DeprecationReason), true
	}
	return nil, false
}

func directiveField(d *schema.Directive, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return d.Name, true
	case "description":
		return optional(d.Description), true
	case "isRepeatable":
		return d.IsRepeatable, true
	case "locations":
		locs := slices.Clone(d.Locations)
		slices.Sort(locs)
		return locs, true
	case "args":
		return visible(d.Arguments, args, func(v *schema.InputValue) bool { return v.IsDeprecated }), true
	}
	return nil, false
}

// visible drops deprecated entries unless includeDeprecated is set, keeping
// declaration order.
func visible[T any](in []T, args map[string]any, deprecated func(T) bool) []T {
	include, _ := args["includeDeprecated"].(bool)
	out := make([]T, 0, len(in))
	for _, v := range in {
		if include || !deprecated(v) {
			out = append(out, v)
		}
	}
	return out
}

func lookupTypes(s *schema.Schema, names []string) []*schema.Type {
	out := make([]*schema.Type, 0, len(names))
	for _, n := range names {
		if t := s.Types[n]; t != nil {
			out = append(out, t)
		}
	}
	return out
}

func byName[T any](in []T, name func(T) string) []T {
	slices.SortFunc(in, func(a, b T) int { return cmp.Compare(name(a), name(b)) })
	return in
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orNil(t *schema.Type) any {
	if t == nil {
		return nil
	}
	return t
}

func deprecationReason(deprecated bool, reason string) any {
	if !deprecated {
		return nil
	}
	return reason
}
