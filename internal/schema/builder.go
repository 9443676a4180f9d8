package schema

import (
	"fmt"
	"sort"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// BuildFromSDL parses an SDL document and returns the corresponding Schema.
func BuildFromSDL(sdl string) (*Schema, error) {
	return BuildFromSources(&ast.Source{Name: "schema.graphql", Input: sdl})
}

// BuildFromSources validates and merges the given SDL sources, extensions
// included, into a Schema.
//
// Possible types keep declaration order: union members as listed, and
// interface implementations in the order their object types appear across
// the sources.
func BuildFromSources(sources ...*ast.Source) (*Schema, error) {
	sc, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, err
	}
	order, err := implementationOrder(sources)
	if err != nil {
		return nil, err
	}

	s := NewSchema(sc.Description)
	s.AST = sc
	if sc.Query != nil {
		s.SetQueryType(sc.Query.Name)
	}
	if sc.Mutation != nil {
		s.SetMutationType(sc.Mutation.Name)
	}
	if sc.Subscription != nil {
		s.SetSubscriptionType(sc.Subscription.Name)
	}
	if err := addBuiltins(s, sc); err != nil {
		return nil, err
	}

	for name, def := range sc.Types {
		if def.BuiltIn {
			continue
		}
		t, err := buildType(def)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", name, err)
		}
		if def.Kind == ast.Interface {
			for _, impl := range order[name] {
				t.AddPossibleType(impl)
			}
			// implementations declared only through merged definitions
			rest := make([]string, 0)
			for _, pt := range sc.PossibleTypes[name] {
				if pt.Kind == ast.Object {
					rest = append(rest, pt.Name)
				}
			}
			sort.Strings(rest)
			for _, n := range rest {
				t.AddPossibleType(n)
			}
		}
		s.AddType(t)
	}
	for name, dir := range sc.Directives {
		if isBuiltinDirective(dir) {
			continue
		}
		d, err := buildDirective(dir)
		if err != nil {
			return nil, fmt.Errorf("directive @%s: %w", name, err)
		}
		s.AddDirective(d)
	}
	return s, nil
}

func implementationOrder(sources []*ast.Source) (map[string][]string, error) {
	order := map[string][]string{}
	for _, src := range sources {
		doc, err := parser.ParseSchema(src)
		if err != nil {
			return nil, err
		}
		defs := append(append(ast.DefinitionList{}, doc.Definitions...), doc.Extensions...)
		for _, def := range defs {
			if def.Kind != ast.Object {
				continue
			}
			for _, iface := range def.Interfaces {
				order[iface] = append(order[iface], def.Name)
			}
		}
	}
	return order, nil
}

// BuildType converts one SDL type definition. Interface possible types are
// left empty.
func BuildType(def *ast.Definition) (*Type, error) {
	return buildType(def)
}

func buildType(def *ast.Definition) (*Type, error) {
	switch def.Kind {
	case ast.Scalar:
		t := NewType(def.Name, TypeKindScalar, def.Description)
		if d := def.Directives.ForName("specifiedBy"); d != nil {
			if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
				t.SetSpecifiedByURL(arg.Value.Raw)
			}
		}
		return t, nil
	case ast.Object, ast.Interface:
		kind := TypeKindObject
		if def.Kind == ast.Interface {
			kind = TypeKindInterface
		}
		t := NewType(def.Name, kind, def.Description)
		for _, iface := range def.Interfaces {
			t.AddInterface(iface)
		}
		for _, fd := range def.Fields {
			if len(fd.Name) > 1 && fd.Name[:2] == "__" {
				continue
			}
			f, err := buildField(fd)
			if err != nil {
				return nil, err
			}
			t.AddField(f)
		}
		return t, nil
	case ast.Union:
		t := NewType(def.Name, TypeKindUnion, def.Description)
		for _, member := range def.Types {
			t.AddPossibleType(member)
		}
		return t, nil
	case ast.Enum:
		t := NewType(def.Name, TypeKindEnum, def.Description)
		for _, ev := range def.EnumValues {
			v := NewEnumValue(ev.Name, ev.Description)
			if reason, ok := directiveDeprecation(ev.Directives); ok {
				v.Deprecate(reason)
			}
			t.AddEnumValue(v)
		}
		return t, nil
	case ast.InputObject:
		t := NewType(def.Name, TypeKindInputObject, def.Description).
			SetOneOf(def.Directives.ForName("oneOf") != nil)
		for _, fd := range def.Fields {
			in, err := buildInputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue, fd.Directives)
			if err != nil {
				return nil, err
			}
			t.AddInputField(in)
		}
		return t, nil
	}
	return nil, fmt.Errorf("unsupported definition kind %s", def.Kind)
}

func buildField(fd *ast.FieldDefinition) (*Field, error) {
	f := NewField(fd.Name, fd.Description, buildTypeRef(fd.Type))
	if reason, ok := directiveDeprecation(fd.Directives); ok {
		f.Deprecate(reason)
	}
	for _, arg := range fd.Arguments {
		in, err := buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives)
		if err != nil {
			return nil, err
		}
		f.AddArgument(in)
	}
	return f, nil
}

func buildInputValue(name, description string, typ *ast.Type, def *ast.Value, dirs ast.DirectiveList) (*InputValue, error) {
	in := NewInputValue(name, description, buildTypeRef(typ))
	if def != nil {
		v, err := def.Value(nil)
		if err != nil {
			return nil, fmt.Errorf("default value of %s: %w", name, err)
		}
		in.SetDefault(v)
	}
	if reason, ok := directiveDeprecation(dirs); ok {
		in.Deprecate(reason)
	}
	return in, nil
}

func buildDirective(dir *ast.DirectiveDefinition) (*Directive, error) {
	d := NewDirective(dir.Name, dir.Description).SetRepeatable(dir.IsRepeatable)
	for _, loc := range dir.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, arg := range dir.Arguments {
		in, err := buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives)
		if err != nil {
			return nil, err
		}
		d.AddArgument(in)
	}
	return d, nil
}

func buildTypeRef(t *ast.Type) *TypeRef {
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(buildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}

func directiveDeprecation(dirs ast.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return "No longer supported", true
}
