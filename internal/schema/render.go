package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Render prints s as SDL. Types and directives are sorted by name;
// built-in scalars and directives are left out.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	w := &sdlWriter{}
	w.schemaDefinition(s)

	for _, name := range sortedNames(s.Types, func(t *Type) bool { return !t.BuiltIn }) {
		w.typeDefinition(s.Types[name])
	}
	for _, name := range sortedNames(s.Directives, func(d *Directive) bool { return !d.BuiltIn }) {
		w.directiveDefinition(s.Directives[name])
	}
	return strings.TrimRight(w.String(), "\n") + "\n"
}

func sortedNames[T any](m map[string]T, keep func(T) bool) []string {
	names := make([]string, 0, len(m))
	for name, v := range m {
		if keep(v) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

type sdlWriter struct {
	strings.Builder
}

func (w *sdlWriter) line(parts ...string) {
	for _, p := range parts {
		w.WriteString(p)
	}
	w.WriteByte('\n')
}

// schemaDefinition writes a schema block only when the root operation
// types deviate from the conventional names or the schema is described.
func (w *sdlWriter) schemaDefinition(s *Schema) {
	conventional := (s.QueryType == "" || s.QueryType == "Query") &&
		(s.MutationType == "" || s.MutationType == "Mutation") &&
		(s.SubscriptionType == "" || s.SubscriptionType == "Subscription")
	if conventional && s.Description == "" {
		return
	}
	w.description(s.Description, "")
	w.line("schema {")
	for _, root := range [][2]string{{"query", s.QueryType}, {"mutation", s.MutationType}, {"subscription", s.SubscriptionType}} {
		if root[1] != "" {
			w.line("  ", root[0], ": ", root[1])
		}
	}
	w.line("}")
	w.line()
}

func (w *sdlWriter) description(desc, indent string) {
	if desc == "" {
		return
	}
	w.line(indent, `"""`)
	w.line(indent, strings.ReplaceAll(desc, `"`, `\"`))
	w.line(indent, `"""`)
}

func (w *sdlWriter) typeDefinition(t *Type) {
	w.description(t.Description, "")
	switch t.Kind {
	case TypeKindScalar:
		head := "scalar " + t.Name
		if t.SpecifiedByURL != nil {
			head += ` @specifiedBy(url: ` + strconv.Quote(*t.SpecifiedByURL) + `)`
		}
		w.line(head)
	case TypeKindEnum:
		w.line("enum ", t.Name, " {")
		for _, v := range t.EnumValues {
			w.description(v.Description, "  ")
			w.line("  ", v.Name, deprecation(v.IsDeprecated, v.DeprecationReason))
		}
		w.line("}")
	case TypeKindInputObject:
		head := "input " + t.Name
		if t.OneOf {
			head += " @oneOf"
		}
		w.line(head, " {")
		for _, f := range t.InputFields {
			w.description(f.Description, "  ")
			w.line("  ", inputValue(f), deprecation(f.IsDeprecated, f.DeprecationReason))
		}
		w.line("}")
	case TypeKindObject, TypeKindInterface:
		keyword := "type "
		if t.Kind == TypeKindInterface {
			keyword = "interface "
		}
		head := keyword + t.Name
		if len(t.Interfaces) > 0 {
			head += " implements " + strings.Join(t.Interfaces, " & ")
		}
		w.line(head, " {")
		for _, f := range t.Fields {
			w.description(f.Description, "  ")
			w.line("  ", f.Name, arguments(f.Arguments), ": ", f.Type.String(), deprecation(f.IsDeprecated, f.DeprecationReason))
		}
		w.line("}")
	case TypeKindUnion:
		w.line("union ", t.Name, " = ", strings.Join(t.PossibleTypes, " | "))
	}
	w.line()
}

func (w *sdlWriter) directiveDefinition(d *Directive) {
	w.description(d.Description, "")
	head := "directive @" + d.Name + arguments(d.Arguments)
	if d.IsRepeatable {
		head += " repeatable"
	}
	w.line(head, " on ", strings.Join(d.Locations, " | "))
	w.line()
}

func arguments(args []*InputValue) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = inputValue(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func inputValue(v *InputValue) string {
	s := v.Name + ": " + v.Type.String()
	if v.DefaultValue != nil {
		s += " = " + RenderValue(v.DefaultValue)
	}
	return s
}

func deprecation(deprecated bool, reason string) string {
	switch {
	case !deprecated:
		return ""
	case reason == "":
		return " @deprecated"
	}
	return " @deprecated(reason: " + strconv.Quote(reason) + ")"
}

// RenderValue prints a Go value as a GraphQL literal. Strings are quoted;
// values of other types print unquoted, so enum values can be passed as
// fmt.Stringers. Object fields are sorted by name.
func RenderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = RenderValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := sortedNames(v, func(any) bool { return true })
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + RenderValue(v[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(value)
}
