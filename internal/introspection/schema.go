package introspection

import (
	"fmt"
	"strings"

	schema "github.com/hanpama/sdlresolver/internal/schema"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

// Extend returns a copy of original with the introspection types and the
// __schema and __type root fields. original is not modified.
func Extend(original *schema.Schema) (*schema.Schema, error) {
	extended := &schema.Schema{
		QueryType:        original.QueryType,
		MutationType:     original.MutationType,
		SubscriptionType: original.SubscriptionType,
		Types:            make(map[string]*schema.Type, len(original.Types)+8),
		Directives:       original.Directives,
		Description:      original.Description,
		AST:              original.AST,
	}
	for name, t := range original.Types {
		extended.Types[name] = t
	}

	meta, err := metaTypes()
	if err != nil {
		return nil, err
	}
	for _, t := range meta {
		extended.Types[t.Name] = t
	}

	query := extended.GetQueryType()
	if query == nil {
		return extended, nil
	}
	root := *query
	root.Fields = append(append([]*schema.Field{}, query.Fields...),
		schema.NewField("__schema", "Access the current type schema of this server.",
			schema.NonNullType(schema.NamedType("__Schema"))),
		schema.NewField("__type", "Request the type information of a single type.",
			schema.NamedType("__Type")).
			AddArgument(schema.NewInputValue("name", "The name of the type to look up.",
				schema.NonNullType(schema.NamedType("String")))),
	)
	extended.Types[root.Name] = &root
	return extended, nil
}

// metaTypes builds the double-underscore types declared by the parser's
// prelude.
func metaTypes() ([]*schema.Type, error) {
	doc, err := parser.ParseSchema(validator.Prelude)
	if err != nil {
		return nil, fmt.Errorf("introspection prelude: %w", err)
	}
	var out []*schema.Type
	for _, def := range doc.Definitions {
		if !strings.HasPrefix(def.Name, "__") || (def.Kind != ast.Object && def.Kind != ast.Enum) {
			continue
		}
		t, err := schema.BuildType(def)
		if err != nil {
			return nil, fmt.Errorf("introspection type %s: %w", def.Name, err)
		}
		t.BuiltIn = true
		out = append(out, t)
	}
	return out, nil
}
