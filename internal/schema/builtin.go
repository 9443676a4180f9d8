package schema

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// addBuiltins copies the prelude scalars and directives of sc into s,
// marked BuiltIn. Introspection meta types are left to the introspection
// package.
func addBuiltins(s *Schema, sc *ast.Schema) error {
	for name, def := range sc.Types {
		if !def.BuiltIn || def.Kind != ast.Scalar || strings.HasPrefix(name, "__") {
			continue
		}
		t, err := buildType(def)
		if err != nil {
			return err
		}
		t.BuiltIn = true
		s.AddType(t)
	}
	for _, dir := range sc.Directives {
		if !isBuiltinDirective(dir) {
			continue
		}
		d, err := buildDirective(dir)
		if err != nil {
			return err
		}
		d.BuiltIn = true
		s.AddDirective(d)
	}
	return nil
}

func isBuiltinDirective(dir *ast.DirectiveDefinition) bool {
	return dir.Position != nil && dir.Position.Src != nil && dir.Position.Src.BuiltIn
}
