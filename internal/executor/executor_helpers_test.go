package executor

import (
	"context"
	"testing"

	language "github.com/hanpama/sdlresolver/internal/language"
	schema "github.com/hanpama/sdlresolver/internal/schema"
)

const testSDL = `
type Query {
  hello: String
  greet(name: String = "world", times: Int): String
  required: String!
  obj: Obj
  objs: [Obj!]
  node(id: ID!): Node
  search: [SearchResult]
  color(c: Color): Color
  filter(input: Filter): String
}

type Obj {
  a: String
  b: String!
  child: Obj
}

interface Node {
  id: ID!
}

type User implements Node {
  id: ID!
  name: String
}

type Post implements Node {
  id: ID!
  title: String
}

union SearchResult = User | Post

enum Color {
  RED
  GREEN
}

input Filter {
  term: String!
  limit: Int = 10
}
`

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func mustSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(sdl)
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}
	return s
}

// prop reads a key of a map source.
func prop(key string) MockResolver {
	return func(_ context.Context, source any, _ map[string]any) (any, error) {
		m, _ := source.(map[string]any)
		return m[key], nil
	}
}

// callNames renders calls as "kind Type.field" for order assertions.
func callNames(calls []Call) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Kind+" "+c.ObjectType+"."+c.Field)
	}
	return out
}

func execute(t *testing.T, rt *MockRuntime, query string, vars map[string]any) *ExecutionResult {
	t.Helper()
	exec := NewExecutor(rt, mustSchema(t, testSDL))
	return exec.ExecuteRequest(context.Background(), mustParseQuery(t, query), "", vars, nil)
}
