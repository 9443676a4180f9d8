package sdlrt

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/sdlresolver/internal/cachemeta"
	"github.com/hanpama/sdlresolver/internal/deferred"
	"github.com/hanpama/sdlresolver/internal/entity"
	"github.com/hanpama/sdlresolver/internal/executor"
	"github.com/hanpama/sdlresolver/internal/language"
	"github.com/hanpama/sdlresolver/internal/producer"
	"github.com/hanpama/sdlresolver/internal/producer/entityproducer"
	"github.com/hanpama/sdlresolver/internal/resolve"
	"github.com/hanpama/sdlresolver/internal/schema"
	"github.com/hanpama/sdlresolver/internal/typeddata"
	"github.com/stretchr/testify/require"
)

const testSDL = `
type Query {
  plain: String
  tagged: String
  late: String
  obj(lang: String): Obj
  lang: String
  node(id: ID!): Node
  broken: String
  mode: Mode
}

type Obj {
  lang: String
  child: Obj
}

interface Node { id: ID! }

type Article implements Node {
  id: ID!
  title: String
  promoted: Boolean
  weight: Int
}

type Page implements Node {
  id: ID!
  title: String
}

enum Mode { FULL TEASER }
`

type harness struct {
	schema   *schema.Schema
	registry *resolve.Registry
	builder  *resolve.Builder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	reg := resolve.NewRegistry(map[string]*typeddata.Definition{
		"Article": typeddata.NewDefinition("entity:node:article"),
		"Page":    typeddata.NewDefinition("entity:node:page"),
	})
	return &harness{schema: s, registry: reg, builder: resolve.NewBuilder(nil)}
}

func (h *harness) execute(t *testing.T, query string) (*executor.ExecutionResult, *resolve.Context) {
	t.Helper()
	require.NoError(t, h.builder.Err())
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	rc := resolve.NewContext(context.Background())
	exec := executor.NewExecutor(New(h.registry, h.schema, rc), h.schema)
	return exec.ExecuteRequest(context.Background(), doc, "", nil, nil), rc
}

func TestCacheMetadataIsCollected(t *testing.T) {
	h := newHarness(t)
	h.registry.
		AddFieldResolver("Query", "plain", h.builder.FromValue("p")).
		AddFieldResolver("Query", "tagged", func(any, map[string]any, *resolve.Context, *resolve.FieldInfo) (any, error) {
			return cachemeta.NewValue("t", "config:a"), nil
		}).
		AddFieldResolver("Query", "late", func(any, map[string]any, *resolve.Context, *resolve.FieldInfo) (any, error) {
			return deferred.New(func() (any, error) {
				return &cachemeta.Value{Value: "l", Metadata: cachemeta.New("config:b").WithMaxAge(60)}, nil
			}), nil
		})

	res, rc := h.execute(t, "{ plain tagged late }")
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"plain": "p", "tagged": "t", "late": "l"}, res.Data)

	want := cachemeta.Metadata{Tags: []string{"config:a", "config:b"}, MaxAge: 60}
	if diff := cmp.Diff(want, rc.CacheMetadata()); diff != "" {
		t.Fatalf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestContextSlotsFollowThePath(t *testing.T) {
	h := newHarness(t)
	b := h.builder
	h.registry.
		AddFieldResolver("Query", "obj", b.Compose(
			b.FromValue(map[string]any{}),
			b.Context("lang", b.FromArgument("lang")),
		)).
		AddFieldResolver("Query", "lang", b.FromContext("lang", "und")).
		AddFieldResolver("Obj", "lang", b.FromContext("lang", "und")).
		AddFieldResolver("Obj", "child", b.Compose(
			b.FromValue(map[string]any{}),
			func(v any, _ map[string]any, _ *resolve.Context, _ *resolve.FieldInfo) (any, error) {
				return deferred.Settled(v), nil
			},
		))

	res, _ := h.execute(t, `{ obj(lang: "de") { lang child { lang } } lang }`)
	require.Empty(t, res.Errors)
	want := map[string]any{
		"obj":  map[string]any{"lang": "de", "child": map[string]any{"lang": "de"}},
		"lang": "und",
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestDeferredEntityWithDefaultResolvers(t *testing.T) {
	h := newHarness(t)
	article := entity.NewContent("node", "1", "article", "en").
		Set("title", "Hello").
		Set("promoted", true).
		Set("weight", 3)
	h.registry.AddFieldResolver("Query", "node", func(any, map[string]any, *resolve.Context, *resolve.FieldInfo) (any, error) {
		return deferred.New(func() (any, error) { return article, nil }), nil
	})

	res, rc := h.execute(t, `{ node(id: "1") { __typename id ... on Article { title promoted weight } } }`)
	require.Empty(t, res.Errors)
	want := map[string]any{"node": map[string]any{
		"__typename": "Article",
		"id":         "1",
		"title":      "Hello",
		"promoted":   true,
		"weight":     3,
	}}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{"node:1"}, rc.CacheMetadata().Tags)
}

func TestChainedLoadsBatchAcrossSiblings(t *testing.T) {
	s, err := schema.BuildFromSDL(`
type Query { a: Article b: Article }
type Article { title: String }
`)
	require.NoError(t, err)

	storage := entity.NewMemoryStorage()
	storage.AddType(entity.Type{ID: "node", Bundles: []string{"article"}})
	for _, a := range []*entity.Content{
		entity.NewContent("node", "1", "article", "en").Set("title", "One").Set("ref", "3"),
		entity.NewContent("node", "2", "article", "en").Set("title", "Two").Set("ref", "4"),
		entity.NewContent("node", "3", "article", "en").Set("title", "Three"),
		entity.NewContent("node", "4", "article", "en").Set("title", "Four"),
	} {
		require.NoError(t, storage.Save(a))
	}
	m := producer.NewManager(nil)
	require.NoError(t, entityproducer.Register(m, storage, entity.NewBuffer(storage)))
	b := resolve.NewBuilder(m)

	load := func(id resolve.FieldResolverFunc) resolve.FieldResolverFunc {
		return b.Produce("entity_load", resolve.Mapping{"type": b.FromValue("node"), "id": id})
	}
	referenced := func(id string) resolve.FieldResolverFunc {
		return b.Compose(
			load(b.FromValue(id)),
			load(b.FromPath(typeddata.NewDefinition("string"), "ref.value")),
		)
	}
	reg := resolve.NewRegistry(map[string]*typeddata.Definition{
		"Article": typeddata.NewDefinition("entity:node:article"),
	})
	reg.AddFieldResolver("Query", "a", referenced("1")).
		AddFieldResolver("Query", "b", referenced("2"))
	require.NoError(t, b.Err())

	doc, err := language.ParseQuery(`{ a { title } b { title } }`)
	require.NoError(t, err)
	rc := resolve.NewContext(context.Background())
	res := executor.NewExecutor(New(reg, s, rc), s).ExecuteRequest(context.Background(), doc, "", nil, nil)
	require.Empty(t, res.Errors)
	want := map[string]any{
		"a": map[string]any{"title": "Three"},
		"b": map[string]any{"title": "Four"},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, int64(2), storage.Loads(), "one load per chain step")
}

func TestUnresolvableAbstractType(t *testing.T) {
	h := newHarness(t)
	h.registry.AddFieldResolver("Query", "node", h.builder.FromValue(entity.NewContent("user", "1", "user", "en")))

	res, _ := h.execute(t, `{ node(id: "1") { id } }`)
	require.Equal(t, map[string]any{"node": nil}, res.Data)
	require.Len(t, res.Errors, 1)
	require.Equal(t, executor.Path{"node"}, res.Errors[0].Path)
}

func TestResolverErrorsAreLocated(t *testing.T) {
	h := newHarness(t)
	h.registry.
		AddFieldResolver("Query", "plain", h.builder.FromValue("ok")).
		AddFieldResolver("Query", "broken", nil)

	res, _ := h.execute(t, `{ plain broken }`)
	require.Equal(t, map[string]any{"plain": "ok", "broken": nil}, res.Data)
	require.Len(t, res.Errors, 1)
	require.Equal(t, executor.Path{"broken"}, res.Errors[0].Path)
}

func TestCancelledContext(t *testing.T) {
	h := newHarness(t)
	h.registry.AddFieldResolver("Query", "plain", h.builder.FromValue("p"))
	doc, err := language.ParseQuery(`{ plain }`)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rt := New(h.registry, h.schema, resolve.NewContext(ctx))
	res := executor.NewExecutor(rt, h.schema).ExecuteRequest(ctx, doc, "", nil, nil)
	require.Equal(t, map[string]any{"plain": nil}, res.Data)
	require.Equal(t, []executor.GraphQLError{{Message: context.Canceled.Error(), Path: executor.Path{"plain"}}}, res.Errors)
}

func TestSerializeLeafValue(t *testing.T) {
	h := newHarness(t)
	rt := New(h.registry, h.schema, resolve.NewContext(context.Background()))

	cases := []struct {
		typeName string
		in       any
		want     any
		wantErr  bool
	}{
		{typeName: "String", in: 12, want: "12"},
		{typeName: "ID", in: 7, want: "7"},
		{typeName: "ID", in: 1.5, wantErr: true},
		{typeName: "Int", in: "42", want: 42},
		{typeName: "Int", in: 2.0, want: 2},
		{typeName: "Int", in: "4.2", wantErr: true},
		{typeName: "Int", in: int64(1 << 40), wantErr: true},
		{typeName: "Float", in: "1.25", want: 1.25},
		{typeName: "Float", in: 3, want: 3.0},
		{typeName: "Boolean", in: "1", want: true},
		{typeName: "Boolean", in: "0", want: false},
		{typeName: "Boolean", in: "", want: false},
		{typeName: "Boolean", in: "maybe", wantErr: true},
		{typeName: "Mode", in: "FULL", want: "FULL"},
		{typeName: "Mode", in: "full", wantErr: true},
		{typeName: "String", in: nil, want: nil},
	}
	for _, c := range cases {
		got, err := rt.SerializeLeafValue(context.Background(), c.typeName, c.in)
		if c.wantErr {
			require.Error(t, err, "%s(%v)", c.typeName, c.in)
			continue
		}
		require.NoError(t, err, "%s(%v)", c.typeName, c.in)
		require.Equal(t, c.want, got, "%s(%v)", c.typeName, c.in)
	}
}
