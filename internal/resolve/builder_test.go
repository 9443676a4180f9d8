package resolve

import (
	"errors"
	"testing"

	"github.com/hanpama/sdlresolver/internal/cachemeta"
	"github.com/hanpama/sdlresolver/internal/deferred"
	ent "github.com/hanpama/sdlresolver/internal/entity"
	"github.com/hanpama/sdlresolver/internal/typeddata"
	"github.com/stretchr/testify/require"
)

type recorder struct{ calls []string }

func (r *recorder) step(name string, fn func(any) any) FieldResolverFunc {
	return func(value any, _ map[string]any, _ *Context, _ *FieldInfo) (any, error) {
		r.calls = append(r.calls, name)
		return fn(value), nil
	}
}

func appendTo(s string) func(any) any {
	return func(v any) any { return v.(string) + s }
}

func TestComposeThreadsValues(t *testing.T) {
	b := NewBuilder(nil)
	rec := &recorder{}
	fn := b.Compose(rec.step("a", appendTo("a")), rec.step("b", appendTo("b")), rec.step("c", appendTo("c")))

	got, err := fn("", nil, newTestContext(), fieldInfo("Q", "f"))
	require.NoError(t, err)
	require.Equal(t, "abc", got)
	require.Equal(t, []string{"a", "b", "c"}, rec.calls)
	require.NoError(t, b.Err())
}

func TestComposeShortCircuitsOnNull(t *testing.T) {
	b := NewBuilder(nil)
	rec := &recorder{}
	fn := b.Compose(
		rec.step("a", appendTo("a")),
		rec.step("null", func(any) any { return nil }),
		rec.step("c", appendTo("c")),
	)
	got, err := fn("", nil, newTestContext(), fieldInfo("Q", "f"))
	require.NoError(t, err)
	require.Nil(t, got)
	require.Equal(t, []string{"a", "null"}, rec.calls)
}

func TestComposeResumesAfterDeferred(t *testing.T) {
	b := NewBuilder(nil)
	rec := &recorder{}
	deferStep := func(name string) FieldResolverFunc {
		return func(value any, _ map[string]any, _ *Context, _ *FieldInfo) (any, error) {
			rec.calls = append(rec.calls, name)
			return deferred.New(func() (any, error) {
				rec.calls = append(rec.calls, name+":settle")
				return value.(string) + name, nil
			}), nil
		}
	}
	fn := b.Compose(
		rec.step("1", appendTo("1")),
		deferStep("2"),
		rec.step("3", appendTo("3")),
		rec.step("4", appendTo("4")),
		deferStep("5"),
		rec.step("6", appendTo("6")),
	)

	out, err := fn("", nil, newTestContext(), fieldInfo("Q", "f"))
	require.NoError(t, err)
	require.True(t, deferred.Is(out))
	require.Equal(t, []string{"1", "2"}, rec.calls, "steps after a deferred wait for settlement")

	got, err := deferred.Resolve(out)
	require.NoError(t, err)
	require.Equal(t, "123456", got)
	require.Equal(t, []string{"1", "2", "2:settle", "3", "4", "5", "5:settle", "6"}, rec.calls)

	// same chain with settled values in place of the deferred steps
	rec2 := &recorder{}
	plain := b.Compose(
		rec2.step("1", appendTo("1")), rec2.step("2", appendTo("2")), rec2.step("3", appendTo("3")),
		rec2.step("4", appendTo("4")), rec2.step("5", appendTo("5")), rec2.step("6", appendTo("6")),
	)
	want, err := plain("", nil, newTestContext(), fieldInfo("Q", "f"))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestComposeDeferredNullStops(t *testing.T) {
	b := NewBuilder(nil)
	rec := &recorder{}
	fn := b.Compose(
		func(any, map[string]any, *Context, *FieldInfo) (any, error) {
			return deferred.Settled(nil), nil
		},
		rec.step("after", appendTo("x")),
	)
	out, err := fn("", nil, newTestContext(), fieldInfo("Q", "f"))
	require.NoError(t, err)
	got, err := deferred.Resolve(out)
	require.NoError(t, err)
	require.Nil(t, got)
	require.Empty(t, rec.calls)
}

func TestComposePropagatesErrors(t *testing.T) {
	b := NewBuilder(nil)
	boom := errors.New("boom")
	fn := b.Compose(func(any, map[string]any, *Context, *FieldInfo) (any, error) {
		return deferred.Failed(boom), nil
	}, b.FromParent())
	out, err := fn("", nil, newTestContext(), fieldInfo("Q", "f"))
	require.NoError(t, err)
	_, err = deferred.Resolve(out)
	require.ErrorIs(t, err, boom)
}

func TestComposeNilStep(t *testing.T) {
	b := NewBuilder(nil)
	fn := b.Compose(b.FromParent(), nil)
	_, err := fn("x", nil, newTestContext(), fieldInfo("Q", "f"))
	var nie *NotInvocableError
	require.ErrorAs(t, err, &nie)
	require.Equal(t, 1, nie.Step)
	require.ErrorAs(t, b.Err(), &nie)
}

func TestTapPassesParentThrough(t *testing.T) {
	b := NewBuilder(nil)
	var seen any
	fn := b.Tap(func(value any, _ map[string]any, _ *Context, _ *FieldInfo) (any, error) {
		seen = value
		return "ignored", nil
	})
	got, err := fn("parent", nil, newTestContext(), fieldInfo("Q", "f"))
	require.NoError(t, err)
	require.Equal(t, "parent", got)
	require.Equal(t, "parent", seen)
}

func TestContextStepScopesToPath(t *testing.T) {
	b := NewBuilder(nil)
	rc := newTestContext()

	set := b.Context("language", b.FromArgument("lang"))
	got, err := set("node", map[string]any{"lang": "de"}, rc, fieldInfo("Query", "article", "article"))
	require.NoError(t, err)
	require.Equal(t, "node", got)

	read := b.FromContext("language", "en")
	v, err := read(nil, nil, rc, fieldInfo("Article", "title", "article", "title"))
	require.NoError(t, err)
	require.Equal(t, "de", v)

	v, err = read(nil, nil, rc, fieldInfo("Query", "page", "page"))
	require.NoError(t, err)
	require.Equal(t, "en", v, "siblings do not see the slot")
}

func TestContextStepWaitsForDeferredSource(t *testing.T) {
	b := NewBuilder(nil)
	rc := newTestContext()
	info := fieldInfo("Query", "article", "article")
	set := b.Context("language", func(any, map[string]any, *Context, *FieldInfo) (any, error) {
		return deferred.New(func() (any, error) { return "fr", nil }), nil
	})
	out, err := set("node", nil, rc, info)
	require.NoError(t, err)
	require.True(t, deferred.Is(out))
	require.Nil(t, rc.GetContext("language", info, nil))

	got, err := deferred.Resolve(out)
	require.NoError(t, err)
	require.Equal(t, "node", got)
	require.Equal(t, "fr", rc.GetContext("language", info, nil))
}

func TestFromContextDefaultResolver(t *testing.T) {
	b := NewBuilder(nil)
	fn := b.FromContext("language", FieldResolverFunc(func(any, map[string]any, *Context, *FieldInfo) (any, error) {
		return "computed", nil
	}))
	got, err := fn(nil, nil, newTestContext(), nil)
	require.NoError(t, err)
	require.Equal(t, "computed", got)
}

func TestFromValueAndParentMergeCacheMetadata(t *testing.T) {
	b := NewBuilder(nil)
	rc := newTestContext()
	_, err := b.FromValue(cachemeta.NewValue("x", "config:site"))(nil, nil, rc, nil)
	require.NoError(t, err)
	_, err = b.FromParent()(cachemeta.NewValue("y", "node:1"), nil, rc, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"config:site", "node:1"}, rc.CacheMetadata().Tags)
}

func TestFromParentNilEntity(t *testing.T) {
	b := NewBuilder(nil)
	rc := newTestContext()
	require.NotPanics(t, func() {
		_, err := b.FromParent()((*ent.Content)(nil), nil, rc, nil)
		require.NoError(t, err)
		_, err = b.FromParent()((*cachemeta.Value)(nil), nil, rc, nil)
		require.NoError(t, err)
	})
	require.Empty(t, rc.CacheMetadata().Tags)
}

func TestFromArgument(t *testing.T) {
	b := NewBuilder(nil)
	got, err := b.FromArgument("id")(nil, map[string]any{"id": "42"}, newTestContext(), nil)
	require.NoError(t, err)
	require.Equal(t, "42", got)
	got, err = b.FromArgument("missing")(nil, map[string]any{}, newTestContext(), nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFromPathArticleTitle(t *testing.T) {
	b := NewBuilder(nil)
	fn := b.FromPath(typeddata.NewDefinition("string"), "title.value")
	article := map[string]any{"title": []any{map[string]any{"value": "Hello"}}}
	got, err := fn(article, nil, newTestContext(), fieldInfo("Article", "title"))
	require.NoError(t, err)
	require.Equal(t, "Hello", got)
}

func TestFromPathUnsetEntityField(t *testing.T) {
	b := NewBuilder(nil)
	fn := b.FromPath(typeddata.NewDefinition("string"), "body.value")
	article := ent.NewContent("node", "5", "article", "en").Set("title", "no body")
	got, err := fn(article, nil, newTestContext(), fieldInfo("Article", "body"))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFromPathStructuredHint(t *testing.T) {
	b := NewBuilder(nil)
	hint := typeddata.NewDefinition("map").WithProperty("name", typeddata.NewDefinition("string"))
	fn := b.FromPath(hint, "nickname")
	_, err := fn(map[string]any{"name": "x"}, nil, newTestContext(), nil)
	var perr *typeddata.PathResolutionError
	require.ErrorAs(t, err, &perr)
}

func TestFromPathOverDeferredSource(t *testing.T) {
	b := NewBuilder(nil)
	rc := newTestContext()
	src := func(any, map[string]any, *Context, *FieldInfo) (any, error) {
		return deferred.New(func() (any, error) {
			return cachemeta.NewValue(map[string]any{"label": "Home"}, "menu_link_content:3"), nil
		}), nil
	}
	out, err := b.FromPath(typeddata.NewDefinition("string"), "label", src)(nil, nil, rc, nil)
	require.NoError(t, err)
	got, err := deferred.Resolve(out)
	require.NoError(t, err)
	require.Equal(t, "Home", got)
	require.Equal(t, []string{"menu_link_content:3"}, rc.CacheMetadata().Tags)
}

type fakeInvocable struct{ result any }

func (f fakeInvocable) Invoke(any, map[string]any, *Context, *FieldInfo) (any, error) {
	return f.result, nil
}

type fakeProducers map[string]any

func (f fakeProducers) Instantiate(id string, _ Mapping) (Invocable, error) {
	r, ok := f[id]
	if !ok {
		return nil, errors.New("unknown producer " + id)
	}
	if r == nil {
		return nil, nil
	}
	return fakeInvocable{result: r}, nil
}

func TestProduce(t *testing.T) {
	b := NewBuilder(fakeProducers{"answer": 42, "broken": nil})

	got, err := b.Produce("answer", nil)(nil, nil, newTestContext(), nil)
	require.NoError(t, err)
	require.Equal(t, 42, got)
	require.NoError(t, b.Err())

	_, err = b.Produce("missing", nil)(nil, nil, newTestContext(), nil)
	require.EqualError(t, err, "produce missing: unknown producer missing")

	_, err = b.Produce("broken", nil)(nil, nil, newTestContext(), nil)
	var nie *NotInvocableError
	require.ErrorAs(t, err, &nie)
	require.Equal(t, "broken", nie.Producer)
	require.Error(t, b.Err())
}
