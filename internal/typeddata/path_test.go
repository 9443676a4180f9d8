package typeddata

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/hanpama/sdlresolver/internal/cachemeta"
	"github.com/stretchr/testify/require"
)

func TestFetchByPathListDelegatesToFirstItem(t *testing.T) {
	article := map[string]any{
		"title": []any{map[string]any{"value": "Hello"}},
	}
	got, err := FetchByPath(NewDefinition("string"), article, "title.value", nil)
	require.NoError(t, err)
	require.Equal(t, "Hello", got)
}

func TestFetchByPathNumericIndex(t *testing.T) {
	v := map[string]any{"tags": []string{"a", "b", "c"}}
	got, err := FetchByPath(nil, v, "tags.1", nil)
	require.NoError(t, err)
	require.Equal(t, "b", got)

	got, err = FetchByPath(nil, v, "tags.7", nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFetchByPathAbsentDataIsNil(t *testing.T) {
	v := map[string]any{"author": nil}
	got, err := FetchByPath(nil, v, "author.name", nil)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = FetchByPath(nil, map[string]any{}, "missing", nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFetchByPathMalformed(t *testing.T) {
	var perr *PathResolutionError

	_, err := FetchByPath(nil, map[string]any{"a": 1}, "", nil)
	require.True(t, errors.As(err, &perr))

	_, err = FetchByPath(nil, map[string]any{"a": 1}, "a..b", nil)
	require.True(t, errors.As(err, &perr))

	_, err = FetchByPath(nil, map[string]any{"a": 1}, "a.b", nil)
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "b", perr.Segment)
}

func TestFetchByPathUndeclaredProperty(t *testing.T) {
	def := NewDefinition("map").WithProperty("title", ListOf(NewDefinition("map").WithProperty("value", NewDefinition("string"))))
	v := map[string]any{"title": []any{map[string]any{"value": "x"}}}

	got, err := FetchByPath(def, v, "title.value", nil)
	require.NoError(t, err)
	require.Equal(t, "x", got)

	_, err = FetchByPath(def, v, "body.value", nil)
	var perr *PathResolutionError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "body", perr.Segment)
}

func TestFetchByPathCollectsCacheMetadata(t *testing.T) {
	inner := &cachemeta.Value{Value: map[string]any{"name": "alice"}, Metadata: cachemeta.New("user:1").WithMaxAge(60)}
	v := map[string]any{"author": inner}

	c := cachemeta.NewCollector()
	got, err := FetchByPath(nil, v, "author.name", c)
	require.NoError(t, err)
	require.Equal(t, "alice", got)
	require.Equal(t, []string{"user:1"}, c.Metadata().Tags)
	require.Equal(t, 60, c.Metadata().MaxAge)
}

func TestFetchByPathJSON(t *testing.T) {
	raw := json.RawMessage(`{"links":[{"title":"Home","url":"/"},{"title":"About","url":"/about"}]}`)
	got, err := FetchByPath(nil, raw, "links.1.title", nil)
	require.NoError(t, err)
	require.Equal(t, "About", got)

	got, err = FetchByPath(nil, raw, "links.url", nil)
	require.NoError(t, err)
	require.Equal(t, "/", got)

	got, err = FetchByPath(nil, raw, "links", nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

type record struct {
	fields map[string]any
	fixed  bool
}

func (r record) DataType() string        { return "record" }
func (r record) PropertyNames() []string { return nil }
func (r record) Property(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok || !r.fixed
}

func TestFetchByPathUnsetPropertyOfOpenShape(t *testing.T) {
	open := record{fields: map[string]any{"title": "x"}}
	got, err := FetchByPath(NewDefinition("string"), open, "body.value", nil)
	require.NoError(t, err)
	require.Nil(t, got)

	fixed := record{fields: map[string]any{"title": "x"}, fixed: true}
	_, err = FetchByPath(nil, fixed, "body.value", nil)
	var perr *PathResolutionError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "body", perr.Segment)
}
