package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/hanpama/sdlresolver/internal/cachemeta"
	reqid "github.com/hanpama/sdlresolver/internal/reqid"
	"github.com/hanpama/sdlresolver/internal/resolve"
	schema "github.com/hanpama/sdlresolver/internal/schema"
	"github.com/stretchr/testify/require"
)

const testSDL = `type Query { hello: String, tagged: String, lang: String, requestId: String }`

func newTestHandler(t *testing.T, opts ...Option) (*Handler, *resolve.Registry) {
	t.Helper()
	sch, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	reg := resolve.NewRegistry(nil)
	b := resolve.NewBuilder(nil)
	reg.
		AddFieldResolver("Query", "hello", b.FromValue("world")).
		AddFieldResolver("Query", "tagged", func(any, map[string]any, *resolve.Context, *resolve.FieldInfo) (any, error) {
			return &cachemeta.Value{
				Value:    "t",
				Metadata: cachemeta.New("node:1").WithMaxAge(300).WithContexts("languages"),
			}, nil
		})
	h, err := New(reg, sch, opts...)
	require.NoError(t, err)
	return h, reg
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) any {
	t.Helper()
	var out any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestExecute(t *testing.T) {
	h, _ := newTestHandler(t)
	w := post(t, h, `{"query":"{ hello }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, map[string]any{"data": map[string]any{"hello": "world"}}, decode(t, w))
	require.Equal(t, "public, max-age=31536000", w.Header().Get("Cache-Control"))
	require.NotEmpty(t, w.Header().Get("ETag"))
	require.NotEmpty(t, w.Header().Get(reqid.Header))
}

func TestCacheHeaders(t *testing.T) {
	h, _ := newTestHandler(t)
	w := post(t, h, `{"query":"{ hello tagged }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))
	require.Equal(t, "node:1", w.Header().Get(HeaderCacheTags))
	require.Equal(t, "languages", w.Header().Get(HeaderCacheContexts))

	h, _ = newTestHandler(t, WithCacheHeaders(false))
	w = post(t, h, `{"query":"{ tagged }"}`)
	require.Empty(t, w.Header().Get("Cache-Control"))
	require.Empty(t, w.Header().Get(HeaderCacheTags))
}

func TestErrorsAreUncacheable(t *testing.T) {
	h, reg := newTestHandler(t)
	reg.AddFieldResolver("Query", "lang", nil)

	w := post(t, h, `{"query":"{ tagged lang }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	require.Equal(t, "node:1", w.Header().Get(HeaderCacheTags))
	require.Empty(t, w.Header().Get("ETag"))

	body := decode(t, w).(map[string]any)
	require.Equal(t, map[string]any{"tagged": "t", "lang": nil}, body["data"])
	errs := body["errors"].([]any)
	require.Len(t, errs, 1)
	require.Equal(t, []any{"lang"}, errs[0].(map[string]any)["path"])
}

func TestValidationErrors(t *testing.T) {
	h, _ := newTestHandler(t)
	w := post(t, h, `{"query":"{ nope }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	body := decode(t, w).(map[string]any)
	require.Nil(t, body["data"])
	errs := body["errors"].([]any)
	require.Len(t, errs, 1)
	first := errs[0].(map[string]any)
	require.Equal(t, `Cannot query field "nope" on type "Query".`, first["message"])
	require.Equal(t, []any{map[string]any{"line": float64(1), "column": float64(3)}}, first["locations"])
}

func TestNotModified(t *testing.T) {
	h, _ := newTestHandler(t)
	target := "/?" + url.Values{"query": {"{ hello }"}}.Encode()

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("If-None-Match", etag)
	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)
	require.Equal(t, http.StatusNotModified, second.Code)
	require.Empty(t, second.Body.Bytes())
}

func TestBatch(t *testing.T) {
	h, _ := newTestHandler(t)
	w := post(t, h, `[{"query":"{ hello }"},{"query":"{ tagged }"}]`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []any{
		map[string]any{"data": map[string]any{"hello": "world"}},
		map[string]any{"data": map[string]any{"tagged": "t"}},
	}, decode(t, w))
	require.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))
	require.Equal(t, "node:1", w.Header().Get(HeaderCacheTags))
}

func TestDocumentCache(t *testing.T) {
	h, _ := newTestHandler(t, WithDocumentCacheSize(2))
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, post(t, h, `{"query":"{ hello }"}`).Code)
	}
	require.Equal(t, 1, h.documents.Len())
	post(t, h, `{"query":"{ nope }"}`)
	require.Equal(t, 1, h.documents.Len())

	h, _ = newTestHandler(t, WithDocumentCacheSize(0))
	require.Nil(t, h.documents)
	require.Equal(t, http.StatusOK, post(t, h, `{"query":"{ hello }"}`).Code)
}

func TestIntrospection(t *testing.T) {
	h, _ := newTestHandler(t)
	w := post(t, h, `{"query":"{ __schema { queryType { name } } }"}`)
	require.Equal(t, map[string]any{"data": map[string]any{
		"__schema": map[string]any{"queryType": map[string]any{"name": "Query"}},
	}}, decode(t, w))

	h, _ = newTestHandler(t, WithIntrospection(false))
	w = post(t, h, `{"query":"{ __schema { queryType { name } } }"}`)
	require.NotEmpty(t, decode(t, w).(map[string]any)["errors"])
}

func TestRequestID(t *testing.T) {
	h, reg := newTestHandler(t)
	var captured int64
	reg.AddFieldResolver("Query", "requestId", func(_ any, _ map[string]any, rc *resolve.Context, _ *resolve.FieldInfo) (any, error) {
		captured, _ = reqid.FromContext(rc.Context())
		return reqid.Format(captured), nil
	})

	w := post(t, h, `{"query":"{ requestId }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotZero(t, captured)
	require.Equal(t, reqid.Format(captured), w.Header().Get(reqid.Header))
	require.Equal(t, map[string]any{"data": map[string]any{"requestId": reqid.Format(captured)}}, decode(t, w))
}

func TestCORSAndPreflight(t *testing.T) {
	h, _ := newTestHandler(t, WithCORS("*"))

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRequest(http.MethodOptions, "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	require.Equal(t, http.StatusNoContent, pw.Code)
	require.Equal(t, "*", pw.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Test", pw.Header().Get("Access-Control-Allow-Headers"))
}

func TestBadRequests(t *testing.T) {
	h, _ := newTestHandler(t, WithMaxBodyBytes(10))
	require.Equal(t, http.StatusRequestEntityTooLarge, post(t, h, `{"query":"1234567890"}`).Code)

	h, _ = newTestHandler(t)
	require.Equal(t, http.StatusBadRequest, post(t, h, `{"query":`).Code)
	require.Equal(t, http.StatusBadRequest, post(t, h, `[]`).Code)
	require.Equal(t, http.StatusBadRequest, post(t, h, `{}`).Code)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "text/html")
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/html")
}
