package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jensneuse/abstractlogger"
	"github.com/stretchr/testify/require"
)

func TestHelp(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"help", "serve"}, &out))
	require.Contains(t, out.String(), "serve FLAGS")

	out.Reset()
	require.NoError(t, run([]string{"help"}, &out))
	require.Contains(t, out.String(), "print-schema")

	require.EqualError(t, run([]string{"help", "nope"}, &out), `unknown help topic "nope"`)
}

func TestUnknownCommand(t *testing.T) {
	require.EqualError(t, run(nil, new(bytes.Buffer)), "missing command")
	require.EqualError(t, run([]string{"launch"}, new(bytes.Buffer)), `unknown command "launch"`)
}

func TestPrintSchema(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"print-schema"}, &out))
	require.Contains(t, out.String(), "type Article implements Node")

	dir := t.TempDir()
	in := filepath.Join(dir, "schema.graphql")
	require.NoError(t, os.WriteFile(in, []byte("type Query { hello: String }"), 0644))
	dst := filepath.Join(dir, "out.graphql")
	require.NoError(t, run([]string{"print-schema", "-schema", in, "-out", dst}, &out))
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Contains(t, string(b), "hello: String")

	require.NoError(t, os.WriteFile(in, []byte("type Query { hello: Missing }"), 0644))
	require.Error(t, run([]string{"print-schema", "-schema", in}, &out))
}

func TestParseServe(t *testing.T) {
	cfg, err := parseServe([]string{
		"-server.addr", ":9090",
		"-server.timeout", "3s",
		"-server.cors", "https://a.example",
		"-server.cors", "https://b.example",
		"-graphql.introspection=false",
		"-log.level", "debug",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.addr)
	require.Equal(t, 3*time.Second, cfg.timeout)
	require.Equal(t, stringListFlag{"https://a.example", "https://b.example"}, cfg.cors)
	require.False(t, cfg.introspection)
	require.True(t, cfg.graphiql)
	require.Equal(t, "debug", cfg.logLevel)

	_, err = parseServe([]string{"-server.timeout", "soon"})
	require.Error(t, err)
}

func TestServeHandler(t *testing.T) {
	cfg, err := parseServe(nil)
	require.NoError(t, err)
	h, err := newHandler(cfg, abstractlogger.NoopLogger)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ article(id: \"2\") { title } }"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"article":{"title":"Second"}}}`, w.Body.String())

	cfg.fixturesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = newHandler(cfg, abstractlogger.NoopLogger)
	require.ErrorContains(t, err, "load fixtures")
}
