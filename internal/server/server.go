package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/jensneuse/abstractlogger"

	"github.com/hanpama/sdlresolver/internal/cachemeta"
	eventbus "github.com/hanpama/sdlresolver/internal/eventbus"
	events "github.com/hanpama/sdlresolver/internal/events"
	executor "github.com/hanpama/sdlresolver/internal/executor"
	"github.com/hanpama/sdlresolver/internal/introspection"
	language "github.com/hanpama/sdlresolver/internal/language"
	reqid "github.com/hanpama/sdlresolver/internal/reqid"
	"github.com/hanpama/sdlresolver/internal/resolve"
	schema "github.com/hanpama/sdlresolver/internal/schema"
	"github.com/hanpama/sdlresolver/internal/sdlrt"
)

// Response headers describing the cacheability of a response.
const (
	HeaderCacheTags     = "Cache-Tags"
	HeaderCacheContexts = "Vary-Cache-Contexts"
)

// Handler is an http.Handler that serves a GraphQL endpoint.
// Every document gets its own resolve.Context; batched documents are
// executed one after another and their cache metadata is merged.
type Handler struct {
	registry  *resolve.Registry
	schema    *schema.Schema
	execution *schema.Schema
	documents *lru.Cache
	opt       Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// GraphiQL enables the in-browser IDE when true.
	GraphiQL bool

	// Introspection serves __schema and __type.
	Introspection bool

	// DocumentCacheSize bounds the number of parsed documents kept. 0
	// disables the cache.
	DocumentCacheSize int

	// CacheHeaders emits Cache-Control, cache tags, cache contexts and an
	// ETag derived from the operation's cache metadata.
	CacheHeaders bool

	Logger abstractlogger.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithGraphiQL(enable bool) Option      { return func(o *Options) { o.GraphiQL = enable } }
func WithIntrospection(enable bool) Option { return func(o *Options) { o.Introspection = enable } }
func WithDocumentCacheSize(n int) Option   { return func(o *Options) { o.DocumentCacheSize = n } }
func WithCacheHeaders(enable bool) Option  { return func(o *Options) { o.CacheHeaders = enable } }
func WithLogger(l abstractlogger.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a GraphQL HTTP handler resolving s through registry.
func New(registry *resolve.Registry, s *schema.Schema, opts ...Option) (*Handler, error) {
	op := Options{
		Timeout:           10 * time.Second,
		GraphiQL:          true,
		Introspection:     true,
		DocumentCacheSize: 256,
		CacheHeaders:      true,
		Logger:            abstractlogger.NoopLogger,
	}
	for _, f := range opts {
		f(&op)
	}
	h := &Handler{registry: registry, schema: s, execution: s, opt: op}
	if op.Introspection {
		extended, err := introspection.Extend(s)
		if err != nil {
			return nil, err
		}
		h.execution = extended
	}
	if op.DocumentCacheSize > 0 {
		cache, err := lru.New(op.DocumentCacheSize)
		if err != nil {
			return nil, fmt.Errorf("document cache: %w", err)
		}
		h.documents = cache
	}
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.NewContext(ctx)
	w.Header().Set(reqid.Header, reqid.Format(rid))
	var (
		status = http.StatusOK
		meta   cachemeta.Metadata
		start  = time.Now()
	)
	eventbus.Publish(ctx, events.RequestStart{Method: r.Method, Path: r.URL.Path})
	defer func() {
		eventbus.Publish(ctx, events.RequestFinish{
			Method:   r.Method,
			Path:     r.URL.Path,
			Status:   status,
			Cache:    meta,
			Duration: time.Since(start),
		})
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		h.writeJSON(w, r, status, errorResponse(&language.Error{Message: "method not allowed"}), nil)
		return
	}

	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = http.StatusBadRequest
		if berr.Message == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		h.opt.Logger.Error("server.request",
			abstractlogger.String("error", berr.Message),
			abstractlogger.Int("status", status),
		)
		h.writeJSON(w, r, status, errorResponse(berr), nil)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if batch != nil {
		out := make([]any, len(batch))
		meta = cachemeta.New()
		for i := range batch {
			res, m := h.executeOne(ctx, batch[i])
			out[i] = res
			meta = meta.Merge(m)
		}
		status = h.writeJSON(w, r, status, out, &meta)
		return
	}

	var res any
	res, meta = h.executeOne(ctx, req)
	status = h.writeJSON(w, r, status, res, &meta)
}

// executeOne runs one document and returns its response body together with
// the cache metadata the response depends on. Failed documents are
// uncacheable.
func (h *Handler) executeOne(ctx context.Context, req GraphQLRequest) (any, cachemeta.Metadata) {
	key := xxhash.Sum64String(req.Query)
	doc, err := h.document(key, req.Query)
	if err != nil {
		h.opt.Logger.Debug("server.document", abstractlogger.Error(err))
		return documentErrors(err), cachemeta.Uncacheable()
	}

	opType := ""
	if opDef := pickOperation(doc, req.OperationName); opDef != nil {
		opType = string(opDef.Operation)
	}

	rc := resolve.NewContext(ctx)
	var rt executor.Runtime = sdlrt.New(h.registry, h.schema, rc)
	if h.opt.Introspection {
		rt = introspection.Wrap(rt, h.schema)
	}
	exec := executor.NewExecutor(rt, h.execution)

	start := time.Now()
	eventbus.Publish(ctx, events.OperationStart{Document: key, OperationName: req.OperationName, OperationType: opType})
	result := exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)

	meta := rc.CacheMetadata()
	var body any = result
	if result.HasErrors() {
		meta = meta.Merge(cachemeta.Uncacheable())
		body = toWireResult(result)
	}
	errs := make([]error, len(result.Errors))
	for i := range result.Errors {
		errs[i] = result.Errors[i]
	}
	eventbus.Publish(ctx, events.OperationFinish{
		Document:      key,
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        errs,
		Cache:         meta,
		Duration:      time.Since(start),
	})
	return body, meta
}

// document parses query, validating it when the schema came from SDL.
// Valid documents are cached under key, the hash of their source.
func (h *Handler) document(key uint64, query string) (*language.QueryDocument, error) {
	if h.documents != nil {
		if doc, ok := h.documents.Get(key); ok {
			return doc.(*language.QueryDocument), nil
		}
	}
	var (
		doc *language.QueryDocument
		err error
	)
	if h.schema.AST != nil {
		doc, err = language.LoadQuery(h.schema.AST, query)
	} else {
		doc, err = language.ParseQuery(query)
	}
	if err != nil {
		return nil, err
	}
	if h.documents != nil {
		h.documents.Add(key, doc)
	}
	return doc, nil
}

func pickOperation(doc *language.QueryDocument, name string) *language.OperationDefinition {
	if op := doc.Operations.ForName(name); op != nil {
		return op
	}
	if len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	return nil
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, *language.Error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return GraphQLRequest{}, nil, &language.Error{Message: "missing 'query'"}
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return GraphQLRequest{}, nil, &language.Error{Message: "invalid 'variables' JSON"}
			}
		}
		op := r.URL.Query().Get("operationName")
		return GraphQLRequest{Query: q, Variables: vars, OperationName: op}, nil, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return GraphQLRequest{}, nil, &language.Error{Message: "unsupported Content-Type"}
	}
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return GraphQLRequest{}, nil, &language.Error{Message: "failed to read body"}
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return GraphQLRequest{}, nil, &language.Error{Message: errBodyTooLargeMessage}
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var arr []GraphQLRequest
		if err := json.Unmarshal(body, &arr); err != nil {
			return GraphQLRequest{}, nil, &language.Error{Message: "invalid JSON"}
		}
		if len(arr) == 0 {
			return GraphQLRequest{}, nil, &language.Error{Message: "empty batch"}
		}
		return GraphQLRequest{}, arr, nil
	}
	var req GraphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return GraphQLRequest{}, nil, &language.Error{Message: "invalid JSON"}
	}
	if req.Query == "" {
		return GraphQLRequest{}, nil, &language.Error{Message: "missing 'query'"}
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	return req, nil, nil
}

// ------------------ Response formatting ------------------

type wireLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type wireError struct {
	Message    string         `json:"message"`
	Locations  []wireLocation `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type wireResult struct {
	Data   any         `json:"data"`
	Errors []wireError `json:"errors,omitempty"`
}

func errorResponse(err *language.Error) wireResult {
	return wireResult{Errors: []wireError{fromLanguageError(err)}}
}

// documentErrors renders parse and validation failures with their
// locations.
func documentErrors(err error) wireResult {
	var list language.ErrorList
	if errors.As(err, &list) {
		out := wireResult{Errors: make([]wireError, 0, len(list))}
		for _, e := range list {
			out.Errors = append(out.Errors, fromLanguageError(e))
		}
		return out
	}
	var single *language.Error
	if errors.As(err, &single) {
		return errorResponse(single)
	}
	return errorResponse(&language.Error{Message: err.Error()})
}

func fromLanguageError(e *language.Error) wireError {
	se := wireError{Message: e.Message, Extensions: e.Extensions}
	for _, l := range e.Locations {
		se.Locations = append(se.Locations, wireLocation{Line: l.Line, Column: l.Column})
	}
	return se
}

func toWireResult(res *executor.ExecutionResult) wireResult {
	out := wireResult{Data: res.Data}
	out.Errors = make([]wireError, len(res.Errors))
	for i, e := range res.Errors {
		se := wireError{Message: e.Message, Extensions: e.Extensions}
		if len(e.Path) > 0 {
			se.Path = make([]any, len(e.Path))
			for j, pe := range e.Path {
				switch v := pe.(type) {
				case string, int:
					se.Path[j] = v
				default:
					b, _ := json.Marshal(v)
					se.Path[j] = string(b)
				}
			}
		}
		out.Errors[i] = se
	}
	return out
}

// writeJSON encodes v and writes it with status. When meta is set and cache
// headers are enabled, the response carries its cacheability and an ETag;
// a matching If-None-Match yields 304. It returns the status written.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any, meta *cachemeta.Metadata) int {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		h.opt.Logger.Error("server.encode", abstractlogger.Error(err))
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorResponse(&language.Error{Message: "failed to encode response"}))
		meta = nil
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "application/json; charset=utf-8")
	if meta != nil && h.opt.CacheHeaders {
		hdr.Set("Cache-Control", meta.CacheControl())
		if len(meta.Tags) > 0 {
			hdr.Set(HeaderCacheTags, strings.Join(meta.Tags, " "))
		}
		if len(meta.Contexts) > 0 {
			hdr.Set(HeaderCacheContexts, strings.Join(meta.Contexts, " "))
		}
		if meta.IsCacheable() {
			etag := `"` + strconv.FormatUint(xxhash.Sum64(buf.Bytes()), 16) + `"`
			hdr.Set("ETag", etag)
			if status == http.StatusOK && etagMatches(r.Header.Get("If-None-Match"), etag) {
				w.WriteHeader(http.StatusNotModified)
				return http.StatusNotModified
			}
		}
	}
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
	return status
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == etag || candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Expose-Headers", strings.Join([]string{reqid.Header, HeaderCacheTags, HeaderCacheContexts, "ETag"}, ", "))
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func acceptsHTML(accept string) bool {
	if accept == "" {
		return false
	}
	for _, p := range strings.Split(accept, ",") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "text/html") || p == "*/*" {
			return true
		}
	}
	return false
}
