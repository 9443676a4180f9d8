// Package routing generates paths for routed and unrouted URLs.
package routing

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/hanpama/sdlresolver/internal/cachemeta"
)

// URL references a route with parameters, or a literal path when Route is
// empty.
type URL struct {
	Route    string
	Params   map[string]string
	Path     string
	Query    url.Values
	Fragment string
	Absolute bool
}

// DataType implements typeddata.Typed.
func (u *URL) DataType() string { return "url" }

// FromRoute returns a routed URL.
func FromRoute(route string, params map[string]string) *URL {
	return &URL{Route: route, Params: params}
}

// FromPath returns an unrouted URL for a site path or an external URL.
func FromPath(path string) *URL { return &URL{Path: path} }

// EntityURL returns the canonical URL of an entity.
func EntityURL(entityType, id string) *URL {
	return FromRoute("entity."+entityType+".canonical", map[string]string{entityType: id})
}

// IsExternal reports whether u points outside the site.
func (u *URL) IsExternal() bool {
	return u.Route == "" && (strings.HasPrefix(u.Path, "http://") || strings.HasPrefix(u.Path, "https://") || strings.HasPrefix(u.Path, "//"))
}

// Generated is a URL string with the cache metadata its generation
// depended on.
type Generated struct {
	URL      string
	Metadata cachemeta.Metadata
}

// CacheDependencies implements cachemeta.Cacheable.
func (g Generated) CacheDependencies() cachemeta.Metadata { return g.Metadata }

// RouteNotFoundError is returned for URLs naming an unknown route.
type RouteNotFoundError struct {
	Route string
}

func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("route %q does not exist", e.Route)
}

// MissingParameterError is returned when a route placeholder has no value.
type MissingParameterError struct {
	Route     string
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("some mandatory parameters are missing (%q) to generate a URL for route %q", e.Parameter, e.Route)
}

// Generator turns URLs into strings. Route patterns use {name}
// placeholders, e.g. "/node/{node}".
type Generator struct {
	base *url.URL

	mu      sync.RWMutex
	routes  map[string]string
	aliases map[string]string
}

// NewGenerator returns a generator for the site at baseURL, which is used
// for absolute URLs only.
func NewGenerator(baseURL string) (*Generator, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	return &Generator{base: base, routes: make(map[string]string), aliases: make(map[string]string)}, nil
}

// AddRoute registers a route pattern.
func (g *Generator) AddRoute(name, pattern string) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes[name] = pattern
	return g
}

// AddAlias makes generated URLs for path use alias instead.
func (g *Generator) AddAlias(path, alias string) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.aliases[path] = alias
	return g
}

// Routes returns the registered route names, sorted.
func (g *Generator) Routes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.routes))
	for n := range g.routes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Generate renders u. Routed URLs depend on the route and the path alias
// list; absolute URLs also vary by site.
func (g *Generator) Generate(u *URL) (Generated, error) {
	if u == nil {
		return Generated{}, fmt.Errorf("cannot generate a nil url")
	}
	meta := cachemeta.New()
	path := u.Path
	if u.Route != "" {
		g.mu.RLock()
		pattern, ok := g.routes[u.Route]
		g.mu.RUnlock()
		if !ok {
			return Generated{}, &RouteNotFoundError{Route: u.Route}
		}
		p, err := expand(u.Route, pattern, u.Params)
		if err != nil {
			return Generated{}, err
		}
		path = p
		meta = meta.Merge(cachemeta.New("route:" + u.Route))
	}

	if u.IsExternal() {
		return Generated{URL: appendQuery(path, u), Metadata: meta}, nil
	}
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	g.mu.RLock()
	if alias, ok := g.aliases[path]; ok {
		path = alias
	}
	g.mu.RUnlock()
	meta = meta.Merge(cachemeta.New("path_alias_list"))

	out := appendQuery(path, u)
	if u.Absolute {
		ref, err := url.Parse(out)
		if err != nil {
			return Generated{}, fmt.Errorf("generate %s: %w", out, err)
		}
		out = g.base.ResolveReference(ref).String()
		meta = meta.WithContexts("url.site")
	}
	return Generated{URL: out, Metadata: meta}, nil
}

func expand(route, pattern string, params map[string]string) (string, error) {
	var b strings.Builder
	for {
		open := strings.IndexByte(pattern, '{')
		if open < 0 {
			b.WriteString(pattern)
			return b.String(), nil
		}
		end := strings.IndexByte(pattern[open:], '}')
		if end < 0 {
			b.WriteString(pattern)
			return b.String(), nil
		}
		name := pattern[open+1 : open+end]
		v, ok := params[name]
		if !ok || v == "" {
			return "", &MissingParameterError{Route: route, Parameter: name}
		}
		b.WriteString(pattern[:open])
		b.WriteString(url.PathEscape(v))
		pattern = pattern[open+end+1:]
	}
}

func appendQuery(path string, u *URL) string {
	if len(u.Query) > 0 {
		path += "?" + u.Query.Encode()
	}
	if u.Fragment != "" {
		path += "#" + u.Fragment
	}
	return path
}
