package resolve

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/hanpama/sdlresolver/internal/cachemeta"
)

// Context is the mutable state shared by all resolvers of one operation.
// It is safe for concurrent use.
type Context struct {
	ctx context.Context

	mu    sync.RWMutex
	slots map[string]map[string]any // name -> path key -> value

	meta *cachemeta.Collector
}

// NewContext returns an empty resolution context bound to ctx.
func NewContext(ctx context.Context) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{
		ctx:   ctx,
		slots: make(map[string]map[string]any),
		meta:  cachemeta.NewCollector(),
	}
}

// Context returns the Go context of the operation.
func (c *Context) Context() context.Context { return c.ctx }

// SetContext stores value in the named slot at the response path of info.
// A nil info addresses the operation root.
func (c *Context) SetContext(name string, value any, info *FieldInfo) {
	key := pathKey(infoPath(info))
	c.mu.Lock()
	defer c.mu.Unlock()
	byPath := c.slots[name]
	if byPath == nil {
		byPath = make(map[string]any)
		c.slots[name] = byPath
	}
	byPath[key] = value
}

// GetContext returns the value of the named slot stored at the nearest
// ancestor-or-self path of info, or def when there is none.
func (c *Context) GetContext(name string, info *FieldInfo, def any) any {
	if v, ok := c.lookup(name, info); ok {
		return v
	}
	return def
}

// HasContext reports whether GetContext would find a stored value.
func (c *Context) HasContext(name string, info *FieldInfo) bool {
	_, ok := c.lookup(name, info)
	return ok
}

func (c *Context) lookup(name string, info *FieldInfo) (any, bool) {
	path := infoPath(info)
	c.mu.RLock()
	defer c.mu.RUnlock()
	byPath := c.slots[name]
	for n := len(path); n >= 0 && byPath != nil; n-- {
		if v, ok := byPath[pathKey(path[:n])]; ok {
			return v, true
		}
	}
	return nil, false
}

// AddCacheableDependency merges the cache metadata of v when v carries any.
func (c *Context) AddCacheableDependency(v any) bool {
	return c.meta.AddDependency(v)
}

// MergeCacheMetadata folds m into the operation's cache metadata.
func (c *Context) MergeCacheMetadata(m cachemeta.Metadata) {
	c.meta.Merge(m)
}

// CacheMetadata returns the metadata accumulated so far.
func (c *Context) CacheMetadata() cachemeta.Metadata {
	return c.meta.Metadata()
}

func infoPath(info *FieldInfo) []any {
	if info == nil {
		return nil
	}
	return info.Path
}

func pathKey(path []any) string {
	var b strings.Builder
	for i, seg := range path {
		if i > 0 {
			b.WriteByte('.')
		}
		switch s := seg.(type) {
		case string:
			b.WriteString(s)
		case int:
			b.WriteString(strconv.Itoa(s))
		}
	}
	return b.String()
}
