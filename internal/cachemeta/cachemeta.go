// Package cachemeta carries cacheability metadata for resolved values.
//
// Metadata combines in a fixed way: tags are unioned, max-age takes the
// minimum (with Permanent treated as larger than any finite age) and
// contexts are unioned.
package cachemeta

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Permanent is the max-age of metadata that never expires.
const Permanent = -1

// Metadata describes how long a value may be cached and what invalidates it.
type Metadata struct {
	Tags     []string
	MaxAge   int
	Contexts []string
}

// New returns permanent metadata with the given tags.
func New(tags ...string) Metadata {
	return Metadata{Tags: normalize(tags), MaxAge: Permanent}
}

// Uncacheable returns metadata with a max-age of zero.
func Uncacheable() Metadata { return Metadata{MaxAge: 0} }

// WithMaxAge returns a copy of m with its max-age lowered to age.
func (m Metadata) WithMaxAge(age int) Metadata {
	m.MaxAge = mergeMaxAge(m.MaxAge, age)
	return m
}

// WithContexts returns a copy of m with contexts added.
func (m Metadata) WithContexts(contexts ...string) Metadata {
	m.Contexts = normalize(append(append([]string(nil), m.Contexts...), contexts...))
	return m
}

// Merge combines m with other.
func (m Metadata) Merge(other Metadata) Metadata {
	return Metadata{
		Tags:     normalize(append(append([]string(nil), m.Tags...), other.Tags...)),
		MaxAge:   mergeMaxAge(m.MaxAge, other.MaxAge),
		Contexts: normalize(append(append([]string(nil), m.Contexts...), other.Contexts...)),
	}
}

// IsCacheable reports whether the metadata permits caching at all.
func (m Metadata) IsCacheable() bool { return m.MaxAge != 0 }

// Fingerprint returns a stable digest of the metadata.
func (m Metadata) Fingerprint() uint64 {
	d := xxhash.New()
	for _, t := range normalize(m.Tags) {
		_, _ = d.WriteString(t)
		_, _ = d.WriteString("\x00")
	}
	_, _ = d.WriteString("\x01" + strconv.Itoa(m.MaxAge) + "\x01")
	for _, c := range normalize(m.Contexts) {
		_, _ = d.WriteString(c)
		_, _ = d.WriteString("\x00")
	}
	return d.Sum64()
}

// CacheControl renders the max-age as a Cache-Control header value.
func (m Metadata) CacheControl() string {
	switch {
	case m.MaxAge == 0:
		return "no-cache"
	case m.MaxAge == Permanent:
		return "public, max-age=31536000"
	default:
		return "public, max-age=" + strconv.Itoa(m.MaxAge)
	}
}

func (m Metadata) String() string {
	return "tags=[" + strings.Join(m.Tags, " ") + "] max-age=" + strconv.Itoa(m.MaxAge) +
		" contexts=[" + strings.Join(m.Contexts, " ") + "]"
}

func mergeMaxAge(a, b int) int {
	if a == Permanent {
		return b
	}
	if b == Permanent {
		return a
	}
	if a < b {
		return a
	}
	return b
}

func normalize(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Cacheable is implemented by values that carry their own metadata.
type Cacheable interface {
	CacheDependencies() Metadata
}

// Value wraps an arbitrary value together with its metadata.
type Value struct {
	Value any
	Metadata
}

// NewValue wraps v with permanent metadata plus the given tags.
func NewValue(v any, tags ...string) *Value {
	return &Value{Value: v, Metadata: New(tags...)}
}

// CacheDependencies implements Cacheable. A nil *Value carries permanent,
// tagless metadata.
func (v *Value) CacheDependencies() Metadata {
	if v == nil {
		return New()
	}
	return v.Metadata
}

// Unwrap strips a *Value wrapper, returning the inner value and its
// metadata. A nil *Value unwraps to nil.
func Unwrap(v any) (any, Metadata, bool) {
	cv, ok := v.(*Value)
	switch {
	case !ok:
		return v, Metadata{}, false
	case cv == nil:
		return nil, Metadata{}, false
	}
	return cv.Value, cv.Metadata, true
}

// Collector accumulates metadata concurrently.
type Collector struct {
	mu sync.Mutex
	m  Metadata
}

// NewCollector returns a collector holding permanent, tagless metadata.
func NewCollector() *Collector {
	return &Collector{m: New()}
}

// AddDependency merges v's metadata if v implements Cacheable. Nil
// pointers are ignored even when their type implements it.
func (c *Collector) AddDependency(v any) bool {
	cv, ok := v.(Cacheable)
	if !ok || isNil(cv) {
		return false
	}
	c.Merge(cv.CacheDependencies())
	return true
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Merge folds m into the collected metadata.
func (c *Collector) Merge(m Metadata) {
	c.mu.Lock()
	c.m = c.m.Merge(m)
	c.mu.Unlock()
}

// AddTags adds cache tags.
func (c *Collector) AddTags(tags ...string) {
	c.Merge(New(tags...))
}

// Metadata returns a snapshot of what has been collected.
func (c *Collector) Metadata() Metadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Metadata{
		Tags:     append([]string(nil), c.m.Tags...),
		MaxAge:   c.m.MaxAge,
		Contexts: append([]string(nil), c.m.Contexts...),
	}
}
