// Package reqid tags contexts with a per-request identifier.
package reqid

import (
	"context"
	"math/rand/v2"
	"strconv"
)

// Header is the HTTP header carrying the request ID.
const Header = "X-Request-Id"

type key struct{}

// NewContext returns a copy of parent with a new random request ID stored.
// It also returns the generated ID.
func NewContext(parent context.Context) (context.Context, int64) {
	id := rand.Int64()
	return WithID(parent, id), id
}

// WithID stores id in a copy of parent.
func WithID(parent context.Context, id int64) context.Context {
	return context.WithValue(parent, key{}, id)
}

// FromContext extracts the request ID from ctx.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(key{})
	id, ok := v.(int64)
	return id, ok
}

// Format renders id for the Header value.
func Format(id int64) string { return strconv.FormatInt(id, 16) }

// Parse reads a Header value produced by Format.
func Parse(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 16, 64)
	return id, err == nil
}
