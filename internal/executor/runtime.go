package executor

import (
	"context"

	schema "github.com/hanpama/sdlresolver/internal/schema"
)

// Runtime is the host integration surface of the Executor: field and type
// resolution, settlement of pending values and leaf serialization.
//
// General contract
//   - ResolveField is called once per field instance, parents before
//     children. It may return a Pending value instead of a plain one; the
//     Executor then queues the field and settles it after the current depth
//     has been expanded.
//   - Pending values of one depth are settled with Settle in the order they
//     were queued, all of them before any is completed. The first
//     settlement of a depth is therefore the point where batched loads
//     collected by that depth run.
//   - Errors returned from any method are converted into located GraphQL
//     errors. If the field's return type is Non-Null, the null propagates.
//   - A Runtime is bound to one operation; the Executor never calls it
//     concurrently.
//
// Abstract types and leaf values
//   - ResolveType returns the concrete object type name for an interface or
//     union value, or "" when it cannot tell.
//   - SerializeLeafValue coerces scalars and enums into JSON-safe Go values.
type Runtime interface {
	// ResolveField resolves the raw value of a field. Return (nil, nil) for a
	// GraphQL null.
	ResolveField(ctx context.Context, field FieldContext, source any, args map[string]any) (any, error)

	// Settle waits for a Pending value and returns what it resolved to. The
	// result may itself be Pending.
	Settle(ctx context.Context, value any) (any, error)

	// ResolveType determines the concrete type of a value of abstractType.
	ResolveType(ctx context.Context, abstractType string, value any, field FieldContext) (string, error)

	// SerializeLeafValue serializes a scalar or enum value.
	SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error)
}

// Pending is implemented by values that resolve later.
type Pending interface {
	Wait() (any, error)
}

// FieldContext identifies the field instance being resolved.
type FieldContext struct {
	// ObjectType is the parent object type name, e.g. "Query".
	ObjectType string
	// Field is the field name.
	Field string
	// ReturnType is the declared type of the field.
	ReturnType *schema.TypeRef
	// Path is the response path of the value being resolved.
	Path Path
}

func isPending(v any) bool {
	_, ok := v.(Pending)
	return ok
}
