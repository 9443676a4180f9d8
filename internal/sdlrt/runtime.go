// Package sdlrt binds a resolver registry to the executor.
//
// A Runtime serves one operation: every field resolved through it shares
// one resolve.Context, so context slots and cache metadata accumulate over
// the whole response. Values wrapped in cachemeta.Value are unwrapped and
// their metadata merged before the executor sees them; values carrying
// their own metadata are added as dependencies. Deferred results are left
// to the executor, which settles them depth by depth.
package sdlrt

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/hanpama/sdlresolver/internal/cachemeta"
	"github.com/hanpama/sdlresolver/internal/deferred"
	"github.com/hanpama/sdlresolver/internal/executor"
	"github.com/hanpama/sdlresolver/internal/resolve"
	"github.com/hanpama/sdlresolver/internal/schema"
)

// Runtime implements executor.Runtime over a resolve.Registry.
type Runtime struct {
	registry *resolve.Registry
	schema   *schema.Schema
	rc       *resolve.Context
}

var _ executor.Runtime = (*Runtime)(nil)

// New returns a Runtime resolving against registry within rc.
func New(registry *resolve.Registry, s *schema.Schema, rc *resolve.Context) *Runtime {
	return &Runtime{registry: registry, schema: s, rc: rc}
}

// Context returns the resolution context shared by the operation.
func (r *Runtime) Context() *resolve.Context { return r.rc }

func (r *Runtime) ResolveField(ctx context.Context, field executor.FieldContext, source any, args map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := r.registry.ResolveField(source, args, r.rc, r.fieldInfo(field))
	if err != nil {
		return nil, err
	}
	return r.collect(v), nil
}

// Settle runs one step of a deferred value and returns its result, which
// may be the next pending value in its chain. Concrete values pass through.
func (r *Runtime) Settle(ctx context.Context, value any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := deferred.Step(value)
	if err != nil {
		return nil, err
	}
	return r.collect(v), nil
}

func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any, field executor.FieldContext) (string, error) {
	info := r.fieldInfo(field)
	info.AbstractType = abstractType
	return r.registry.ResolveType(value, r.rc, info)
}

// SerializeLeafValue converts resolver output to the JSON representation of
// a built-in scalar or an enum. Stored values are often strings, so numeric
// and boolean strings are parsed.
func (r *Runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch typeName {
	case "String":
		return serializeString(value), nil
	case "ID":
		return serializeID(value)
	case "Int":
		return serializeInt(value)
	case "Float":
		return serializeFloat(value)
	case "Boolean":
		return serializeBoolean(value)
	}
	if t := r.schema.Types[typeName]; t != nil && t.Kind == schema.TypeKindEnum {
		name := serializeString(value)
		for _, ev := range t.EnumValues {
			if ev.Name == name {
				return name, nil
			}
		}
		return nil, fmt.Errorf("Enum %q cannot represent value: %v", typeName, value)
	}
	return value, nil
}

func (r *Runtime) fieldInfo(field executor.FieldContext) *resolve.FieldInfo {
	path := make([]any, len(field.Path))
	for i, p := range field.Path {
		path[i] = p
	}
	return &resolve.FieldInfo{
		ParentType: field.ObjectType,
		FieldName:  field.Field,
		ReturnType: field.ReturnType,
		Path:       path,
		Schema:     r.schema,
	}
}

// collect merges the metadata v carries and strips cachemeta.Value
// wrappers. Deferred values are returned untouched.
func (r *Runtime) collect(v any) any {
	for {
		inner, m, ok := cachemeta.Unwrap(v)
		v = inner
		if !ok {
			break
		}
		r.rc.MergeCacheMetadata(m)
	}
	if deferred.Is(v) {
		return v
	}
	r.rc.AddCacheableDependency(v)
	return v
}

func serializeString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	}
	return fmt.Sprint(value)
}

func serializeID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprint(v), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	case fmt.Stringer:
		return v.String(), nil
	}
	return nil, fmt.Errorf("ID cannot represent value: %v", value)
}

func serializeInt(value any) (any, error) {
	var f float64
	switch v := value.(type) {
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case float32:
		f = float64(v)
	case float64:
		f = v
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %q", v)
		}
		f = n
	default:
		return nil, fmt.Errorf("Int cannot represent non-integer value: %v", value)
	}
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("Int cannot represent non-integer value: %v", value)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %v", value)
	}
	return int(f), nil
}

func serializeFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
		return nil, fmt.Errorf("Float cannot represent non numeric value: %q", v)
	}
	return nil, fmt.Errorf("Float cannot represent non numeric value: %v", value)
}

func serializeBoolean(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b, nil
		}
		if v == "" {
			return false, nil
		}
	}
	return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v", value)
}
