package producer

import (
	"fmt"
	"reflect"

	"github.com/hanpama/sdlresolver/internal/typeddata"
)

// Inputs holds the evaluated input values of one invocation, in declaration
// order.
type Inputs struct {
	names  []string
	values map[string]any
}

// NewInputs builds Inputs from name/value pairs.
func NewInputs(kv ...any) Inputs {
	in := Inputs{values: make(map[string]any, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		in.set(kv[i].(string), kv[i+1])
	}
	return in
}

func (in *Inputs) set(name string, v any) {
	if in.values == nil {
		in.values = make(map[string]any)
	}
	if _, ok := in.values[name]; !ok {
		in.names = append(in.names, name)
	}
	in.values[name] = v
}

// Names returns the input names in declaration order.
func (in Inputs) Names() []string { return append([]string(nil), in.names...) }

// Get returns the named value, or nil.
func (in Inputs) Get(name string) any { return in.values[name] }

// Has reports whether the named input has a non-null value.
func (in Inputs) Has(name string) bool { return in.values[name] != nil }

// String returns the named value rendered as text; "" when null.
func (in Inputs) String(name string) string {
	v := in.values[name]
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return typeddata.String(v)
}

// Strings returns a multi-valued input as strings. A single value yields a
// one-element slice.
func (in Inputs) Strings(name string) []string {
	v := in.values[name]
	switch x := v.(type) {
	case nil:
		return nil
	case []string:
		return x
	case string:
		return []string{x}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []string{fmt.Sprint(v)}
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, typeddata.String(rv.Index(i).Interface()))
	}
	return out
}

// Bool returns the named value as a boolean.
func (in Inputs) Bool(name string) bool {
	switch v := in.values[name].(type) {
	case bool:
		return v
	case string:
		return v != "" && v != "0" && v != "false"
	case int:
		return v != 0
	}
	return false
}

// Int returns the named value as an int, and whether it was one.
func (in Inputs) Int(name string) (int, bool) {
	switch v := in.values[name].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
