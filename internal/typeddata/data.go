// Package typeddata adapts Go values to a uniform structured view and
// walks property paths across them.
package typeddata

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"google.golang.org/protobuf/proto"
)

// Typed is implemented by values that know their own data type.
type Typed interface {
	DataType() string
}

// ComplexData is a value with named properties.
type ComplexData interface {
	Typed
	PropertyNames() []string
	// Property returns the value of a property. ok is false only when
	// the value has a fixed shape that cannot hold name, as for an unknown
	// protobuf field. Open shapes report an unset property as nil, true.
	Property(name string) (value any, ok bool)
}

// ListData is an ordered collection.
type ListData interface {
	Typed
	Len() int
	Index(i int) any
}

// Provider is implemented by domain objects exposing a typed-data view,
// such as entities.
type Provider interface {
	TypedData() ComplexData
}

// Valuer is implemented by adapters that wrap a plain Go value.
type Valuer interface {
	Value() any
}

// HasProperty reports whether c declares name.
func HasProperty(c ComplexData, name string) bool {
	for _, p := range c.PropertyNames() {
		if p == name {
			return true
		}
	}
	return false
}

// AsComplex returns the structured view of v for values that carry a
// declared shape: providers, complex data, protobuf messages and JSON
// objects. Plain maps are not included.
func AsComplex(v any) (ComplexData, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case ComplexData:
		return x, true
	case Provider:
		if c := x.TypedData(); c != nil {
			return c, true
		}
		return nil, false
	case proto.Message:
		return NewMessage(x), true
	case json.RawMessage:
		if r := gjson.ParseBytes(x); r.IsObject() {
			return JSON(r).(ComplexData), true
		}
	case gjson.Result:
		if x.IsObject() {
			return JSON(x).(ComplexData), true
		}
	}
	return nil, false
}

// Wrap adapts v to ComplexData or ListData where possible and returns
// scalars unchanged.
func Wrap(v any) any {
	if c, ok := AsComplex(v); ok {
		return c
	}
	switch x := v.(type) {
	case nil:
		return nil
	case ListData:
		return x
	case map[string]any:
		return mapData(x)
	case json.RawMessage:
		return JSON(gjson.ParseBytes(x))
	case gjson.Result:
		return JSON(x)
	case []byte, string:
		return v
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return sliceData{rv}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return reflectMapData{rv}
		}
	}
	return v
}

// Unwrap returns the plain Go value behind an adapter.
func Unwrap(v any) any {
	if w, ok := v.(Valuer); ok {
		return w.Value()
	}
	return v
}

// DataTypeOf names the data type of v.
func DataTypeOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case Typed:
		return x.DataType()
	case Provider:
		if c := x.TypedData(); c != nil {
			return c.DataType()
		}
		return ""
	case proto.Message:
		return NewMessage(x).DataType()
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case float32, float64:
		return "float"
	}
	switch w := Wrap(v).(type) {
	case Typed:
		return w.DataType()
	}
	return "any"
}

// String renders v the way a typed-data property is rendered as text.
// Lists and complex values join their non-empty parts with ", ".
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		if _, ok := v.(proto.Message); !ok {
			return x.String()
		}
	}
	switch w := Wrap(v).(type) {
	case ListData:
		parts := make([]string, 0, w.Len())
		for i := 0; i < w.Len(); i++ {
			if s := String(w.Index(i)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case ComplexData:
		names := w.PropertyNames()
		parts := make([]string, 0, len(names))
		for _, n := range names {
			pv, _ := w.Property(n)
			if s := String(pv); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}

type mapData map[string]any

func (m mapData) DataType() string { return "map" }
func (m mapData) Value() any       { return map[string]any(m) }

func (m mapData) PropertyNames() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (m mapData) Property(name string) (any, bool) { return m[name], true }

type reflectMapData struct{ rv reflect.Value }

func (m reflectMapData) DataType() string { return "map" }
func (m reflectMapData) Value() any       { return m.rv.Interface() }

func (m reflectMapData) PropertyNames() []string {
	names := make([]string, 0, m.rv.Len())
	for _, k := range m.rv.MapKeys() {
		names = append(names, k.String())
	}
	sort.Strings(names)
	return names
}

func (m reflectMapData) Property(name string) (any, bool) {
	v := m.rv.MapIndex(reflect.ValueOf(name).Convert(m.rv.Type().Key()))
	if !v.IsValid() {
		return nil, true
	}
	return v.Interface(), true
}

type sliceData struct{ rv reflect.Value }

func (s sliceData) DataType() string { return "list" }
func (s sliceData) Value() any       { return s.rv.Interface() }
func (s sliceData) Len() int         { return s.rv.Len() }
func (s sliceData) Index(i int) any  { return s.rv.Index(i).Interface() }
