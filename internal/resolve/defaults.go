package resolve

import (
	"reflect"
	"strings"
	"unicode"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// DefaultFieldResolver reads the field off value structurally: a map key,
// an exported struct field (by name or json tag) or a zero-argument method
// named after the field, optionally prefixed with Get. A FieldResolverFunc
// found this way is invoked with the same arguments.
func DefaultFieldResolver(value any, args map[string]any, rc *Context, info *FieldInfo) (any, error) {
	out, err := structuralProperty(value, info.FieldName)
	if err != nil {
		return nil, err
	}
	switch fn := out.(type) {
	case FieldResolverFunc:
		return fn(value, args, rc, info)
	case func(any, map[string]any, *Context, *FieldInfo) (any, error):
		return fn(value, args, rc, info)
	}
	return out, nil
}

func structuralProperty(value any, name string) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v[name], nil
	case map[string]string:
		if s, ok := v[name]; ok {
			return s, nil
		}
		return nil, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, nil
	}
	if out, ok, err := callAccessor(rv, name); ok || err != nil {
		return out, err
	}
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, nil
		}
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, nil
		}
		return mv.Interface(), nil
	case reflect.Struct:
		return structField(rv, name), nil
	}
	return nil, nil
}

func callAccessor(rv reflect.Value, name string) (any, bool, error) {
	exported := exportedName(name)
	for _, candidate := range []string{exported, "Get" + exported} {
		m := rv.MethodByName(candidate)
		if !m.IsValid() || m.Type().NumIn() != 0 {
			continue
		}
		mt := m.Type()
		switch {
		case mt.NumOut() == 1:
			return m.Call(nil)[0].Interface(), true, nil
		case mt.NumOut() == 2 && mt.Out(1).Implements(errorType):
			res := m.Call(nil)
			if !res[1].IsNil() {
				return nil, true, res[1].Interface().(error)
			}
			return res[0].Interface(), true, nil
		}
	}
	return nil, false, nil
}

func structField(rv reflect.Value, name string) any {
	rt := rv.Type()
	exported := exportedName(name)
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := strings.Split(sf.Tag.Get("json"), ",")[0]
		if tag == name || (tag == "" && (sf.Name == exported || sf.Name == name)) {
			return rv.Field(i).Interface()
		}
	}
	return nil
}

func exportedName(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
