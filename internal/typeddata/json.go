package typeddata

import (
	"github.com/tidwall/gjson"
)

// JSON adapts a parsed JSON document. Objects become complex data with an
// open shape, arrays become lists and anything else is returned as its Go
// value.
func JSON(r gjson.Result) any {
	switch {
	case r.IsObject():
		return jsonObject{r}
	case r.IsArray():
		return jsonArray{r.Array()}
	case !r.Exists() || r.Type == gjson.Null:
		return nil
	}
	return r.Value()
}

type jsonObject struct{ r gjson.Result }

func (o jsonObject) DataType() string { return "json" }
func (o jsonObject) Value() any       { return o.r.Value() }

func (o jsonObject) PropertyNames() []string {
	var names []string
	o.r.ForEach(func(k, _ gjson.Result) bool {
		names = append(names, k.String())
		return true
	})
	return names
}

func (o jsonObject) Property(name string) (any, bool) {
	var found gjson.Result
	o.r.ForEach(func(k, v gjson.Result) bool {
		if k.String() == name {
			found = v
			return false
		}
		return true
	})
	return jsonValue(found), true
}

type jsonArray struct{ items []gjson.Result }

func (a jsonArray) DataType() string { return "list" }
func (a jsonArray) Len() int         { return len(a.items) }
func (a jsonArray) Index(i int) any  { return jsonValue(a.items[i]) }

func (a jsonArray) Value() any {
	out := make([]any, len(a.items))
	for i, it := range a.items {
		out[i] = it.Value()
	}
	return out
}

func jsonValue(r gjson.Result) any {
	if r.IsObject() || r.IsArray() {
		return JSON(r)
	}
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	return r.Value()
}
