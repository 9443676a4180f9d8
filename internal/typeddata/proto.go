package typeddata

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Message exposes a protobuf message as complex data. Properties are the
// message fields addressed by JSON name; the proto field name is accepted
// as well.
type Message struct {
	m protoreflect.Message
}

// NewMessage wraps msg.
func NewMessage(msg proto.Message) *Message {
	return &Message{m: msg.ProtoReflect()}
}

func (d *Message) DataType() string {
	return "proto:" + string(d.m.Descriptor().FullName())
}

func (d *Message) Value() any { return d.m.Interface() }

func (d *Message) PropertyNames() []string {
	fields := d.m.Descriptor().Fields()
	names := make([]string, fields.Len())
	for i := 0; i < fields.Len(); i++ {
		names[i] = fields.Get(i).JSONName()
	}
	return names
}

func (d *Message) Property(name string) (any, bool) {
	fields := d.m.Descriptor().Fields()
	fd := fields.ByJSONName(name)
	if fd == nil {
		fd = fields.ByName(protoreflect.Name(name))
	}
	if fd == nil {
		return nil, false
	}
	if fd.HasPresence() && !d.m.Has(fd) {
		return nil, true
	}
	return protoValue(fd, d.m.Get(fd)), true
}

func protoValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch {
	case fd.IsList():
		l := v.List()
		out := make([]any, l.Len())
		for i := 0; i < l.Len(); i++ {
			out[i] = protoScalar(fd, l.Get(i))
		}
		return out
	case fd.IsMap():
		out := make(map[string]any, v.Map().Len())
		v.Map().Range(func(k protoreflect.MapKey, mv protoreflect.Value) bool {
			out[k.String()] = protoScalar(fd.MapValue(), mv)
			return true
		})
		return out
	}
	return protoScalar(fd, v)
}

func protoScalar(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return v.Message().Interface()
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByNumber(v.Enum()); ev != nil {
			return string(ev.Name())
		}
		return int32(v.Enum())
	}
	return v.Interface()
}
