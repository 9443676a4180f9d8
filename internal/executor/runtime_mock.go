package executor

import (
	"context"
	"fmt"
	"sync"
)

// MockResolver resolves a single field instance in tests.
type MockResolver func(ctx context.Context, source any, args map[string]any) (any, error)

// Call kinds recorded by MockRuntime.
const (
	CallKindResolve = "resolve"
	CallKindSettle  = "settle"
)

// NewMockValueResolver returns a MockResolver that always returns val.
func NewMockValueResolver(val any) MockResolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return val, nil
	}
}

// NewMockErrorResolver returns a MockResolver that always returns err.
func NewMockErrorResolver(err error) MockResolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return nil, err
	}
}

// NewMockPendingResolver returns a MockResolver whose result is pending and
// settles to the value or error of next.
func NewMockPendingResolver(next MockResolver) MockResolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return &MockPending{settle: func() (any, error) { return next(ctx, source, args) }}, nil
	}
}

// MockPending is a Pending value settled by MockRuntime.Settle.
type MockPending struct {
	settle     func() (any, error)
	objectType string
	field      string
}

// NewMockPending returns a pending value settling to v.
func NewMockPending(v any) *MockPending {
	return &MockPending{settle: func() (any, error) { return v, nil }}
}

func (p *MockPending) Wait() (any, error) { return p.settle() }

// Call records one runtime invocation. Settle calls carry the field whose
// resolver produced the pending value.
type Call struct {
	Kind       string
	ObjectType string
	Field      string
	Source     any
	Args       map[string]any
}

// MockRuntime implements Runtime over a map of resolvers keyed by
// "ObjectType.Field". Unregistered fields resolve to null.
type MockRuntime struct {
	mu        sync.Mutex
	resolvers map[string]MockResolver
	calls     []Call

	typeResolver func(value any) (string, error)
	serializer   func(typeName string, val any) (any, error)
}

var _ Runtime = (*MockRuntime)(nil)

// NewMockRuntime creates a MockRuntime with the provided resolvers. The
// default type resolver reads "__typename" from map values.
func NewMockRuntime(resolvers map[string]MockResolver) *MockRuntime {
	m := &MockRuntime{
		resolvers: make(map[string]MockResolver, len(resolvers)),
		typeResolver: func(value any) (string, error) {
			if m, ok := value.(map[string]any); ok {
				if typename, ok := m["__typename"].(string); ok {
					return typename, nil
				}
			}
			return "", fmt.Errorf("cannot resolve type")
		},
	}
	for k, v := range resolvers {
		m.resolvers[k] = v
	}
	return m
}

// SetResolver registers or replaces the resolver of objectType.field.
func (m *MockRuntime) SetResolver(objectType, field string, resolver MockResolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[objectType+"."+field] = resolver
}

// SetTypeResolver replaces the type resolver.
func (m *MockRuntime) SetTypeResolver(f func(value any) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typeResolver = f
}

// SetSerializer replaces the identity leaf serializer.
func (m *MockRuntime) SetSerializer(f func(typeName string, val any) (any, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serializer = f
}

func (m *MockRuntime) ResolveField(ctx context.Context, field FieldContext, source any, args map[string]any) (any, error) {
	m.mu.Lock()
	r := m.resolvers[field.ObjectType+"."+field.Field]
	m.calls = append(m.calls, Call{Kind: CallKindResolve, ObjectType: field.ObjectType, Field: field.Field, Source: source, Args: args})
	m.mu.Unlock()

	if r == nil {
		return nil, nil
	}
	v, err := r(ctx, source, args)
	if p, ok := v.(*MockPending); ok && p.objectType == "" {
		p.objectType, p.field = field.ObjectType, field.Field
	}
	return v, err
}

func (m *MockRuntime) Settle(ctx context.Context, value any) (any, error) {
	p, ok := value.(Pending)
	if !ok {
		return value, nil
	}
	call := Call{Kind: CallKindSettle}
	if mp, ok := p.(*MockPending); ok {
		call.ObjectType, call.Field = mp.objectType, mp.field
	}
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
	return p.Wait()
}

func (m *MockRuntime) ResolveType(ctx context.Context, abstractType string, value any, field FieldContext) (string, error) {
	m.mu.Lock()
	f := m.typeResolver
	m.mu.Unlock()
	if f == nil {
		return "", fmt.Errorf("type resolver not configured")
	}
	return f(value)
}

func (m *MockRuntime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	m.mu.Lock()
	f := m.serializer
	m.mu.Unlock()
	if f == nil {
		return value, nil
	}
	return f(typeName, value)
}

// GetCalls returns a copy of the recorded calls in order.
func (m *MockRuntime) GetCalls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls; resolvers remain.
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
