package producer

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hanpama/sdlresolver/internal/deferred"
	"github.com/hanpama/sdlresolver/internal/eventbus"
	"github.com/hanpama/sdlresolver/internal/events"
	"github.com/hanpama/sdlresolver/internal/resolve"
	"github.com/jensneuse/abstractlogger"
)

// Resolver computes a producer's value from its evaluated inputs.
type Resolver interface {
	Resolve(in Inputs, rc *resolve.Context, info *resolve.FieldInfo) (any, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(in Inputs, rc *resolve.Context, info *resolve.FieldInfo) (any, error)

func (f ResolverFunc) Resolve(in Inputs, rc *resolve.Context, info *resolve.FieldInfo) (any, error) {
	return f(in, rc, info)
}

// Factory creates the Resolver of a producer instance.
type Factory func() Resolver

type registration struct {
	def     Definition
	factory Factory
}

// Manager is the registry of available producers. It implements
// resolve.ProducerSource.
type Manager struct {
	mu       sync.RWMutex
	registry map[string]registration
	logger   abstractlogger.Logger
}

// NewManager returns an empty manager.
func NewManager(logger abstractlogger.Logger) *Manager {
	if logger == nil {
		logger = abstractlogger.NoopLogger
	}
	return &Manager{registry: make(map[string]registration), logger: logger}
}

// Register adds a producer. Registering an id twice is an error.
func (m *Manager) Register(def Definition, factory Factory) error {
	if err := def.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.registry[def.ID]; ok {
		return fmt.Errorf("data producer %s is already registered", def.ID)
	}
	m.registry[def.ID] = registration{def: def, factory: factory}
	m.logger.Debug("producer.register", abstractlogger.String("id", def.ID))
	return nil
}

// Definition returns the definition registered under id.
func (m *Manager) Definition(id string) (Definition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.registry[id]
	return r.def, ok
}

// Definitions returns all definitions sorted by id.
func (m *Manager) Definitions() []Definition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Definition, 0, len(m.registry))
	for _, r := range m.registry {
		out = append(out, r.def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Instantiate creates an instance of producer id bound to mapping.
func (m *Manager) Instantiate(id string, mapping resolve.Mapping) (resolve.Invocable, error) {
	m.mu.RLock()
	r, ok := m.registry[id]
	m.mu.RUnlock()
	if !ok {
		return nil, &UnknownProducerError{ID: id}
	}
	if r.factory == nil {
		return nil, &resolve.NotInvocableError{Kind: "producer", Producer: id}
	}
	res := r.factory()
	if res == nil {
		return nil, &resolve.NotInvocableError{Kind: "producer", Producer: id}
	}
	return &Instance{def: r.def, resolver: res, mapping: mapping}, nil
}

var invocations atomic.Uint64

// Instance is a producer bound to an input mapping.
type Instance struct {
	def      Definition
	resolver Resolver
	mapping  resolve.Mapping
}

// Definition returns the producer's definition.
func (i *Instance) Definition() Definition { return i.def }

// Invoke evaluates the mapped inputs and runs the producer. When any input
// is deferred, the producer runs after all inputs have settled and Invoke
// returns a deferred value.
func (i *Instance) Invoke(value any, args map[string]any, rc *resolve.Context, info *resolve.FieldInfo) (any, error) {
	values := make([]any, len(i.def.Consumes))
	pending := false
	for n, in := range i.def.Consumes {
		mapper, mapped := i.mapping[in.Name]
		if !mapped {
			if in.Required {
				return nil, &MissingInputMapperError{Producer: i.def.ID, Input: in.Name, Type: info.ParentType, Field: info.FieldName}
			}
			continue
		}
		if mapper == nil {
			return nil, &InvalidInputMapperError{Producer: i.def.ID, Input: in.Name, Type: info.ParentType, Field: info.FieldName}
		}
		v, err := mapper(value, args, rc, info)
		if err != nil {
			return nil, err
		}
		if deferred.Is(v) {
			pending = true
		} else if in.Required && v == nil {
			return nil, &MissingInputDataError{Producer: i.def.ID, Input: in.Name, Type: info.ParentType, Field: info.FieldName}
		}
		values[n] = v
	}

	if !pending {
		return i.run(values, rc, info)
	}
	return deferred.New(func() (any, error) {
		for n, v := range values {
			settled, err := deferred.Resolve(v)
			if err != nil {
				return nil, err
			}
			if in := i.def.Consumes[n]; in.Required && settled == nil {
				return nil, &MissingInputDataError{Producer: i.def.ID, Input: in.Name, Type: info.ParentType, Field: info.FieldName}
			}
			values[n] = settled
		}
		return i.run(values, rc, info)
	}), nil
}

func (i *Instance) run(values []any, rc *resolve.Context, info *resolve.FieldInfo) (any, error) {
	var in Inputs
	for n, def := range i.def.Consumes {
		in.set(def.Name, values[n])
	}

	id := invocations.Add(1)
	ctx := rc.Context()
	eventbus.Publish(ctx, events.ProducerStart{Invocation: id, Producer: i.def.ID, Type: info.ParentType, Field: info.FieldName})
	start := time.Now()
	out, err := i.resolver.Resolve(in, rc, info)
	eventbus.Publish(ctx, events.ProducerFinish{
		Invocation: id,
		Producer:   i.def.ID,
		Deferred:   deferred.Is(out),
		Err:        err,
		Duration:   time.Since(start),
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
