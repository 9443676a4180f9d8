package resolve

import (
	"errors"
	"fmt"

	"github.com/hanpama/sdlresolver/internal/cachemeta"
	"github.com/hanpama/sdlresolver/internal/deferred"
	"github.com/hanpama/sdlresolver/internal/typeddata"
)

// Builder creates resolver steps and combines them.
//
// Problems found while building, such as an unknown producer, are
// remembered and reported by Err. The affected resolver also returns the
// problem when invoked.
type Builder struct {
	producers ProducerSource
	errs      []error
}

// NewBuilder returns a builder that instantiates producers from producers.
func NewBuilder(producers ProducerSource) *Builder {
	return &Builder{producers: producers}
}

// Err returns every problem recorded while building resolvers.
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

func (b *Builder) fail(err error) FieldResolverFunc {
	b.errs = append(b.errs, err)
	return func(any, map[string]any, *Context, *FieldInfo) (any, error) {
		return nil, err
	}
}

// Compose chains steps left to right, feeding each result to the next step
// as its parent value.
//
// A nil result ends the chain with nil. A deferred result suspends the
// chain: the remaining steps run once it settles, starting from the
// settled value.
func (b *Builder) Compose(steps ...FieldResolverFunc) FieldResolverFunc {
	for i, step := range steps {
		if step == nil {
			return b.fail(&NotInvocableError{Kind: "step", Step: i})
		}
	}
	return func(value any, args map[string]any, rc *Context, info *FieldInfo) (any, error) {
		return compose(steps, value, args, rc, info)
	}
}

func compose(steps []FieldResolverFunc, value any, args map[string]any, rc *Context, info *FieldInfo) (any, error) {
	for i, step := range steps {
		out, err := step(value, args, rc, info)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return nil, nil
		}
		if d, ok := out.(*deferred.Value); ok {
			rest := steps[i+1:]
			return deferred.Then(d, func(settled any) (any, error) {
				if settled == nil || len(rest) == 0 {
					return settled, nil
				}
				return compose(rest, settled, args, rc, info)
			})
		}
		value = out
	}
	return value, nil
}

// Tap runs fn for its side effects and passes the parent value through.
// When fn returns a deferred value, the parent value is passed on after
// it settles.
func (b *Builder) Tap(fn FieldResolverFunc) FieldResolverFunc {
	if fn == nil {
		return b.fail(&NotInvocableError{Kind: "step"})
	}
	return func(value any, args map[string]any, rc *Context, info *FieldInfo) (any, error) {
		out, err := fn(value, args, rc, info)
		if err != nil {
			return nil, err
		}
		if deferred.Is(out) {
			return deferred.ReturnFinal(out, value), nil
		}
		return value, nil
	}
}

// Context stores the result of source, the parent value by default, in the
// named context slot for the current field and its descendants.
func (b *Builder) Context(name string, source ...FieldResolverFunc) FieldResolverFunc {
	src := b.source(source)
	return b.Tap(func(value any, args map[string]any, rc *Context, info *FieldInfo) (any, error) {
		out, err := src(value, args, rc, info)
		if err != nil {
			return nil, err
		}
		return deferred.ApplyFinally(out, func(v any) {
			rc.SetContext(name, v, info)
		}), nil
	})
}

// Produce instantiates the producer id with mapping.
func (b *Builder) Produce(id string, mapping Mapping) FieldResolverFunc {
	if b.producers == nil {
		return b.fail(&NotInvocableError{Kind: "producer", Producer: id})
	}
	inst, err := b.producers.Instantiate(id, mapping)
	if err != nil {
		return b.fail(fmt.Errorf("produce %s: %w", id, err))
	}
	if inst == nil {
		return b.fail(&NotInvocableError{Kind: "producer", Producer: id})
	}
	return inst.Invoke
}

// FromValue always yields v.
func (b *Builder) FromValue(v any) FieldResolverFunc {
	return func(_ any, _ map[string]any, rc *Context, _ *FieldInfo) (any, error) {
		rc.AddCacheableDependency(v)
		return v, nil
	}
}

// FromParent yields the parent value.
func (b *Builder) FromParent() FieldResolverFunc {
	return func(value any, _ map[string]any, rc *Context, _ *FieldInfo) (any, error) {
		rc.AddCacheableDependency(value)
		return value, nil
	}
}

// FromArgument yields the named field argument, or nil when absent.
func (b *Builder) FromArgument(name string) FieldResolverFunc {
	return func(_ any, args map[string]any, _ *Context, _ *FieldInfo) (any, error) {
		return args[name], nil
	}
}

// FromContext yields the named context slot visible at the current field.
// def is returned when the slot is unset; a FieldResolverFunc def is
// invoked instead.
func (b *Builder) FromContext(name string, def any) FieldResolverFunc {
	return func(value any, args map[string]any, rc *Context, info *FieldInfo) (any, error) {
		if !rc.HasContext(name, info) {
			if fn, ok := def.(FieldResolverFunc); ok {
				return fn(value, args, rc, info)
			}
			return def, nil
		}
		out := rc.GetContext(name, info, def)
		rc.AddCacheableDependency(out)
		return out, nil
	}
}

// FromPath walks the dot-delimited path over the result of source, the
// parent value by default.
//
// A structured hint declares the shape of the source value and makes
// undeclared properties an error. A scalar hint describes the expected
// result and leaves the source shape open. Cache metadata met along the
// path is merged into the context.
func (b *Builder) FromPath(hint *typeddata.Definition, path string, source ...FieldResolverFunc) FieldResolverFunc {
	src := b.source(source)
	shape := hint
	if hint.IsScalar() {
		shape = nil
	}
	return func(value any, args map[string]any, rc *Context, info *FieldInfo) (any, error) {
		in, err := src(value, args, rc, info)
		if err != nil {
			return nil, err
		}
		return deferred.Then(in, func(v any) (any, error) {
			collector := cachemeta.NewCollector()
			out, err := typeddata.FetchByPath(shape, v, path, collector)
			if err != nil {
				return nil, err
			}
			rc.MergeCacheMetadata(collector.Metadata())
			rc.AddCacheableDependency(out)
			return out, nil
		})
	}
}

func (b *Builder) source(source []FieldResolverFunc) FieldResolverFunc {
	if len(source) > 0 && source[0] != nil {
		return source[0]
	}
	return b.FromParent()
}
