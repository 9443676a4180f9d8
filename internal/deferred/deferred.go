// Package deferred implements lazily settled values.
//
// A Value is either settled or pending. A pending value holds a thunk that
// the execution engine runs once. The thunk may itself return another
// Value; the outer value then settles when the inner one does. Step runs a
// single thunk and hands such an inner value back, so that its load can be
// batched with others of the same round. Wait runs thunks until a concrete
// result is reached. Continuations are registered with OnSettled and fire
// in registration order after settlement.
package deferred

import "sync"

// Thunk produces the eventual result of a Value. It may return another
// *Value.
type Thunk func() (any, error)

// Value is a handle to a result that becomes known after Wait is called.
type Value struct {
	thunk Thunk
	once  sync.Once

	mu        sync.Mutex
	settled   bool
	next      *Value
	result    any
	err       error
	callbacks []func(any, error)
}

// New returns a pending value backed by thunk.
func New(thunk Thunk) *Value {
	return &Value{thunk: thunk}
}

// Settled returns a value that is already settled to v.
func Settled(v any) *Value {
	d := &Value{settled: true, result: v}
	d.once.Do(func() {})
	return d
}

// Failed returns a value that is already settled with err.
func Failed(err error) *Value {
	d := &Value{settled: true, err: err}
	d.once.Do(func() {})
	return d
}

// Is reports whether v is a *Value.
func Is(v any) bool {
	d, ok := v.(*Value)
	return ok && d != nil
}

// IsSettled reports whether the value has a result.
func (d *Value) IsSettled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

// Wait runs the thunk if it has not run yet and returns the fully unwrapped
// result. Concurrent callers block until the first one finishes.
func (d *Value) Wait() (any, error) {
	for {
		res, err := d.Step()
		next, ok := res.(*Value)
		if err != nil || !ok {
			return res, err
		}
		if _, err := next.Wait(); err != nil {
			return nil, err
		}
	}
}

// Step runs the thunk if it has not run yet. It returns the result when d
// is settled and otherwise the pending Value d is waiting on.
func (d *Value) Step() (any, error) {
	d.once.Do(d.run)
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.settled {
		return d.next, nil
	}
	return d.result, d.err
}

func (d *Value) run() {
	var (
		res any
		err error
	)
	if d.thunk != nil {
		res, err = d.thunk()
	}
	d.thunk = nil
	if inner, ok := res.(*Value); ok && inner != nil && err == nil {
		d.mu.Lock()
		d.next = inner
		d.mu.Unlock()
		inner.OnSettled(d.settle)
		return
	}
	d.settle(res, err)
}

func (d *Value) settle(res any, err error) {
	d.mu.Lock()
	d.settled = true
	d.next = nil
	d.result, d.err = res, err
	cbs := d.callbacks
	d.callbacks = nil
	d.mu.Unlock()

	for _, cb := range cbs {
		cb(res, err)
	}
}

// OnSettled registers cb to run once the value is settled. If it already is,
// cb runs immediately.
func (d *Value) OnSettled(cb func(any, error)) {
	d.mu.Lock()
	if !d.settled {
		d.callbacks = append(d.callbacks, cb)
		d.mu.Unlock()
		return
	}
	res, err := d.result, d.err
	d.mu.Unlock()
	cb(res, err)
}

// Step returns v itself when it is concrete and runs one step of it
// otherwise. The result may still be a pending *Value.
func Step(v any) (any, error) {
	if d, ok := v.(*Value); ok && d != nil {
		return d.Step()
	}
	return v, nil
}

// Resolve returns v itself when it is concrete and waits for it otherwise.
func Resolve(v any) (any, error) {
	if d, ok := v.(*Value); ok && d != nil {
		return d.Wait()
	}
	return v, nil
}

// Then chains fn onto v. A concrete v is passed to fn right away; a pending
// v yields a new pending Value that runs fn after v settles.
func Then(v any, fn func(any) (any, error)) (any, error) {
	d, ok := v.(*Value)
	if !ok || d == nil {
		return fn(v)
	}
	return New(func() (any, error) {
		res, err := d.Wait()
		if err != nil {
			return nil, err
		}
		return fn(res)
	}), nil
}

// ApplyFinally calls cb with the fully unwrapped result of v and returns v
// unchanged. cb runs synchronously when v is concrete and after settlement
// otherwise. Settlement failures skip cb.
func ApplyFinally(v any, cb func(any)) any {
	d, ok := v.(*Value)
	if !ok || d == nil {
		cb(v)
		return v
	}
	d.OnSettled(func(res any, err error) {
		if err == nil {
			cb(res)
		}
	})
	return v
}

// ReturnFinal replaces the eventual result of v with replacement. Side
// effects attached to v still run.
func ReturnFinal(v any, replacement any) any {
	d, ok := v.(*Value)
	if !ok || d == nil {
		return replacement
	}
	return New(func() (any, error) {
		if _, err := d.Wait(); err != nil {
			return nil, err
		}
		return replacement, nil
	})
}
