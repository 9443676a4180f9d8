package deferred

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWaitUnwrapsNestedValues(t *testing.T) {
	inner := New(func() (any, error) { return "leaf", nil })
	outer := New(func() (any, error) {
		return New(func() (any, error) { return inner, nil }), nil
	})
	got, err := outer.Wait()
	require.NoError(t, err)
	require.Equal(t, "leaf", got)
	require.True(t, outer.IsSettled())
}

func TestStepHandsBackInnerValue(t *testing.T) {
	var innerRuns int
	inner := New(func() (any, error) {
		innerRuns++
		return "leaf", nil
	})
	outer := New(func() (any, error) { return inner, nil })

	got, err := outer.Step()
	require.NoError(t, err)
	require.Same(t, inner, got)
	require.Zero(t, innerRuns)
	require.False(t, outer.IsSettled())

	got, err = Step(got)
	require.NoError(t, err)
	require.Equal(t, "leaf", got)
	require.True(t, outer.IsSettled(), "settles with its inner value")

	got, err = outer.Wait()
	require.NoError(t, err)
	require.Equal(t, "leaf", got)
	require.Equal(t, 1, innerRuns)
}

func TestStepSettledInner(t *testing.T) {
	outer := New(func() (any, error) { return Settled("done"), nil })
	got, err := outer.Step()
	require.NoError(t, err)
	require.Equal(t, "done", got)

	got, err = Step("plain")
	require.NoError(t, err)
	require.Equal(t, "plain", got)
}

func TestWaitPropagatesInnerError(t *testing.T) {
	boom := errors.New("boom")
	outer := New(func() (any, error) {
		return New(func() (any, error) { return nil, boom }), nil
	})
	_, err := outer.Wait()
	require.ErrorIs(t, err, boom)
	_, err = outer.Step()
	require.ErrorIs(t, err, boom)
}

func TestThunkRunsOnce(t *testing.T) {
	var calls int32
	d := New(func() (any, error) {
		atomic.AddInt32(&calls, 1)
		return 1, nil
	})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Wait()
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestApplyFinallyConcrete(t *testing.T) {
	var seen any
	got := ApplyFinally("x", func(v any) { seen = v })
	require.Equal(t, "x", got)
	require.Equal(t, "x", seen)
}

func TestApplyFinallyDoublyNestedFiresOnce(t *testing.T) {
	d := New(func() (any, error) {
		return New(func() (any, error) { return 42, nil }), nil
	})
	var (
		calls int
		seen  any
	)
	got := ApplyFinally(d, func(v any) {
		calls++
		seen = v
	})
	require.Same(t, d, got)
	require.Equal(t, 0, calls, "callback must wait for settlement")

	_, err := d.Wait()
	require.NoError(t, err)
	_, _ = d.Wait()
	require.Equal(t, 1, calls)
	require.Equal(t, 42, seen)
}

func TestApplyFinallyAfterSettlementRunsImmediately(t *testing.T) {
	d := Settled("done")
	var seen any
	ApplyFinally(d, func(v any) { seen = v })
	require.Equal(t, "done", seen)
}

func TestApplyFinallySkipsOnError(t *testing.T) {
	d := Failed(errors.New("boom"))
	called := false
	ApplyFinally(d, func(any) { called = true })
	require.False(t, called)
}

func TestCallbacksFireInRegistrationOrder(t *testing.T) {
	d := New(func() (any, error) { return 1, nil })
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		d.OnSettled(func(any, error) { order = append(order, i) })
	}
	_, _ = d.Wait()
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestReturnFinal(t *testing.T) {
	require.Equal(t, "r", ReturnFinal("x", "r"))

	var sideEffect any
	d := New(func() (any, error) { return "x", nil })
	ApplyFinally(d, func(v any) { sideEffect = v })
	out := ReturnFinal(d, "r")
	require.True(t, Is(out))

	got, err := Resolve(out)
	require.NoError(t, err)
	require.Equal(t, "r", got)
	require.Equal(t, "x", sideEffect)
}

func TestReturnFinalPropagatesError(t *testing.T) {
	out := ReturnFinal(Failed(errors.New("loader failed")), "r")
	_, err := Resolve(out)
	require.EqualError(t, err, "loader failed")
}

func TestThen(t *testing.T) {
	got, err := Then(2, func(v any) (any, error) { return v.(int) * 2, nil })
	require.NoError(t, err)
	require.Equal(t, 4, got)

	ran := false
	d := New(func() (any, error) { return 3, nil })
	chained, err := Then(d, func(v any) (any, error) {
		ran = true
		return v.(int) * 2, nil
	})
	require.NoError(t, err)
	require.False(t, ran)
	res, err := Resolve(chained)
	require.NoError(t, err)
	require.Equal(t, 6, res)
}
