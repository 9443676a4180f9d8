package cachemeta

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestMergeUnionsTagsAndMinimizesMaxAge(t *testing.T) {
	a := New("node:1", "node_list").WithMaxAge(300).WithContexts("user")
	b := New("node:2", "node:1").WithContexts("languages")

	got := a.Merge(b)
	want := Metadata{
		Tags:     []string{"node:1", "node:2", "node_list"},
		MaxAge:   300,
		Contexts: []string{"languages", "user"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeMaxAge(t *testing.T) {
	cases := []struct {
		a, b, want int
	}{
		{Permanent, Permanent, Permanent},
		{Permanent, 60, 60},
		{60, Permanent, 60},
		{60, 30, 30},
		{0, Permanent, 0},
		{Permanent, 0, 0},
	}
	for _, c := range cases {
		got := Metadata{MaxAge: c.a}.Merge(Metadata{MaxAge: c.b}).MaxAge
		require.Equal(t, c.want, got, "merge(%d, %d)", c.a, c.b)
	}
}

func TestCollectorAddDependency(t *testing.T) {
	c := NewCollector()
	require.False(t, c.AddDependency("plain"))
	require.True(t, c.AddDependency(NewValue("x", "menu:main")))
	require.True(t, c.AddDependency(&Value{Value: 1, Metadata: New("node:1").WithMaxAge(10)}))

	m := c.Metadata()
	require.Equal(t, []string{"menu:main", "node:1"}, m.Tags)
	require.Equal(t, 10, m.MaxAge)
}

type tagged struct{ tag string }

func (t *tagged) CacheDependencies() Metadata { return New(t.tag) }

func TestCollectorAddDependencyIgnoresNilPointers(t *testing.T) {
	c := NewCollector()
	require.NotPanics(t, func() {
		require.False(t, c.AddDependency((*Value)(nil)))
		require.False(t, c.AddDependency((*tagged)(nil)))
	})
	require.True(t, c.AddDependency(&tagged{tag: "node:2"}))
	require.Equal(t, []string{"node:2"}, c.Metadata().Tags)

	var nilValue *Value
	require.Equal(t, New(), nilValue.CacheDependencies())
}

func TestCollectorConcurrentMerge(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.AddTags("a", "b")
		}()
	}
	wg.Wait()
	require.Equal(t, []string{"a", "b"}, c.Metadata().Tags)
	require.Equal(t, Permanent, c.Metadata().MaxAge)
}

func TestFingerprintIgnoresOrder(t *testing.T) {
	a := Metadata{Tags: []string{"b", "a"}, MaxAge: 5}
	b := Metadata{Tags: []string{"a", "b"}, MaxAge: 5}
	require.Equal(t, a.Fingerprint(), b.Fingerprint())
	require.NotEqual(t, a.Fingerprint(), b.WithMaxAge(1).Fingerprint())
}

func TestCacheControl(t *testing.T) {
	require.Equal(t, "no-cache", Uncacheable().CacheControl())
	require.Equal(t, "public, max-age=31536000", New().CacheControl())
	require.Equal(t, "public, max-age=60", New().WithMaxAge(60).CacheControl())
}

func TestUnwrap(t *testing.T) {
	v, m, ok := Unwrap(NewValue("/node/1", "node:1"))
	require.True(t, ok)
	require.Equal(t, "/node/1", v)
	require.Equal(t, []string{"node:1"}, m.Tags)

	v, _, ok = Unwrap("raw")
	require.False(t, ok)
	require.Equal(t, "raw", v)

	v, _, ok = Unwrap((*Value)(nil))
	require.False(t, ok)
	require.Nil(t, v)
}
