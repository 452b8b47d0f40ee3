package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_InsertGet(t *testing.T) {
	var a Arena[string]
	h1 := a.Insert("one")
	h2 := a.Insert("two")

	v, ok := a.Get(h1)
	require.True(t, ok)
	assert.Equal(t, "one", v)

	v, ok = a.Get(h2)
	require.True(t, ok)
	assert.Equal(t, "two", v)
	assert.Equal(t, 2, a.Len())
}

func TestArena_StaleHandle(t *testing.T) {
	var a Arena[int]
	h := a.Insert(42)

	removed, ok := a.Remove(h)
	require.True(t, ok)
	assert.Equal(t, 42, removed)

	_, ok = a.Get(h)
	assert.False(t, ok, "removed handle must not resolve")

	// The slot is reused with a new generation.
	h2 := a.Insert(7)
	assert.Equal(t, h.Index, h2.Index)
	assert.NotEqual(t, h.Generation, h2.Generation)

	_, ok = a.Get(h)
	assert.False(t, ok, "old handle must not resolve to the reused slot")

	_, ok = a.Remove(h)
	assert.False(t, ok)
}

func TestArena_ZeroHandle(t *testing.T) {
	var a Arena[int]
	a.Insert(1)

	assert.True(t, Handle{}.IsZero())
	assert.False(t, a.Contains(Handle{}))
	assert.False(t, a.Contains(Handle{Index: 10, Generation: 1}))
}

func TestArena_EachOrder(t *testing.T) {
	var a Arena[int]
	handles := []Handle{a.Insert(0), a.Insert(1), a.Insert(2), a.Insert(3)}
	a.Remove(handles[1])

	var seen []int
	a.Each(func(_ Handle, v int) bool {
		seen = append(seen, v)
		return true
	})
	assert.Equal(t, []int{0, 2, 3}, seen)
	assert.Len(t, a.Handles(), 3)

	seen = seen[:0]
	a.Each(func(_ Handle, v int) bool {
		seen = append(seen, v)
		return false
	})
	assert.Equal(t, []int{0}, seen)
}
