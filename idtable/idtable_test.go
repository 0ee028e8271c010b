package idtable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertGetRemove(t *testing.T) {
	tbl := New[string]()
	a := tbl.Insert("alice")
	b := tbl.Insert("bob")

	v, ok := tbl.Get(a)
	require.True(t, ok)
	require.Equal(t, "alice", *v)

	require.True(t, tbl.Remove(a))
	_, ok = tbl.Get(a)
	require.False(t, ok)

	v, ok = tbl.Get(b)
	require.True(t, ok)
	require.Equal(t, "bob", *v)
}

func TestRemovedIDNotReused(t *testing.T) {
	tbl := New[int]()
	a := tbl.Insert(1)
	require.True(t, tbl.Remove(a))

	c := tbl.Insert(2) // reuses a's freed slot
	_, ok := tbl.Get(a)
	require.False(t, ok, "stale ID must not resolve to the new entry")

	v, ok := tbl.Get(c)
	require.True(t, ok)
	require.Equal(t, 2, *v)
}

func TestEachAndLen(t *testing.T) {
	tbl := New[int]()
	tbl.Insert(1)
	tbl.Insert(2)
	tbl.Insert(3)
	require.Equal(t, 3, tbl.Len())

	sum := 0
	tbl.Each(func(_ ID, v *int) { sum += *v })
	require.Equal(t, 6, sum)
}
