package hashtable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGetDel(t *testing.T) {
	tbl := New[int, string](4, IntHash[int])
	tbl.Set(1, "one")
	tbl.Set(2, "two")

	v, ok := tbl.Get(1)
	require.True(t, ok)
	require.Equal(t, "one", v)

	require.Equal(t, 2, tbl.Len())

	tbl.Del(1)
	_, ok = tbl.Get(1)
	require.False(t, ok)
	require.Equal(t, 1, tbl.Len())
}

func TestOverwrite(t *testing.T) {
	tbl := New[int, int](1, IntHash[int])
	tbl.Set(5, 1)
	tbl.Set(5, 2)
	v, ok := tbl.Get(5)
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.Equal(t, 1, tbl.Len())
}

func TestEach(t *testing.T) {
	tbl := New[int, int](8, IntHash[int])
	for i := 0; i < 10; i++ {
		tbl.Set(i, i*i)
	}
	sum := 0
	tbl.Each(func(k, v int) { sum += v })
	require.Equal(t, 285, sum)
}

func TestMissingKey(t *testing.T) {
	tbl := New[int, int](1, IntHash[int])
	_, ok := tbl.Get(42)
	require.False(t, ok)
	tbl.Del(42) // no-op, must not panic
}
