package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupMiss(t *testing.T) {
	c := New(4)
	_, ok := c.Lookup(1)
	require.False(t, ok)
}

func TestInsertThenLookupHit(t *testing.T) {
	c := New(4)
	c.Insert(42, Result{Policy: []float32{0.5, 0.5}, Winrate: 0.6})

	r, ok := c.Lookup(42)
	require.True(t, ok)
	require.Equal(t, float32(0.6), r.Winrate)
}

func TestFIFOEvictionAtCapacity(t *testing.T) {
	c := New(2)
	c.Insert(1, Result{Winrate: 0.1})
	c.Insert(2, Result{Winrate: 0.2})
	c.Insert(3, Result{Winrate: 0.3})

	require.Equal(t, 2, c.Len())
	_, ok := c.Lookup(1)
	require.False(t, ok, "oldest entry should have been evicted")

	_, ok = c.Lookup(2)
	require.True(t, ok)
	_, ok = c.Lookup(3)
	require.True(t, ok)
}

func TestReinsertExistingKeyDoesNotEvict(t *testing.T) {
	c := New(2)
	c.Insert(1, Result{Winrate: 0.1})
	c.Insert(2, Result{Winrate: 0.2})
	c.Insert(1, Result{Winrate: 0.9})

	require.Equal(t, 2, c.Len())
	r, ok := c.Lookup(1)
	require.True(t, ok)
	require.Equal(t, float32(0.9), r.Winrate)
}

func TestSetSizeFromPlayouts(t *testing.T) {
	require.Equal(t, 18000, SetSizeFromPlayouts(1000))
	require.Equal(t, 1, SetSizeFromPlayouts(0))
}

func TestClearEmptiesCache(t *testing.T) {
	c := New(4)
	c.Insert(1, Result{Winrate: 0.5})
	c.Clear()
	require.Equal(t, 0, c.Len())
	_, ok := c.Lookup(1)
	require.False(t, ok)
}
