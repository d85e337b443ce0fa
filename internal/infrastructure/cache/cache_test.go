package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyNormalizesQuery(t *testing.T) {
	t.Parallel()

	require.Equal(t, "search:iphone 15 pro", Key("  iPhone   15 PRO "))
}

func TestGetSet(t *testing.T) {
	t.Parallel()

	c := New[[]int](4, time.Minute)
	_, ok := c.Get("tv")
	require.False(t, ok)

	c.Set("TV ", []int{1, 2})
	got, ok := c.Get("tv")
	require.True(t, ok)
	require.Equal(t, []int{1, 2}, got)
	require.Equal(t, 1, c.Len())

	c.Purge()
	require.Zero(t, c.Len())
}

func TestEntriesExpire(t *testing.T) {
	t.Parallel()

	c := New[string](4, 20*time.Millisecond)
	c.Set("laptop", "cached")
	require.Eventually(t, func() bool {
		_, ok := c.Get("laptop")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
