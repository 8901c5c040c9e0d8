package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheBasics(t *testing.T) {
	c := New[string, int](2, time.Minute)

	assert.True(t, c.Set("a", 1), "first insert is new")
	assert.False(t, c.Set("a", 2), "overwrite is not new")

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestCacheEviction(t *testing.T) {
	c := New[string, string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry evicted at capacity")
}

func TestCacheExpiry(t *testing.T) {
	c := New[string, int](8, 20*time.Millisecond)
	c.Set("a", 1)
	time.Sleep(50 * time.Millisecond)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCachePurgeAndValues(t *testing.T) {
	c := New[string, int](8, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	assert.Len(t, c.Values(), 2)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}
