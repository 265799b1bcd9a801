package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	c := New(true)
	etag := c.Set("stats:chef:summary", []byte(`{"wins":1}`), time.Minute)
	require.NotEmpty(t, etag)

	data, gotTag, ok := c.Get("stats:chef:summary")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"wins":1}`), data)
	assert.Equal(t, etag, gotTag)
}

func TestCacheExpiry(t *testing.T) {
	c := New(true)
	c.Set("k", []byte("v"), -time.Second)
	_, _, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCacheDisabled(t *testing.T) {
	c := New(false)
	etag := c.Set("k", []byte("v"), time.Minute)
	assert.NotEmpty(t, etag, "disabled cache still computes the etag")

	_, _, ok := c.Get("k")
	assert.False(t, ok)
}

func TestInvalidatePrefix(t *testing.T) {
	c := New(true)
	c.Set("stats:chef:summary", []byte("a"), time.Minute)
	c.Set("stats:chef:leagues", []byte("b"), time.Minute)
	c.Set("stats:other:summary", []byte("c"), time.Minute)

	c.InvalidatePrefix("stats:chef:")

	_, _, ok := c.Get("stats:chef:summary")
	assert.False(t, ok)
	_, _, ok = c.Get("stats:chef:leagues")
	assert.False(t, ok)
	_, _, ok = c.Get("stats:other:summary")
	assert.True(t, ok, "other users' entries survive")
}

func TestETagMatch(t *testing.T) {
	etag := ComputeETag([]byte("payload"))
	assert.True(t, CheckETagMatch(etag, etag))
	assert.True(t, CheckETagMatch("*", etag))
	assert.False(t, CheckETagMatch("", etag))
	assert.False(t, CheckETagMatch(`W/"other"`, etag))

	// Same payload, same tag; different payload, different tag.
	assert.Equal(t, etag, ComputeETag([]byte("payload")))
	assert.NotEqual(t, etag, ComputeETag([]byte("payload2")))
}
