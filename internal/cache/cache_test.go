package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGet(t *testing.T) {
	c := New()
	c.Set("https://example.com/longo", "https://is.gd/abc", time.Minute)

	got, ok := c.Get("https://example.com/longo")
	assert.True(t, ok)
	assert.Equal(t, "https://is.gd/abc", got)

	_, ok = c.Get("https://example.com/outro")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New()
	c.Set("k", "v", -time.Second) // already expired

	_, ok := c.Get("k")
	assert.False(t, ok)
}
