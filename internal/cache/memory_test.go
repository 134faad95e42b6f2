package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTemplateKey(t *testing.T) {
	a := TemplateKey("https://Example.com/r/1", "detail")
	b := TemplateKey("https://example.com/r/2", "detail")
	c := TemplateKey("https://example.com/r/2", "menu")

	assert.Equal(t, a, b, "same host and page type share a template")
	assert.NotEqual(t, b, c)
}

func TestPatternCache_PutAndGet(t *testing.T) {
	c := NewPatternCache(time.Minute, time.Minute)
	key := TemplateKey("https://example.com/a", "detail")

	_, ok := c.Selector(key, "name")
	assert.False(t, ok)

	c.Put(key, "name", "h1.title")
	c.Put(key, "phone", "a[href^='tel:']")

	sel, ok := c.Selector(key, "name")
	assert.True(t, ok)
	assert.Equal(t, "h1.title", sel)
	assert.Equal(t, 1, c.Len())

	// returned tables are copies
	selectors, _ := c.Selectors(key)
	selectors["name"] = "mutated"
	sel, _ = c.Selector(key, "name")
	assert.Equal(t, "h1.title", sel)
}

func TestPatternCache_ForgetAndClear(t *testing.T) {
	c := NewPatternCache(time.Minute, time.Minute)
	key := TemplateKey("https://example.com/a", "menu")
	c.Put(key, "name", "h1")
	c.Put(key, "hours", ".hours")

	c.Forget(key, "name")
	_, ok := c.Selector(key, "name")
	assert.False(t, ok)
	_, ok = c.Selector(key, "hours")
	assert.True(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestPatternCache_Expiry(t *testing.T) {
	c := NewPatternCache(20*time.Millisecond, time.Hour)
	key := TemplateKey("https://example.com", "detail")
	c.Put(key, "name", "h1")

	time.Sleep(50 * time.Millisecond)
	_, ok := c.Selectors(key)
	assert.False(t, ok)
}
