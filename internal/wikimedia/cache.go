package wikimedia

import (
	"sync"
	"time"
)

type imageEntry struct {
	url     string
	expires time.Time
}

// imageCache is a TTL map of query to image URL. An empty URL is a
// cached miss. The clock is injected for tests.
type imageCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]imageEntry
}

func newImageCache(ttl time.Duration, now func() time.Time) *imageCache {
	return &imageCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]imageEntry),
	}
}

func (c *imageCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return "", false
	}
	return entry.url, true
}

func (c *imageCache) put(key, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = imageEntry{url: url, expires: c.now().Add(c.ttl)}
}
