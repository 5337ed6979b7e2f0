package property

import "sync"

// cacheKey mirrors requestKey; the cache and the tracker are keyed the
// same way but own their entries independently.
type cacheKey struct {
	muid     uint32
	resource string
}

// Cache stores the most recently received body for each
// (endpoint, resource) pair. An entry that exists but is empty is
// distinguished from an absent entry: an empty reply is still a reply,
// and is not on its own evidence of staleness.
type Cache struct {
	entries map[cacheKey][]byte

	mu sync.RWMutex
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey][]byte)}
}

// Store records the body for the endpoint and resource, replacing any
// previous value. A nil body is stored as an existing empty entry.
func (c *Cache) Store(muid uint32, res Resource, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey{muid: muid, resource: res.Name()}] = append([]byte(nil), body...)
}

// Load returns the stored body and whether an entry exists.
func (c *Cache) Load(muid uint32, res Resource) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	body, ok := c.entries[cacheKey{muid: muid, resource: res.Name()}]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), body...), true
}

// Delete removes the entry for the endpoint and resource, if present.
func (c *Cache) Delete(muid uint32, res Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, cacheKey{muid: muid, resource: res.Name()})
}

// ClearAllFor removes every entry for the endpoint and returns the number
// removed.
func (c *Cache) ClearAllFor(muid uint32) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if key.muid == muid {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
