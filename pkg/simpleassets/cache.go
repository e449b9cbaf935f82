package simpleassets

import "sync"

type cacheKey struct {
	typ  TypeID
	path AssetPath
}

type cacheEntry struct {
	value any
	hash  ContentHash
}

// Cache holds imported assets keyed by (TypeID, AssetPath) together with the
// content hash they were imported from.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]cacheEntry)}
}

// Get returns the cached value for (t, path) and the hash it was imported from
func (c *Cache) Get(t TypeID, path AssetPath) (any, ContentHash, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cacheKey{typ: t, path: path.Canonical()}]
	return e.value, e.hash, ok
}

// Put stores value for (t, path)
func (c *Cache) Put(t TypeID, path AssetPath, hash ContentHash, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{typ: t, path: path.Canonical()}] = cacheEntry{value: value, hash: hash}
}

// Invalidate drops every entry for path regardless of type and returns how
// many were removed.
func (c *Cache) Invalidate(path AssetPath) int {
	path = path.Canonical()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if k.path == path {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// CacheGet is the typed form of Cache.Get.
func CacheGet[T any](c *Cache, path AssetPath) (*T, bool) {
	v, _, ok := c.Get(TypeOf[T](), path)
	if !ok {
		return nil, false
	}
	typed, ok := v.(*T)
	return typed, ok
}

// CachePut is the typed form of Cache.Put.
func CachePut[T any](c *Cache, path AssetPath, hash ContentHash, value *T) {
	c.Put(TypeOf[T](), path, hash, value)
}
