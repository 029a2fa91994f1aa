package condition

import "sync"

// Cache memoises condition outcomes and the per-file facts backing
// them. It is safe for concurrent use. The owner of the corresponding
// game state decides when the installed state may have changed and
// calls Invalidate; nothing expires on its own.
type Cache struct {
	mu         sync.RWMutex
	conditions map[string]bool
	crcs       map[string]uint32
	versions   map[string]string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	c := &Cache{}
	c.reset()
	return c
}

func (c *Cache) reset() {
	c.conditions = make(map[string]bool)
	c.crcs = make(map[string]uint32)
	c.versions = make(map[string]string)
}

// Invalidate discards every cached entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// LookupOrCompute returns the cached outcome for key, calling compute
// and recording the result on a miss. Errors are returned to the caller
// and never cached.
func (c *Cache) LookupOrCompute(key string, compute func() (bool, error)) (bool, error) {
	c.mu.RLock()
	v, ok := c.conditions[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	c.conditions[key] = v
	c.mu.Unlock()
	return v, nil
}

// crc memoises a file's checksum under the given key.
func (c *Cache) crc(key string, compute func() (uint32, error)) (uint32, error) {
	c.mu.RLock()
	v, ok := c.crcs[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.crcs[key] = v
	c.mu.Unlock()
	return v, nil
}

// version memoises a file's recorded version under the given key.
func (c *Cache) version(key string, compute func() (string, error)) (string, error) {
	c.mu.RLock()
	v, ok := c.versions[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.versions[key] = v
	c.mu.Unlock()
	return v, nil
}
