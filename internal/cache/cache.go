// Package cache replays previously solved pipeline runs.
//
// Entries hold the raw solution blocks of a completed run, keyed by a
// content hash of everything that determines them: model text, inline data,
// data-file contents and solver options. A hit skips all three external
// stages.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the entry capacity used by New when size is not positive.
const DefaultSize = 128

// Cache is an in-memory LRU of solved runs. Safe for concurrent use.
type Cache struct {
	entries *lru.Cache[string, []string]
}

// New creates a Cache holding up to size runs.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, []string](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Get returns the cached solution blocks for key.
func (c *Cache) Get(key string) ([]string, bool) {
	blocks, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return append([]string(nil), blocks...), true
}

// Put stores the solution blocks of a completed run. The blocks are copied;
// later mutation by the caller does not affect the cached entry.
func (c *Cache) Put(key string, blocks []string) {
	c.entries.Add(key, append([]string(nil), blocks...))
}

// Len returns the number of cached runs.
func (c *Cache) Len() int {
	return c.entries.Len()
}
