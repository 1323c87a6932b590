package usecase

import (
	"container/list"
	"fmt"
	"strings"
	"sync"

	"FinPredict/internal/registry"
)

// modelCache keeps recently used artifact sets in memory with LRU eviction,
// so serving a hot symbol does not re-read and re-decode its JSON artifacts
// on every request. Loads are deduplicated per key: concurrent requests for
// a cold (symbol, horizon) pair trigger exactly one registry read.
type modelCache struct {
	capacity int

	mu    sync.Mutex
	ll    *list.List
	items map[string]*list.Element

	loadMu sync.Mutex
	loads  map[string]*sync.Mutex
}

type modelCacheEntry struct {
	key string
	set *registry.ArtifactSet
}

func newModelCache(capacity int) *modelCache {
	if capacity <= 0 {
		capacity = 16
	}
	return &modelCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
		loads:    make(map[string]*sync.Mutex),
	}
}

func modelKey(symbol string, horizon int) string {
	return fmt.Sprintf("%s:%d", strings.ToUpper(symbol), horizon)
}

// getOrLoad returns the cached artifact set or loads it with load, caching
// the result on success.
func (c *modelCache) getOrLoad(symbol string, horizon int, load func() (*registry.ArtifactSet, error)) (*registry.ArtifactSet, error) {
	key := modelKey(symbol, horizon)
	if set, ok := c.get(key); ok {
		return set, nil
	}

	keyMu := c.keyMutex(key)
	keyMu.Lock()
	defer keyMu.Unlock()

	// another request may have loaded it while we waited
	if set, ok := c.get(key); ok {
		return set, nil
	}
	set, err := load()
	if err != nil {
		return nil, err
	}
	c.add(key, set)
	return set, nil
}

func (c *modelCache) get(key string) (*registry.ArtifactSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*modelCacheEntry).set, true
}

func (c *modelCache) add(key string, set *registry.ArtifactSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*modelCacheEntry).set = set
		return
	}
	c.items[key] = c.ll.PushFront(&modelCacheEntry{key: key, set: set})
	for c.ll.Len() > c.capacity {
		back := c.ll.Back()
		c.ll.Remove(back)
		delete(c.items, back.Value.(*modelCacheEntry).key)
	}
}

// invalidateSymbol drops every horizon for a symbol, called after retrain.
func (c *modelCache) invalidateSymbol(symbol string) {
	prefix := strings.ToUpper(symbol) + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, el := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.ll.Remove(el)
			delete(c.items, key)
		}
	}
}

func (c *modelCache) keyMutex(key string) *sync.Mutex {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	mu, ok := c.loads[key]
	if !ok {
		mu = &sync.Mutex{}
		c.loads[key] = mu
	}
	return mu
}
