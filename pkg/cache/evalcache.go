// Package cache implements the fixed-capacity evaluation cache that
// sits in front of the network evaluator, keyed by board Zobrist hash.
package cache

import "sync"

// Result is the cached network output for one position: a per-vertex
// (plus pass) policy and a winrate for the side to move, the pair
// network.Evaluate returns. pkg/network imports this package, not the
// other way round, so cache stays a leaf dependency.
type Result struct {
	Policy  []float32
	Winrate float32
}

// EvalCache is a fixed-capacity, hash-keyed store with FIFO eviction on
// insertion order, grounded on spec.md §4.4. No cache library appears
// anywhere in the retrieval pack, so this is built on the standard
// library's sync.Mutex and map, the one justified stdlib concern in
// this package.
type EvalCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[uint64]Result
	order    []uint64
}

// New returns an EvalCache with the given entry capacity.
func New(capacity int) *EvalCache {
	if capacity < 1 {
		capacity = 1
	}
	return &EvalCache{
		capacity: capacity,
		entries:  make(map[uint64]Result, capacity),
	}
}

// SetSizeFromPlayouts returns a cache capacity of 18x the configured
// playout budget (at least 1), the literal ratio spec.md §4.4 names; it
// does not resize any existing cache.
func SetSizeFromPlayouts(playouts int) int {
	size := playouts * 18
	if size < 1 {
		return 1
	}
	return size
}

// Lookup returns the cached result for hash, if present.
func (c *EvalCache) Lookup(hash uint64) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[hash]
	return r, ok
}

// Insert stores result under hash, evicting the oldest entry by
// insertion order if the cache is at capacity. Re-inserting an
// existing hash overwrites its value without affecting eviction order.
func (c *EvalCache) Insert(hash uint64, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[hash]; exists {
		c.entries[hash] = result
		return
	}

	if len(c.entries) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[hash] = result
	c.order = append(c.order, hash)
}

// Len returns the number of entries currently cached.
func (c *EvalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear empties the cache. clear_board does not call it: the engine
// builds a new Network, and so a new cache, when it reloads weights.
func (c *EvalCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]Result, c.capacity)
	c.order = nil
}
