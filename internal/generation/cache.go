package generation

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheKey identifies one memoized chunk. Two calls with identical keys must
// always agree, since the generator itself is a pure function of these
// fields (spec §5: "any chunk cache must be a pure memoization").
type cacheKey struct {
	Seed    uint32
	Level   int32
	ChunkX  int32
	ChunkY  int32
	Variant Variant
}

// Cache is a bounded, thread-safe memoization of Generate keyed by
// (seed, level, chunkX, chunkY, variant). It holds no authoritative state:
// evicting an entry only means the next lookup recomputes it, byte-for-byte
// identical to before (spec I1).
type Cache struct {
	lru *lru.Cache[cacheKey, *ChunkEdges]
}

// NewCache builds a chunk cache holding up to size entries. A size of zero
// or less falls back to a bound of 256 chunks.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = 256
	}
	l, err := lru.New[cacheKey, *ChunkEdges](size)
	if err != nil {
		// Only returns an error for a non-positive size, which we've
		// already guarded against above.
		panic(err)
	}
	return &Cache{lru: l}
}

// GetOrGenerate returns the cached chunk for the given key, generating and
// caching it on a miss.
func (c *Cache) GetOrGenerate(variant Variant, seed uint32, level, cx, cy int32) (*ChunkEdges, error) {
	key := cacheKey{Seed: seed, Level: level, ChunkX: cx, ChunkY: cy, Variant: variant}
	if chunk, ok := c.lru.Get(key); ok {
		return chunk, nil
	}
	chunk, err := Generate(variant, seed, level, cx, cy)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, chunk)
	return chunk, nil
}

// Len reports the number of chunks currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge drops every cached chunk. Safe to call at any time since the cache
// holds no authoritative state.
func (c *Cache) Purge() {
	c.lru.Purge()
}
