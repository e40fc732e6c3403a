package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"
	"time"

	"amplie/internal/domain"
	"amplie/internal/port"
)

// QueryCache is a small LRU of ranked results keyed by collection, query
// vector and k. Invalidate drops everything after a write.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	gen     uint64
	now     func() time.Time
}

type cacheEntry struct {
	results   []domain.Match
	timestamp time.Time
	gen       uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(collection string, vector domain.Vector, k int) string {
	h := sha256.New()
	h.Write([]byte(collection))
	h.Write([]byte{0})
	var buf [8]byte
	for _, x := range vector {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
		h.Write(buf[:])
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(k))
	h.Write(buf[:])
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

func (c *QueryCache) Get(collection string, vector domain.Vector, k int) ([]domain.Match, bool) {
	key := cacheKey(collection, vector, k)

	c.mu.RLock()
	entry, exists := c.entries[key]
	currentGen := c.gen
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if c.now().Sub(entry.timestamp) > c.ttl || entry.gen != currentGen {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.moveToEnd(key)
	c.mu.Unlock()

	return cloneMatches(entry.results), true
}

func (c *QueryCache) Put(collection string, vector domain.Vector, k int, results []domain.Match) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(collection, vector, k)
	entry := &cacheEntry{
		results:   cloneMatches(results),
		timestamp: c.now(),
		gen:       c.gen,
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
}

// Invalidate drops all entries.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.gen++
}

func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// cloneMatches copies the slice so callers cannot mutate cached results.
// Metadata maps are shared.
func cloneMatches(in []domain.Match) []domain.Match {
	if in == nil {
		return nil
	}
	return append([]domain.Match(nil), in...)
}

// CachedStore wraps a VectorStore with a QueryCache. Successful writes
// invalidate the cache.
type CachedStore struct {
	store   port.VectorStore
	encoder port.PolicyEncoder
	cache   *QueryCache
}

func NewCachedStore(store port.VectorStore, encoder port.PolicyEncoder, cache *QueryCache) *CachedStore {
	return &CachedStore{
		store:   store,
		encoder: encoder,
		cache:   cache,
	}
}

func (s *CachedStore) Upsert(ctx context.Context, collection string, items []domain.CatalogItem) (domain.UpsertResult, error) {
	res, err := s.store.Upsert(ctx, collection, items)
	if res.Count > 0 || err != nil {
		// A failed batch may still have been partially written.
		s.cache.Invalidate()
	}
	return res, err
}

// Overwrite forwards to the wrapped store's Overwrite when it has one.
func (s *CachedStore) Overwrite(ctx context.Context, collection string, items []domain.CatalogItem) (domain.UpsertResult, error) {
	ow, ok := s.store.(port.Overwriter)
	if !ok {
		return s.Upsert(ctx, collection, items)
	}
	res, err := ow.Overwrite(ctx, collection, items)
	if res.Count > 0 || err != nil {
		s.cache.Invalidate()
	}
	return res, err
}

func (s *CachedStore) Query(ctx context.Context, collection string, policy domain.Policy, k int) ([]domain.Match, error) {
	vector := s.encoder.Encode(policy)
	if results, hit := s.cache.Get(collection, vector, k); hit {
		return results, nil
	}

	results, err := s.store.Query(ctx, collection, policy, k)
	if err != nil {
		return nil, err
	}

	s.cache.Put(collection, vector, k, results)
	return results, nil
}
