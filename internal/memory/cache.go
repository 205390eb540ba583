package memory

import (
	"context"
	"fmt"
	"sync"
)

// Cache memoizes text→vector lookups in front of an Embedder.
//
// Eviction is strict FIFO on insertion order, independent of access recency.
// This is a known limitation kept on purpose: hot repeated queries are not
// promoted, so they can be evicted while colder entries survive.
type Cache struct {
	mu       sync.Mutex
	embedder Embedder
	entries  map[string][]float32
	order    []string
	capacity int
	batch    int
}

// Cache keys carry the embedding task so query and document vectors for the
// same text never collide.
const (
	queryKeyPrefix    = "q:"
	documentKeyPrefix = "d:"
)

// NewCache returns a cache over embedder with the given capacity and backend
// batch size.
func NewCache(embedder Embedder, capacity, batchSize int) *Cache {
	if capacity <= 0 {
		capacity = 64
	}
	if batchSize <= 0 {
		batchSize = 4
	}
	return &Cache{
		embedder: embedder,
		entries:  make(map[string][]float32, capacity),
		order:    make([]string, 0, capacity),
		capacity: capacity,
		batch:    batchSize,
	}
}

// GetOrCompute returns the query embedding for text, computing it at most
// once. A hit performs no backend call.
func (c *Cache) GetOrCompute(ctx context.Context, text string) ([]float32, error) {
	key := queryKeyPrefix + text
	c.mu.Lock()
	if vec, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return vec, nil
	}
	c.mu.Unlock()

	vec, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.insert(key, vec)
	c.mu.Unlock()
	return vec, nil
}

// GetOrComputeDocument returns the document embedding for text, cached under
// a separate key space from query embeddings.
func (c *Cache) GetOrComputeDocument(ctx context.Context, text string) ([]float32, error) {
	key := documentKeyPrefix + text
	c.mu.Lock()
	if vec, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return vec, nil
	}
	c.mu.Unlock()

	vec, err := c.embedder.EmbedDocument(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.insert(key, vec)
	c.mu.Unlock()
	return vec, nil
}

// GetOrComputeBatch returns query embeddings for texts in input order.
// Already-cached texts are served without backend calls; the uncached
// remainder is computed in chunks of the configured batch size.
func (c *Cache) GetOrComputeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	var uncached []string
	var uncachedIdx []int

	c.mu.Lock()
	for i, text := range texts {
		if vec, ok := c.entries[queryKeyPrefix+text]; ok {
			results[i] = vec
			continue
		}
		uncached = append(uncached, text)
		uncachedIdx = append(uncachedIdx, i)
	}
	c.mu.Unlock()

	if len(uncached) == 0 {
		return results, nil
	}

	computed := make([][]float32, 0, len(uncached))
	for start := 0; start < len(uncached); start += c.batch {
		end := start + c.batch
		if end > len(uncached) {
			end = len(uncached)
		}
		vecs, err := c.embedder.EmbedQueries(ctx, uncached[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embedding batch size mismatch: got %d want %d", len(vecs), end-start)
		}
		computed = append(computed, vecs...)
	}

	c.mu.Lock()
	for i, vec := range computed {
		results[uncachedIdx[i]] = vec
		c.insert(queryKeyPrefix+uncached[i], vec)
	}
	c.mu.Unlock()

	return results, nil
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Dimensions reports the backing embedder's fixed output dimension.
func (c *Cache) Dimensions() int {
	return c.embedder.Dimensions()
}

// insert stores a vector and evicts the oldest-inserted entries while the
// cache exceeds capacity. Caller must hold c.mu.
func (c *Cache) insert(key string, vec []float32) {
	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = vec
	c.order = append(c.order, key)
	for len(c.entries) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}
