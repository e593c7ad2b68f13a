package embedder

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/billshop/shopai-go/internal/rag"
)

const (
	defaultCacheSize = 1000
	defaultCacheTTL  = 24 * time.Hour
)

// Cache stores embeddings by key. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(key string) ([]float32, bool)
	Put(key string, vector []float32)
}

// cacheKey hashes the model together with the exact input text; vectors from
// different models must never be mixed.
func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:16])
}

// CachedEmbedder serves repeated texts from a Cache and forwards only the
// misses to the wrapped embedder, in a single batch.
type CachedEmbedder struct {
	next  rag.Embedder
	model string
	cache Cache
}

// NewCachedEmbedder wraps next. model namespaces the cache keys.
func NewCachedEmbedder(next rag.Embedder, model string, cache Cache) *CachedEmbedder {
	return &CachedEmbedder{next: next, model: model, cache: cache}
}

// Embed implements rag.Embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if v, ok := c.cache.Get(cacheKey(c.model, t)); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = fresh[j]
		c.cache.Put(cacheKey(c.model, missTexts[j]), fresh[j])
	}
	return out, nil
}

// MemoryCache is a size-bounded LRU with per-entry expiry.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	key     string
	vector  []float32
	expires time.Time
}

// NewMemoryCache returns an LRU cache holding at most maxSize vectors for ttl.
func NewMemoryCache(maxSize int, ttl time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &MemoryCache{
		entries: make(map[string]*list.Element, maxSize),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached vector and marks it most recently used.
func (m *MemoryCache) Get(key string) ([]float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*memoryEntry)
	if m.now().After(e.expires) {
		m.order.Remove(el)
		delete(m.entries, key)
		return nil, false
	}
	m.order.MoveToFront(el)
	return e.vector, true
}

// Put inserts or refreshes a vector, evicting the least recently used entry
// when full.
func (m *MemoryCache) Put(key string, vector []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expires := m.now().Add(m.ttl)
	if el, ok := m.entries[key]; ok {
		e := el.Value.(*memoryEntry)
		e.vector = vector
		e.expires = expires
		m.order.MoveToFront(el)
		return
	}
	if m.order.Len() >= m.maxSize {
		if oldest := m.order.Back(); oldest != nil {
			m.order.Remove(oldest)
			delete(m.entries, oldest.Value.(*memoryEntry).key)
		}
	}
	m.entries[key] = m.order.PushFront(&memoryEntry{key: key, vector: vector, expires: expires})
}

// Len returns the number of cached entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
