package assembler

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"aeterna/internal/fingerprint"
	"aeterna/internal/model"
)

// CacheKey implements spec.md §4.7's cache key: (hash(query_embedding)
// if present else 0, token_budget, view_mode).
type CacheKey struct {
	QueryHash   uint64
	TokenBudget int
	ViewMode    model.ViewMode
}

func hashEmbedding(embedding []float32) uint64 {
	if len(embedding) == 0 {
		return 0
	}
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return fingerprint.RawUint64(buf)
}

func computeCacheKey(queryEmbedding []float32, tokenBudget int, viewMode model.ViewMode) CacheKey {
	return CacheKey{QueryHash: hashEmbedding(queryEmbedding), TokenBudget: tokenBudget, ViewMode: viewMode}
}

type cacheEntry struct {
	value     model.AssembledContext
	insertedAt time.Time
}

// cache is an in-memory, mutex-guarded cache of assembled contexts.
// Evict/insert are strictly in-memory and must never suspend, per
// spec.md §5's shared-resource policy — this is a plain map behind a
// mutex, not a channel-mediated store.
type cache struct {
	mu      sync.Mutex
	entries map[CacheKey]cacheEntry
	ttl     time.Duration
}

func newCache(ttlSeconds int) *cache {
	return &cache{entries: make(map[CacheKey]cacheEntry), ttl: time.Duration(ttlSeconds) * time.Second}
}

func (c *cache) get(key CacheKey) (model.AssembledContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return model.AssembledContext{}, false
	}
	if time.Since(entry.insertedAt) >= c.ttl {
		return model.AssembledContext{}, false
	}
	return cloneAssembledContext(entry.value), true
}

func (c *cache) put(key CacheKey, value model.AssembledContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: cloneAssembledContext(value), insertedAt: time.Now()}
}

// evictExpired opportunistically removes all expired entries (spec.md
// §4.7 step 2).
func (c *cache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, e := range c.entries {
		if now.Sub(e.insertedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
}

// cloneAssembledContext deep-copies the slices of an AssembledContext so
// cached readers never share backing arrays with the cache (spec.md
// §4.7 "stored entries are cloned out, not referenced").
func cloneAssembledContext(v model.AssembledContext) model.AssembledContext {
	out := v
	out.Entries = append([]model.ContextEntry(nil), v.Entries...)
	out.LayersIncluded = append([]model.Layer(nil), v.LayersIncluded...)
	out.StaleEntryIDs = append([]string(nil), v.StaleEntryIDs...)
	out.QueryEmbedding = append([]float32(nil), v.QueryEmbedding...)
	out.Metadata.TrajectoryLogs = append([]string(nil), v.Metadata.TrajectoryLogs...)
	out.Metadata.Traces = append([]string(nil), v.Metadata.Traces...)
	if v.Metadata.Metrics != nil {
		m := make(map[string]float64, len(v.Metadata.Metrics))
		for k, val := range v.Metadata.Metrics {
			m[k] = val
		}
		out.Metadata.Metrics = m
	}
	return out
}
