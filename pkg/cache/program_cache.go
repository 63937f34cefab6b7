package cache

import (
	"hash/fnv"
	"sync"
	"time"

	"star-core/internal/ast"
)

const numShards = 16

// DefaultMaxEntries bounds the cache when no limit is configured.
const DefaultMaxEntries = 4096

// ProgramCache maps script source to its parsed program. Programs are immutable,
// so cached values are shared between callers.
type ProgramCache struct {
	shards      [numShards]*programShard
	ttl         time.Duration
	maxPerShard int
	now         func() time.Time
}

type programShard struct {
	mu    sync.RWMutex
	items map[string]programEntry
}

type programEntry struct {
	program  *ast.Program
	storedAt time.Time
}

// NewProgramCache creates a cache whose entries expire after ttl; ttl <= 0 never expires.
// maxEntries is split evenly across shards; a full shard evicts its oldest entry.
// maxEntries <= 0 uses DefaultMaxEntries.
func NewProgramCache(ttl time.Duration, maxEntries int) *ProgramCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	perShard := (maxEntries + numShards - 1) / numShards
	c := &ProgramCache{ttl: ttl, maxPerShard: perShard, now: time.Now}
	for i := 0; i < numShards; i++ {
		c.shards[i] = &programShard{items: make(map[string]programEntry)}
	}
	return c
}

func (c *ProgramCache) getShard(source string) *programShard {
	h := fnv.New32a()
	h.Write([]byte(source))
	return c.shards[h.Sum32()%numShards]
}

// Set stores the program parsed from source.
func (c *ProgramCache) Set(source string, p *ast.Program) {
	shard := c.getShard(source)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if _, exists := shard.items[source]; !exists && len(shard.items) >= c.maxPerShard {
		c.evictLocked(shard)
	}
	shard.items[source] = programEntry{program: p, storedAt: c.now()}
}

// evictLocked drops expired entries, or the oldest one when none has expired.
func (c *ProgramCache) evictLocked(shard *programShard) {
	var oldestKey string
	var oldest time.Time
	removed := false
	for src, entry := range shard.items {
		if c.expired(entry) {
			delete(shard.items, src)
			removed = true
			continue
		}
		if oldest.IsZero() || entry.storedAt.Before(oldest) {
			oldest, oldestKey = entry.storedAt, src
		}
	}
	if !removed && !oldest.IsZero() {
		delete(shard.items, oldestKey)
	}
}

// Get returns a live entry for source.
func (c *ProgramCache) Get(source string) (*ast.Program, bool) {
	shard := c.getShard(source)
	shard.mu.RLock()
	entry, ok := shard.items[source]
	shard.mu.RUnlock()
	if !ok || c.expired(entry) {
		return nil, false
	}
	return entry.program, true
}

// GetOrParse returns the cached program or parses and stores it. hit reports a cache hit.
func (c *ProgramCache) GetOrParse(source string, parse func(string) *ast.Program) (p *ast.Program, hit bool) {
	if p, ok := c.Get(source); ok {
		return p, true
	}
	p = parse(source)
	c.Set(source, p)
	return p, false
}

func (c *ProgramCache) expired(e programEntry) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl
}

// Len returns total items across all shards, expired ones included.
func (c *ProgramCache) Len() int {
	total := 0
	for _, shard := range c.shards {
		shard.mu.RLock()
		total += len(shard.items)
		shard.mu.RUnlock()
	}
	return total
}

// Cleanup removes expired entries and returns how many were dropped.
func (c *ProgramCache) Cleanup() int {
	if c.ttl <= 0 {
		return 0
	}
	removed := 0
	for _, shard := range c.shards {
		shard.mu.Lock()
		for src, entry := range shard.items {
			if c.expired(entry) {
				delete(shard.items, src)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

// CacheStats provides cache statistics.
type CacheStats struct {
	TotalItems  int            `json:"total_items"`
	ShardCounts [numShards]int `json:"shard_counts"`
	OldestAge   time.Duration  `json:"oldest_age"`
}

// Stats returns cache statistics.
func (c *ProgramCache) Stats() CacheStats {
	stats := CacheStats{}
	var oldest time.Time
	for i, shard := range c.shards {
		shard.mu.RLock()
		stats.ShardCounts[i] = len(shard.items)
		stats.TotalItems += len(shard.items)
		for _, entry := range shard.items {
			if oldest.IsZero() || entry.storedAt.Before(oldest) {
				oldest = entry.storedAt
			}
		}
		shard.mu.RUnlock()
	}
	if !oldest.IsZero() {
		stats.OldestAge = c.now().Sub(oldest)
	}
	return stats
}
