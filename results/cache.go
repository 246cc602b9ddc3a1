package results

import (
	"strings"

	"github.com/padraicbc/oresults/models"
)

// CacheObserver receives cache activity, e.g. for metrics. Labels are the
// strategy kind part of the tag so cardinality stays bounded.
type CacheObserver interface {
	CacheHit(strategy string)
	CacheMiss(strategy string)
	CacheInvalidated(kind models.Kind)
}

// Cache memoizes strategy results per (subject, strategy tag). It is not safe
// for concurrent use; callers serialize access.
type Cache struct {
	entries map[models.Ref]map[string]any
	gen     uint64
	obs     CacheObserver
}

// NewCache returns an empty cache. obs may be nil.
func NewCache(obs CacheObserver) *Cache {
	return &Cache{entries: make(map[models.Ref]map[string]any), obs: obs}
}

// Get returns the memoized result for ref under tag.
func (c *Cache) Get(ref models.Ref, tag string) (any, bool) {
	v, ok := c.entries[ref][tag]
	if c.obs != nil {
		if ok {
			c.obs.CacheHit(strategyLabel(tag))
		} else {
			c.obs.CacheMiss(strategyLabel(tag))
		}
	}
	return v, ok
}

// Set stores a result for ref under tag.
func (c *Cache) Set(ref models.Ref, tag string, v any) {
	byTag, ok := c.entries[ref]
	if !ok {
		byTag = make(map[string]any)
		c.entries[ref] = byTag
	}
	byTag[tag] = v
}

// Invalidate drops every result stored for ref.
func (c *Cache) Invalidate(ref models.Ref) {
	delete(c.entries, ref)
	c.gen++
	if c.obs != nil {
		c.obs.CacheInvalidated(ref.Kind)
	}
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.entries = make(map[models.Ref]map[string]any)
	c.gen++
}

// Generation changes on every invalidation. Rankings compare it to decide
// whether their memoized pass is stale.
func (c *Cache) Generation() uint64 { return c.gen }

// Len returns the number of subjects with at least one entry.
func (c *Cache) Len() int { return len(c.entries) }

func strategyLabel(tag string) string {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		return tag[:i]
	}
	return tag
}
