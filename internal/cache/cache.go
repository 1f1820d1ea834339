// Package cache holds the in-memory write-through caches used on the hot
// generation and authentication paths. Caches never infer state: every
// mutation originates from a storage commit, after which the writer calls
// Refresh (create/update) or Invalidate (delete).
package cache

import (
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/conjugo/conjugo/internal/adapters/metrics"
	"github.com/conjugo/conjugo/internal/ports"
)

// counters tracks hit/miss statistics shared by all caches. Missing-value
// lookups coalesce through the singleflight group so a cold key produces a
// single storage fetch regardless of concurrent readers.
type counters struct {
	name   string
	hits   atomic.Int64
	misses atomic.Int64
	group  singleflight.Group
}

func (c *counters) hit() {
	c.hits.Add(1)
	metrics.CacheLookupsTotal.WithLabelValues(c.name, "hit").Inc()
}

func (c *counters) miss() {
	c.misses.Add(1)
	metrics.CacheLookupsTotal.WithLabelValues(c.name, "miss").Inc()
}

func (c *counters) stats(entries int) ports.CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses
	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return ports.CacheStats{
		Entries: entries,
		Hits:    hits,
		Misses:  misses,
		HitRate: rate,
	}
}
