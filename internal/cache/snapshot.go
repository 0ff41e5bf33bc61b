// Package cache holds the process-wide price snapshot slot and the TTL
// policies that decide its freshness.
package cache

import (
	"sync"
	"time"

	"goldprice-api/internal/models"
)

// SnapshotCache is the single-slot store for the most recent snapshot.
// There is exactly one "current prices" value per process, so this is a
// slot, not a map. Snapshots are replaced wholesale, never merged. Safe for
// concurrent use.
type SnapshotCache struct {
	mu      sync.RWMutex
	current *models.Snapshot
}

// NewSnapshotCache creates an empty cache.
func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{}
}

// Current returns the cached snapshot, if any.
func (c *SnapshotCache) Current() (*models.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil, false
	}
	return c.current, true
}

// Set replaces the slot with a newer snapshot.
func (c *SnapshotCache) Set(snap *models.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = snap
}

// Fresh reports whether the cached snapshot (if any) is still within the
// policy's TTL at the given instant, and returns it.
func (c *SnapshotCache) Fresh(now time.Time, policy Policy) (*models.Snapshot, bool) {
	snap, ok := c.Current()
	if !ok {
		return nil, false
	}
	if snap.Age(now) >= policy.TTL(now, snap.Source) {
		return snap, false
	}
	return snap, true
}
