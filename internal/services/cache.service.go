package services

import (
	"context"
	"sync"
	"time"

	"nazar/internal/models"
)

// DefaultCacheTTL keeps on-demand refreshes from hammering the OS
const DefaultCacheTTL = 1 * time.Second

// SnapshotCache serves on-demand snapshots, collecting at most once per TTL.
type SnapshotCache struct {
	mu          sync.Mutex
	collect     func(ctx context.Context) models.Snapshot
	now         func() time.Time
	ttl         time.Duration
	snapshot    models.Snapshot
	collectedAt time.Time
	valid       bool
}

func NewSnapshotCache(collect func(ctx context.Context) models.Snapshot, ttl time.Duration) *SnapshotCache {
	if ttl < 0 {
		ttl = 0
	}
	return &SnapshotCache{collect: collect, ttl: ttl, now: time.Now}
}

// SetTTL sets the cache time-to-live
func (sc *SnapshotCache) SetTTL(ttl time.Duration) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.ttl = ttl
}

// isValid must be called with mu held
func (sc *SnapshotCache) isValid() bool {
	return sc.valid && sc.now().Sub(sc.collectedAt) < sc.ttl
}

// Get returns the cached snapshot if fresh, otherwise collects a new one.
// Concurrent callers during a collection wait for it instead of collecting again.
func (sc *SnapshotCache) Get(ctx context.Context) models.Snapshot {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.isValid() {
		return sc.snapshot.Clone()
	}
	sc.snapshot = sc.collect(ctx)
	sc.collectedAt = sc.now()
	sc.valid = true
	return sc.snapshot.Clone()
}

// Clear drops the cached snapshot
func (sc *SnapshotCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.valid = false
	sc.snapshot = models.Snapshot{}
}
