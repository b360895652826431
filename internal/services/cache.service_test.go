package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"nazar/internal/models"
)

func countingCollect(calls *int) func(context.Context) models.Snapshot {
	var mu sync.Mutex
	return func(context.Context) models.Snapshot {
		mu.Lock()
		defer mu.Unlock()
		*calls++
		return models.Snapshot{ProcessCount: *calls}
	}
}

func TestSnapshotCache_ServesWithinTTL(t *testing.T) {
	var calls int
	clock := newFakeClock()
	cache := NewSnapshotCache(countingCollect(&calls), time.Second)
	cache.now = clock.Now

	first := cache.Get(context.Background())
	clock.Advance(500 * time.Millisecond)
	second := cache.Get(context.Background())

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	clock.Advance(600 * time.Millisecond)
	third := cache.Get(context.Background())
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, third.ProcessCount)
}

func TestSnapshotCache_Clear(t *testing.T) {
	var calls int
	cache := NewSnapshotCache(countingCollect(&calls), time.Hour)

	cache.Get(context.Background())
	cache.Clear()
	cache.Get(context.Background())
	assert.Equal(t, 2, calls)
}

func TestSnapshotCache_ZeroTTLAlwaysCollects(t *testing.T) {
	var calls int
	cache := NewSnapshotCache(countingCollect(&calls), 0)

	cache.Get(context.Background())
	cache.Get(context.Background())
	assert.Equal(t, 2, calls)

	cache.SetTTL(time.Hour)
	cache.Get(context.Background())
	cache.Get(context.Background())
	assert.Equal(t, 3, calls)
}

func TestSnapshotCache_ConcurrentCallersShareCollection(t *testing.T) {
	var calls int
	cache := NewSnapshotCache(countingCollect(&calls), time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Get(context.Background())
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, calls)
}

func TestSnapshotCache_ReturnsIndependentCopies(t *testing.T) {
	cache := NewSnapshotCache(func(context.Context) models.Snapshot {
		return models.Snapshot{Partitions: []models.DiskPartition{{Path: "/", FreeGB: 50}}}
	}, time.Hour)

	first := cache.Get(context.Background())
	first.Partitions[0].FreeGB = 0
	assert.Equal(t, 50.0, cache.Get(context.Background()).Partitions[0].FreeGB)
}
