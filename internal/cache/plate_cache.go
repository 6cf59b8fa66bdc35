package cache

import (
	"context"
	"sync"
	"time"

	"platewatch-service/internal/domain/scan"
)

// Entry is the cached compliance result for one plate.
type Entry struct {
	PlateNumber  string
	Status       scan.VehicleStatus
	CachedAt     time.Time
	HitCount     int
	lastAccessed time.Time
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// PlateCache is a time-windowed map from plate number to the last known
// compliance result. Expiry is lazy: entries older than the cooldown are
// invisible to lookups and overwritten by the next store. The check-then-act
// sequence in GetOrCompute is serialized per plate, so concurrent frames
// carrying the same plate trigger at most one compliance check; distinct
// plates never contend.
type PlateCache struct {
	cooldown time.Duration

	mu      sync.Mutex
	entries map[string]*Entry
	locks   map[string]*keyLock
	hits    int64
	misses  int64

	now func() time.Time
}

func NewPlateCache(cooldown time.Duration) *PlateCache {
	return &PlateCache{
		cooldown: cooldown,
		entries:  make(map[string]*Entry),
		locks:    make(map[string]*keyLock),
		now:      time.Now,
	}
}

// Lookup returns a copy of the live entry for the plate, if any. Counts as a
// hit or miss for statistics and refreshes the last-accessed marker; expiry
// stays anchored to CachedAt.
func (c *PlateCache) Lookup(plateNumber string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.liveEntryLocked(plateNumber)
	if !ok {
		c.misses++
		return Entry{}, false
	}
	c.hits++
	entry.HitCount++
	entry.lastAccessed = c.now()
	return *entry, true
}

// GetOrCompute returns the live cached status for the plate, or invokes
// compute to produce one and stores it. For a given plate the whole sequence
// runs under a per-plate lock: racing callers block, and all but the one that
// computed observe a cache hit. A compute failure stores nothing, so the next
// caller retries instead of reading a cached error.
func (c *PlateCache) GetOrCompute(ctx context.Context, plateNumber string, compute func(context.Context) (scan.VehicleStatus, error)) (scan.VehicleStatus, bool, error) {
	kl := c.acquireKey(plateNumber)
	defer c.releaseKey(plateNumber, kl)

	c.mu.Lock()
	if entry, ok := c.liveEntryLocked(plateNumber); ok {
		c.hits++
		entry.HitCount++
		entry.lastAccessed = c.now()
		status := entry.Status
		c.mu.Unlock()
		return status, true, nil
	}
	c.misses++
	c.mu.Unlock()

	status, err := compute(ctx)
	if err != nil {
		return scan.VehicleStatus{}, false, err
	}

	now := c.now()
	c.mu.Lock()
	c.entries[plateNumber] = &Entry{
		PlateNumber:  plateNumber,
		Status:       status,
		CachedAt:     now,
		lastAccessed: now,
	}
	c.mu.Unlock()

	return status, false, nil
}

// Stats returns a point-in-time snapshot of cache counters.
func (c *PlateCache) Stats() scan.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := 0
	for _, entry := range c.entries {
		if c.expiredLocked(entry) {
			expired++
		}
	}

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return scan.CacheStats{
		TotalEntries:   len(c.entries),
		ActiveEntries:  len(c.entries) - expired,
		ExpiredEntries: expired,
		HitCount:       c.hits,
		MissCount:      c.misses,
		HitRate:        hitRate,
	}
}

// Sweep removes physically stale entries. Purely for memory bounding; lazy
// expiry already hides them from lookups.
func (c *PlateCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if c.expiredLocked(entry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear drops all entries and resets counters.
func (c *PlateCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
	c.hits = 0
	c.misses = 0
}

func (c *PlateCache) liveEntryLocked(plateNumber string) (*Entry, bool) {
	entry, ok := c.entries[plateNumber]
	if !ok || c.expiredLocked(entry) {
		return nil, false
	}
	return entry, true
}

func (c *PlateCache) expiredLocked(entry *Entry) bool {
	return c.now().Sub(entry.CachedAt) >= c.cooldown
}

func (c *PlateCache) acquireKey(plateNumber string) *keyLock {
	c.mu.Lock()
	kl, ok := c.locks[plateNumber]
	if !ok {
		kl = &keyLock{}
		c.locks[plateNumber] = kl
	}
	kl.refs++
	c.mu.Unlock()

	kl.mu.Lock()
	return kl
}

func (c *PlateCache) releaseKey(plateNumber string, kl *keyLock) {
	kl.mu.Unlock()

	c.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(c.locks, plateNumber)
	}
	c.mu.Unlock()
}
