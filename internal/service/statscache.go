package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coocood/freecache"
)

// StatsCache memoizes per-user stats responses. Entries are keyed by a per-user
// generation that every workout mutation bumps, so stale entries are never read
// and simply age out of the ring buffer.
type StatsCache struct {
	c      *freecache.Cache
	ttlSec int

	mu   sync.Mutex
	gens map[int64]uint64

	// observe, when set, receives "hit" or "miss" for every lookup.
	observe func(result string)
}

// NewStatsCache allocates sizeMB of cache. It returns nil for sizeMB <= 0 and a nil
// *StatsCache is a valid, always-missing cache.
func NewStatsCache(sizeMB int, ttl time.Duration) *StatsCache {
	if sizeMB <= 0 {
		return nil
	}
	return &StatsCache{
		c:      freecache.NewCache(sizeMB * 1024 * 1024),
		ttlSec: int(ttl / time.Second),
		gens:   map[int64]uint64{},
	}
}

// OnLookup registers a hit/miss observer.
func (sc *StatsCache) OnLookup(fn func(result string)) {
	if sc != nil {
		sc.observe = fn
	}
}

// key pins the user's current generation. Callers compute it once before reading
// the store so a result computed across a concurrent mutation lands under the old,
// already unreachable generation.
func (sc *StatsCache) key(userID int64, name string) []byte {
	if sc == nil {
		return nil
	}
	sc.mu.Lock()
	g := sc.gens[userID]
	sc.mu.Unlock()
	return fmt.Appendf(nil, "%d:%d:%s", userID, g, name)
}

func (sc *StatsCache) note(result string) {
	if sc.observe != nil {
		sc.observe(result)
	}
}

// get decodes the value stored under key into dst and reports whether it was found.
func (sc *StatsCache) get(key []byte, dst any) bool {
	if sc == nil {
		return false
	}
	raw, err := sc.c.Get(key)
	if err != nil {
		sc.note("miss")
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		sc.note("miss")
		return false
	}
	sc.note("hit")
	return true
}

func (sc *StatsCache) put(key []byte, v any) error {
	if sc == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := sc.c.Set(key, raw, sc.ttlSec); err != nil {
		if errors.Is(err, freecache.ErrLargeEntry) {
			return nil
		}
		return err
	}
	return nil
}

// Invalidate makes every cached entry for userID unreachable.
func (sc *StatsCache) Invalidate(userID int64) {
	if sc == nil {
		return
	}
	sc.mu.Lock()
	sc.gens[userID]++
	sc.mu.Unlock()
}
