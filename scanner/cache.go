package scanner

import (
	"sync"
	"time"

	"discord-wanderer/models"
)

type cacheEntry struct {
	destinations []models.Destination
	cachedAt     time.Time
}

// DestinationCache keeps each guild's destination listing for a while to
// avoid re-fetching it every cycle.
type DestinationCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

// NewDestinationCache creates a cache. A non-positive ttl disables caching.
func NewDestinationCache(ttl time.Duration) *DestinationCache {
	return &DestinationCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

// Get returns the cached listing for guildID if it is still fresh.
func (c *DestinationCache) Get(guildID string, now time.Time) ([]models.Destination, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[guildID]
	if !ok || now.Sub(entry.cachedAt) >= c.ttl {
		return nil, false
	}
	return entry.destinations, true
}

// Put stores a listing.
func (c *DestinationCache) Put(guildID string, destinations []models.Destination, now time.Time) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[guildID] = cacheEntry{destinations: destinations, cachedAt: now}
	c.mu.Unlock()
}

// Expire drops entries older than the ttl and returns how many were removed.
func (c *DestinationCache) Expire(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for guildID, entry := range c.entries {
		if now.Sub(entry.cachedAt) >= c.ttl {
			delete(c.entries, guildID)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached guilds.
func (c *DestinationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
