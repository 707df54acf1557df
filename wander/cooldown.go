package wander

import (
	"context"
	"maps"
	"sync"
	"time"

	"discord-wanderer/database"

	"go.uber.org/zap"
)

// Cooldowns tracks the last successful post per guild and decides whether a
// guild may be posted to again. The window is re-jittered on every check.
type Cooldowns struct {
	persistMu sync.Mutex // orders snapshot+save pairs

	mu      sync.Mutex
	last    map[string]time.Time
	store   database.CooldownStore
	jitter  *Jitter
	base    time.Duration
	percent float64
	logger  *zap.Logger
}

// NewCooldowns creates an empty tracker. Call Load to restore persisted state.
func NewCooldowns(store database.CooldownStore, jitter *Jitter, base time.Duration, percent float64, logger *zap.Logger) *Cooldowns {
	return &Cooldowns{
		last:    make(map[string]time.Time),
		store:   store,
		jitter:  jitter,
		base:    base,
		percent: percent,
		logger:  logger,
	}
}

// Load replaces the in-memory state with the persisted one. A store that
// cannot be read leaves the tracker empty: the other gates still apply.
func (c *Cooldowns) Load(ctx context.Context, now time.Time) {
	records, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Error("failed to load cooldowns, continuing with empty state", zap.Error(err))
		records = nil
	}

	loaded := make(map[string]time.Time, len(records))
	discarded := 0
	for guildID, ms := range records {
		t := time.UnixMilli(ms)
		if t.After(now) {
			discarded++
			continue
		}
		loaded[guildID] = t
	}

	c.mu.Lock()
	c.last = loaded
	c.mu.Unlock()

	c.logger.Info("cooldowns loaded",
		zap.Int("loaded", len(loaded)),
		zap.Int("discarded_future", discarded))
}

// IsOnCooldown reports whether guildID was posted to within a freshly jittered window.
func (c *Cooldowns) IsOnCooldown(guildID string, now time.Time) bool {
	c.mu.Lock()
	last, ok := c.last[guildID]
	c.mu.Unlock()
	if !ok {
		return false
	}
	return now.Sub(last) < c.jitter.Apply(c.base, c.percent)
}

// Last returns the last post time for guildID.
func (c *Cooldowns) Last(guildID string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.last[guildID]
	return t, ok
}

// Mark records a successful post.
func (c *Cooldowns) Mark(guildID string, at time.Time) {
	c.mu.Lock()
	c.last[guildID] = at
	c.mu.Unlock()
}

// Persist writes the current state. Failures are logged only; memory stays
// authoritative until the next successful save. Concurrent calls are
// serialized so an older snapshot never lands after a newer one.
func (c *Cooldowns) Persist(ctx context.Context) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	records := make(map[string]int64)
	c.mu.Lock()
	for guildID, t := range c.last {
		records[guildID] = t.UnixMilli()
	}
	c.mu.Unlock()

	if err := c.store.Save(ctx, records); err != nil {
		c.logger.Error("failed to save cooldowns", zap.Error(err), zap.Int("records", len(records)))
	}
}

// Prune drops records older than maxAge and returns how many were removed.
func (c *Cooldowns) Prune(now time.Time, maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for guildID, t := range c.last {
		if now.Sub(t) > maxAge {
			delete(c.last, guildID)
			removed++
		}
	}
	return removed
}

// Snapshot returns a copy of the tracked timestamps.
func (c *Cooldowns) Snapshot() map[string]time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.last)
}
