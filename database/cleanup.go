package database

import (
	"context"
	"fmt"
	"time"
)

// CleanupOldCooldowns removes records older than maxAge directly in the store.
// It is meant for offline maintenance; the running engine prunes its own
// in-memory copy and persists it.
func CleanupOldCooldowns(ctx context.Context, store CooldownStore, now time.Time, maxAge time.Duration) (int, error) {
	records, err := store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load cooldowns for cleanup: %w", err)
	}

	cutoff := now.Add(-maxAge).UnixMilli()
	removed := 0
	for guildID, ts := range records {
		if ts < cutoff {
			delete(records, guildID)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}

	if err := store.Save(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to save cooldowns after cleanup: %w", err)
	}
	return removed, nil
}
