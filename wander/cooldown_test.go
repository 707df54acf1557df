package wander

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"discord-wanderer/database"
	"discord-wanderer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestJitterStaysWithinBounds(t *testing.T) {
	j := NewSeededJitter(1)
	lo, hi := Bounds(6*time.Hour, 15)
	assert.Equal(t, time.Duration(float64(6*time.Hour)*0.85), lo)
	assert.Equal(t, time.Duration(float64(6*time.Hour)*1.15), hi)

	seen := make(map[time.Duration]struct{})
	for i := 0; i < 1000; i++ {
		d := j.Apply(6*time.Hour, 15)
		require.GreaterOrEqual(t, d, lo)
		require.LessOrEqual(t, d, hi)
		seen[d] = struct{}{}
	}
	assert.Greater(t, len(seen), 900, "jitter is rerolled on every call")

	assert.Equal(t, time.Minute, j.Apply(time.Minute, 0))
	assert.Equal(t, time.Duration(0), j.Apply(0, 20))
}

func TestCooldownMonotonicity(t *testing.T) {
	store, err := database.NewJSONStore(filepath.Join(t.TempDir(), "cooldowns.json"))
	require.NoError(t, err)
	c := NewCooldowns(store, NewSeededJitter(9), 6*time.Hour, 15, zap.NewNop())

	sentAt := t0
	c.Mark("g1", sentAt)
	lo, hi := Bounds(6*time.Hour, 15)

	for _, after := range []time.Duration{time.Nanosecond, time.Minute, time.Hour, lo / 2, lo - time.Second} {
		for i := 0; i < 200; i++ {
			require.True(t, c.IsOnCooldown("g1", sentAt.Add(after)), "after %s", after)
		}
	}
	for _, after := range []time.Duration{hi, hi + time.Second, 24 * time.Hour} {
		for i := 0; i < 200; i++ {
			require.False(t, c.IsOnCooldown("g1", sentAt.Add(after)), "after %s", after)
		}
	}

	assert.False(t, c.IsOnCooldown("never-posted", sentAt))
}

func TestCooldownsLoadCorruptedFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cooldowns.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"cooldowns":{"g1":`), 0644))
	store, err := database.NewJSONStore(path)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.InfoLevel)
	c := NewCooldowns(store, NewSeededJitter(1), 6*time.Hour, 15, zap.New(core))
	c.Load(context.Background(), t0)

	assert.Empty(t, c.Snapshot())
	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "failed to load cooldowns")
}

func TestCorruptedStoreDoesNotBlockNextCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cooldowns.json")
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0644))
	store, err := database.NewJSONStore(path)
	require.NoError(t, err)

	opts := defaultEngineOptions()
	opts.store = store
	f := newEngineFixture(t, opts)
	f.platform.addGuild("g1", map[string]channelActivity{"chat": lively()})

	assert.Equal(t, OutcomeSent, f.engine.RunCycle(context.Background()).Outcome)

	// the next save overwrites the corrupted file
	records, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, records, "g1")
}

func TestCorruptedSQLiteStoreDoesNotBlockNextCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wanderer.db")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("garbage "), 1024), 0644))
	store, err := database.OpenCooldownStore(context.Background(),
		models.CooldownConfig{Backend: "sqlite", Path: path}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	opts := defaultEngineOptions()
	opts.store = store
	f := newEngineFixture(t, opts)
	assert.Empty(t, f.engine.Cooldowns().Snapshot())

	f.platform.addGuild("g1", map[string]channelActivity{"chat": lively()})
	assert.Equal(t, OutcomeSent, f.engine.RunCycle(context.Background()).Outcome)

	records, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, records, "g1")
}

func TestCooldownsLoadDiscardsFutureRecords(t *testing.T) {
	store, err := database.NewJSONStore(filepath.Join(t.TempDir(), "cooldowns.json"))
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), map[string]int64{
		"past":   t0.Add(-time.Hour).UnixMilli(),
		"future": t0.Add(time.Hour).UnixMilli(),
	}))

	c := NewCooldowns(store, NewSeededJitter(1), 6*time.Hour, 15, zap.NewNop())
	c.Load(context.Background(), t0)

	snap := c.Snapshot()
	assert.Len(t, snap, 1)
	assert.True(t, snap["past"].Equal(t0.Add(-time.Hour)))
}

func TestCooldownsPersistRoundTrip(t *testing.T) {
	store, err := database.NewJSONStore(filepath.Join(t.TempDir(), "cooldowns.json"))
	require.NoError(t, err)

	c := NewCooldowns(store, NewSeededJitter(1), 6*time.Hour, 15, zap.NewNop())
	c.Mark("g1", t0.Add(-2*time.Hour))
	c.Mark("g2", t0.Add(-time.Minute))
	c.Persist(context.Background())

	restored := NewCooldowns(store, NewSeededJitter(1), 6*time.Hour, 15, zap.NewNop())
	restored.Load(context.Background(), t0)

	want, got := c.Snapshot(), restored.Snapshot()
	require.Len(t, got, len(want))
	for guildID, ts := range want {
		assert.True(t, ts.Equal(got[guildID]), guildID)
	}
}

func TestCooldownsPersistFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	c := NewCooldowns(failingStore{}, NewSeededJitter(1), 6*time.Hour, 15, zap.New(core))
	c.Mark("g1", t0)

	c.Persist(context.Background())

	assert.Equal(t, 1, logs.FilterMessage("failed to save cooldowns").Len())
	_, ok := c.Last("g1")
	assert.True(t, ok)
}

func TestCooldownsPrune(t *testing.T) {
	c := NewCooldowns(failingStore{}, NewSeededJitter(1), 6*time.Hour, 15, zap.NewNop())
	c.Mark("old", t0.Add(-8*24*time.Hour))
	c.Mark("recent", t0.Add(-time.Hour))

	assert.Equal(t, 1, c.Prune(t0, 7*24*time.Hour))
	_, ok := c.Last("old")
	assert.False(t, ok)
	_, ok = c.Last("recent")
	assert.True(t, ok)
}

// gatedStore holds the first Save until release is closed and records the
// order in which saves complete.
type gatedStore struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
	saved   []map[string]int64
}

func (s *gatedStore) Load(context.Context) (map[string]int64, error) { return nil, nil }

func (s *gatedStore) Save(_ context.Context, records map[string]int64) error {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()

	if first {
		close(s.entered)
		<-s.release
	}

	s.mu.Lock()
	s.saved = append(s.saved, records)
	s.mu.Unlock()
	return nil
}

func (s *gatedStore) Close() error { return nil }

func TestCooldownsPersistKeepsNewestSnapshot(t *testing.T) {
	store := &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
	c := NewCooldowns(store, NewSeededJitter(1), 6*time.Hour, 15, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Persist(context.Background()) // cleanup sweep, snapshot taken before the mark
	}()
	<-store.entered

	c.Mark("g1", t0)
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Persist(context.Background()) // after the send
	}()

	close(store.release)
	wg.Wait()

	require.Len(t, store.saved, 2)
	assert.Empty(t, store.saved[0])
	assert.Equal(t, map[string]int64{"g1": t0.UnixMilli()}, store.saved[1])
}
