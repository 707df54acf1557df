package wander

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"discord-wanderer/database"
	"discord-wanderer/models"
	"discord-wanderer/scanner"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const selfID = "wanderer"

var t0 = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// channelActivity describes a channel's history relative to the current time,
// so it stays fresh while the clock moves.
type channelActivity struct {
	newestAgo time.Duration
	authors   []string // newest first; ids starting with "bot:" are bots
}

type sentMessage struct {
	channelID string
	text      string
}

type fakePlatform struct {
	mu             sync.Mutex
	clock          *testClock
	ready          bool
	guilds         []models.Guild
	guildsErr      error
	destinations   map[string][]models.Destination
	activity       map[string]channelActivity
	sendResult     bool
	sendErr        error
	sent           []sentMessage
	listGuildCalls int
	// listGate, when set, makes ListGuilds wait for it to close.
	listGate chan struct{}
	entered  chan struct{}
}

func newFakePlatform(clock *testClock) *fakePlatform {
	return &fakePlatform{
		clock:        clock,
		ready:        true,
		destinations: make(map[string][]models.Destination),
		activity:     make(map[string]channelActivity),
		sendResult:   true,
	}
}

func (p *fakePlatform) addGuild(guildID string, channels map[string]channelActivity) {
	p.guilds = append(p.guilds, models.Guild{ID: guildID, Name: "guild-" + guildID})
	for channelID, act := range channels {
		p.destinations[guildID] = append(p.destinations[guildID], models.Destination{
			ID:          channelID,
			GuildID:     guildID,
			Name:        channelID,
			Permissions: models.Permissions{View: true, Send: true, ReadHistory: true},
		})
		p.activity[channelID] = act
	}
}

func (p *fakePlatform) SelfID() string { return selfID }

func (p *fakePlatform) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *fakePlatform) ListGuilds(ctx context.Context) ([]models.Guild, error) {
	p.mu.Lock()
	p.listGuildCalls++
	gate, entered := p.listGate, p.entered
	p.entered = nil
	p.mu.Unlock()

	if gate != nil {
		if entered != nil {
			close(entered)
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.guildsErr != nil {
		return nil, p.guildsErr
	}
	return p.guilds, nil
}

func (p *fakePlatform) ListDestinations(ctx context.Context, guild models.Guild) ([]models.Destination, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destinations[guild.ID], nil
}

func (p *fakePlatform) FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]models.MessageEvent, error) {
	p.mu.Lock()
	act, ok := p.activity[channelID]
	p.mu.Unlock()
	if !ok {
		return nil, errors.New("unknown channel")
	}

	now := p.clock.Now()
	out := make([]models.MessageEvent, len(act.authors))
	for i, a := range act.authors {
		isBot := a == selfID || strings.HasPrefix(a, "bot:")
		out[len(out)-1-i] = models.MessageEvent{
			AuthorID:  a,
			IsBot:     isBot,
			CreatedAt: now.Add(-act.newestAgo - time.Duration(i)*time.Minute),
		}
	}
	return out, nil
}

func (p *fakePlatform) SendMessage(ctx context.Context, channelID, text string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return false, p.sendErr
	}
	if !p.sendResult {
		return false, nil
	}
	p.sent = append(p.sent, sentMessage{channelID: channelID, text: text})
	return true, nil
}

func (p *fakePlatform) sentMessages() []sentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sentMessage(nil), p.sent...)
}

type staticContent struct {
	text string
	ok   bool
}

func (c staticContent) ContentFor(string) (string, bool) { return c.text, c.ok }

// failingStore loads fine but never saves.
type failingStore struct{}

func (failingStore) Load(context.Context) (map[string]int64, error) { return nil, nil }
func (failingStore) Save(context.Context, map[string]int64) error {
	return errors.New("disk full")
}
func (failingStore) Close() error { return nil }

type engineOptions struct {
	limits        Limits
	guildCooldown time.Duration
	guildJitter   float64
	minScore      int
	content       ContentProvider
	store         database.CooldownStore
	logger        *zap.Logger
}

func defaultEngineOptions() engineOptions {
	return engineOptions{
		limits: Limits{
			MaxMessagesPerHour:  15,
			BreakerResetAfter:   time.Hour,
			GlobalCooldown:      5 * time.Minute,
			GlobalJitterPercent: 20,
		},
		guildCooldown: 6 * time.Hour,
		guildJitter:   15,
		minScore:      1,
		content:       staticContent{text: "hello {channel} in {guild}", ok: true},
	}
}

type engineFixture struct {
	engine   *Engine
	platform *fakePlatform
	clock    *testClock
	store    database.CooldownStore
}

func newEngineFixture(t *testing.T, opts engineOptions) *engineFixture {
	t.Helper()
	clock := &testClock{now: t0}
	platform := newFakePlatform(clock)

	store := opts.store
	if store == nil {
		s, err := database.NewJSONStore(filepath.Join(t.TempDir(), "cooldowns.json"))
		require.NoError(t, err)
		store = s
	}
	logger := opts.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	jitter := NewSeededJitter(42)
	scoring := models.ScoringConfig{
		HistoryLimit:       15,
		MaxInactivity:      24 * time.Hour,
		SelfRecentWindow:   2 * time.Hour,
		SelfRecentLookback: 5,
		MinScore:           opts.minScore,
	}
	sc := scanner.New(platform,
		scanner.NewFilter(models.FilterConfig{DenyPatterns: []string{"rules"}}, nil),
		scanner.NewScorer(platform, scoring, clock.Now, logger),
		scanner.Options{MinScore: opts.minScore, Now: clock.Now},
		logger)

	cooldowns := NewCooldowns(store, jitter, opts.guildCooldown, opts.guildJitter, logger)
	cooldowns.Load(context.Background(), clock.Now())

	engine := NewEngine(Deps{
		Platform:  platform,
		Scanner:   sc,
		Cooldowns: cooldowns,
		Content:   opts.content,
		Jitter:    jitter,
		Now:       clock.Now,
		Logger:    logger,
	}, opts.limits)

	return &engineFixture{engine: engine, platform: platform, clock: clock, store: store}
}
