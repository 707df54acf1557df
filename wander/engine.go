package wander

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"discord-wanderer/models"
	"discord-wanderer/scanner"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// rollingWindow is the span the hourly message cap is counted over.
const rollingWindow = time.Hour

// Platform is everything the engine needs from the chat platform.
type Platform interface {
	scanner.Source
	Ready() bool
	ListGuilds(ctx context.Context) ([]models.Guild, error)
	// SendMessage reports false for ordinary delivery failures (lost
	// permission, deleted channel); err is reserved for transport faults.
	SendMessage(ctx context.Context, channelID, text string) (bool, error)
}

// ContentProvider supplies the text to post into a destination.
type ContentProvider interface {
	ContentFor(destinationName string) (string, bool)
}

// Phase is the step of the decision cycle the engine is in.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseGating
	PhaseDiscovering
	PhaseSelecting
	PhaseActing
)

func (p Phase) String() string {
	switch p {
	case PhaseGating:
		return "gating"
	case PhaseDiscovering:
		return "discovering"
	case PhaseSelecting:
		return "selecting"
	case PhaseActing:
		return "acting"
	default:
		return "idle"
	}
}

// Outcome is how a decision cycle ended.
type Outcome string

const (
	OutcomeBusy           Outcome = "busy"
	OutcomeBreakerOpen    Outcome = "breaker_open"
	OutcomeBreakerTripped Outcome = "breaker_tripped"
	OutcomeGlobalCooldown Outcome = "global_cooldown"
	OutcomeNotReady       Outcome = "not_ready"
	OutcomeNoGuilds       Outcome = "no_guilds"
	OutcomeNoCandidates   Outcome = "no_candidates"
	OutcomeNoContent      Outcome = "no_content"
	OutcomeSendFailed     Outcome = "send_failed"
	OutcomeSent           Outcome = "sent"
)

// CycleReport describes one run of the decision cycle.
type CycleReport struct {
	ID         string
	Outcome    Outcome
	Winner     *models.ChannelScore
	Candidates int
	StartedAt  time.Time
	Duration   time.Duration
}

// Limits are the engine's rate limits.
type Limits struct {
	MaxMessagesPerHour  int
	BreakerResetAfter   time.Duration
	GlobalCooldown      time.Duration
	GlobalJitterPercent float64
	CycleTimeout        time.Duration
}

// LimitsFromConfig extracts the engine limits from the wander configuration.
func LimitsFromConfig(cfg models.WanderConfig) Limits {
	return Limits{
		MaxMessagesPerHour:  cfg.MaxMessagesPerHour,
		BreakerResetAfter:   cfg.BreakerResetAfter,
		GlobalCooldown:      cfg.GlobalCooldown,
		GlobalJitterPercent: cfg.GlobalJitterPercent,
		CycleTimeout:        cfg.CycleTimeout,
	}
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Platform  Platform
	Scanner   *scanner.Scanner
	Cooldowns *Cooldowns
	Content   ContentProvider
	Jitter    *Jitter
	Now       func() time.Time
	Logger    *zap.Logger
}

// EngineStatus is a point-in-time view of the engine counters.
type EngineStatus struct {
	Phase           Phase
	SentLastHour    int
	MaxPerHour      int
	BreakerActive   bool
	BreakerSince    time.Time
	BreakerResetsAt time.Time
	LastSend        time.Time
	LastCycle       *CycleReport
}

// Engine runs the global decision cycle: at most one message per cycle,
// across every guild.
type Engine struct {
	deps   Deps
	limits Limits
	logger *zap.Logger

	inFlight atomic.Bool
	phase    atomic.Int32

	mu            sync.Mutex
	sends         []time.Time
	breakerActive bool
	breakerSince  time.Time
	lastSend      time.Time
	lastCycle     *CycleReport
}

// NewEngine creates an engine in the idle phase.
func NewEngine(deps Deps, limits Limits) *Engine {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Jitter == nil {
		deps.Jitter = NewJitter()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Engine{deps: deps, limits: limits, logger: deps.Logger}
}

// Cooldowns returns the per-guild cooldown tracker.
func (e *Engine) Cooldowns() *Cooldowns {
	return e.deps.Cooldowns
}

// Scanner returns the candidate scanner.
func (e *Engine) Scanner() *scanner.Scanner {
	return e.deps.Scanner
}

// Phase returns the current cycle phase.
func (e *Engine) Phase() Phase {
	return Phase(e.phase.Load())
}

func (e *Engine) setPhase(p Phase) {
	e.phase.Store(int32(p))
}

// RunCycle runs one decision cycle. If another cycle is in flight it returns
// immediately with OutcomeBusy; calls are skipped, never queued.
func (e *Engine) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{ID: uuid.NewString(), StartedAt: e.deps.Now()}
	logger := e.logger.With(zap.String("cycle_id", report.ID))

	if !e.inFlight.CompareAndSwap(false, true) {
		logger.Info("decision cycle already in progress, skipping")
		report.Outcome = OutcomeBusy
		return report
	}
	defer e.inFlight.Store(false)
	defer e.setPhase(PhaseIdle)

	if e.limits.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.limits.CycleTimeout)
		defer cancel()
	}

	e.run(ctx, &report, logger)
	report.Duration = e.deps.Now().Sub(report.StartedAt)

	e.mu.Lock()
	last := report
	e.lastCycle = &last
	e.mu.Unlock()

	fields := []zap.Field{
		zap.String("outcome", string(report.Outcome)),
		zap.Int("candidates", report.Candidates),
		zap.Duration("duration", report.Duration),
	}
	if report.Winner != nil {
		fields = append(fields,
			zap.String("guild", report.Winner.GuildName),
			zap.String("channel", report.Winner.Destination.Name),
			zap.Int("score", report.Winner.Score))
	}
	logger.Info("decision cycle finished", fields...)
	return report
}

func (e *Engine) run(ctx context.Context, report *CycleReport, logger *zap.Logger) {
	e.setPhase(PhaseGating)
	now := report.StartedAt
	if outcome, ok := e.gate(now, logger); !ok {
		report.Outcome = outcome
		return
	}
	if !e.deps.Platform.Ready() {
		logger.Info("platform connection not ready, skipping cycle")
		report.Outcome = OutcomeNotReady
		return
	}

	e.setPhase(PhaseDiscovering)
	guilds, err := e.deps.Platform.ListGuilds(ctx)
	if err != nil {
		logger.Warn("failed to list guilds", zap.Error(err))
		report.Outcome = OutcomeNoGuilds
		return
	}
	if len(guilds) == 0 {
		report.Outcome = OutcomeNoGuilds
		return
	}
	candidates := e.deps.Scanner.Discover(ctx, guilds, func(guildID string) bool {
		return e.deps.Cooldowns.IsOnCooldown(guildID, now)
	})
	report.Candidates = len(candidates)

	e.setPhase(PhaseSelecting)
	winner, ok := SelectWinner(candidates)
	if !ok {
		report.Outcome = OutcomeNoCandidates
		return
	}
	report.Winner = &winner

	e.setPhase(PhaseActing)
	report.Outcome = e.act(ctx, winner, logger)
}

// gate evaluates the breaker, hourly cap and global cooldown, in that order.
func (e *Engine) gate(now time.Time, logger *zap.Logger) (Outcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.breakerActive {
		if now.Sub(e.breakerSince) < e.limits.BreakerResetAfter {
			logger.Warn("circuit breaker active, skipping cycle",
				zap.Time("since", e.breakerSince),
				zap.Time("resets_at", e.breakerSince.Add(e.limits.BreakerResetAfter)))
			return OutcomeBreakerOpen, false
		}
		e.breakerActive = false
		e.breakerSince = time.Time{}
		e.sends = nil
		logger.Info("circuit breaker reset after cooldown")
	}

	e.trimSendsLocked(now)
	if len(e.sends) >= e.limits.MaxMessagesPerHour {
		e.breakerActive = true
		e.breakerSince = now
		logger.Error("hourly message cap reached, circuit breaker tripped",
			zap.Int("sent_last_hour", len(e.sends)),
			zap.Int("max_per_hour", e.limits.MaxMessagesPerHour))
		return OutcomeBreakerTripped, false
	}

	if !e.lastSend.IsZero() {
		window := e.deps.Jitter.Apply(e.limits.GlobalCooldown, e.limits.GlobalJitterPercent)
		if elapsed := now.Sub(e.lastSend); elapsed < window {
			logger.Debug("global cooldown active",
				zap.Duration("elapsed", elapsed),
				zap.Duration("window", window))
			return OutcomeGlobalCooldown, false
		}
	}
	return "", true
}

func (e *Engine) act(ctx context.Context, winner models.ChannelScore, logger *zap.Logger) Outcome {
	text, ok := e.deps.Content.ContentFor(winner.Destination.Name)
	if !ok || strings.TrimSpace(text) == "" {
		logger.Info("no content available for channel",
			zap.String("guild", winner.GuildName),
			zap.String("channel", winner.Destination.Name))
		return OutcomeNoContent
	}
	text = ExpandPlaceholders(text, winner)

	sent, err := e.deps.Platform.SendMessage(ctx, winner.Destination.ID, text)
	if err != nil || !sent {
		logger.Warn("failed to send message",
			zap.String("guild", winner.GuildName),
			zap.String("channel", winner.Destination.Name),
			zap.String("channel_id", winner.Destination.ID),
			zap.Error(err))
		return OutcomeSendFailed
	}

	sentAt := e.deps.Now()
	e.deps.Cooldowns.Mark(winner.GuildID, sentAt)
	e.mu.Lock()
	e.lastSend = sentAt
	e.sends = append(e.sends, sentAt)
	e.mu.Unlock()

	e.deps.Cooldowns.Persist(context.WithoutCancel(ctx))
	return OutcomeSent
}

func (e *Engine) trimSendsLocked(now time.Time) {
	cutoff := now.Add(-rollingWindow)
	i := 0
	for i < len(e.sends) && !e.sends[i].After(cutoff) {
		i++
	}
	e.sends = e.sends[i:]
}

// SelectWinner returns the highest scoring candidate. Ties go to the
// candidate listed first.
func SelectWinner(candidates []models.ChannelScore) (models.ChannelScore, bool) {
	if len(candidates) == 0 {
		return models.ChannelScore{}, false
	}
	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, func(a, b models.ChannelScore) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranked[0], true
}

// ExpandPlaceholders fills {channel} and {guild} in a message template.
func ExpandPlaceholders(text string, target models.ChannelScore) string {
	return strings.NewReplacer(
		"{channel}", target.Destination.Name,
		"{guild}", target.GuildName,
	).Replace(text)
}

// TripBreaker activates the circuit breaker by hand.
func (e *Engine) TripBreaker(now time.Time) {
	e.mu.Lock()
	e.breakerActive = true
	e.breakerSince = now
	e.mu.Unlock()
	e.logger.Warn("circuit breaker activated manually")
}

// ResetBreaker clears the circuit breaker and the hourly counter.
func (e *Engine) ResetBreaker() {
	e.mu.Lock()
	e.breakerActive = false
	e.breakerSince = time.Time{}
	e.sends = nil
	e.mu.Unlock()
	e.logger.Info("circuit breaker cleared")
}

// BreakerActive reports whether sending is currently halted by the breaker.
func (e *Engine) BreakerActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.breakerActive
}

// ResetGuard clears the re-entrancy guard.
func (e *Engine) ResetGuard() {
	e.inFlight.Store(false)
}

// Status returns the engine counters as of now.
func (e *Engine) Status(now time.Time) EngineStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.trimSendsLocked(now)
	st := EngineStatus{
		Phase:         e.Phase(),
		SentLastHour:  len(e.sends),
		MaxPerHour:    e.limits.MaxMessagesPerHour,
		BreakerActive: e.breakerActive,
		LastSend:      e.lastSend,
	}
	if e.breakerActive {
		st.BreakerSince = e.breakerSince
		st.BreakerResetsAt = e.breakerSince.Add(e.limits.BreakerResetAfter)
	}
	if e.lastCycle != nil {
		last := *e.lastCycle
		st.LastCycle = &last
	}
	return st
}
