package bot

import (
	"context"
	"sync"
	"time"

	"discord-wanderer/models"
	"discord-wanderer/wander"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// jitteredSchedule fires once after the startup delay, then every base
// interval re-jittered on each activation.
type jitteredSchedule struct {
	mu      sync.Mutex
	startup time.Duration
	base    time.Duration
	percent float64
	jitter  *wander.Jitter
	started bool
}

func (s *jitteredSchedule) Next(t time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.started = true
		return t.Add(s.startup)
	}
	return t.Add(s.jitter.Apply(s.base, s.percent))
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Scheduler drives the decision cycle and the cleanup sweep.
type Scheduler struct {
	engine *wander.Engine
	cfg    models.WanderConfig
	cron   *cron.Cron
	now    func() time.Time
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	cycleID cron.EntryID
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(engine *wander.Engine, cfg models.WanderConfig, jitter *wander.Jitter, logger *zap.Logger) *Scheduler {
	cl := cronLogger{sugar: logger.Sugar()}
	s := &Scheduler{
		engine: engine,
		cfg:    cfg,
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		now:    time.Now,
		logger: logger,
	}

	s.cycleID = s.cron.Schedule(&jitteredSchedule{
		startup: cfg.StartupDelay,
		base:    cfg.CycleInterval,
		percent: cfg.CycleJitterPercent,
		jitter:  jitter,
	}, cron.FuncJob(s.runCycle))
	s.cron.Schedule(cron.Every(cfg.CleanupInterval), cron.FuncJob(s.Cleanup))
	return s
}

func (s *Scheduler) runCycle() {
	s.engine.RunCycle(context.Background())
}

// Cleanup prunes stale cooldowns and expires cached channel listings.
func (s *Scheduler) Cleanup() {
	now := s.now()
	pruned := s.engine.Cooldowns().Prune(now, s.cfg.CooldownMaxAge)
	expired := s.engine.Scanner().ExpireCache(now)
	if pruned > 0 {
		s.engine.Cooldowns().Persist(context.Background())
	}
	s.logger.Info("cleanup finished",
		zap.Int("cooldowns_pruned", pruned),
		zap.Int("cache_entries_expired", expired))
}

// Start begins scheduling. The first cycle of the process runs after the
// startup delay; after a restart the next cycle is one jittered interval away.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started",
		zap.Duration("startup_delay", s.cfg.StartupDelay),
		zap.Duration("cycle_interval", s.cfg.CycleInterval),
		zap.Float64("cycle_jitter_percent", s.cfg.CycleJitterPercent))
}

// Stop prevents new cycles, waits for an in-flight cycle until ctx is done,
// then flushes cooldowns. The cycle guard is cleared only once no cycle is
// left running.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	var jobs context.Context
	if s.running {
		jobs = s.cron.Stop()
		s.running = false
	}
	s.mu.Unlock()

	drained := true
	if jobs != nil {
		select {
		case <-jobs.Done():
		case <-ctx.Done():
			drained = false
			s.logger.Warn("stopped without waiting for the in-flight cycle", zap.Error(ctx.Err()))
		}
	}

	s.engine.Cooldowns().Persist(context.WithoutCancel(ctx))
	if drained {
		s.engine.ResetGuard()
	}
	s.logger.Info("scheduler stopped")
}

// EmergencyStop trips the circuit breaker and stops the scheduler.
func (s *Scheduler) EmergencyStop(ctx context.Context) {
	s.engine.TripBreaker(s.now())
	s.logger.Error("emergency stop requested, sending halted")
	s.Stop(ctx)
}

// Running reports whether cycles are being scheduled.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextCycle returns when the next decision cycle is due, or the zero time
// when the scheduler is stopped.
func (s *Scheduler) NextCycle() time.Time {
	if !s.Running() {
		return time.Time{}
	}
	return s.cron.Entry(s.cycleID).Next
}
