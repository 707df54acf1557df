package scanner

import (
	"context"
	"time"

	"discord-wanderer/models"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options tunes candidate discovery.
type Options struct {
	MinScore          int
	ObservationPeriod time.Duration // guilds joined more recently than this are skipped
	GuildInterval     time.Duration // pacing between guild scans
	CacheTTL          time.Duration
	Now               func() time.Time
}

// Scanner walks guilds and returns each guild's best destination.
type Scanner struct {
	source  Source
	filter  *Filter
	scorer  *Scorer
	cache   *DestinationCache
	limiter *rate.Limiter
	opts    Options
	logger  *zap.Logger
}

// New creates a Scanner.
func New(source Source, filter *Filter, scorer *Scorer, opts Options, logger *zap.Logger) *Scanner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	limit := rate.Inf
	if opts.GuildInterval > 0 {
		limit = rate.Every(opts.GuildInterval)
	}
	return &Scanner{
		source:  source,
		filter:  filter,
		scorer:  scorer,
		cache:   NewDestinationCache(opts.CacheTTL),
		limiter: rate.NewLimiter(limit, 1),
		opts:    opts,
		logger:  logger,
	}
}

// Discover scans guilds sequentially, in order, and returns one candidate per
// guild whose best destination reaches the minimum score. Guilds for which
// onCooldown reports true are skipped without touching the platform.
func (s *Scanner) Discover(ctx context.Context, guilds []models.Guild, onCooldown func(guildID string) bool) []models.ChannelScore {
	var candidates []models.ChannelScore

	for _, g := range guilds {
		if onCooldown != nil && onCooldown(g.ID) {
			s.logger.Debug("guild on cooldown", zap.String("guild", g.Name), zap.String("guild_id", g.ID))
			continue
		}
		if s.inObservation(g) {
			s.logger.Debug("guild still in observation period", zap.String("guild", g.Name), zap.Time("joined_at", g.JoinedAt))
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn("guild scan interrupted", zap.Error(err), zap.Int("candidates", len(candidates)))
			break
		}

		best, ok := s.BestForGuild(ctx, g)
		if !ok {
			continue
		}
		if best.Score < s.opts.MinScore {
			s.logger.Debug("best channel below threshold",
				zap.String("guild", g.Name),
				zap.String("channel", best.Destination.Name),
				zap.Int("score", best.Score),
				zap.Int("min_score", s.opts.MinScore))
			continue
		}
		candidates = append(candidates, best)
	}
	return candidates
}

// BestForGuild returns the highest scoring eligible destination in g.
// Ties keep the destination listed first.
func (s *Scanner) BestForGuild(ctx context.Context, g models.Guild) (models.ChannelScore, bool) {
	destinations, err := s.destinations(ctx, g)
	if err != nil {
		s.logger.Warn("failed to list channels, skipping guild",
			zap.String("guild", g.Name),
			zap.String("guild_id", g.ID),
			zap.Error(err))
		return models.ChannelScore{}, false
	}

	var best models.ChannelScore
	found := false
	for _, d := range destinations {
		if !s.filter.IsEligible(d) {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		score, ok := s.scorer.Score(ctx, d, g)
		if !ok {
			continue
		}
		s.logger.Debug("scored channel",
			zap.String("guild", g.Name),
			zap.String("channel", d.Name),
			zap.Int("score", score.Score),
			zap.String("activity", string(score.ActivityLevel)),
			zap.Bool("conversational", s.filter.IsConversational(d.Name)),
			zap.Bool("special", s.filter.IsSpecial(d.Name)))

		if !found || score.Score > best.Score {
			best = score
			found = true
		}
	}
	return best, found
}

// ExpireCache drops stale destination listings.
func (s *Scanner) ExpireCache(now time.Time) int {
	return s.cache.Expire(now)
}

func (s *Scanner) destinations(ctx context.Context, g models.Guild) ([]models.Destination, error) {
	now := s.opts.Now()
	if cached, ok := s.cache.Get(g.ID, now); ok {
		return cached, nil
	}
	destinations, err := s.source.ListDestinations(ctx, g)
	if err != nil {
		return nil, err
	}
	s.cache.Put(g.ID, destinations, now)
	return destinations, nil
}

func (s *Scanner) inObservation(g models.Guild) bool {
	if s.opts.ObservationPeriod <= 0 || g.JoinedAt.IsZero() {
		return false
	}
	return s.opts.Now().Sub(g.JoinedAt) < s.opts.ObservationPeriod
}
