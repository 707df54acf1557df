package scanner

import (
	"context"
	"math"
	"slices"
	"time"

	"discord-wanderer/models"

	"go.uber.org/zap"
)

// ExcludeDeadChannels is the dead-destination policy: a destination with no
// message inside the inactivity ceiling is dropped for the cycle instead of
// receiving a flat loneliness bonus.
const ExcludeDeadChannels = true

const (
	selfLatestPenalty = 0.1
	selfRecentPenalty = 0.5
)

// Scorer rates how welcome an unsolicited message would be in a destination.
type Scorer struct {
	source Source
	cfg    models.ScoringConfig
	now    func() time.Time
	logger *zap.Logger
}

// NewScorer creates a scorer. now may be nil, in which case time.Now is used.
func NewScorer(source Source, cfg models.ScoringConfig, now func() time.Time, logger *zap.Logger) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{source: source, cfg: cfg, now: now, logger: logger}
}

// Score fetches the destination's recent history and computes its score.
// The boolean is false when the destination should be skipped this cycle:
// its history could not be read, or it is dead.
func (s *Scorer) Score(ctx context.Context, d models.Destination, g models.Guild) (models.ChannelScore, bool) {
	history, err := s.source.FetchRecentMessages(ctx, d.ID, s.cfg.HistoryLimit)
	if err != nil {
		s.logger.Warn("failed to fetch message history, skipping channel",
			zap.String("guild", g.Name),
			zap.String("channel", d.Name),
			zap.String("channel_id", d.ID),
			zap.Error(err))
		return models.ChannelScore{}, false
	}
	if len(history) == 0 && ExcludeDeadChannels {
		s.logger.Debug("channel has no history", zap.String("channel", d.Name), zap.String("guild", g.Name))
		return models.ChannelScore{}, false
	}

	msgs := slices.Clone(history)
	slices.SortStableFunc(msgs, func(a, b models.MessageEvent) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if len(msgs) > s.cfg.HistoryLimit {
		msgs = msgs[len(msgs)-s.cfg.HistoryLimit:]
	}

	now := s.now()
	newest := msgs[len(msgs)-1]
	sinceLast := max(now.Sub(newest.CreatedAt), 0)
	if sinceLast > s.cfg.MaxInactivity && ExcludeDeadChannels {
		s.logger.Debug("channel inactive beyond ceiling",
			zap.String("channel", d.Name),
			zap.String("guild", g.Name),
			zap.Duration("since_last", sinceLast))
		return models.ChannelScore{}, false
	}
	minutes := int(sinceLast / time.Minute)

	humans := make(map[string]struct{})
	botMessages := 0
	for _, m := range msgs {
		if m.IsBot {
			botMessages++
			continue
		}
		humans[m.AuthorID] = struct{}{}
	}
	participants := len(humans)
	botPct := float64(botMessages) / float64(len(msgs)) * 100
	modifier := HumanActivityModifier(botPct)

	diversity := min(100, participants*10)
	recency := max(0, 100-minutes)
	base := float64(diversity + recency)

	botRecent, botLatest := s.selfActivity(msgs, now)
	switch {
	case botLatest:
		base *= selfLatestPenalty
	case botRecent:
		base *= selfRecentPenalty
	}

	score := max(int(math.Round(base*modifier)), 1)

	return models.ChannelScore{
		Destination:             d,
		GuildID:                 g.ID,
		GuildName:               g.Name,
		Score:                   score,
		ParticipantCount:        participants,
		MinutesSinceLastMessage: minutes,
		BotWasRecent:            botRecent,
		ActivityLevel:           ClassifyActivity(participants, minutes, botPct),
		BotMessagePercentage:    botPct,
		HumanActivityModifier:   modifier,
	}, true
}

// selfActivity inspects the newest messages (oldest-first input) for the
// bot's own posts inside the self-recent window. latest is true when the very
// newest message is one of them.
func (s *Scorer) selfActivity(msgs []models.MessageEvent, now time.Time) (recent, latest bool) {
	self := s.source.SelfID()
	if self == "" {
		return false, false
	}

	lookback := min(s.cfg.SelfRecentLookback, len(msgs))
	for i := len(msgs) - 1; i >= len(msgs)-lookback; i-- {
		m := msgs[i]
		if m.AuthorID != self || now.Sub(m.CreatedAt) > s.cfg.SelfRecentWindow {
			continue
		}
		recent = true
		if i == len(msgs)-1 {
			latest = true
		}
	}
	return recent, latest
}

// HumanActivityModifier penalises channels that are busy mostly because of bots.
func HumanActivityModifier(botPct float64) float64 {
	switch {
	case botPct > 75:
		return 0.1
	case botPct > 50:
		return 0.5
	case botPct < 25:
		return 1.2
	default:
		return 1.0
	}
}

// ClassifyActivity maps raw activity figures to a coarse level.
func ClassifyActivity(participants, minutesSinceLast int, botPct float64) models.ActivityLevel {
	switch {
	case participants >= 5 && minutesSinceLast < 30 && botPct < 50:
		return models.ActivityHigh
	case participants >= 3 && minutesSinceLast < 120 && botPct < 75:
		return models.ActivityMedium
	case minutesSinceLast < 360 && botPct < 90:
		return models.ActivityLow
	default:
		return models.ActivityInactive
	}
}
