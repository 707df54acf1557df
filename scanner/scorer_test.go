package scanner

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"discord-wanderer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var scoreNow = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

func scoreOne(t *testing.T, history []models.MessageEvent) (models.ChannelScore, bool) {
	t.Helper()
	src := newFakeSource()
	d := src.addChannel("g1", "c1", "general", history)
	scorer := NewScorer(src, testScoring(), fixedClock(scoreNow), zap.NewNop())
	return scorer.Score(context.Background(), d, models.Guild{ID: "g1", Name: "Guild One"})
}

func TestScoreLivelyHumanChannel(t *testing.T) {
	score, ok := scoreOne(t, events(scoreNow, 10*time.Minute,
		human("a"), human("b"), human("c"), human("d"), human("e"), human("a"), human("b")))
	require.True(t, ok)

	// diversity 50 + recency 90, no bots -> x1.2
	assert.Equal(t, 168, score.Score)
	assert.Equal(t, 5, score.ParticipantCount)
	assert.Equal(t, 10, score.MinutesSinceLastMessage)
	assert.Equal(t, 0.0, score.BotMessagePercentage)
	assert.Equal(t, 1.2, score.HumanActivityModifier)
	assert.Equal(t, models.ActivityHigh, score.ActivityLevel)
	assert.False(t, score.BotWasRecent)
	assert.Equal(t, "g1", score.GuildID)
	assert.Equal(t, "Guild One", score.GuildName)
	assert.Equal(t, "c1", score.Destination.ID)
}

func TestScoreRequestsConfiguredHistory(t *testing.T) {
	src := newFakeSource()
	d := src.addChannel("g1", "c1", "general", events(scoreNow, time.Minute, human("a")))
	scorer := NewScorer(src, testScoring(), fixedClock(scoreNow), zap.NewNop())

	_, ok := scorer.Score(context.Background(), d, models.Guild{ID: "g1"})
	require.True(t, ok)
	assert.Equal(t, 15, src.lastLimit)
}

func TestScoreNormalisesOrder(t *testing.T) {
	history := events(scoreNow, 5*time.Minute,
		human("a"), otherBot("x"), human("b"), human("c"), self(), human("d"))

	sorted, ok := scoreOne(t, history)
	require.True(t, ok)

	shuffled := append([]models.MessageEvent(nil), history...)
	rng := rand.New(rand.NewPCG(1, 2))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	got, ok := scoreOne(t, shuffled)
	require.True(t, ok)

	assert.Equal(t, sorted, got)
}

func TestScoreSelfRecentPenalty(t *testing.T) {
	// newest-first: human, bot itself, three more humans
	score, ok := scoreOne(t, events(scoreNow, 2*time.Minute,
		human("a"), self(), human("b"), human("c"), human("d")))
	require.True(t, ok)

	// (40 + 98) x0.5 for recent self post, 20% bots -> x1.2
	assert.Equal(t, 83, score.Score)
	assert.True(t, score.BotWasRecent)
	assert.Equal(t, 20.0, score.BotMessagePercentage)
}

func TestScoreSelfLatestPenalty(t *testing.T) {
	score, ok := scoreOne(t, events(scoreNow, time.Minute,
		self(), self(), self(), self(), self(),
		human("a"), human("b"), human("c"), human("d"), human("e"),
		human("f"), human("g"), human("h"), human("i"), human("j")))
	require.True(t, ok)

	// (100 + 99) x0.1 because the newest message is the bot's own, 33% bots -> x1.0
	assert.Equal(t, 20, score.Score)
	assert.True(t, score.BotWasRecent)
	assert.Equal(t, 10, score.ParticipantCount)
	assert.Equal(t, 1.0, score.HumanActivityModifier)
}

func TestScoreIgnoresOldSelfPosts(t *testing.T) {
	history := events(scoreNow, 10*time.Minute, human("a"), human("b"), human("c"), human("d"))
	history = append([]models.MessageEvent{{
		AuthorID:  selfID,
		IsBot:     true,
		CreatedAt: scoreNow.Add(-3 * time.Hour),
	}}, history...)

	score, ok := scoreOne(t, history)
	require.True(t, ok)
	assert.False(t, score.BotWasRecent)
	// (40 + 90) x1.2
	assert.Equal(t, 156, score.Score)
}

func TestScoreBotDominated(t *testing.T) {
	score, ok := scoreOne(t, events(scoreNow, 10*time.Minute,
		otherBot("x"), otherBot("y"), otherBot("x"), otherBot("x")))
	require.True(t, ok)

	// (0 + 90) x0.1
	assert.Equal(t, 9, score.Score)
	assert.Equal(t, 100.0, score.BotMessagePercentage)
	assert.Equal(t, 0.1, score.HumanActivityModifier)
	assert.Equal(t, 0, score.ParticipantCount)
	assert.Equal(t, models.ActivityInactive, score.ActivityLevel)
}

func TestScoreFloorIsOne(t *testing.T) {
	score, ok := scoreOne(t, events(scoreNow, 200*time.Minute, otherBot("x"), otherBot("y")))
	require.True(t, ok)
	assert.Equal(t, 1, score.Score)
}

func TestScoreDeadChannelsExcluded(t *testing.T) {
	require.True(t, ExcludeDeadChannels)

	_, ok := scoreOne(t, nil)
	assert.False(t, ok, "empty history")

	_, ok = scoreOne(t, events(scoreNow, 25*time.Hour, human("a"), human("b")))
	assert.False(t, ok, "newest message older than the inactivity ceiling")

	_, ok = scoreOne(t, events(scoreNow, 23*time.Hour, human("a")))
	assert.True(t, ok, "inside the ceiling")
}

func TestScoreFetchErrorSkipsChannel(t *testing.T) {
	src := newFakeSource()
	d := src.addChannel("g1", "c1", "general", nil)
	src.historyErr["c1"] = errForbidden
	scorer := NewScorer(src, testScoring(), fixedClock(scoreNow), zap.NewNop())

	_, ok := scorer.Score(context.Background(), d, models.Guild{ID: "g1"})
	assert.False(t, ok)
}

func TestScoreNeverBelowOne(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	authors := []author{human("a"), human("b"), otherBot("x"), self()}

	for i := 0; i < 200; i++ {
		n := 1 + rng.IntN(15)
		picked := make([]author, n)
		for j := range picked {
			picked[j] = authors[rng.IntN(len(authors))]
		}
		ago := time.Duration(rng.IntN(24*60)) * time.Minute

		score, ok := scoreOne(t, events(scoreNow, ago, picked...))
		if ok {
			assert.GreaterOrEqual(t, score.Score, 1)
		}
	}
}

func TestHumanActivityModifier(t *testing.T) {
	tests := []struct {
		pct  float64
		want float64
	}{
		{0, 1.2},
		{24.9, 1.2},
		{25, 1.0},
		{50, 1.0},
		{50.1, 0.5},
		{75, 0.5},
		{75.1, 0.1},
		{100, 0.1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HumanActivityModifier(tt.pct), "pct=%v", tt.pct)
	}
}

func TestClassifyActivity(t *testing.T) {
	tests := []struct {
		name         string
		participants int
		minutes      int
		botPct       float64
		want         models.ActivityLevel
	}{
		{"high", 5, 29, 49, models.ActivityHigh},
		{"high needs five people", 4, 10, 0, models.ActivityMedium},
		{"high needs low bot share", 6, 10, 50, models.ActivityMedium},
		{"medium", 3, 119, 74, models.ActivityMedium},
		{"medium needs recency", 3, 120, 0, models.ActivityLow},
		{"low", 0, 359, 89, models.ActivityLow},
		{"inactive by time", 10, 360, 0, models.ActivityInactive},
		{"inactive by bots", 10, 5, 90, models.ActivityInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyActivity(tt.participants, tt.minutes, tt.botPct))
		})
	}
}
