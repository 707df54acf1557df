package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"discord-wanderer/models"
)

const selfID = "bot-self"

var errForbidden = errors.New("403 Forbidden: Missing Access")

type fakeSource struct {
	mu           sync.Mutex
	destinations map[string][]models.Destination
	history      map[string][]models.MessageEvent
	historyErr   map[string]error
	listErr      map[string]error
	listCalls    map[string]int
	fetchCalls   map[string]int
	lastLimit    int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		destinations: make(map[string][]models.Destination),
		history:      make(map[string][]models.MessageEvent),
		historyErr:   make(map[string]error),
		listErr:      make(map[string]error),
		listCalls:    make(map[string]int),
		fetchCalls:   make(map[string]int),
	}
}

func (f *fakeSource) SelfID() string { return selfID }

func (f *fakeSource) ListDestinations(ctx context.Context, guild models.Guild) ([]models.Destination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls[guild.ID]++
	if err := f.listErr[guild.ID]; err != nil {
		return nil, err
	}
	return f.destinations[guild.ID], nil
}

func (f *fakeSource) FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]models.MessageEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls[channelID]++
	f.lastLimit = limit
	if err := f.historyErr[channelID]; err != nil {
		return nil, err
	}
	return f.history[channelID], nil
}

func (f *fakeSource) addChannel(guildID, channelID, name string, history []models.MessageEvent) models.Destination {
	d := models.Destination{
		ID:          channelID,
		GuildID:     guildID,
		Name:        name,
		Permissions: models.Permissions{View: true, Send: true, ReadHistory: true},
	}
	f.destinations[guildID] = append(f.destinations[guildID], d)
	f.history[channelID] = history
	return d
}

// author describes one message in a history built by events.
type author struct {
	id  string
	bot bool
}

func human(id string) author { return author{id: id} }
func otherBot(id string) author { return author{id: id, bot: true} }
func self() author { return author{id: selfID, bot: true} }

// events builds a history listed newest-first: the first author posted
// newestAgo before now and each following one a minute earlier.
// The returned slice is oldest-first, like the platform adapter returns it.
func events(now time.Time, newestAgo time.Duration, authors ...author) []models.MessageEvent {
	out := make([]models.MessageEvent, len(authors))
	for i, a := range authors {
		out[len(authors)-1-i] = models.MessageEvent{
			AuthorID:  a.id,
			IsBot:     a.bot,
			CreatedAt: now.Add(-newestAgo - time.Duration(i)*time.Minute),
		}
	}
	return out
}

func testScoring() models.ScoringConfig {
	return models.ScoringConfig{
		HistoryLimit:       15,
		MaxInactivity:      24 * time.Hour,
		SelfRecentWindow:   2 * time.Hour,
		SelfRecentLookback: 5,
		MinScore:           40,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
