package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"discord-wanderer/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Platform adapts a discordgo session to the decision engine.
type Platform struct {
	session *discordgo.Session
	ready   func() bool
	allowed map[string]struct{}
	logger  *zap.Logger
}

// NewPlatform creates the adapter. ready reports gateway readiness; an empty
// allowedGuilds admits every guild the bot is in.
func NewPlatform(session *discordgo.Session, ready func() bool, allowedGuilds []string, logger *zap.Logger) *Platform {
	allowed := make(map[string]struct{}, len(allowedGuilds))
	for _, id := range allowedGuilds {
		allowed[id] = struct{}{}
	}
	return &Platform{session: session, ready: ready, allowed: allowed, logger: logger}
}

// SelfID returns the bot's user id, or "" before the session is ready.
func (p *Platform) SelfID() string {
	state := p.session.State
	state.RLock()
	defer state.RUnlock()
	if state.User == nil {
		return ""
	}
	return state.User.ID
}

func (p *Platform) Ready() bool {
	return p.ready != nil && p.ready()
}

// ListGuilds returns the available guilds from the session state.
func (p *Platform) ListGuilds(ctx context.Context) ([]models.Guild, error) {
	state := p.session.State
	state.RLock()
	defer state.RUnlock()

	guilds := make([]models.Guild, 0, len(state.Guilds))
	for _, g := range state.Guilds {
		if g.Unavailable || !p.isAllowed(g.ID) {
			continue
		}
		guilds = append(guilds, models.Guild{ID: g.ID, Name: g.Name, JoinedAt: g.JoinedAt})
	}
	return guilds, nil
}

func (p *Platform) isAllowed(guildID string) bool {
	if len(p.allowed) == 0 {
		return true
	}
	_, ok := p.allowed[guildID]
	return ok
}

// ListDestinations returns the guild's text channels with the bot's
// effective permissions on each.
func (p *Platform) ListDestinations(ctx context.Context, guild models.Guild) ([]models.Destination, error) {
	channels, err := p.guildChannels(ctx, guild.ID)
	if err != nil {
		return nil, err
	}

	selfID := p.SelfID()
	destinations := make([]models.Destination, 0, len(channels))
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		perms, err := p.channelPermissions(ctx, selfID, ch.ID)
		if err != nil {
			p.logger.Debug("failed to resolve channel permissions",
				zap.String("guild", guild.Name),
				zap.String("channel", ch.Name),
				zap.Error(err))
			perms = 0
		}
		destinations = append(destinations, destinationFromChannel(ch, guild.ID, perms))
	}
	return destinations, nil
}

func (p *Platform) guildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	if g, err := p.session.State.Guild(guildID); err == nil && len(g.Channels) > 0 {
		p.session.State.RLock()
		channels := slices.Clone(g.Channels)
		p.session.State.RUnlock()
		return channels, nil
	}
	channels, err := p.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channels for guild %s: %w", guildID, err)
	}
	return channels, nil
}

func (p *Platform) channelPermissions(ctx context.Context, userID, channelID string) (int64, error) {
	if perms, err := p.session.State.UserChannelPermissions(userID, channelID); err == nil {
		return perms, nil
	}
	return p.session.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
}

func destinationFromChannel(ch *discordgo.Channel, guildID string, perms int64) models.Destination {
	return models.Destination{
		ID:      ch.ID,
		GuildID: guildID,
		Name:    ch.Name,
		NSFW:    ch.NSFW,
		Permissions: models.Permissions{
			View:        perms&discordgo.PermissionViewChannel != 0,
			Send:        perms&discordgo.PermissionSendMessages != 0,
			ReadHistory: perms&discordgo.PermissionReadMessageHistory != 0,
		},
	}
}

// FetchRecentMessages returns up to limit recent messages, oldest first.
func (p *Platform) FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]models.MessageEvent, error) {
	msgs, err := p.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages for channel %s: %w", channelID, err)
	}
	return eventsFromMessages(msgs), nil
}

// eventsFromMessages converts the newest-first REST listing to oldest-first events.
func eventsFromMessages(msgs []*discordgo.Message) []models.MessageEvent {
	events := make([]models.MessageEvent, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil || m.Author == nil {
			continue
		}
		events = append(events, models.MessageEvent{
			AuthorID:  m.Author.ID,
			IsBot:     m.Author.Bot,
			CreatedAt: m.Timestamp,
		})
	}
	return events
}

// SendMessage posts text. Lost permissions and deleted channels report
// false without an error.
func (p *Platform) SendMessage(ctx context.Context, channelID, text string) (bool, error) {
	_, err := p.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	if err == nil {
		return true, nil
	}
	if isDeliveryFailure(err) {
		p.logger.Warn("message delivery refused", zap.String("channel_id", channelID), zap.Error(err))
		return false, nil
	}
	return false, fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
}

func isDeliveryFailure(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return false
	}
	switch restErr.Response.StatusCode {
	case http.StatusForbidden, http.StatusNotFound:
		return true
	default:
		return false
	}
}
