package scanner

import (
	"context"

	"discord-wanderer/models"
)

// Source is the read side of the chat platform the scanner walks.
type Source interface {
	// SelfID is the bot's own user id, used to spot its recent messages.
	SelfID() string
	// ListDestinations returns the guild's text destinations with permission
	// and content metadata populated.
	ListDestinations(ctx context.Context, guild models.Guild) ([]models.Destination, error)
	// FetchRecentMessages returns up to limit recent messages in any order.
	FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]models.MessageEvent, error)
}
