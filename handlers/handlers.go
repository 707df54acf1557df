package handlers

import (
	"context"
	"time"

	"discord-wanderer/bot"
	"discord-wanderer/models"
	"discord-wanderer/utils"
	"discord-wanderer/wander"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Scheduler is the part of bot.Scheduler the admin command drives.
type Scheduler interface {
	Start()
	EmergencyStop(ctx context.Context)
	Running() bool
	NextCycle() time.Time
}

// Handler carries what the interaction handlers need.
type Handler struct {
	Engine    *wander.Engine
	Scheduler Scheduler
	Auth      *utils.Auth
	Wander    models.WanderConfig
	Logger    *zap.Logger
	Now       func() time.Time
}

// Register all handlers to the bot.
func Register(b *bot.Bot, h *Handler) {
	if h.Now == nil {
		h.Now = time.Now
	}
	b.Session.AddHandler(InteractionCreate(h))
	b.Session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		h.Logger.Debug("guild available", zap.String("guild", g.Name), zap.String("guild_id", g.ID))
	})
}
