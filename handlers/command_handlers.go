package handlers

import (
	"context"
	"time"

	"discord-wanderer/command"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const stopTimeout = 30 * time.Second

const (
	replyNoPermission   = "🚫 You do not have permission to run this command."
	replyUnknownCommand = "🚫 Internal error: unknown command."
)

// CommandDispatcher is the central handler for all application command interactions.
// It performs permission checks and then dispatches the interaction to the appropriate handler.
func (h *Handler) CommandDispatcher(s *discordgo.Session, i *discordgo.InteractionCreate) {
	commandName := i.ApplicationCommandData().Name
	if requiredLevel, ok := command.RequiredLevel(commandName); ok {
		if !h.Auth.CheckPermission(i, requiredLevel) {
			respondEphemeral(s, i, replyNoPermission, h.Logger)
			return
		}
	}

	switch commandName {
	case "wander":
		h.HandleWander(s, i)
	case "ping":
		h.HandlePing(s, i)
	default:
		respondEphemeral(s, i, replyUnknownCommand, h.Logger)
	}
}

// HandleWander dispatches the /wander subcommands.
func (h *Handler) HandleWander(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		respondEphemeral(s, i, "Error: missing subcommand.", h.Logger)
		return
	}
	sub := options[0]

	switch sub.Name {
	case "status":
		var guildID string
		for _, opt := range sub.Options {
			if opt.Name == "guild" {
				guildID = opt.StringValue()
			}
		}
		h.handleStatus(s, i, guildID)
	case "stop":
		h.handleStop(s, i)
	case "resume":
		h.handleResume(s, i)
	default:
		respondEphemeral(s, i, "Error: unknown subcommand.", h.Logger)
	}
}

func (h *Handler) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate, guildID string) {
	now := h.Now()
	content := statusMessage(h.Engine.Status(now), h.Scheduler.Running(), h.Scheduler.NextCycle())
	if guildID != "" {
		name := guildID
		if g, err := s.State.Guild(guildID); err == nil && g.Name != "" {
			name = g.Name
		}
		last, ok := h.Engine.Cooldowns().Last(guildID)
		content += "\n" + guildCooldownMessage(name, last, ok, h.Wander.GuildCooldown, h.Wander.GuildJitterPercent, now)
	}
	respondEphemeral(s, i, content, h.Logger)
}

func (h *Handler) handleStop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := invokingUser(i)
	h.Logger.Warn("emergency stop requested via command", zap.String("user_id", user))
	respondEphemeral(s, i, "🛑 Emergency stop requested. Halting the scheduler...", h.Logger)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		h.Scheduler.EmergencyStop(ctx)
		followup(s, i, "🛑 Wandering halted and circuit breaker tripped. Use `/wander resume` to continue.", h.Logger)
	}()
}

func (h *Handler) handleResume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.Engine.ResetBreaker()
	h.Scheduler.Start()
	h.Logger.Info("wandering resumed via command", zap.String("user_id", invokingUser(i)))
	respondEphemeral(s, i, "✅ Circuit breaker cleared, scheduler running.", h.Logger)
}

// HandlePing handles the logic for the /ping command.
func (h *Handler) HandlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Pong!",
		},
	})
	if err != nil {
		h.Logger.Warn("error responding to ping", zap.Error(err))
	}
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string, logger *zap.Logger) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logger.Warn("error responding to interaction", zap.Error(err))
	}
}

func followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string, logger *zap.Logger) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		logger.Warn("error sending followup message", zap.Error(err))
	}
}

func invokingUser(i *discordgo.InteractionCreate) string {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return i.Member.User.ID
	case i.User != nil:
		return i.User.ID
	default:
		return ""
	}
}
