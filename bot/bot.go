package bot

import (
	"errors"
	"fmt"
	"sync/atomic"

	"discord-wanderer/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Bot encapsulates the bot's session state.
type Bot struct {
	Session  *discordgo.Session
	Commands []*discordgo.ApplicationCommand

	ready  atomic.Bool
	logger *zap.Logger
}

// NewBot creates a session for the configured token. The session is not opened.
func NewBot(cfg models.DiscordConfig, logger *zap.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("no bot token provided")
	}

	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	b := &Bot{Session: dg, logger: logger}
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onResumed)
	dg.AddHandler(b.onDisconnect)
	return b, nil
}

// Ready reports whether the gateway connection is up.
func (b *Bot) Ready() bool {
	return b.ready.Load()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.ready.Store(true)
	b.logger.Info("connected to gateway",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))
}

func (b *Bot) onResumed(s *discordgo.Session, r *discordgo.Resumed) {
	b.ready.Store(true)
	b.logger.Info("gateway session resumed")
}

func (b *Bot) onDisconnect(s *discordgo.Session, d *discordgo.Disconnect) {
	b.ready.Store(false)
	b.logger.Warn("disconnected from gateway")
}

// Start registers handlers, opens the session and creates the slash commands.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	if registerHandlers != nil {
		registerHandlers(b)
	}

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	for _, cmd := range b.Commands {
		if _, err := b.Session.ApplicationCommandCreate(b.Session.State.User.ID, "", cmd); err != nil {
			b.logger.Error("cannot create command", zap.String("command", cmd.Name), zap.Error(err))
		}
	}

	b.logger.Info("bot is now running")
	return nil
}

// Stop closes the session.
func (b *Bot) Stop() {
	b.ready.Store(false)
	if b.Session != nil {
		if err := b.Session.Close(); err != nil {
			b.logger.Warn("error closing session", zap.Error(err))
		}
	}
	b.logger.Info("bot stopped gracefully")
}
