package utils

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"discord-wanderer/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxFieldValue is Discord's limit on an embed field value.
const maxFieldValue = 1024

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

// NewLogger builds the process logger: JSON output in production,
// console output with development mode on.
func NewLogger(cfg models.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	config := zap.NewProductionConfig()
	if cfg.Development {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// EmbedSender posts embeds to a channel. *discordgo.Session satisfies it.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// AdminCore is a zapcore.Core that mirrors log entries into the admin
// channel as embeds.
type AdminCore struct {
	zapcore.LevelEnabler
	sender    EmbedSender
	channelID string
	fields    []zapcore.Field
}

// NewAdminCore creates a core posting entries at or above enab to channelID.
func NewAdminCore(sender EmbedSender, channelID string, enab zapcore.LevelEnabler) *AdminCore {
	return &AdminCore{LevelEnabler: enab, sender: sender, channelID: channelID}
}

// WithAdminChannel tees logger into the admin channel for WARN and above.
// An empty channelID returns logger unchanged.
func WithAdminChannel(logger *zap.Logger, sender EmbedSender, channelID string) *zap.Logger {
	if channelID == "" {
		logger.Warn("discord.admin_channel_id is not set, admin channel logging disabled")
		return logger
	}
	admin := NewAdminCore(sender, channelID, zapcore.WarnLevel)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, admin)
	}))
}

func (c *AdminCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(slices.Clone(c.fields), fields...)
	return &clone
}

func (c *AdminCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *AdminCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	all := append(slices.Clone(c.fields), fields...)
	_, err := c.sender.ChannelMessageSendEmbed(c.channelID, buildEmbed(ent, all))
	if err != nil {
		return fmt.Errorf("error sending log message to Discord: %w", err)
	}
	return nil
}

func (c *AdminCore) Sync() error { return nil }

func buildEmbed(ent zapcore.Entry, fields []zapcore.Field) *discordgo.MessageEmbed {
	var color int
	switch {
	case ent.Level >= zapcore.ErrorLevel:
		color = ColorError
	case ent.Level == zapcore.WarnLevel:
		color = ColorWarn
	default:
		color = ColorInfo
	}

	module := ent.LoggerName
	if module == "" {
		module = "wanderer"
	}

	return &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", ent.Level.CapitalString()),
		Color:     color,
		Timestamp: ent.Time.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Module",
				Value:  module,
				Inline: true,
			},
			{
				Name:   "Operation",
				Value:  truncate(ent.Message, maxFieldValue),
				Inline: true,
			},
			{
				Name:  "Details",
				Value: formatFields(fields),
			},
		},
	}
}

// formatFields renders fields as sorted key=value lines. Discord rejects
// empty embed field values, so an empty set renders as "-".
func formatFields(fields []zapcore.Field) string {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	if len(enc.Fields) == 0 {
		return "-"
	}

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v\n", k, enc.Fields[k])
	}
	out := strings.TrimSuffix(b.String(), "\n")
	return truncate(out, maxFieldValue)
}

// truncate shortens s to at most limit bytes, ending in "..." and never
// splitting a UTF-8 sequence.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - len("...")
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
