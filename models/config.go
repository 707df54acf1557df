package models

import "time"

// Config is the fully decoded application configuration.
type Config struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Commands CommandsConfig `mapstructure:"commands"`
	Wander   WanderConfig   `mapstructure:"wander"`
	Cooldown CooldownConfig `mapstructure:"cooldown"`
	Content  ContentConfig  `mapstructure:"content"`
	Health   HealthConfig   `mapstructure:"health"`
	Log      LogConfig      `mapstructure:"log"`
}

// DiscordConfig holds the connection settings for the bot session.
type DiscordConfig struct {
	Token          string   `mapstructure:"token"`
	AdminChannelID string   `mapstructure:"admin_channel_id"`
	AllowedGuilds  []string `mapstructure:"allowed_guilds"` // empty means every guild the bot is in
}

// CommandsConfig represents the permission configuration for slash commands.
type CommandsConfig struct {
	Auth AuthConfig `mapstructure:"auth"`
}

// AuthConfig lists who may run privileged commands.
type AuthConfig struct {
	Developers []string `mapstructure:"developers"`
	AdminRoles []string `mapstructure:"admin_roles"`
}

// WanderConfig tunes the decision engine and its scheduler.
type WanderConfig struct {
	Enabled bool `mapstructure:"enabled"`

	StartupDelay        time.Duration `mapstructure:"startup_delay"`
	CycleInterval       time.Duration `mapstructure:"cycle_interval"`
	CycleJitterPercent  float64       `mapstructure:"cycle_jitter_percent"`
	CycleTimeout        time.Duration `mapstructure:"cycle_timeout"` // 0 disables the timeout
	CleanupInterval     time.Duration `mapstructure:"cleanup_interval"`
	CooldownMaxAge      time.Duration `mapstructure:"cooldown_max_age"`
	GuildCooldown       time.Duration `mapstructure:"guild_cooldown"`
	GuildJitterPercent  float64       `mapstructure:"guild_jitter_percent"`
	GlobalCooldown      time.Duration `mapstructure:"global_cooldown"`
	GlobalJitterPercent float64       `mapstructure:"global_jitter_percent"`
	MaxMessagesPerHour  int           `mapstructure:"max_messages_per_hour"`
	BreakerResetAfter   time.Duration `mapstructure:"breaker_reset_after"`
	ObservationPeriod   time.Duration `mapstructure:"observation_period"`
	GuildScanInterval   time.Duration `mapstructure:"guild_scan_interval"`
	ChannelCacheTTL     time.Duration `mapstructure:"channel_cache_ttl"`

	Scoring ScoringConfig `mapstructure:"scoring"`
	Filter  FilterConfig  `mapstructure:"filter"`
}

// ScoringConfig tunes the channel scorer.
type ScoringConfig struct {
	HistoryLimit       int           `mapstructure:"history_limit"`
	MaxInactivity      time.Duration `mapstructure:"max_inactivity"`
	SelfRecentWindow   time.Duration `mapstructure:"self_recent_window"`
	SelfRecentLookback int           `mapstructure:"self_recent_lookback"`
	MinScore           int           `mapstructure:"min_score"`
}

// FilterConfig holds the channel name patterns used by the eligibility filter.
type FilterConfig struct {
	DenyPatterns         []string `mapstructure:"deny_patterns"`
	ConversationPatterns []string `mapstructure:"conversation_patterns"`
}

// CooldownConfig selects the durable cooldown backend.
type CooldownConfig struct {
	Backend     string `mapstructure:"backend"` // sqlite, json or redis
	Path        string `mapstructure:"path"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

// ContentConfig points at the message file.
type ContentConfig struct {
	Path string `mapstructure:"path"`
}

// HealthConfig configures the gRPC health endpoint.
type HealthConfig struct {
	Addr          string        `mapstructure:"addr"` // empty disables the endpoint
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}
