package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"discord-wanderer/models"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultDenyPatterns are channel name fragments the bot never posts into.
// They are matched as substrings, so short words carry a separator.
var DefaultDenyPatterns = []string{
	"admin", "mod-", "moderator", "staff", "rules", "announcement",
	"support", "help-desk", "ticket", "confession", "venting", "vent-", "showcase",
	"feedback", "bug-report", "mod-log", "audit-log", "server-log",
}

// DefaultConversationPatterns mark channels that look like casual chat.
var DefaultConversationPatterns = []string{
	"general", "chat", "random", "talk", "lounge", "off-topic", "hangout", "bot",
}

// LoadConfig loads configuration from the following sources, later ones winning:
// 1. built-in defaults
// 2. config.yaml (or the file given by path)
// 3. .env file and the process environment
//
// A missing config file is not an error; a config file that fails to parse is.
func LoadConfig(path string) (*models.Config, error) {
	// .env only feeds the environment, so a missing file is fine.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, skipping.")
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Printf("Config file not found, using environment variables and defaults.")
	}

	// Deployments usually pass the token as BOT_TOKEN or DISCORD_TOKEN.
	if v.GetString("discord.token") == "" {
		if token := v.GetString("BOT_TOKEN"); token != "" {
			v.Set("discord.token", token)
		} else if token := v.GetString("DISCORD_TOKEN"); token != "" {
			v.Set("discord.token", token)
		}
	}

	var cfg models.Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("wander.enabled", true)
	v.SetDefault("wander.startup_delay", 2*time.Minute)
	v.SetDefault("wander.cycle_interval", 10*time.Minute)
	v.SetDefault("wander.cycle_jitter_percent", 20.0)
	v.SetDefault("wander.cycle_timeout", time.Duration(0))
	v.SetDefault("wander.cleanup_interval", 24*time.Hour)
	v.SetDefault("wander.cooldown_max_age", 7*24*time.Hour)
	v.SetDefault("wander.guild_cooldown", 6*time.Hour)
	v.SetDefault("wander.guild_jitter_percent", 15.0)
	v.SetDefault("wander.global_cooldown", 5*time.Minute)
	v.SetDefault("wander.global_jitter_percent", 20.0)
	v.SetDefault("wander.max_messages_per_hour", 15)
	v.SetDefault("wander.breaker_reset_after", time.Hour)
	v.SetDefault("wander.observation_period", 24*time.Hour)
	v.SetDefault("wander.guild_scan_interval", 100*time.Millisecond)
	v.SetDefault("wander.channel_cache_ttl", time.Hour)

	v.SetDefault("wander.scoring.history_limit", 15)
	v.SetDefault("wander.scoring.max_inactivity", 24*time.Hour)
	v.SetDefault("wander.scoring.self_recent_window", 2*time.Hour)
	v.SetDefault("wander.scoring.self_recent_lookback", 5)
	v.SetDefault("wander.scoring.min_score", 40)

	v.SetDefault("wander.filter.deny_patterns", DefaultDenyPatterns)
	v.SetDefault("wander.filter.conversation_patterns", DefaultConversationPatterns)

	v.SetDefault("cooldown.backend", "sqlite")
	v.SetDefault("cooldown.path", "data/wanderer.db")
	v.SetDefault("cooldown.redis_addr", "localhost:6379")
	v.SetDefault("cooldown.redis_prefix", "wanderer:")

	v.SetDefault("content.path", "data/quotes.yaml")

	v.SetDefault("health.addr", "")
	v.SetDefault("health.check_interval", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Validate rejects configurations the engine cannot run safely with.
func Validate(cfg *models.Config) error {
	w := cfg.Wander
	switch {
	case w.CycleInterval <= 0:
		return fmt.Errorf("wander.cycle_interval must be positive, got %s", w.CycleInterval)
	case w.GuildCooldown <= 0:
		return fmt.Errorf("wander.guild_cooldown must be positive, got %s", w.GuildCooldown)
	case w.MaxMessagesPerHour <= 0:
		return fmt.Errorf("wander.max_messages_per_hour must be positive, got %d", w.MaxMessagesPerHour)
	case w.CleanupInterval <= 0:
		return fmt.Errorf("wander.cleanup_interval must be positive, got %s", w.CleanupInterval)
	case w.Scoring.HistoryLimit <= 0 || w.Scoring.HistoryLimit > 100:
		return fmt.Errorf("wander.scoring.history_limit must be within 1..100, got %d", w.Scoring.HistoryLimit)
	}
	for name, pct := range map[string]float64{
		"wander.cycle_jitter_percent":  w.CycleJitterPercent,
		"wander.guild_jitter_percent":  w.GuildJitterPercent,
		"wander.global_jitter_percent": w.GlobalJitterPercent,
	} {
		if pct < 0 || pct >= 100 {
			return fmt.Errorf("%s must be within [0, 100), got %v", name, pct)
		}
	}

	switch cfg.Cooldown.Backend {
	case "sqlite", "json":
		if cfg.Cooldown.Path == "" {
			return fmt.Errorf("cooldown.path is required for the %s backend", cfg.Cooldown.Backend)
		}
	case "redis":
		if cfg.Cooldown.RedisAddr == "" {
			return errors.New("cooldown.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cooldown.backend %q", cfg.Cooldown.Backend)
	}
	return nil
}
