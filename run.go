package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"discord-wanderer/bot"
	"discord-wanderer/command"
	"discord-wanderer/database"
	wandergrpc "discord-wanderer/grpc"
	"discord-wanderer/handlers"
	"discord-wanderer/quotes"
	"discord-wanderer/scanner"
	"discord-wanderer/utils"
	"discord-wanderer/wander"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and start wandering",
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := bot.NewBot(cfg.Discord, logger.Named("bot"))
	if err != nil {
		return err
	}
	log := utils.WithAdminChannel(logger, b.Session, cfg.Discord.AdminChannelID)

	content, err := quotes.Load(cfg.Content.Path)
	if err != nil {
		return err
	}
	generic, special := content.Counts()
	log.Info("content loaded",
		zap.String("path", cfg.Content.Path),
		zap.Int("generic_messages", generic),
		zap.Int("channel_specific", special))

	store := database.OpenCooldownStoreOrRetry(ctx, cfg.Cooldown, log.Named("store"))
	defer store.Close()

	w := cfg.Wander
	platform := bot.NewPlatform(b.Session, b.Ready, cfg.Discord.AllowedGuilds, log.Named("platform"))
	jitter := wander.NewJitter()
	sc := scanner.New(platform,
		scanner.NewFilter(w.Filter, content.SpecialNames()),
		scanner.NewScorer(platform, w.Scoring, nil, log.Named("scorer")),
		scanner.Options{
			MinScore:          w.Scoring.MinScore,
			ObservationPeriod: w.ObservationPeriod,
			GuildInterval:     w.GuildScanInterval,
			CacheTTL:          w.ChannelCacheTTL,
		},
		log.Named("scanner"))

	cooldowns := wander.NewCooldowns(store, jitter, w.GuildCooldown, w.GuildJitterPercent, log.Named("cooldowns"))
	cooldowns.Load(ctx, time.Now())

	engine := wander.NewEngine(wander.Deps{
		Platform:  platform,
		Scanner:   sc,
		Cooldowns: cooldowns,
		Content:   content,
		Jitter:    jitter,
		Logger:    log.Named("engine"),
	}, wander.LimitsFromConfig(w))
	scheduler := bot.NewScheduler(engine, w, jitter, log.Named("scheduler"))

	h := &handlers.Handler{
		Engine:    engine,
		Scheduler: scheduler,
		Auth:      utils.NewAuth(cfg.Commands),
		Wander:    w,
		Logger:    log.Named("handlers"),
	}
	b.Commands = command.GetCommandDefinitions()
	if err := b.Start(func(b *bot.Bot) { handlers.Register(b, h) }); err != nil {
		return err
	}
	defer b.Stop()

	if w.Enabled {
		scheduler.Start()
	} else {
		log.Warn("wandering disabled by configuration, use /wander resume to start")
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Health.Addr != "" {
		hs := wandergrpc.NewHealthServer(func() bool {
			return scheduler.Running() && !engine.BreakerActive()
		}, cfg.Health.CheckInterval, log.Named("health"))
		g.Go(func() error { return hs.ListenAndServe(gctx, cfg.Health.Addr) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		scheduler.Stop(stopCtx)
		return nil
	})
	return g.Wait()
}
