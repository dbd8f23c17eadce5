package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"estate_assistant/internal/adapters/apify"
	"estate_assistant/internal/adapters/observability"
	redisad "estate_assistant/internal/adapters/redis"
	"estate_assistant/internal/app"
	"estate_assistant/internal/catalog"
	"estate_assistant/internal/domain"
	"estate_assistant/internal/shared"
	"estate_assistant/internal/sources"
)

// The warmer only makes sense against a shared cache, so it always uses Redis.
func main() {
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("base", cfg.ApifyBase).
		Int("workers", cfg.WarmWorkers).
		Str("cron", cfg.WarmCron).
		Msg("warmer starting")

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := cache.Ping(pingCtx); err != nil {
		log.Fatal().Err(err).Msg("redis ping failed")
	}
	cancel()
	log.Info().Msg("redis ping ok")

	cat := catalog.Default()
	runner := apify.New(cfg.ApifyBase, cfg.ApifyToken, cfg.ApifyRPS,
		apify.WithPolling(cfg.ScrapePollEvery, cfg.ScrapeMaxPolls))
	agg := app.NewAggregator(sources.NewMagicBricks(cat, runner), sources.NewHousing(cat, runner))
	props := app.NewPropertyService(cat, agg, cache, cfg.CacheTTL, domain.SystemClock{})
	warmer := app.NewWarmer(props, cfg.WarmWorkers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run := func() {
		start := time.Now()
		rep, err := warmer.WarmAll(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("warm pass interrupted")
		}
		log.Info().Int("warmed", rep.Warmed).Int("failed", rep.Failed).
			Dur("took", time.Since(start)).Msg("warm pass completed")
	}

	if cfg.WarmCron == "" {
		run()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.WarmCron, run); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.WarmCron).Msg("invalid WARM_CRON")
	}
	c.Start()
	log.Info().Str("schedule", cfg.WarmCron).Msg("warmer scheduled")

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Msg("warmer stopped")
}
