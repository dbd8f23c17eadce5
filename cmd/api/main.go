package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"estate_assistant/internal/adapters/apify"
	"estate_assistant/internal/adapters/assemblyai"
	"estate_assistant/internal/adapters/fallback"
	"estate_assistant/internal/adapters/gemini"
	server "estate_assistant/internal/adapters/http_server"
	"estate_assistant/internal/adapters/memcache"
	"estate_assistant/internal/adapters/observability"
	redisad "estate_assistant/internal/adapters/redis"
	"estate_assistant/internal/adapters/translate"
	"estate_assistant/internal/app"
	"estate_assistant/internal/catalog"
	"estate_assistant/internal/domain"
	"estate_assistant/internal/shared"
	"estate_assistant/internal/sources"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// cache
	var cache domain.Cache
	switch cfg.CacheBackend {
	case "redis":
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Ping(ctx); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
		}
		cancel()
		defer rc.Close()
		cache = rc
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis cache ok")
	default:
		cache = memcache.New(domain.SystemClock{})
		log.Info().Msg("in-memory cache")
	}

	// sources
	cat := catalog.Default()
	runner := apify.New(cfg.ApifyBase, cfg.ApifyToken, cfg.ApifyRPS,
		apify.WithPolling(cfg.ScrapePollEvery, cfg.ScrapeMaxPolls))
	var srcOpts []sources.Option
	if cfg.FallbackBaseURL != "" {
		srcOpts = append(srcOpts, sources.WithFallback(fallback.New(cfg.FallbackBaseURL, cfg.FallbackTimeout)))
		log.Info().Str("base", cfg.FallbackBaseURL).Dur("timeout", cfg.FallbackTimeout).Msg("fallback route enabled")
	}
	agg := app.NewAggregator(
		sources.NewMagicBricks(cat, runner, srcOpts...),
		sources.NewHousing(cat, runner, srcOpts...),
	)
	props := app.NewPropertyService(cat, agg, cache, cfg.CacheTTL, domain.SystemClock{})

	// assistant
	assist := app.NewAssistantService(
		translate.New(cfg.TranslateEndpoints, cfg.TranslateAPIKey),
		assemblyai.New(cfg.AssemblyAIBase, cfg.AssemblyAIKey, assemblyai.WithPolling(0, cfg.TranscribeMaxPoll)),
		gemini.New(cfg.GeminiBase, cfg.GeminiKey, cfg.GeminiModel),
	)

	// http
	srv := server.New(server.Options{Timeout: cfg.ServerTimeout(), CORSOrigins: cfg.CORSOrigins})
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Props: props, Assist: assist})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Strs("cities", cat.CityNames()).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
