// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"social-scrape-platform/internal/config"
	"social-scrape-platform/internal/domain/ports/adapter"
	"social-scrape-platform/internal/infra/adapters/analysis"
	"social-scrape-platform/internal/infra/adapters/scraper"
	"social-scrape-platform/internal/infra/adapters/transcription"
	pg "social-scrape-platform/internal/infra/db/postgres"
	opshttp "social-scrape-platform/internal/infra/http"
	"social-scrape-platform/internal/infra/logging"
	"social-scrape-platform/internal/infra/metrics"
	red "social-scrape-platform/internal/infra/redis"
	"social-scrape-platform/internal/infra/web"
	"social-scrape-platform/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (relaxed validation, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)
	snapshotCache := red.NewScrapeCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	jobRepo := pg.NewScrapeJobRepo(pool)
	creditRepo := pg.NewCreditAccountRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- External adapters ----
	runner, err := scraper.NewApifyRunner(cfg.Scraper)
	if err != nil {
		logger.Fatal().Err(err).Msg("scrape runner init failed")
	}

	var platformAPI adapter.PlatformAPI
	if cfg.YouTube.APIKey != "" {
		platformAPI, err = scraper.NewYouTubeDataAPI(cfg.YouTube.APIKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("youtube api init failed")
		}
		logger.Info().Msg("platform api: youtube data v3")
	}

	var speech adapter.SpeechToText
	if cfg.Transcription.OpenAIKey != "" {
		whisper, err := transcription.NewWhisperAdapter(cfg.Transcription.OpenAIKey, cfg.Transcription.Model)
		if err != nil {
			logger.Fatal().Err(err).Msg("whisper adapter init failed")
		}
		speech = transcription.NewLimitedSpeech(whisper, cfg.Transcription.ConcurrentLimit)
		logger.Info().Str("model", cfg.Transcription.Model).Msg("speech-to-text: openai")
	} else {
		speech = transcription.NoopSpeech{}
		logger.Warn().Msg("no speech-to-text key configured, audio transcription disabled")
	}
	captions := transcription.NewTimedTextClient()

	var analyzer adapter.ContentAnalyzer = analysis.NoopAnalyzer{}
	if cfg.Transcription.GeminiKey != "" {
		analyzer, err = analysis.NewGeminiAnalyzer(ctx, cfg.Transcription.GeminiKey, cfg.Transcription.AnalysisModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("analyzer init failed")
		}
		logger.Info().Str("model", cfg.Transcription.AnalysisModel).Msg("content analysis: gemini")
	}

	// ---- Use cases ----
	ledgerUC := usecase.NewLedgerUseCase(creditRepo, usecase.LedgerConfig{
		PromotionalGrant: cfg.Credits.PromotionalGrant,
		AllocationCap:    cfg.Credits.AllocationCap,
	}, logger)

	strategyCfg := usecase.StrategyConfig{
		MaxDurationSeconds:   int(cfg.Transcription.MaxDuration.Seconds()),
		ChunkDurationSeconds: int(cfg.Transcription.ChunkDuration.Seconds()),
	}
	resolver := usecase.NewTranscriptResolver(
		usecase.DefaultStrategies(captions, speech, strategyCfg),
		cfg.Transcription.StrategyTimeout, logger)
	longResolver := usecase.NewTranscriptResolver(
		usecase.LongFormStrategies(captions, speech, strategyCfg),
		cfg.Transcription.StrategyTimeout, logger)

	scrapeUC := usecase.NewScrapeUseCase(
		jobRepo, ledgerUC, txManager, pg.AcquireAdvisoryLock,
		runner, platformAPI, analyzer,
		resolver, longResolver,
		locker, snapshotCache, rateLimiter,
		usecase.ScrapeConfig{
			CostPerJob:        cfg.Credits.CostPerJob,
			PreferPlatformAPI: cfg.Scraper.PreferPlatformAPI,
			SubmitRatePerMin:  cfg.Credits.SubmitRatePerMin,
		}, logger)

	// ---- Servers ----
	apiServer := web.NewServer(&cfg.API, scrapeUC, ledgerUC, logger)
	go func() {
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("api server stopped")
		}
	}()

	opsServer := opshttp.NewServer(&cfg.Ops, pool, redisClient, logger)
	go func() {
		if err := opsServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("ops server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	_ = apiServer.Shutdown(ctx)
	_ = opsServer.Shutdown(ctx)
	cancel()
}
