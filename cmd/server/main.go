package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ybenkirane/casagreed/internal/cache"
	"github.com/ybenkirane/casagreed/internal/config"
	"github.com/ybenkirane/casagreed/internal/database"
	"github.com/ybenkirane/casagreed/internal/market"
	"github.com/ybenkirane/casagreed/internal/modules/backtest"
	"github.com/ybenkirane/casagreed/internal/modules/media"
	"github.com/ybenkirane/casagreed/internal/modules/pipeline"
	"github.com/ybenkirane/casagreed/internal/modules/scores"
	"github.com/ybenkirane/casagreed/internal/modules/simplified"
	"github.com/ybenkirane/casagreed/internal/scheduler"
	"github.com/ybenkirane/casagreed/internal/scraper"
	"github.com/ybenkirane/casagreed/internal/sentiment"
	"github.com/ybenkirane/casagreed/internal/server"
	"github.com/ybenkirane/casagreed/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Config{Level: "info"})
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Casagreed")

	// Persistence
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath,
		Profile: database.ProfileLedger,
		Name:    "feargreed",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	log.Info().Str("path", db.Path()).Msg("Database ready")

	// Cache
	cacheSvc := cache.New(cfg.RedisURL, log)
	defer cacheSvc.Close()

	// Scraping stack
	fetcher := scraper.NewFetcher(scraper.FetcherConfig{
		Spacing:    cfg.DelayBetweenRequests,
		MaxRetries: cfg.MaxRetries,
	}, log)
	urlCache := scraper.NewURLCache(filepath.Join(filepath.Dir(cfg.DatabasePath), "seen_urls.json"), log)
	mediaScraper := scraper.NewMediaScraper(fetcher, urlCache, scraper.DefaultSources(), scraper.Config{
		MaxArticlesPerSource: cfg.MaxArticlesPerSource,
		QualityThreshold:     cfg.QualityThreshold,
		MaxArticleAge:        time.Duration(cfg.MaxArticleAgeDays) * 24 * time.Hour,
		MinContentLength:     cfg.MinContentLength,
	}, log)

	// Market data
	marketClient := market.NewClient(fetcher, log)
	bondsClient := market.NewBondsClient(fetcher, log)

	// Sentiment: LLM when configured, Morocco-context lexicon otherwise
	var analyzer sentiment.Analyzer = sentiment.NewLexicon()
	if cfg.LLMEnabled() {
		analyzer = sentiment.NewLLM(cfg.LLMAPIKey, cfg.LLMModel, log)
		log.Info().Str("model", cfg.LLMModel).Msg("LLM sentiment enabled")
	} else {
		log.Info().Msg("No LLM key configured, using lexicon sentiment")
	}
	sentimentSvc := sentiment.NewService(analyzer, log)

	// Repositories and services
	scoresRepo := scores.NewRepository(db.Conn(), log)
	mediaRepo := media.NewRepository(db.Conn(), log)
	pipelineSvc := pipeline.NewService(
		marketClient, bondsClient, mediaScraper, sentimentSvc,
		scoresRepo, mediaRepo, db, cacheSvc, log,
	)
	simplifiedSvc := simplified.NewService(marketClient, mediaRepo, cacheSvc, log)
	backtestSvc := backtest.NewService(scoresRepo, marketClient, cacheSvc, log)

	// Scheduler: intraday refresh plus the daily close run
	sched, err := scheduler.New(cfg.SchedulerTimezone, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}

	pipelineJob := scheduler.NewPipelineJob("pipeline", pipelineSvc, log)
	if err := sched.AddInterval(pipelineJob, time.Duration(cfg.PipelineIntervalMinutes)*time.Minute); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule pipeline job")
	}

	hour, minute, err := config.ParseDailyRun(cfg.SchedulerDailyRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid daily run time")
	}
	closeJob := scheduler.NewPipelineJob("daily-close", pipelineSvc, log)
	if err := sched.AddDaily(closeJob, hour, minute); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule daily close job")
	}

	maintenanceJob := scheduler.NewMaintenanceJob(db, urlCache, log)
	if err := sched.AddDaily(maintenanceJob, 3, 30); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule maintenance job")
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Log:        log,
		Config:     cfg,
		DB:         db,
		Cache:      cacheSvc,
		Scheduler:  sched,
		Scores:     scoresRepo,
		Media:      mediaRepo,
		Pipeline:   pipelineSvc,
		Simplified: simplifiedSvc,
		Backtest:   backtestSvc,
		Port:       cfg.Port,
		DevMode:    cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	waitForShutdown(srv, log)
}

// waitForShutdown blocks on SIGINT/SIGTERM and drains the server
func waitForShutdown(srv *server.Server, log zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Casagreed stopped")
}
