// Package app assembles the pipeline: configuration, storage, adapters,
// stages, and the scheduler. Run blocks until the context is canceled.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"MediaTrends/internal/alias"
	"MediaTrends/internal/config"
	"MediaTrends/internal/domain"
	"MediaTrends/internal/infrastructure/extractor"
	"MediaTrends/internal/infrastructure/scheduler"
	"MediaTrends/internal/infrastructure/storage"
	"MediaTrends/internal/infrastructure/telegram"
	"MediaTrends/internal/infrastructure/translate"
	"MediaTrends/internal/logging"
	"MediaTrends/internal/match"
	"MediaTrends/internal/metrics"
	"MediaTrends/internal/normalize"
	"MediaTrends/internal/usecase"
	"MediaTrends/internal/worker"
)

// Run builds the full application and blocks until ctx is canceled.
func Run(ctx context.Context) error {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)
	slog.SetDefault(logger)

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := storage.Bootstrap(ctx, db); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}

	sourceRepo := storage.NewSourceRepo(db)
	articleRepo := storage.NewArticleRepo(db)
	subscriptionRepo := storage.NewSubscriptionRepo(db)
	deliveryRepo := storage.NewDeliveryRepo(db)

	reader := extractor.NewReaderClient(cfg.Extractor)
	direct := extractor.NewHTMLExtractor(cfg.Extractor.Timeout.Std())
	extract := extractor.NewFallback(reader, direct, logger.With("component", "extractor"))

	translator := translate.NewClient(cfg.Translator)
	expander := alias.New(translator, cfg.Translator.Languages, logger.With("component", "alias"))

	messenger, err := telegram.NewMessenger(cfg.Notifications.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("init telegram: %w", err)
	}

	normalizer := normalize.New(logger.With("component", "normalize"))
	engine := match.NewEngine(logger.With("component", "match"),
		match.WithMinArticleRunes(cfg.Pipeline.MinArticleChars),
		match.WithMinSentenceRunes(cfg.Pipeline.MinSentenceChars),
	)

	pool := worker.NewPool(cfg.Scheduler.QueueSize, logger.With("component", "worker"))
	pool.Start(ctx, cfg.Scheduler.Workers)

	stats := metrics.New()

	notifier := usecase.NewNotifier(subscriptionRepo, articleRepo, deliveryRepo, engine, messenger, cfg.Pipeline, logger.With("component", "notify"))
	notifier.Instrument(stats)
	ingestor := usecase.NewIngestor(sourceRepo, articleRepo, extract, normalizer, pool, cfg.Extractor, cfg.Pipeline, logger.With("component", "ingest"))
	ingestor.Instrument(stats)
	ingestor.OnAdmitted(func(ctx context.Context, article domain.Article) {
		notifier.MatchArticle(ctx, article)
	})
	expansion := usecase.NewAliasExpansion(subscriptionRepo, expander, notifier, logger.With("component", "alias"))
	cleanup := usecase.NewCleanup(articleRepo, deliveryRepo, cfg.Pipeline, logger.With("component", "cleanup"))

	subscriptions := usecase.NewSubscriptions(subscriptionRepo, notifier, logger.With("component", "subscriptions"))
	listener := telegram.NewListener(messenger, subscriptions, logger.With("component", "bot"))
	go listener.Run(ctx)

	cron := scheduler.New(cfg.Scheduler.Location())
	jobs := usecase.NewJobs(cron, pool, ingestor, expansion, notifier, cleanup, cfg.Scheduler, logger.With("component", "scheduler"))
	if err := jobs.Register(ctx); err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}

	go logSnapshots(ctx, logger, stats)

	logger.Info("application started")
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := jobs.Stop(stopCtx); err != nil {
		logger.Warn("scheduler stop timed out", "error", err)
	}
	logger.Info("application stopped", stats.Snapshot()...)
	return nil
}

// logSnapshots emits the pipeline counters hourly.
func logSnapshots(ctx context.Context, logger *slog.Logger, stats *metrics.Metrics) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("pipeline status", stats.Snapshot()...)
		}
	}
}
