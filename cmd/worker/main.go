package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"contentgen/internal/adapter/repo"
	"contentgen/internal/audit"
	"contentgen/internal/infra"
	"contentgen/internal/infra/credentials"
	"contentgen/internal/notify"
	"contentgen/internal/orchestrator"
	"contentgen/internal/providers/writer"
	"contentgen/internal/queue"
	"contentgen/internal/reference"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("worker: redis unavailable, running without cache and pub/sub")
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	w, summarizer, err := writer.New(ctx, writer.Options{
		Provider:      cfg.WriterProvider,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIModel:   cfg.OpenAIModel,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIOrg:     cfg.OpenAIOrg,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		GeminiBaseURL: cfg.GeminiBaseURL,
		Timeout:       cfg.WriterTimeout,
		Keys:          credentials.NewStore(runner),
		OnWarning: func(reason, detail string) {
			logger.Warn().Str("reason", reason).Str("detail", detail).Msg("worker: writer configuration adjusted")
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure writer")
	}
	logger.Info().Str("provider", w.Name()).Msg("worker: writer ready")

	jobRepo := repo.NewJobRepository(runner)
	artifactRepo := repo.NewArtifactRepository(runner)

	refOpts := reference.Options{
		Repo:       repo.NewReferenceRepository(runner),
		Summarizer: summarizer,
		Logger:     &logger,
		CacheTTL:   cfg.ReferenceCacheTTL,
	}
	sinks := notify.Multi{notify.NewLogNotifier(logger)}
	if rdb != nil {
		refOpts.Cache = reference.NewRedisCache(rdb, "")
		sinks = append(sinks, notify.NewRedisNotifier(rdb, cfg.RedisChannel))
	}
	notifier := notify.NewAsync(sinks, logger, 0)

	items := orchestrator.NewItemGenerator(
		artifactRepo,
		w,
		audit.NewRecorder(repo.NewUsageRepository(runner), logger),
		logger,
	)
	orch := orchestrator.New(orchestrator.Config{
		MaxRetry:          cfg.MaxRetry,
		BatchSize:         cfg.BatchSize,
		SingleItemTimeout: cfg.SingleItemTimeout,
		TotalTimeout:      cfg.TotalTimeout,
		RetryDelay:        cfg.RetryDelay,
		BatchDelay:        cfg.BatchDelay,
		ErrorMaxLen:       cfg.ErrorMaxLen,
		Lease:             cfg.WorkerLease,
	}, orchestrator.Deps{
		Jobs:       jobRepo,
		Artifacts:  artifactRepo,
		Ledger:     repo.NewLedger(runner),
		Items:      items,
		References: reference.NewService(refOpts),
		Notifier:   notifier,
		Logger:     &logger,
	})

	queue.NewPool(jobRepo, orch, queue.Options{
		Concurrency:  cfg.WorkerConcurrency,
		PollInterval: cfg.WorkerPollInterval,
		Lease:        cfg.WorkerLease,
		Logger:       &logger,
	}).Run(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := notifier.Wait(drainCtx); err != nil {
		logger.Warn().Err(err).Msg("worker: pending notifications dropped")
	}
	logger.Info().Msg("worker: stopped")
}
