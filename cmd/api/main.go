package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"contentgen/internal/adapter/repo"
	"contentgen/internal/db"
	"contentgen/internal/http/handlers"
	httpapi "contentgen/internal/http/httpapi"
	"contentgen/internal/infra"
	"contentgen/internal/infra/geoip"
	"contentgen/internal/jobs"
	"contentgen/internal/middleware"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")
	if err := cfg.RequireJWT(); err != nil {
		logger.Fatal().Err(err).Msg("api: invalid configuration")
	}

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, dbpool); err != nil {
			logger.Fatal().Err(err).Msg("api: migrate failed")
		}
	}

	runner := infra.NewSQLRunner(dbpool, logger)
	svc := jobs.NewService(
		repo.NewJobRepository(runner),
		repo.NewArtifactRepository(runner),
		repo.NewLedger(runner),
		jobs.Config{CostPerItem: cfg.CostPerItem, MaxTargetCount: cfg.MaxTargetCount},
		logger,
	)

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip disabled")
	}
	if resolver != nil {
		defer resolver.Close()
	}

	app := handlers.NewApp(svc, dbpool, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		JWT: middleware.JWTConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   30 * time.Second,
		},
		RateLimitPerMin:  cfg.RateLimitPerMin,
		CreateJobsPerMin: cfg.RateLimitJobsPerMin,
		AllowedOrigins:   cfg.AllowedOrigins,
		Negotiator:       middleware.NewNegotiator(cfg.SupportedLocales, "en"),
		Lookup:           resolver.Lookup(),
		Logger:           logger,
	})

	server := infra.NewHTTPServer(cfg, router, logger)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
