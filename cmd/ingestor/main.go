package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"playreviews/internal/adapters/observability"
	"playreviews/internal/adapters/playstore"
	redisad "playreviews/internal/adapters/redis"
	"playreviews/internal/adapters/scheduler"
	"playreviews/internal/app"
	"playreviews/internal/shared"
	mysqlrepo "playreviews/internal/storage/mysql"
	"playreviews/internal/storage/statestore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "ingestor")
	observability.Serve(cfg.MetricsAddr)

	targets, err := app.ParseTargets(cfg.Targets)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid sync target")
	}

	log.Info().
		Str("base", cfg.ReviewsBase).
		Str("state_backend", cfg.StateBackend).
		Int("targets", len(targets)).
		Str("schedule", cfg.Schedule).
		Msg("ingestor starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
	state, closeState, err := statestore.Open(ctx, cfg, db, rdb)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StateBackend).Msg("open state store failed")
	}
	defer closeState()

	client, err := playstore.New(cfg.ReviewsBase, cfg.ReviewsKey, cfg.ReviewsRPS, cfg.ReviewsSorts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize review source client")
	}

	svc := app.NewSyncService(client, mysqlrepo.New(db), mysqlrepo.NewHistory(db))
	runner := app.NewRunner(svc, state, redisad.NewFromClient(rdb), targets)

	if cfg.Schedule == "" {
		reports, err := runner.RunAll(ctx)
		for _, r := range reports {
			log.Info().
				Str("state_key", r.StateKey).
				Int("fetched", r.Fetched).
				Int("processed", r.Processed).
				Int("errors", r.Errors).
				Msg("target synced")
		}
		if err != nil {
			log.Error().Err(err).Msg("ingestion finished with errors")
			closeState()
			os.Exit(1)
		}
		log.Info().Msg("ingestion completed")
		return
	}

	sched, err := scheduler.New(cfg.Schedule, func(ctx context.Context) error {
		_, err := runner.RunAll(ctx)
		return err
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid SYNC_SCHEDULE")
	}
	if err := sched.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("scheduler failed")
	}
}
