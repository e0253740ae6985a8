package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	server "playreviews/internal/adapters/http_server"
	"playreviews/internal/adapters/observability"
	redisad "playreviews/internal/adapters/redis"
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

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "api")

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
	repo := mysqlrepo.New(db)
	state, closeState, err := statestore.Open(ctx, cfg, db, rdb)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StateBackend).Msg("open state store failed")
	}
	defer closeState()
	q := app.NewQueryService(repo, redisad.NewFromClient(rdb), cfg.CacheTTL, state, mysqlrepo.NewHistory(db))

	// http
	srv := server.New(cfg.RequestTimeout)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q})

	if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
