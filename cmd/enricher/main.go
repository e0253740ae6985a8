package main

import (
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"playreviews/internal/adapters/llm"
	"playreviews/internal/adapters/observability"
	"playreviews/internal/app"
	"playreviews/internal/shared"
	mysqlrepo "playreviews/internal/storage/mysql"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("enricher failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "enricher",
		Usage: "Classify synced reviews into the reviews_enriched table",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "full (rebuild and swap) or incremental (merge rows synced since the last run)",
				Value:   "incremental",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent model calls (defaults to ENRICH_WORKERS)",
			},
		},
		Before: func(c *cli.Context) error {
			m, err := parseMode(c.String("mode"))
			if err != nil {
				return err
			}
			return c.Set("mode", m)
		},
		Action: run,
	}
}

// parseMode accepts any case and any "full" prefix (full, FULL, full_refresh).
func parseMode(s string) (string, error) {
	m := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(m, "full"):
		return "full", nil
	case strings.HasPrefix(m, "incr"):
		return "incremental", nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

func run(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := shared.Load()
	if err != nil {
		return err
	}
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "enricher")
	observability.Serve(cfg.MetricsAddr)

	workers := cfg.EnrichWorkers
	if c.IsSet("workers") {
		workers = c.Int("workers")
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db.Ping: %w", err)
	}

	analyzer, err := llm.New(cfg.LLMBase, cfg.LLMModel, cfg.LLMToken)
	if err != nil {
		return fmt.Errorf("init llm: %w", err)
	}

	svc := app.NewEnrichmentService(mysqlrepo.New(db), analyzer, workers)
	rep, err := svc.Run(ctx, c.String("mode"))
	if err != nil {
		return err
	}
	log.Info().
		Str("result", rep.Result).
		Int("rows", rep.Rows).
		Int("analyzed", rep.Analyzed).
		Int("failed", rep.Failed).
		Msg("enrichment finished")
	return nil
}

