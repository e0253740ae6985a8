package observability

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger returns the process logger tagged with service.
// APP_ENV=dev (or development) uses a human-friendly console writer; an unknown
// level falls back to info.
func NewLogger(env, level, service string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	var l zerolog.Logger
	if env == "dev" || env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		l = zerolog.New(os.Stdout)
	}
	return l.Level(lvl).With().Timestamp().Str("service", service).Logger()
}

// WithSyncRun derives the logger of one sync run and stores it on ctx, so fetch and
// page logs carry the run's fields.
func WithSyncRun(ctx context.Context, runID, stateKey string) (context.Context, zerolog.Logger) {
	l := CtxLogger(ctx).With().Str("run_id", runID).Str("state_key", stateKey).Logger()
	return l.WithContext(ctx), l
}

// CtxLogger returns the logger stored on ctx, or the global logger.
func CtxLogger(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return log.Logger
}
