package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"playreviews/internal/adapters/observability"
)

func TestNewLogger_Level(t *testing.T) {
	if got := observability.NewLogger("prod", "warn", "ingestor").GetLevel(); got != zerolog.WarnLevel {
		t.Fatalf("level = %s", got)
	}
	if got := observability.NewLogger("prod", "chatty", "ingestor").GetLevel(); got != zerolog.InfoLevel {
		t.Fatalf("unknown level should fall back to info, got %s", got)
	}
}

func TestWithSyncRun_FieldsFollowContext(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	ctx, _ := observability.WithSyncRun(context.Background(), "run-1", "app|id|id|NEWEST")
	l := observability.CtxLogger(ctx)
	l.Info().Msg("page fetched")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["run_id"] != "run-1" || line["state_key"] != "app|id|id|NEWEST" {
		t.Fatalf("run fields missing: %v", line)
	}

	buf.Reset()
	plain := observability.CtxLogger(context.Background())
	plain.Info().Msg("no run")
	if bytes.Contains(buf.Bytes(), []byte("run_id")) {
		t.Fatalf("global logger picked up run fields: %s", buf.String())
	}
}
