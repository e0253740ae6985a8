package shared_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"playreviews/internal/domain"
	"playreviews/internal/shared"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SYNC_APP_ID", "com.example")
	c, err := shared.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HTTPAddr != ":8080" || c.StateBackend != "mysql" || c.CacheTTL != 900*time.Second || c.EnrichWorkers != 4 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.RequestTimeout != 15*time.Second || c.LogLevel != "info" {
		t.Fatalf("unexpected http/log defaults: %v %q", c.RequestTimeout, c.LogLevel)
	}
	if len(c.ReviewsSorts) != 4 || c.ReviewsSorts[0] != domain.SortNewest {
		t.Fatalf("sorts = %v", c.ReviewsSorts)
	}
	if len(c.Targets) != 1 || c.Targets[0]["app_id"] != "com.example" || c.Targets[0]["lang"] != "" {
		t.Fatalf("targets = %v", c.Targets)
	}
}

func TestLoad_TargetsFromFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `targets:
  - app_id: com.telkomsel.telkomselcm
    lang: id
    country: id
    count: 200
    sort: newest
  - app_id: com.example
    lang: en
    country: us
`
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", file)
	t.Setenv("REVIEWS_SORTS", "newest, rating")

	c, err := shared.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Targets) != 2 || c.Targets[0]["count"] != "200" || c.Targets[1]["country"] != "us" {
		t.Fatalf("targets = %v", c.Targets)
	}
	if len(c.ReviewsSorts) != 2 || c.ReviewsSorts[1] != domain.SortRating {
		t.Fatalf("sorts = %v", c.ReviewsSorts)
	}
}

func TestLoad_Invalid(t *testing.T) {
	for name, env := range map[string][2]string{
		"unknown backend":         {"STATE_BACKEND", "sqlite"},
		"dynamodb without table":  {"STATE_BACKEND", "dynamodb"},
		"badger without dir":      {"STATE_BACKEND", "badger"},
		"non-positive rate limit": {"REVIEWS_RPS", "0"},
	} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			if _, err := shared.Load(); !errors.Is(err, domain.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
