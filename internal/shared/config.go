package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"playreviews/internal/domain"
)

type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPAddr       string        `validate:"required"`
	RequestTimeout time.Duration `validate:"gt=0"`
	MetricsAddr    string
	MySQLDSN       string `validate:"required"`
	RedisAddr      string
	RedisDB        int `validate:"gte=0"`
	RedisPass      string

	ReviewsBase  string `validate:"required,url"`
	ReviewsKey   string
	ReviewsRPS   int `validate:"gt=0"`
	ReviewsSorts []domain.Sort

	StateBackend string `validate:"oneof=mysql redis badger dynamodb"`
	BadgerDir    string `validate:"required_if=StateBackend badger"`
	DynamoTable  string `validate:"required_if=StateBackend dynamodb"`
	AWSRegion    string

	// Schedule is a cron spec; empty runs every target once and exits.
	Schedule string
	// Targets are raw connector configs, text-valued, parsed by app.ParseSyncConfig.
	Targets []map[string]string `validate:"min=1"`

	CacheTTL time.Duration

	LLMBase       string
	LLMModel      string
	LLMToken      string
	EnrichWorkers int `validate:"gt=0"`
}

var validate = validator.New()

// Load reads the environment, plus the YAML file named by CONFIG_FILE when set.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for k, def := range map[string]any{
		"APP_ENV":            "prod",
		"LOG_LEVEL":          "info",
		"HTTP_ADDR":          ":8080",
		"HTTP_TIMEOUT_SECS":  15,
		"METRICS_ADDR":       ":9100",
		"MYSQL_DSN":          "root:root@tcp(localhost:3306)/reviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		"REDIS_ADDR":         "localhost:6379",
		"REDIS_PASSWORD":     "",
		"REDIS_DB":           0,
		"REVIEWS_BASE_URL":   "http://localhost:8000",
		"REVIEWS_API_KEY":    "",
		"REVIEWS_RPS":        5,
		"REVIEWS_SORTS":      "NEWEST,RATING,HELPFUL,MOST_RELEVANT",
		"STATE_BACKEND":      "mysql",
		"STATE_BADGER_DIR":   "",
		"STATE_DYNAMO_TABLE": "",
		"AWS_REGION":         "us-east-1",
		"SYNC_SCHEDULE":      "",
		"CACHE_TTL_SECONDS":  900,
		"LLM_BASE_URL":       "",
		"LLM_MODEL":          "gpt-4o-mini",
		"LLM_TOKEN":          "",
		"ENRICH_WORKERS":     4,
	} {
		v.SetDefault(k, def)
	}

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %w", domain.ErrInvalidConfig, file, err)
		}
	}

	c := Config{
		AppEnv:         v.GetString("APP_ENV"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		HTTPAddr:       v.GetString("HTTP_ADDR"),
		RequestTimeout: time.Duration(v.GetInt("HTTP_TIMEOUT_SECS")) * time.Second,
		MetricsAddr:    v.GetString("METRICS_ADDR"),
		MySQLDSN:       v.GetString("MYSQL_DSN"),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		RedisDB:        v.GetInt("REDIS_DB"),
		RedisPass:      v.GetString("REDIS_PASSWORD"),
		ReviewsBase:    v.GetString("REVIEWS_BASE_URL"),
		ReviewsKey:     v.GetString("REVIEWS_API_KEY"),
		ReviewsRPS:     v.GetInt("REVIEWS_RPS"),
		ReviewsSorts:   parseSorts(v.GetString("REVIEWS_SORTS")),
		StateBackend:   strings.ToLower(v.GetString("STATE_BACKEND")),
		BadgerDir:      v.GetString("STATE_BADGER_DIR"),
		DynamoTable:    v.GetString("STATE_DYNAMO_TABLE"),
		AWSRegion:      v.GetString("AWS_REGION"),
		Schedule:       v.GetString("SYNC_SCHEDULE"),
		Targets:        targets(v),
		CacheTTL:       time.Duration(v.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		LLMBase:        v.GetString("LLM_BASE_URL"),
		LLMModel:       v.GetString("LLM_MODEL"),
		LLMToken:       v.GetString("LLM_TOKEN"),
		EnrichWorkers:  v.GetInt("ENRICH_WORKERS"),
	}
	if err := validate.Struct(c); err != nil {
		return Config{}, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	if c.ReviewsKey == "" {
		log.Warn().Msg("REVIEWS_API_KEY is empty")
	}
	return c, nil
}

// targets reads the file's `targets` list; without one, a single target comes from SYNC_*.
func targets(v *viper.Viper) []map[string]string {
	var out []map[string]string
	if raw, ok := v.Get("targets").([]any); ok {
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			t := make(map[string]string, len(m))
			for k, val := range m {
				if val != nil {
					t[strings.ToLower(k)] = fmt.Sprint(val)
				}
			}
			out = append(out, t)
		}
	}
	if len(out) > 0 {
		return out
	}
	return []map[string]string{{
		"app_id":  v.GetString("SYNC_APP_ID"),
		"lang":    v.GetString("SYNC_LANG"),
		"country": v.GetString("SYNC_COUNTRY"),
		"count":   v.GetString("SYNC_COUNT"),
		"sort":    v.GetString("SYNC_SORT"),
	}}
}

func parseSorts(s string) []domain.Sort {
	var out []domain.Sort
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, domain.Sort(p))
		}
	}
	return out
}
