package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"playreviews/internal/domain"
)

const namespace = "reviews"

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
}

// read API
var (
	HTTPRequests = counter("http_requests_total", "HTTP requests.", "route", "method", "status")
	HTTPLatency  = histogram("http_request_duration_seconds", "HTTP request duration seconds.", prometheus.DefBuckets, "route", "method")
	CacheEvents  = counter("cache_events_total", "Review cache events.", "cache", "event") // hit|miss|set|invalidate
)

// sync and enrichment
var (
	ExternalRequests = counter("external_requests_total", "Outbound requests.", "service", "endpoint", "status")
	ExternalLatency  = histogram("external_request_duration_seconds", "Outbound request duration seconds.", prometheus.DefBuckets, "service", "endpoint")
	SyncRuns         = counter("sync_runs_total", "Sync runs by result and error class.", "result", "err_type")
	SyncRecords      = counter("sync_records_total", "Fetched records by outcome.", "outcome") // fetched|processed|error
	SyncDuration     = histogram("sync_run_duration_seconds", "Wall time of one sync run.", prometheus.ExponentialBuckets(0.5, 2, 10), "result")
	SyncWatermark    = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "sync_watermark_timestamp_seconds",
		Help: "Creation time of the newest persisted review per state key.",
	}, []string{"state_key"})
	EnrichRows = counter("enrich_rows_total", "Enriched rows by outcome.", "outcome") // analyzed|failed
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequests, HTTPLatency, CacheEvents,
		ExternalRequests, ExternalLatency, SyncRuns, SyncRecords, SyncDuration, SyncWatermark, EnrichRows,
	}
}

func init() {
	// ingestor and enricher expose the default registry via Serve
	prometheus.MustRegister(ExternalRequests, ExternalLatency, SyncRuns, SyncRecords, SyncDuration, SyncWatermark, EnrichRows, CacheEvents)
}

// Serve exposes the default registry on addr in the background; a no-op when addr is empty.
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// InitRegistry returns a fresh registry holding every collector, for the API process.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors()...)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) {
	CacheEvents.WithLabelValues(cache, event).Inc()
}

// SyncRunSample is what one finished sync run reports.
type SyncRunSample struct {
	StateKey  string
	Err       error
	Fetched   int
	Processed int
	Errors    int
	Duration  time.Duration
	Watermark *time.Time
}

func ObserveSyncRun(s SyncRunSample) {
	result := domain.RunOK
	if s.Err != nil {
		result = domain.RunFailed
	}
	SyncRuns.WithLabelValues(result, LabelErr(s.Err)).Inc()
	SyncDuration.WithLabelValues(result).Observe(s.Duration.Seconds())
	SyncRecords.WithLabelValues("fetched").Add(float64(s.Fetched))
	SyncRecords.WithLabelValues("processed").Add(float64(s.Processed))
	SyncRecords.WithLabelValues("error").Add(float64(s.Errors))
	if s.Err == nil && s.Watermark != nil {
		SyncWatermark.WithLabelValues(s.StateKey).Set(float64(s.Watermark.Unix()))
	}
}

func ObserveEnrich(outcome string, n int) {
	EnrichRows.WithLabelValues(outcome).Add(float64(n))
}

// LabelErr classifies a run error for metrics and logs.
func LabelErr(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrUpstream):
		return "upstream"
	case errors.Is(err, domain.ErrInvalidConfig):
		return "invalid_config"
	default:
		return "internal"
	}
}
