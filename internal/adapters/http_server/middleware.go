package httpserver

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"playreviews/internal/adapters/observability"
)

func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return http.TimeoutHandler(next, d, "timeout") }
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *statusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Observe records request metrics and writes one access line per request. Handlers
// find a request-scoped logger (request_id) on the context via observability.CtxLogger.
func Observe(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := base.With().Str("request_id", chimw.GetReqID(r.Context())).Logger()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(l.WithContext(r.Context())))
			dur := time.Since(start)

			route := r.URL.Path
			rctx := chi.RouteContext(r.Context())
			if rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			observability.ObserveHTTP(route, r.Method, rec.Status(), dur)

			ev := l.Info()
			switch {
			case rec.Status() >= 500:
				ev = l.Error()
			case rec.Status() >= 400:
				ev = l.Warn()
			}
			if rctx != nil {
				if app := rctx.URLParam("appID"); app != "" {
					ev = ev.Str("app_id", app)
				}
			}
			q := r.URL.Query()
			for _, k := range []string{"lang", "country", "limit"} {
				if v := q.Get(k); v != "" {
					ev = ev.Str(k, v)
				}
			}
			ev.Str("route", route).
				Str("method", r.Method).
				Int("status", rec.Status()).
				Int("bytes", rec.bytes).
				Dur("duration", dur).
				Str("remote", clientIP(r)).
				Msg("http_request")
		})
	}
}

// RealIP has already rewritten RemoteAddr from the forwarding headers.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
