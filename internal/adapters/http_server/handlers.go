// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"playreviews/internal/adapters/observability"
	"playreviews/internal/app"
	"playreviews/internal/domain"
)

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/apps/{appID}/reviews", h.listReviews)
	s.mux.Get("/v1/sync/state", h.syncState)
	s.mux.Get("/v1/sync/runs", h.listRuns)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not encode response")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func parseLimit(r *http.Request, def, maxLimit int) (int, bool) {
	ls := r.URL.Query().Get("limit")
	if ls == "" {
		return def, true
	}
	l, err := strconv.Atoi(ls)
	if err != nil || l <= 0 || l > maxLimit {
		return 0, false
	}
	return l, true
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appID")
	limit, ok := parseLimit(r, app.DefaultListLimit, app.MaxListLimit)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
		return
	}

	q := domain.ReviewsQuery{
		AppID:   appID,
		Lang:    strings.ToLower(r.URL.Query().Get("lang")),
		Country: strings.ToLower(r.URL.Query().Get("country")),
		Limit:   limit,
	}
	if q.Lang == "" {
		q.Lang = app.DefaultLang
	}
	if q.Country == "" {
		q.Country = app.DefaultCountry
	}

	out, err := h.Q.ListReviews(r.Context(), q)
	if err != nil {
		l := observability.CtxLogger(r.Context())
		l.Error().Err(err).Str("app_id", appID).Msg("list reviews failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not list reviews")
		return
	}
	if out.Items == nil {
		out.Items = []domain.Row{}
	}
	writeJSON(w, r, out)
}

func (h *Handlers) syncState(w http.ResponseWriter, r *http.Request) {
	st, err := h.Q.SyncState(r.Context())
	if err != nil {
		l := observability.CtxLogger(r.Context())
		l.Error().Err(err).Msg("load sync state failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not load sync state")
		return
	}
	writeJSON(w, r, st)
}

func (h *Handlers) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, 20, 100)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 100")
		return
	}
	runs, err := h.Q.ListRuns(r.Context(), limit)
	if err != nil {
		l := observability.CtxLogger(r.Context())
		l.Error().Err(err).Msg("list sync runs failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not list sync runs")
		return
	}
	if runs == nil {
		runs = []domain.RunRecord{}
	}
	writeJSON(w, r, map[string]any{"items": runs})
}
