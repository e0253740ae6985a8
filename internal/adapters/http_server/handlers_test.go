package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpserver "playreviews/internal/adapters/http_server"
	"playreviews/internal/app"
	"playreviews/internal/domain"
)

type stubRepo struct{ last domain.ReviewsQuery }

func (s *stubRepo) UpsertRow(ctx context.Context, r domain.Row) error { return nil }
func (s *stubRepo) ListReviews(ctx context.Context, q domain.ReviewsQuery) (domain.ReviewsPage, error) {
	s.last = q
	return domain.ReviewsPage{Items: []domain.Row{{ReviewID: "r1", AppID: q.AppID, Lang: q.Lang, Country: q.Country}}}, nil
}

type nopCache struct{}

func (nopCache) GetReviews(ctx context.Context, q domain.ReviewsQuery) (domain.ReviewsPage, bool, error) {
	return domain.ReviewsPage{}, false, nil
}
func (nopCache) PutReviews(ctx context.Context, q domain.ReviewsQuery, p domain.ReviewsPage, ttl time.Duration) error {
	return nil
}
func (nopCache) InvalidateLocale(ctx context.Context, loc domain.Locale) error { return nil }

type stubState struct{ st domain.State }

func (s stubState) Load(ctx context.Context) (domain.State, error) { return s.st, nil }
func (s stubState) Save(ctx context.Context, st domain.State) error { return nil }

func newTestServer(repo *stubRepo) http.Handler {
	st := domain.State{"app.x|id|id|NEWEST": json.RawMessage(`{"last_at_iso":"2024-01-01T00:00:00+00:00","processed":3}`)}
	q := app.NewQueryService(repo, nopCache{}, time.Minute, stubState{st: st}, nil)
	srv := httpserver.New(0)
	srv.MountHandlers(&httpserver.Handlers{Q: q})
	return srv.Mux()
}

func TestListReviews_DefaultsAndETag(t *testing.T) {
	repo := &stubRepo{}
	h := newTestServer(repo)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/apps/app.x/reviews", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	if repo.last.Limit != app.DefaultListLimit || repo.last.Lang != "id" || repo.last.Country != "id" || repo.last.AppID != "app.x" {
		t.Fatalf("unexpected query %+v", repo.last)
	}
	var body struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || len(body.Items) != 1 || body.Items[0]["review_id"] != "r1" {
		t.Fatalf("unexpected body %s (%v)", rr.Body.String(), err)
	}

	etag := rr.Header().Get("ETag")
	req := httptest.NewRequest("GET", "/v1/apps/app.x/reviews", nil)
	req.Header.Set("If-None-Match", etag)
	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, req)
	if rr2.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rr2.Code)
	}
}

func TestListReviews_BadLimit(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestServer(&stubRepo{}).ServeHTTP(rr, httptest.NewRequest("GET", "/v1/apps/app.x/reviews?limit=500", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/problem+json") {
		t.Fatalf("content type %s", ct)
	}
}

func TestSyncState(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestServer(&stubRepo{}).ServeHTTP(rr, httptest.NewRequest("GET", "/v1/sync/state", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var st map[string]map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st["app.x|id|id|NEWEST"]["processed"] != 3.0 {
		t.Fatalf("unexpected state %v", st)
	}
}

func TestListRuns_EmptyWithoutHistory(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestServer(&stubRepo{}).ServeHTTP(rr, httptest.NewRequest("GET", "/v1/sync/runs", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"items":[]`) {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
}
