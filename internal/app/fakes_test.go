package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"playreviews/internal/domain"
)

// ---- review source ----

// fakeSource serves a fixed newest-first review list in pages, honouring Count and Token.
type fakeSource struct {
	reviews  []domain.Review
	sorts    []domain.Sort
	failAt   int // 1-based page number that fails; 0 = never
	requests []domain.PageRequest
	maxPage  int // upstream page size ceiling; 0 = PageCap
}

func (f *fakeSource) SupportedSorts() []domain.Sort {
	if f.sorts == nil {
		return []domain.Sort{domain.SortNewest, domain.SortRating, domain.SortHelpful}
	}
	return f.sorts
}

func (f *fakeSource) FetchPage(ctx context.Context, req domain.PageRequest) (domain.Page, error) {
	f.requests = append(f.requests, req)
	if f.failAt > 0 && len(f.requests) == f.failAt {
		return domain.Page{}, errors.New("connection reset")
	}
	start := 0
	if req.Token != "" {
		fmt.Sscanf(req.Token, "off-%d", &start)
	}
	n := req.Count
	if f.maxPage > 0 && n > f.maxPage {
		n = f.maxPage
	}
	end := min(start+n, len(f.reviews))
	page := domain.Page{Reviews: append([]domain.Review(nil), f.reviews[start:end]...)}
	if end < len(f.reviews) {
		page.NextToken = fmt.Sprintf("off-%d", end)
	}
	return page, nil
}

// ---- row sink ----

type memorySink struct {
	mu    sync.Mutex
	rows  map[string]domain.Row
	fail  map[string]bool
	calls int
}

func newMemorySink() *memorySink {
	return &memorySink{rows: map[string]domain.Row{}, fail: map[string]bool{}}
}

func (s *memorySink) UpsertRow(ctx context.Context, r domain.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail[r.ReviewID] {
		return errors.New("warehouse rejected row")
	}
	s.rows[r.ReviewID] = r
	return nil
}

// ---- history ----

type fakeHistory struct{ runs []domain.RunRecord }

func (h *fakeHistory) RecordRun(ctx context.Context, r domain.RunRecord) error {
	h.runs = append(h.runs, r)
	return nil
}

func (h *fakeHistory) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	return h.runs, nil
}

// ---- state store ----

type memoryStateStore struct {
	state   domain.State
	saves   int
	saveErr error
}

func (m *memoryStateStore) Load(ctx context.Context) (domain.State, error) {
	return m.state.Clone(), nil
}

func (m *memoryStateStore) Save(ctx context.Context, s domain.State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.state = s.Clone()
	return nil
}

// ---- cache ----

// fakeCache keeps listings per locale; invalidation drops the whole locale.
type fakeCache struct {
	store       map[domain.Locale]map[int]domain.ReviewsPage
	invalidated []domain.Locale
}

func queryLocale(q domain.ReviewsQuery) domain.Locale {
	return domain.Locale{AppID: q.AppID, Lang: q.Lang, Country: q.Country}
}

func (c *fakeCache) GetReviews(ctx context.Context, q domain.ReviewsQuery) (domain.ReviewsPage, bool, error) {
	p, ok := c.store[queryLocale(q)][q.Limit]
	return p, ok, nil
}

func (c *fakeCache) PutReviews(ctx context.Context, q domain.ReviewsQuery, p domain.ReviewsPage, ttl time.Duration) error {
	if c.store == nil {
		c.store = map[domain.Locale]map[int]domain.ReviewsPage{}
	}
	loc := queryLocale(q)
	if c.store[loc] == nil {
		c.store[loc] = map[int]domain.ReviewsPage{}
	}
	c.store[loc][q.Limit] = p
	return nil
}

func (c *fakeCache) InvalidateLocale(ctx context.Context, loc domain.Locale) error {
	c.invalidated = append(c.invalidated, loc)
	delete(c.store, loc)
	return nil
}

// ---- helpers ----

func ptr[T any](v T) *T { return &v }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// reviewsDesc builds n reviews one minute apart, newest first, ending at base.
func reviewsDesc(n int, base time.Time) []domain.Review {
	out := make([]domain.Review, 0, n)
	for i := 0; i < n; i++ {
		at := base.Add(time.Duration(n-1-i) * time.Minute).Format(time.RFC3339)
		out = append(out, domain.Review{
			ReviewID: fmt.Sprintf("r%03d", n-i),
			Score:    ptr(5),
			Content:  ptr("great"),
			At:       ptr(at),
		})
	}
	return out
}

func entry(t interface{ Fatalf(string, ...any) }, st domain.State, key string) domain.SyncState {
	raw, ok := st[key]
	if !ok {
		t.Fatalf("no state entry for %q", key)
	}
	var out domain.SyncState
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	return out
}
