package app_test

import (
	"context"
	"testing"
	"time"

	"playreviews/internal/app"
	"playreviews/internal/domain"
)

type fakeRepo struct {
	rp    domain.ReviewsPage
	calls int
}

func (f *fakeRepo) UpsertRow(ctx context.Context, r domain.Row) error { return nil }
func (f *fakeRepo) ListReviews(ctx context.Context, q domain.ReviewsQuery) (domain.ReviewsPage, error) {
	f.calls++
	return f.rp, nil
}

func TestListReviews_Cache(t *testing.T) {
	repo := &fakeRepo{
		rp: domain.ReviewsPage{Items: []domain.Row{
			{ReviewID: "r1", AppID: "app.x", UserName: ptr("Ana")},
		}},
	}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute, &memoryStateStore{}, nil)
	query := domain.ReviewsQuery{AppID: "app.x", Lang: "id", Country: "id", Limit: 10}

	out, err := q.ListReviews(context.Background(), query)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out.Items) != 1 || deref(out.Items[0].UserName) != "Ana" {
		t.Fatalf("unexpected reviews: %+v", out.Items)
	}

	// Change repo, call again -> should come from cache
	repo.rp.Items[0].UserName = ptr("Changed")
	out2, _ := q.ListReviews(context.Background(), query)
	if deref(out2.Items[0].UserName) != "Ana" {
		t.Fatalf("expected cached author Ana, got %s", deref(out2.Items[0].UserName))
	}
	if repo.calls != 1 {
		t.Fatalf("expected one repo call, got %d", repo.calls)
	}
}

func TestSyncState_EmptyStore(t *testing.T) {
	q := app.NewQueryService(&fakeRepo{}, &fakeCache{}, time.Minute, &memoryStateStore{}, nil)
	st, err := q.SyncState(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if st == nil || len(st) != 0 {
		t.Fatalf("expected empty mapping, got %v", st)
	}
	runs, err := q.ListRuns(context.Background(), 10)
	if err != nil || len(runs) != 0 {
		t.Fatalf("expected no runs without history, got %v %v", runs, err)
	}
}

func TestListReviews_ResultDoesNotAliasRepo(t *testing.T) {
	repo := &fakeRepo{rp: domain.ReviewsPage{Items: []domain.Row{
		{ReviewID: "r1", Content: ptr("asli"), Criteria: []byte(`[1]`)},
	}}}
	q := app.NewQueryService(repo, &fakeCache{}, time.Minute, &memoryStateStore{}, nil)

	out, err := q.ListReviews(context.Background(), domain.ReviewsQuery{AppID: "app.x", Limit: 5})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	*out.Items[0].Content = "diubah"
	out.Items[0].Criteria[0] = '{'
	if deref(repo.rp.Items[0].Content) != "asli" || string(repo.rp.Items[0].Criteria) != `[1]` {
		t.Fatalf("listing aliases repository rows: %+v", repo.rp.Items[0])
	}
}
