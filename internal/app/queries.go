package app

import (
	"context"
	"encoding/json"
	"time"

	"playreviews/internal/adapters/observability"
	"playreviews/internal/domain"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type QueryService struct {
	repo     domain.ReviewRepository
	cache    domain.ReviewCache
	cacheTTL time.Duration
	state    domain.StateStore
	history  domain.RunHistory
}

func NewQueryService(r domain.ReviewRepository, c domain.ReviewCache, ttl time.Duration, st domain.StateStore, h domain.RunHistory) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl, state: st, history: h}
}

func (s *QueryService) ListReviews(ctx context.Context, q domain.ReviewsQuery) (domain.ReviewsPage, error) {
	if out, ok, err := s.cache.GetReviews(ctx, q); err != nil {
		l := observability.CtxLogger(ctx)
		l.Warn().Err(err).Str("app_id", q.AppID).Msg("review cache read failed")
	} else if ok {
		return out, nil
	}

	rs, err := s.repo.ListReviews(ctx, q)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	// the caller may mutate the page; keep the repo's rows untouched
	out := cloneReviewsPage(rs)

	if b, _ := json.Marshal(out); len(b) < 1_000_000 {
		_ = s.cache.PutReviews(ctx, q, out, s.cacheTTL)
	}
	return out, nil
}

// SyncState returns the persisted mapping as stored.
func (s *QueryService) SyncState(ctx context.Context) (domain.State, error) {
	st, err := s.state.Load(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = domain.State{}
	}
	return st, nil
}

func (s *QueryService) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if s.history == nil {
		return []domain.RunRecord{}, nil
	}
	return s.history.ListRuns(ctx, limit)
}

func cloneReviewsPage(in domain.ReviewsPage) domain.ReviewsPage {
	var out domain.ReviewsPage
	if len(in.Items) > 0 {
		out.Items = make([]domain.Row, len(in.Items))
		for i, r := range in.Items {
			out.Items[i] = cloneRow(r)
		}
	}
	return out
}

func cloneRow(r domain.Row) domain.Row {
	r.UserName = clonePtr(r.UserName)
	r.Score = clonePtr(r.Score)
	r.ThumbsUpCount = clonePtr(r.ThumbsUpCount)
	r.Content = clonePtr(r.Content)
	r.ReplyContent = clonePtr(r.ReplyContent)
	r.AppVersion = clonePtr(r.AppVersion)
	r.ReviewedAt = clonePtr(r.ReviewedAt)
	r.RepliedAt = clonePtr(r.RepliedAt)
	if r.Criteria != nil {
		r.Criteria = append(json.RawMessage(nil), r.Criteria...)
	}
	return r
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
