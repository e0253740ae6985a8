package app

import (
	"context"
	"fmt"
	"time"

	"playreviews/internal/adapters/observability"
	"playreviews/internal/domain"
)

// PageCap is the most records the upstream returns per page.
const PageCap = 200

type FetchRequest struct {
	Locale domain.Locale
	Sort   domain.Sort
	Max    int
	// Since is the prior watermark; records at or before it end the fetch.
	Since *time.Time
}

// fetchAcc is the state threaded through successive page requests.
type fetchAcc struct {
	out   []domain.Review
	token string
	done  bool
}

// FetchReviews pages through src newest first until Max records are collected,
// the cutoff is reached, or the upstream has no more pages.
func FetchReviews(ctx context.Context, src domain.ReviewSource, req FetchRequest) ([]domain.Review, error) {
	l := observability.CtxLogger(ctx).With().
		Str("app_id", req.Locale.AppID).
		Str("lang", req.Locale.Lang).
		Str("country", req.Locale.Country).
		Str("sort", req.Sort.String()).
		Int("max", req.Max).
		Logger()
	l.Info().Msg("fetching reviews")
	if req.Since != nil {
		l.Info().Str("since", domain.FormatTimestamp(*req.Since)).Msg("incremental cutoff")
	}

	var acc fetchAcc
	pages := 0
	for !acc.done {
		remaining := req.Max - len(acc.out)
		if remaining <= 0 {
			break
		}
		page, err := src.FetchPage(ctx, domain.PageRequest{
			AppID:   req.Locale.AppID,
			Lang:    req.Locale.Lang,
			Country: req.Locale.Country,
			Sort:    req.Sort,
			Count:   min(PageCap, remaining),
			Token:   acc.token,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", domain.ErrUpstream, pages+1, err)
		}
		pages++
		acc = acc.fold(page, req)
	}

	l.Info().Int("pages", pages).Int("fetched", len(acc.out)).Msg("fetch finished")
	return acc.out, nil
}

func (a fetchAcc) fold(p domain.Page, req FetchRequest) fetchAcc {
	for _, r := range p.Reviews {
		if len(a.out) >= req.Max {
			a.done = true
			return a
		}
		if req.Since != nil {
			// unparsable or missing timestamps are not comparable and never stop the fetch
			if at := domain.ParseTimestamp(r.At); at != nil && !at.After(*req.Since) {
				a.done = true
				return a
			}
		}
		a.out = append(a.out, r)
	}
	a.token = p.NextToken
	a.done = p.NextToken == "" || len(p.Reviews) == 0
	return a
}
