// internal/adapters/playstore/client.go
package playstore

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"playreviews/internal/adapters/observability"
	"playreviews/internal/domain"
)

// Client talks to the review scraping gateway:
//
//	GET {base}/apps/{appID}/reviews?lang=&country=&sort=&count=&continuation_token=
//
// and returns {"reviews": [...], "next_token": "..."}.
type Client struct {
	base  string
	hc    *http.Client
	key   string
	rl    *rate.Limiter
	sorts []domain.Sort
}

func New(base, key string, rps int, sorts []domain.Sort) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	if len(sorts) == 0 {
		sorts = []domain.Sort{domain.SortNewest, domain.SortRating, domain.SortHelpful, domain.SortMostRelevant}
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		hc:    &http.Client{Timeout: 20 * time.Second},
		key:   key,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
		sorts: sorts,
	}, nil
}

func (c *Client) SupportedSorts() []domain.Sort {
	return append([]domain.Sort(nil), c.sorts...)
}

// reviews stay raw so one malformed record cannot fail the page
type pageBody struct {
	Reviews   []json.RawMessage `json:"reviews"`
	NextToken string            `json:"next_token"`
}

func (c *Client) FetchPage(ctx context.Context, req domain.PageRequest) (domain.Page, error) {
	q := url.Values{}
	q.Set("lang", req.Lang)
	q.Set("country", req.Country)
	q.Set("sort", req.Sort.String())
	q.Set("count", strconv.Itoa(req.Count))
	if req.Token != "" {
		q.Set("continuation_token", req.Token)
	}
	u := fmt.Sprintf("%s/apps/%s/reviews?%s", c.base, url.PathEscape(req.AppID), q.Encode())

	var body pageBody
	if err := c.get(ctx, u, &body); err != nil {
		return domain.Page{}, err
	}
	page := domain.Page{Reviews: make([]domain.Review, 0, len(body.Reviews)), NextToken: body.NextToken}
	for _, raw := range body.Reviews {
		page.Reviews = append(page.Reviews, domain.DecodeReview(raw))
	}
	return page, nil
}

// ---- Internals ----

var (
	ErrNotFound     = errors.New("playstore: app not found")
	ErrUnauthorized = errors.New("playstore: unauthorized")
	ErrForbidden    = errors.New("playstore: forbidden")
)

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, u string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("X-API-Key", c.key)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "playreviews/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("playstore", "reviews", 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("playstore", "reviews", resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode reviews page: %w", err)
			}
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns false if ctx is done first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). 0 if absent or invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
