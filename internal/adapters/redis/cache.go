package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"playreviews/internal/adapters/observability"
	"playreviews/internal/domain"
)

// Cache holds review listings under a per-locale generation:
//
//	reviews:gen:{app}:{lang}:{country}            -> generation counter
//	reviews:{app}:{lang}:{country}:g{gen}:{limit} -> JSON ReviewsPage
//
// Bumping the generation orphans every cached limit of that locale at once; the
// orphans age out through their TTL.
type Cache struct{ c *redis.Client }

func NewFromClient(c *redis.Client) *Cache { return &Cache{c: c} }

func localePart(appID, lang, country string) string {
	return appID + ":" + strings.ToLower(lang) + ":" + strings.ToLower(country)
}

func genKey(appID, lang, country string) string {
	return "reviews:gen:" + localePart(appID, lang, country)
}

func (r *Cache) generation(ctx context.Context, q domain.ReviewsQuery) (int64, error) {
	g, err := r.c.Get(ctx, genKey(q.AppID, q.Lang, q.Country)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return g, err
}

func (r *Cache) pageKey(ctx context.Context, q domain.ReviewsQuery) (string, error) {
	g, err := r.generation(ctx, q)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("reviews:%s:g%d:%d", localePart(q.AppID, q.Lang, q.Country), g, q.Limit), nil
}

func (r *Cache) GetReviews(ctx context.Context, q domain.ReviewsQuery) (domain.ReviewsPage, bool, error) {
	key, err := r.pageKey(ctx, q)
	if err != nil {
		return domain.ReviewsPage{}, false, err
	}
	v, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCache("redis", "miss")
		return domain.ReviewsPage{}, false, nil
	}
	if err != nil {
		return domain.ReviewsPage{}, false, err
	}
	var out domain.ReviewsPage
	if err := json.Unmarshal(v, &out); err != nil {
		return domain.ReviewsPage{}, false, fmt.Errorf("decode cached reviews %s: %w", key, err)
	}
	observability.ObserveCache("redis", "hit")
	return out, true, nil
}

func (r *Cache) PutReviews(ctx context.Context, q domain.ReviewsQuery, p domain.ReviewsPage, ttl time.Duration) error {
	key, err := r.pageKey(ctx, q)
	if err != nil {
		return err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, key, b, ttl).Err()
}

// InvalidateLocale drops every cached listing of loc, whatever its limit.
func (r *Cache) InvalidateLocale(ctx context.Context, loc domain.Locale) error {
	observability.ObserveCache("redis", "invalidate")
	return r.c.Incr(ctx, genKey(loc.AppID, loc.Lang, loc.Country)).Err()
}
