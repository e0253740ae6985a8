package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"playreviews/internal/adapters/observability"
	"playreviews/internal/domain"
)

// Enrichment results
const (
	EnrichFullRefreshDone = "FULL_REFRESH_DONE"
	EnrichMergeDone       = "INCREMENTAL_MERGE_DONE"
	EnrichNoDelta         = "NO_DELTA"
)

// sentiment scores beyond these bounds leave the neutral bucket
const (
	positiveAbove = 0.2
	negativeBelow = -0.2
)

type EnrichReport struct {
	Result   string
	Rows     int
	Analyzed int
	Failed   int
}

type EnrichmentService struct {
	repo     domain.EnrichedRepository
	analyzer domain.TextAnalyzer
	workers  int
}

func NewEnrichmentService(repo domain.EnrichedRepository, a domain.TextAnalyzer, workers int) *EnrichmentService {
	if workers <= 0 {
		workers = 4
	}
	return &EnrichmentService{repo: repo, analyzer: a, workers: workers}
}

// Run rebuilds the enriched table ("full...") or merges the rows synced since the last
// enrichment (anything else).
func (s *EnrichmentService) Run(ctx context.Context, mode string) (EnrichReport, error) {
	if err := s.repo.EnsureEnrichedTable(ctx); err != nil {
		return EnrichReport{}, fmt.Errorf("ensure enriched table: %w", err)
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(mode)), "full") {
		return s.fullRefresh(ctx)
	}
	return s.incrementalMerge(ctx)
}

func (s *EnrichmentService) fullRefresh(ctx context.Context) (EnrichReport, error) {
	rows, err := s.repo.SourceRows(ctx, nil)
	if err != nil {
		return EnrichReport{}, fmt.Errorf("read source rows: %w", err)
	}
	out, rep, err := s.enrichAll(ctx, rows)
	if err != nil {
		return rep, err
	}
	if err := s.repo.ReplaceEnriched(ctx, out); err != nil {
		return rep, fmt.Errorf("replace enriched table: %w", err)
	}
	rep.Result = EnrichFullRefreshDone
	return rep, nil
}

func (s *EnrichmentService) incrementalMerge(ctx context.Context) (EnrichReport, error) {
	since, err := s.repo.EnrichedWatermark(ctx)
	if err != nil {
		return EnrichReport{}, fmt.Errorf("read enriched watermark: %w", err)
	}
	rows, err := s.repo.SourceRows(ctx, since)
	if err != nil {
		return EnrichReport{}, fmt.Errorf("read source rows: %w", err)
	}
	if len(rows) == 0 {
		return EnrichReport{Result: EnrichNoDelta}, nil
	}
	out, rep, err := s.enrichAll(ctx, rows)
	if err != nil {
		return rep, err
	}
	if err := s.repo.UpsertEnriched(ctx, out); err != nil {
		return rep, fmt.Errorf("merge enriched rows: %w", err)
	}
	rep.Result = EnrichMergeDone
	return rep, nil
}

// enrichAll analyzes rows with at most s.workers model calls in flight. A failed
// analysis leaves that row's model columns empty.
func (s *EnrichmentService) enrichAll(ctx context.Context, rows []domain.Row) ([]domain.EnrichedReview, EnrichReport, error) {
	out := make([]domain.EnrichedReview, len(rows))
	sem := semaphore.NewWeighted(int64(s.workers))
	var (
		wg               sync.WaitGroup
		analyzed, failed atomic.Int64
	)

	for i, r := range rows {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, EnrichReport{Rows: len(rows)}, err
		}
		wg.Add(1)
		go func(i int, r domain.Row) {
			defer wg.Done()
			defer sem.Release(1)

			var a domain.Analysis
			if text := cleanContent(r.Content); text != "" {
				res, err := s.analyzer.Analyze(ctx, text)
				if err != nil {
					failed.Add(1)
					log.Warn().Err(err).Str("review_id", r.ReviewID).Msg("analyze review failed")
				} else {
					analyzed.Add(1)
					a = res
				}
			}
			out[i] = Enrich(r, a)
		}(i, r)
	}
	wg.Wait()

	rep := EnrichReport{Rows: len(rows), Analyzed: int(analyzed.Load()), Failed: int(failed.Load())}
	observability.ObserveEnrich("analyzed", rep.Analyzed)
	observability.ObserveEnrich("failed", rep.Failed)
	log.Info().Int("rows", rep.Rows).Int("analyzed", rep.Analyzed).Int("failed", rep.Failed).Msg("enrichment pass finished")
	return out, rep, nil
}

// Enrich derives the enriched form of a stored row from the model's analysis.
func Enrich(r domain.Row, a domain.Analysis) domain.EnrichedReview {
	e := domain.EnrichedReview{
		ReviewID:         r.ReviewID,
		AppID:            r.AppID,
		Country:          r.Country,
		Lang:             r.Lang,
		AppVersion:       r.AppVersion,
		UserName:         r.UserName,
		ThumbsUpCount:    r.ThumbsUpCount,
		ReviewedTS:       domain.ParseTimestamp(r.ReviewedAt),
		RepliedTS:        domain.ParseTimestamp(r.RepliedAt),
		IsReplied:        r.RepliedAt != nil && strings.TrimSpace(*r.RepliedAt) != "",
		TopicClass:       normalizeTopic(a.Topic),
		SentimentScore:   a.Sentiment,
		SatisfactionText: a.SatisfactionText,
	}
	if c := cleanContent(r.Content); c != "" {
		e.Content = &c
	}
	if r.Score != nil {
		f := float64(*r.Score)
		e.StarScore = &f
	}
	if t := domain.ParseTimestamp(&r.SyncedAt); t != nil {
		e.SourceSyncedAt = *t
	}
	e.SentimentBucket = SentimentBucket(a.Sentiment)
	e.SatisfactionLabel = SatisfactionLabel(a.SatisfactionText)
	if e.ReviewedTS != nil && e.RepliedTS != nil {
		// minute boundaries crossed, like DATEDIFF('minute', ...)
		d := e.RepliedTS.Truncate(time.Minute).Sub(e.ReviewedTS.Truncate(time.Minute))
		m := int64(d / time.Minute)
		e.ReplyLatencyMin = &m
	}
	return e
}

func SentimentBucket(score *float64) string {
	switch {
	case score == nil:
		return domain.SentimentNeutral
	case *score > positiveAbove:
		return domain.SentimentPositive
	case *score < negativeBelow:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

// SatisfactionLabel reads the model's free-text answer. Negative phrasings are
// checked first since they contain the positive word.
func SatisfactionLabel(text *string) string {
	if text == nil {
		return domain.Neutral
	}
	t := strings.ToLower(*text)
	for _, neg := range []string{"not satisfied", "dissatisfied", "unsatisfied", "tidak puas", "gak puas"} {
		if strings.Contains(t, neg) {
			return domain.Dissatisfied
		}
	}
	if strings.Contains(t, "satisfied") || (strings.Contains(t, "puas") && !strings.Contains(t, "tidak")) {
		return domain.Satisfied
	}
	return domain.Neutral
}

func normalizeTopic(t *string) *string {
	if t == nil {
		return nil
	}
	v := strings.TrimSpace(*t)
	if v == "" {
		return nil
	}
	for _, l := range domain.TopicLabels {
		if strings.EqualFold(l, v) {
			return &l
		}
	}
	other := "Other"
	return &other
}

func cleanContent(p *string) string {
	if p == nil {
		return ""
	}
	return strings.Join(strings.Fields(*p), " ")
}
