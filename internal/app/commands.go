package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"playreviews/internal/adapters/observability"
	"playreviews/internal/domain"
)

// RunReport summarises one sync run.
type RunReport struct {
	RunID         string
	StateKey      string
	EffectiveSort domain.Sort
	Fetched       int
	Processed     int
	Errors        int
	Watermark     *string
}

type SyncService struct {
	source  domain.ReviewSource
	sink    domain.RowSink
	history domain.RunHistory // optional
	now     func() time.Time
	newID   func() string
}

func NewSyncService(src domain.ReviewSource, sink domain.RowSink, history domain.RunHistory) *SyncService {
	return &SyncService{
		source:  src,
		sink:    sink,
		history: history,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Run performs one incremental sync for cfg against the prior state and returns the
// next state. Only upstream failures (and cancellation) are returned as errors; in
// that case the input state is returned unchanged. Per-record failures are counted.
func (s *SyncService) Run(ctx context.Context, cfg SyncConfig, state domain.State) (domain.State, RunReport, error) {
	started := s.now()
	key := cfg.Key().String()
	rep := RunReport{RunID: s.newID(), StateKey: key}
	ctx, l := observability.WithSyncRun(ctx, rep.RunID, key)
	l.Info().Msg("sync run starting")

	// 1) prior watermark; absence is normal on first run
	var prior *string
	if st, ok := state.Lookup(key); ok {
		prior = st.LastAtISO
	} else if st, legacy, ok := state.LookupFold(key); ok {
		// the legacy entry itself is carried over untouched
		prior = st.LastAtISO
		l.Info().Str("legacy_key", legacy).Msg("resuming from state entry keyed by unnormalized sort")
	}
	since := domain.ParseTimestamp(prior)
	if prior != nil && since == nil {
		l.Warn().Str("last_at_iso", *prior).Msg("stored watermark is not a timestamp, fetching without cutoff")
	}

	// 2) fetch
	rep.EffectiveSort = ResolveSort(cfg.Sort, s.source.SupportedSorts())
	if rep.EffectiveSort.String() != cfg.Sort {
		l.Warn().Str("requested", cfg.Sort).Str("effective", rep.EffectiveSort.String()).Msg("sort not supported upstream, using fallback")
	}
	revs, err := FetchReviews(ctx, s.source, FetchRequest{
		Locale: cfg.Locale(),
		Sort:   rep.EffectiveSort,
		Max:    cfg.Count,
		Since:  since,
	})
	if err != nil {
		s.finish(ctx, rep, started, err)
		return state, rep, err
	}
	rep.Fetched = len(revs)

	// 3) upsert record by record
	var (
		newest       *time.Time // newest persisted record below the oldest persist failure
		oldestFailed *time.Time
		persisted    []time.Time
	)
	for _, r := range revs {
		if err := ctx.Err(); err != nil {
			s.finish(ctx, rep, started, err)
			return state, rep, err
		}
		row, mapped, perr := s.processRecord(ctx, r, cfg.Locale())
		if perr != nil {
			rep.Errors++
			l.Warn().Err(perr).Str("review_id", r.ReviewID).Msg("failed upsert")
			// a row that mapped but did not persist must be refetched next run
			if mapped {
				if at := domain.ParseTimestamp(row.ReviewedAt); at != nil && (oldestFailed == nil || at.Before(*oldestFailed)) {
					oldestFailed = at
				}
			}
			continue
		}
		rep.Processed++
		if at := domain.ParseTimestamp(row.ReviewedAt); at != nil {
			persisted = append(persisted, *at)
		}
	}
	for _, at := range persisted {
		if oldestFailed != nil && !at.Before(*oldestFailed) {
			continue
		}
		if newest == nil || at.After(*newest) {
			t := at
			newest = &t
		}
	}

	// 4) next watermark never regresses
	rep.Watermark = prior
	if newest != nil && (since == nil || newest.After(*since)) {
		w := domain.FormatTimestamp(*newest)
		rep.Watermark = &w
	}

	next, err := state.With(key, domain.SyncState{
		LastAtISO:  rep.Watermark,
		LastRunUTC: domain.FormatTimestamp(s.now()),
		Processed:  rep.Processed,
		Errors:     rep.Errors,
	})
	if err != nil {
		err = fmt.Errorf("encode sync state: %w", err)
		s.finish(ctx, rep, started, err)
		return state, rep, err
	}

	l.Info().
		Int("fetched", rep.Fetched).
		Int("processed", rep.Processed).
		Int("errors", rep.Errors).
		Str("effective_sort", rep.EffectiveSort.String()).
		Str("watermark", deref(rep.Watermark)).
		Msg("sync run finished")
	s.finish(ctx, rep, started, nil)
	return next, rep, nil
}

// processRecord maps and upserts one review. mapped reports whether the row was built.
// Panics are contained to the record.
func (s *SyncService) processRecord(ctx context.Context, r domain.Review, loc domain.Locale) (row domain.Row, mapped bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic processing record: %v", p)
		}
	}()
	row, err = MapRecord(r, loc, s.now())
	if err != nil {
		return row, false, err
	}
	mapped = true
	err = s.sink.UpsertRow(ctx, row)
	return row, mapped, err
}

func (s *SyncService) finish(ctx context.Context, rep RunReport, started time.Time, runErr error) {
	status := domain.RunOK
	var msg *string
	if runErr != nil {
		status = domain.RunFailed
		m := runErr.Error()
		msg = &m
		l := observability.CtxLogger(ctx)
		l.Error().Err(runErr).Str("err_type", observability.LabelErr(runErr)).Msg("sync run failed")
	}
	observability.ObserveSyncRun(observability.SyncRunSample{
		StateKey:  rep.StateKey,
		Err:       runErr,
		Fetched:   rep.Fetched,
		Processed: rep.Processed,
		Errors:    rep.Errors,
		Duration:  s.now().Sub(started),
		Watermark: domain.ParseTimestamp(rep.Watermark),
	})

	if s.history == nil {
		return
	}
	rec := domain.RunRecord{
		ID:            rep.RunID,
		StateKey:      rep.StateKey,
		EffectiveSort: rep.EffectiveSort.String(),
		StartedAt:     started.UTC(),
		FinishedAt:    s.now().UTC(),
		Fetched:       rep.Fetched,
		Processed:     rep.Processed,
		Errors:        rep.Errors,
		Status:        status,
		Error:         msg,
	}
	// history is best effort; a cancelled run still gets recorded
	if err := s.history.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		l := observability.CtxLogger(ctx)
		l.Warn().Err(err).Msg("record sync run failed")
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
