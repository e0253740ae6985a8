package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"playreviews/internal/domain"
)

var ErrRunInProgress = errors.New("sync already running")

// Runner drives every configured target through one SyncService pass, threading the
// persisted state from one target to the next. Runs never overlap.
type Runner struct {
	svc     *SyncService
	store   domain.StateStore
	cache   domain.ReviewCache // optional
	targets []SyncConfig
	mu      sync.Mutex
}

func NewRunner(svc *SyncService, store domain.StateStore, cache domain.ReviewCache, targets []SyncConfig) *Runner {
	return &Runner{svc: svc, store: store, cache: cache, targets: targets}
}

func (r *Runner) RunAll(ctx context.Context) ([]RunReport, error) {
	if !r.mu.TryLock() {
		log.Info().Msg("sync already running, skipping")
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	state, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}
	if state == nil {
		state = domain.State{}
	}

	var (
		reports []RunReport
		errs    []error
	)
	for _, t := range r.targets {
		next, rep, err := r.svc.Run(ctx, t, state)
		reports = append(reports, rep)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rep.StateKey, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if err := r.store.Save(ctx, next); err != nil {
			// rows are already upserted; an unsaved watermark only means a refetch next run
			errs = append(errs, fmt.Errorf("%s: save sync state: %w", rep.StateKey, err))
			continue
		}
		state = next
		if r.cache != nil && rep.Processed > 0 {
			if err := r.cache.InvalidateLocale(ctx, t.Locale()); err != nil {
				log.Warn().Err(err).Str("state_key", rep.StateKey).Msg("review cache invalidation failed")
			}
		}
	}
	return reports, errors.Join(errs...)
}
