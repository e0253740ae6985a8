package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Job is one scheduled pass. Its error is logged, never fatal.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron schedule. A tick that arrives while the previous
// pass is still running is skipped.
type Scheduler struct {
	spec string
	job  Job
	cron *cron.Cron
}

func New(spec string, job Job) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	l := cronLogger{l: log.Logger}
	return &Scheduler{
		spec: spec,
		job:  job,
		cron: cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l))),
	}, nil
}

// Run blocks until ctx is done, then waits for an in-flight pass to return.
func (s *Scheduler) Run(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		log.Info().Str("schedule", s.spec).Msg("scheduled sync triggered")
		if err := s.job(ctx); err != nil {
			log.Error().Err(err).Msg("scheduled sync failed")
		}
	})
	if err != nil {
		return err
	}

	log.Info().Str("schedule", s.spec).Msg("scheduler started")
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, kv ...any) {
	c.l.Debug().Fields(kv).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error().Err(err).Fields(kv).Msg("cron: " + msg)
}
