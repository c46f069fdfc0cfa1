package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/ferremas/backoffice/pkg/metrics"
)

const defaultTick = time.Minute

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locker   Locker
	Metrics  *metrics.CronJobMetrics
	// Tick is how often due jobs are checked; each job keeps its own interval.
	Tick time.Duration
	Now  func() time.Time
}

// Service runs each registered job once per interval across all worker replicas.
//
// A successful run keeps its lease until the interval elapses, which stops other
// replicas from repeating it. A failed run releases the lease so any replica may retry
// on its next tick.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locker   Locker
	metrics  *metrics.CronJobMetrics
	tick     time.Duration
	now      func() time.Time
	next     map[string]time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	tick := params.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		locker:   params.Locker,
		metrics:  params.Metrics,
		tick:     tick,
		now:      now,
		next:     map[string]time.Time{},
	}, nil
}

// Run checks for due jobs immediately and then on every tick until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.runDue(ctx)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

func (s *Service) runDue(ctx context.Context) {
	now := s.now()
	for _, entry := range s.registry.Entries() {
		name := entry.Job.Name()
		if next, ok := s.next[name]; ok && now.Before(next) {
			continue
		}
		s.next[name] = now.Add(entry.Every)
		s.runEntry(ctx, entry)
	}
}

func (s *Service) runEntry(ctx context.Context, entry Entry) {
	name := entry.Job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})

	lease, ok, err := s.locker.Acquire(jobCtx, name, entry.Every)
	if err != nil {
		s.logg.Error(jobCtx, "job lease failed", err)
		s.metrics.IncFailure(name)
		return
	}
	if !ok {
		s.logg.Info(jobCtx, "job ran elsewhere this interval; skipping")
		s.metrics.IncSkipped(name)
		return
	}

	s.logg.Info(jobCtx, "job start")
	start := s.now()
	runErr := entry.Job.Run(jobCtx)
	duration := s.now().Sub(start)
	s.metrics.ObserveDuration(name, duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())

	if runErr != nil {
		s.logg.Error(jobCtx, "job failed", runErr)
		s.metrics.IncFailure(name)
		if err := lease.Release(jobCtx); err != nil {
			s.logg.Error(jobCtx, "failed to release job lease", err)
		}
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(name, s.now())
}
