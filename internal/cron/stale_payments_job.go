package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ferremas/backoffice/pkg/logger"
)

const defaultPendingPaymentTTL = 48 * time.Hour

type stalePaymentCanceller interface {
	CancelStale(ctx context.Context, cutoff time.Time) (int, error)
}

type StalePaymentsJobParams struct {
	Logger   *logger.Logger
	Payments stalePaymentCanceller
	TTL      time.Duration
}

// NewStalePaymentsJob cancels pending and processing payments older than the TTL so the
// order can be paid again.
func NewStalePaymentsJob(params StalePaymentsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingPaymentTTL
	}
	return &stalePaymentsJob{
		logg:     params.Logger,
		payments: params.Payments,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

type stalePaymentsJob struct {
	logg     *logger.Logger
	payments stalePaymentCanceller
	ttl      time.Duration
	now      func() time.Time
}

func (j *stalePaymentsJob) Name() string { return "stale-payments" }

func (j *stalePaymentsJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	cancelled, err := j.payments.CancelStale(ctx, cutoff)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"cancelled": cancelled,
	})
	if err != nil {
		return fmt.Errorf("cancel stale payments: %w", err)
	}
	j.logg.Info(logCtx, "stale payments cancelled")
	return nil
}
