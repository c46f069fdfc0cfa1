package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferremas/backoffice/internal/currency"
	"github.com/ferremas/backoffice/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type fakeRateUpdater struct {
	calls int
	err   error
}

func (f *fakeRateUpdater) UpdateRates(context.Context) ([]currency.Rate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []currency.Rate{{}, {}}, nil
}

type fakeCanceller struct {
	cutoff time.Time
	count  int
	err    error
}

func (f *fakeCanceller) CancelStale(_ context.Context, cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	return f.count, f.err
}

func TestExchangeRatesJob(t *testing.T) {
	updater := &fakeRateUpdater{}
	job, err := NewExchangeRatesJob(ExchangeRatesJobParams{Logger: testLogger(), Rates: updater})
	require.NoError(t, err)
	assert.Equal(t, "exchange-rates-refresh", job.Name())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, updater.calls)

	updater.err = errors.New("source down")
	assert.Error(t, job.Run(context.Background()))
}

func TestStalePaymentsJobUsesTTL(t *testing.T) {
	canceller := &fakeCanceller{count: 3}
	jobIface, err := NewStalePaymentsJob(StalePaymentsJobParams{Logger: testLogger(), Payments: canceller, TTL: 6 * time.Hour})
	require.NoError(t, err)
	job := jobIface.(*stalePaymentsJob)
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.True(t, canceller.cutoff.Equal(now.Add(-6*time.Hour)))

	canceller.err = errors.New("partial failure")
	assert.Error(t, job.Run(context.Background()))
}

func TestStalePaymentsJobDefaults(t *testing.T) {
	jobIface, err := NewStalePaymentsJob(StalePaymentsJobParams{Logger: testLogger(), Payments: &fakeCanceller{}})
	require.NoError(t, err)
	assert.Equal(t, defaultPendingPaymentTTL, jobIface.(*stalePaymentsJob).ttl)

	_, err = NewStalePaymentsJob(StalePaymentsJobParams{Logger: testLogger()})
	assert.Error(t, err)
}
