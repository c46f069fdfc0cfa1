package cron

import (
	"context"
	"fmt"

	"github.com/ferremas/backoffice/internal/currency"
	"github.com/ferremas/backoffice/pkg/logger"
)

type rateUpdater interface {
	UpdateRates(ctx context.Context) ([]currency.Rate, error)
}

type ExchangeRatesJobParams struct {
	Logger *logger.Logger
	Rates  rateUpdater
}

// NewExchangeRatesJob refreshes the stored exchange rates from the external source.
func NewExchangeRatesJob(params ExchangeRatesJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Rates == nil {
		return nil, fmt.Errorf("rate updater required")
	}
	return &exchangeRatesJob{logg: params.Logger, rates: params.Rates}, nil
}

type exchangeRatesJob struct {
	logg  *logger.Logger
	rates rateUpdater
}

func (j *exchangeRatesJob) Name() string { return "exchange-rates-refresh" }

func (j *exchangeRatesJob) Run(ctx context.Context) error {
	rates, err := j.rates.UpdateRates(ctx)
	if err != nil {
		return fmt.Errorf("refresh exchange rates: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "rates_stored", len(rates)), "exchange rates refreshed")
	return nil
}
