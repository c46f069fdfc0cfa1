// Package currency resolves exchange rates from stored snapshots and refreshes them from the rate source.
package currency

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
)

const (
	rateScale = 10

	SourceIdentity = "identity"
	SourceStored   = "stored"
	SourceCross    = "cross"
)

// RateSource fetches how many units of each symbol one unit of base buys.
type RateSource interface {
	Latest(ctx context.Context, base enums.Currency, symbols []enums.Currency) (map[enums.Currency]decimal.Decimal, error)
}

// Rate is a resolved exchange rate.
type Rate struct {
	From      enums.Currency  `json:"from_currency"`
	To        enums.Currency  `json:"to_currency"`
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetched_at"`
	Source    string          `json:"source"`
}

type ServiceParams struct {
	DB        *gorm.DB
	Source    RateSource
	Base      enums.Currency
	Freshness time.Duration
	Logger    *logger.Logger
	Now       func() time.Time
}

type Service struct {
	repo      *Repository
	source    RateSource
	base      enums.Currency
	freshness time.Duration
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Source == nil {
		return nil, errors.New("rate source is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	base := params.Base
	if base == "" {
		base = enums.CurrencyCLP
	}
	if !base.IsValid() {
		return nil, errors.New("base currency is not supported")
	}
	freshness := params.Freshness
	if freshness <= 0 {
		freshness = 24 * time.Hour
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      NewRepository(params.DB),
		source:    params.Source,
		base:      base,
		freshness: freshness,
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *Service) Base() enums.Currency {
	return s.base
}

// CurrentRate resolves from→to: identity, a fresh direct snapshot, a fresh cross rate through
// the base currency, and finally a refresh from the source.
func (s *Service) CurrentRate(ctx context.Context, from, to enums.Currency) (*Rate, error) {
	if !from.IsValid() || !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}
	if from == to {
		return &Rate{From: from, To: to, Rate: decimal.NewFromInt(1), FetchedAt: s.now().UTC(), Source: SourceIdentity}, nil
	}

	since := s.now().UTC().Add(-s.freshness)
	rate, err := s.resolve(ctx, from, to, since)
	if err != nil || rate != nil {
		return rate, err
	}

	if _, err := s.UpdateRates(ctx); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"from": from.String(), "to": to.String()})
		s.logg.Warn(logCtx, "rate refresh failed while resolving rate")
	} else {
		rate, err = s.resolve(ctx, from, to, since)
		if err != nil || rate != nil {
			return rate, err
		}
	}
	return nil, pkgerrors.Newf(pkgerrors.CodeExternal, "no exchange rate available for %s to %s", from, to).
		WithDetails(map[string]any{"from": from, "to": to})
}

func (s *Service) resolve(ctx context.Context, from, to enums.Currency, since time.Time) (*Rate, error) {
	row, ok, err := s.repo.Latest(ctx, from, to, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exchange rate")
	}
	if ok {
		r := fromModel(*row)
		return &r, nil
	}
	if from == s.base || to == s.base {
		return nil, nil
	}

	first, ok, err := s.repo.Latest(ctx, from, s.base, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exchange rate")
	}
	if !ok {
		return nil, nil
	}
	second, ok, err := s.repo.Latest(ctx, s.base, to, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exchange rate")
	}
	if !ok {
		return nil, nil
	}
	fetched := first.FetchedAt
	if second.FetchedAt.Before(fetched) {
		fetched = second.FetchedAt
	}
	return &Rate{
		From:      from,
		To:        to,
		Rate:      first.Rate.Mul(second.Rate).Round(rateScale),
		FetchedAt: fetched,
		Source:    SourceCross,
	}, nil
}

// Convert applies the current rate and rounds to the target currency's precision.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to enums.Currency) (decimal.Decimal, error) {
	if from == to {
		return amount.Round(to.Decimals()), nil
	}
	rate, err := s.CurrentRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate.Rate).Round(to.Decimals()), nil
}

// UpdateRates fetches every supported currency against the base and stores direct and inverse snapshots.
func (s *Service) UpdateRates(ctx context.Context) ([]Rate, error) {
	symbols := make([]enums.Currency, 0, len(enums.SupportedCurrencies()))
	for _, c := range enums.SupportedCurrencies() {
		if c != s.base {
			symbols = append(symbols, c)
		}
	}

	fetched, err := s.source.Latest(ctx, s.base, symbols)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeExternal, err, "fetch exchange rates")
	}

	at := s.now().UTC()
	rows := make([]models.CurrencyExchangeRate, 0, 2*len(symbols))
	for _, sym := range symbols {
		rate, ok := fetched[sym]
		if !ok || !rate.IsPositive() {
			continue
		}
		rows = append(rows,
			models.CurrencyExchangeRate{FromCurrency: s.base, ToCurrency: sym, Rate: rate.Round(rateScale), FetchedAt: at},
			models.CurrencyExchangeRate{FromCurrency: sym, ToCurrency: s.base, Rate: decimal.NewFromInt(1).DivRound(rate, rateScale), FetchedAt: at},
		)
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeExternal, "rate source returned no usable rates")
	}
	if err := s.repo.Insert(ctx, rows); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store exchange rates")
	}

	out := make([]Rate, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	s.logg.Info(s.logg.WithField(ctx, "pairs", len(out)), "exchange rates updated")
	return out, nil
}

// ListRates returns the newest snapshot per pair.
func (s *Service) ListRates(ctx context.Context, from, to *enums.Currency) ([]Rate, error) {
	rows, err := s.repo.ListNewestFirst(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list exchange rates")
	}
	type pair struct{ from, to enums.Currency }
	seen := map[pair]bool{}
	out := make([]Rate, 0)
	for _, row := range rows {
		key := pair{row.FromCurrency, row.ToCurrency}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, fromModel(row))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out, nil
}

func fromModel(row models.CurrencyExchangeRate) Rate {
	return Rate{
		From:      row.FromCurrency,
		To:        row.ToCurrency,
		Rate:      row.Rate,
		FetchedAt: row.FetchedAt,
		Source:    SourceStored,
	}
}
