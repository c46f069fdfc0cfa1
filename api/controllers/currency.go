package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ferremas/backoffice/api/responses"
	"github.com/ferremas/backoffice/api/validators"
	"github.com/ferremas/backoffice/internal/currency"
	"github.com/ferremas/backoffice/pkg/enums"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
)

type CurrencyService interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to enums.Currency) (decimal.Decimal, error)
	CurrentRate(ctx context.Context, from, to enums.Currency) (*currency.Rate, error)
	UpdateRates(ctx context.Context) ([]currency.Rate, error)
	ListRates(ctx context.Context, from, to *enums.Currency) ([]currency.Rate, error)
}

type conversionResponse struct {
	Amount     decimal.Decimal `json:"amount"`
	From       enums.Currency  `json:"from_currency"`
	To         enums.Currency  `json:"to_currency"`
	Rate       decimal.Decimal `json:"rate"`
	Converted  decimal.Decimal `json:"converted_amount"`
	RateSource string          `json:"rate_source"`
}

func queryCurrency(r *http.Request, key string) (*enums.Currency, error) {
	return validators.QueryEnum(r, key, func(raw string) (enums.Currency, error) {
		return enums.ParseCurrency(strings.ToUpper(raw))
	})
}

func ListExchangeRates(svc CurrencyService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := queryCurrency(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := queryCurrency(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rates, err := svc.ListRates(r.Context(), from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rates)
	}
}

// ConvertAmount converts ?amount= from ?from= to ?to= at the current rate.
func ConvertAmount(svc CurrencyService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parsed, err := validators.QueryDecimal(r, "amount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if parsed == nil || parsed.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a non-negative number"))
			return
		}
		amount := *parsed
		from, err := queryCurrency(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := queryCurrency(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if from == nil || to == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "from and to are required"))
			return
		}

		resp := conversionResponse{Amount: amount, From: *from, To: *to, Rate: decimal.NewFromInt(1), RateSource: "identity"}
		if *from != *to {
			rate, err := svc.CurrentRate(r.Context(), *from, *to)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			resp.Rate = rate.Rate
			resp.RateSource = rate.Source
		}
		resp.Converted, err = svc.Convert(r.Context(), amount, *from, *to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// RefreshExchangeRates forces a fetch from the upstream rate source.
func RefreshExchangeRates(svc CurrencyService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rates, err := svc.UpdateRates(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rates)
	}
}
