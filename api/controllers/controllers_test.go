package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/ferremas/backoffice/internal/currency"
	"github.com/ferremas/backoffice/internal/inventory"
	"github.com/ferremas/backoffice/internal/payments"
	"github.com/ferremas/backoffice/pkg/enums"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
)

type stubCurrency struct {
	CurrencyService
	rate decimal.Decimal
}

func (s stubCurrency) CurrentRate(_ context.Context, from, to enums.Currency) (*currency.Rate, error) {
	return &currency.Rate{From: from, To: to, Rate: s.rate, Source: "api"}, nil
}

func (s stubCurrency) Convert(_ context.Context, amount decimal.Decimal, from, to enums.Currency) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	return amount.Mul(s.rate).Round(to.Decimals()), nil
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func TestConvertAmount(t *testing.T) {
	handler := ConvertAmount(stubCurrency{rate: decimal.RequireFromString("0.00105")}, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/convert?amount=10000&from=clp&to=USD", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp conversionResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, enums.Currency("CLP"), resp.From)
	assert.True(t, resp.Converted.Equal(decimal.RequireFromString("10.5")), resp.Converted.String())
	assert.Equal(t, "api", resp.RateSource)
}

func TestConvertAmountValidation(t *testing.T) {
	handler := ConvertAmount(stubCurrency{rate: decimal.NewFromInt(1)}, testLogger())

	for _, query := range []string{
		"from=CLP&to=USD",
		"amount=abc&from=CLP&to=USD",
		"amount=-1&from=CLP&to=USD",
		"amount=10&from=GBP&to=USD",
		"amount=10&from=CLP",
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/convert?"+query, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

type stubBulkStock struct {
	StockService
}

func (stubBulkStock) BulkUpdate(_ context.Context, items []inventory.BulkItem) ([]inventory.BulkResult, error) {
	results := []inventory.BulkResult{{StockID: items[0].StockID, Updated: true}}
	var errs error
	for _, item := range items[1:] {
		results = append(results, inventory.BulkResult{StockID: item.StockID, Error: "stock not found"})
		errs = multierr.Append(errs, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found"))
	}
	return results, errs
}

func TestBulkUpdateStockReportsPartialFailure(t *testing.T) {
	body := `{"items":[{"stock_id":"` + uuid.NewString() + `","quantity":3},{"stock_id":"` + uuid.NewString() + `","quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/stock/bulk-update", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	BulkUpdateStock(stubBulkStock{}, testLogger()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp bulkStockResponse
	decodeData(t, rec, &resp)
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, 1, resp.Failed)
}

func TestBulkUpdateStockRejectsEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/stock/bulk-update", strings.NewReader(`{"items":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	BulkUpdateStock(stubBulkStock{}, testLogger()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type stubConfirm struct {
	PaymentService
	token string
}

func (s *stubConfirm) Confirm(_ context.Context, token string) (*payments.ConfirmResult, error) {
	s.token = token
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token_ws is required")
	}
	return &payments.ConfirmResult{Approved: true}, nil
}

func TestConfirmPaymentReadsQueryAndForm(t *testing.T) {
	svc := &stubConfirm{}
	handler := ConfirmPayment(svc, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payments/confirm?token_ws=abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", svc.token)

	form := url.Values{"token_ws": {"from-form"}}
	req := httptest.NewRequest(http.MethodPost, "/api/payments/confirm", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from-form", svc.token)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payments/confirm", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
