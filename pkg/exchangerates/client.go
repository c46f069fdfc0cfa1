// Package exchangerates fetches latest currency rates from an ApiLayer-compatible REST source.
package exchangerates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"

	"github.com/ferremas/backoffice/pkg/config"
	"github.com/ferremas/backoffice/pkg/enums"
	"github.com/ferremas/backoffice/pkg/httpclient"
	"github.com/ferremas/backoffice/pkg/logger"
)

// SourceName identifies snapshots fetched through this client.
const SourceName = "apilayer"

type Client struct {
	http    *retryablehttp.Client
	baseURL string
	apiKey  string
}

func NewClient(cfg config.CurrencyConfig, logg *logger.Logger) *Client {
	return &Client{
		http: httpclient.New(httpclient.Options{
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			Logger:     logg,
		}),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

type latestResponse struct {
	Success bool                       `json:"success"`
	Base    string                     `json:"base"`
	Rates   map[string]decimal.Decimal `json:"rates"`
	Error   *struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error"`
	Message string `json:"message"`
}

// Latest returns how many units of each symbol one unit of base buys.
func (c *Client) Latest(ctx context.Context, base enums.Currency, symbols []enums.Currency) (map[enums.Currency]decimal.Decimal, error) {
	codes := make([]string, 0, len(symbols))
	for _, s := range symbols {
		codes = append(codes, s.String())
	}
	q := url.Values{}
	q.Set("base", base.String())
	q.Set("symbols", strings.Join(codes, ","))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("exchangerates: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchangerates: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("exchangerates: read response: %w", err)
	}

	var payload latestResponse
	decodeErr := json.Unmarshal(raw, &payload)
	if resp.StatusCode != http.StatusOK {
		msg := payload.Message
		if payload.Error != nil && payload.Error.Info != "" {
			msg = payload.Error.Info
		}
		return nil, fmt.Errorf("exchangerates: status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("exchangerates: decode response: %w", decodeErr)
	}
	if !payload.Success {
		if payload.Error != nil {
			return nil, fmt.Errorf("exchangerates: %s (%d)", payload.Error.Info, payload.Error.Code)
		}
		return nil, fmt.Errorf("exchangerates: unsuccessful response")
	}

	out := make(map[enums.Currency]decimal.Decimal, len(payload.Rates))
	for code, rate := range payload.Rates {
		cur, err := enums.ParseCurrency(code)
		if err != nil || !rate.IsPositive() {
			continue
		}
		out[cur] = rate
	}
	return out, nil
}
