// Package webpay is a client for the Webpay Plus REST transaction API.
package webpay

import (
	"bytes"
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
	"github.com/ferremas/backoffice/pkg/httpclient"
	"github.com/ferremas/backoffice/pkg/logger"
)

const (
	transactionsPath = "/rswebpaytransaction/api/webpay/v1.2/transactions"

	headerAPIKeyID     = "Tbk-Api-Key-Id"
	headerAPIKeySecret = "Tbk-Api-Key-Secret"

	// StatusAuthorized is the commit status of an approved card transaction.
	StatusAuthorized = "AUTHORIZED"

	// MaxBuyOrderLength is the longest buy_order the gateway accepts.
	MaxBuyOrderLength = 26
)

type Client struct {
	http         *retryablehttp.Client
	baseURL      string
	commerceCode string
	apiKey       string
}

func NewClient(cfg config.WebpayConfig, logg *logger.Logger) *Client {
	return &Client{
		http: httpclient.New(httpclient.Options{
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			Logger:     logg,
		}),
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		commerceCode: cfg.CommerceCode,
		apiKey:       cfg.APIKey,
	}
}

type CreateRequest struct {
	BuyOrder  string
	SessionID string
	Amount    decimal.Decimal
	ReturnURL string
}

type CreateResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// RedirectURL is where the customer is sent to complete the card payment.
func (r CreateResponse) RedirectURL() string {
	if r.URL == "" {
		return ""
	}
	return r.URL + "?token_ws=" + url.QueryEscape(r.Token)
}

type CardDetail struct {
	CardNumber string `json:"card_number"`
}

type CommitResponse struct {
	Status            string          `json:"status"`
	BuyOrder          string          `json:"buy_order"`
	SessionID         string          `json:"session_id"`
	Amount            decimal.Decimal `json:"amount"`
	TransactionID     string          `json:"transaction_id"`
	TransactionDate   string          `json:"transaction_date"`
	AuthorizationCode string          `json:"authorization_code"`
	ResponseCode      int             `json:"response_code"`
	CardDetail        *CardDetail     `json:"card_detail,omitempty"`
}

func (r CommitResponse) Authorized() bool {
	return r.Status == StatusAuthorized
}

// Reference is the gateway identifier stored on the payment.
func (r CommitResponse) Reference() string {
	if r.TransactionID != "" {
		return r.TransactionID
	}
	return r.AuthorizationCode
}

type RefundResponse struct {
	Type              string          `json:"type"`
	AuthorizationCode string          `json:"authorization_code"`
	ResponseCode      int             `json:"response_code"`
	Status            string          `json:"status"`
	Balance           decimal.Decimal `json:"balance"`
}

// APIError is a non-2xx reply from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("webpay: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("webpay: status %d: %s", e.StatusCode, e.Message)
}

// Create opens a transaction and returns the token the customer is redirected with.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	if len(req.BuyOrder) > MaxBuyOrderLength {
		return nil, fmt.Errorf("webpay: buy_order %q exceeds %d characters", req.BuyOrder, MaxBuyOrderLength)
	}
	body := map[string]any{
		"buy_order":  req.BuyOrder,
		"session_id": req.SessionID,
		"amount":     json.Number(req.Amount.String()),
		"return_url": req.ReturnURL,
	}
	var out CreateResponse
	if err := c.do(ctx, http.MethodPost, transactionsPath, body, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("webpay: create returned no token")
	}
	return &out, nil
}

// Commit confirms the transaction identified by token after the customer returns.
func (c *Client) Commit(ctx context.Context, token string) (*CommitResponse, error) {
	var out CommitResponse
	if err := c.do(ctx, http.MethodPut, transactionsPath+"/"+url.PathEscape(token), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Refund(ctx context.Context, token string, amount decimal.Decimal) (*RefundResponse, error) {
	body := map[string]any{"amount": json.Number(amount.String())}
	var out RefundResponse
	if err := c.do(ctx, http.MethodPost, transactionsPath+"/"+url.PathEscape(token)+"/refunds", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("webpay: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("webpay: build request: %w", err)
	}
	req.Header.Set(headerAPIKeyID, c.commerceCode)
	req.Header.Set(headerAPIKeySecret, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("webpay: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("webpay: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			ErrorMessage string `json:"error_message"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			apiErr.Message = payload.ErrorMessage
		}
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("webpay: decode response: %w", err)
	}
	return nil
}
