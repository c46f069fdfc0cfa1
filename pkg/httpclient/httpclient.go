// Package httpclient builds the retrying HTTP client shared by the outbound REST integrations.
package httpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ferremas/backoffice/pkg/logger"
)

type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RetryWait  time.Duration
	Logger     *logger.Logger
}

// New returns a client that retries transport errors and 5xx responses with exponential backoff.
func New(opts Options) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.MaxRetries
	if client.RetryMax < 0 {
		client.RetryMax = 0
	}
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}
	if opts.RetryWait > 0 {
		client.RetryWaitMin = opts.RetryWait
		client.RetryWaitMax = 4 * opts.RetryWait
	}
	client.Logger = nil
	if opts.Logger != nil {
		client.Logger = leveled{logg: opts.Logger}
	}
	// keep the last response so callers can read the gateway's error body
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

type leveled struct {
	logg *logger.Logger
}

func (l leveled) Error(msg string, keysAndValues ...any) {
	l.logg.Error(l.fields(keysAndValues), msg, nil)
}

func (l leveled) Info(msg string, keysAndValues ...any) {
	l.logg.Debug(l.fields(keysAndValues), msg)
}

func (l leveled) Debug(msg string, keysAndValues ...any) {
	l.logg.Debug(l.fields(keysAndValues), msg)
}

func (l leveled) Warn(msg string, keysAndValues ...any) {
	l.logg.Warn(l.fields(keysAndValues), msg)
}

func (l leveled) fields(keysAndValues []any) context.Context {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = fmt.Sprint(keysAndValues[i+1])
	}
	return l.logg.WithFields(context.Background(), fields)
}
