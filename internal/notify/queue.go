package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/ferremas/backoffice/pkg/metrics"
	"go.uber.org/multierr"
)

const (
	defaultBufferSize     = 256
	defaultPublishTimeout = 2 * time.Second
	drainTimeout          = 5 * time.Second
)

// Publisher accepts events without ever blocking the caller.
type Publisher interface {
	Enqueue(ctx context.Context, evt Event) bool
}

// Sink delivers an encoded event to one transport.
type Sink interface {
	Name() string
	Publish(ctx context.Context, evt Event, body []byte) error
}

// Queue is a bounded in-process buffer drained by Run.
type Queue struct {
	events  chan Event
	sinks   []Sink
	timeout time.Duration
	logg    *logger.Logger
	metrics *metrics.DomainMetrics
}

type QueueParams struct {
	BufferSize     int
	PublishTimeout time.Duration
	Sinks          []Sink
	Logger         *logger.Logger
	Metrics        *metrics.DomainMetrics
}

func NewQueue(params QueueParams) (*Queue, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	size := params.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	timeout := params.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &Queue{
		events:  make(chan Event, size),
		sinks:   params.Sinks,
		timeout: timeout,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Enqueue buffers evt. It returns false and drops the event when the buffer is full.
func (q *Queue) Enqueue(ctx context.Context, evt Event) bool {
	if q == nil {
		return false
	}
	select {
	case q.events <- evt:
		return true
	default:
		q.metrics.NotifierOutcome(evt.Type.String(), "dropped")
		q.logg.Warn(q.logg.WithField(ctx, "event_type", evt.Type.String()), "notification queue full, event dropped")
		return false
	}
}

// Run delivers queued events until ctx is cancelled, then drains what is left.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			q.drain()
			return ctx.Err()
		case evt := <-q.events:
			q.deliver(ctx, evt)
		}
	}
}

func (q *Queue) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case evt := <-q.events:
			q.deliver(ctx, evt)
		default:
			return
		}
	}
}

func (q *Queue) deliver(ctx context.Context, evt Event) {
	body, err := evt.Encode()
	if err != nil {
		q.metrics.NotifierOutcome(evt.Type.String(), "failed")
		q.logg.Error(ctx, "encode notification", err)
		return
	}

	var errs error
	for _, sink := range q.sinks {
		pubCtx, cancel := context.WithTimeout(ctx, q.timeout)
		if err := sink.Publish(pubCtx, evt, body); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
		cancel()
	}
	if errs != nil {
		q.metrics.NotifierOutcome(evt.Type.String(), "failed")
		logCtx := q.logg.WithFields(ctx, map[string]any{
			"event_type": evt.Type.String(),
			"event_id":   evt.ID.String(),
		})
		q.logg.Error(logCtx, "notification delivery failed", errs)
		return
	}
	q.metrics.NotifierOutcome(evt.Type.String(), "published")
}

// Discard is a Publisher that accepts and forgets every event.
type Discard struct{}

func (Discard) Enqueue(context.Context, Event) bool { return true }
