package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/ferremas/backoffice/api/responses"
	"github.com/ferremas/backoffice/api/validators"
	"github.com/ferremas/backoffice/internal/notify"
	"github.com/ferremas/backoffice/internal/orders"
	"github.com/ferremas/backoffice/pkg/enums"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
)

// EventSource streams raw event envelopes published on the given channels.
type EventSource interface {
	Stream(ctx context.Context, channels []string) (<-chan []byte, error)
}

const recentEventWindow = 256

var roleEventTypes = map[enums.Role][]enums.EventType{
	enums.RoleAdmin:      {enums.EventStockAlert, enums.EventOrderStatus, enums.EventPaymentStatus},
	enums.RoleWarehouse:  {enums.EventStockAlert, enums.EventOrderStatus},
	enums.RoleVendor:     {enums.EventOrderStatus},
	enums.RoleAccountant: {enums.EventPaymentStatus, enums.EventOrderStatus},
}

// streamChannels picks the channels a caller may follow. Everyone gets their own user
// channel; staff also follow the event types their role acts on, either globally or for
// one branch. channel narrows the stream to a single event type.
func streamChannels(actor orders.Actor, branchID *uuid.UUID, channel enums.EventType) ([]string, error) {
	channels := []string{notify.UserChannel(actor.UserID)}
	types := roleEventTypes[actor.Role]
	if channel != "" {
		if !channel.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown channel %q", channel)
		}
		if actor.Role.IsStaff() && !slices.Contains(types, channel) {
			return nil, pkgerrors.Newf(pkgerrors.CodeForbidden, "role %s cannot follow %s", actor.Role, channel)
		}
		types = []enums.EventType{channel}
	}
	if !actor.Role.IsStaff() {
		return channels, nil
	}
	if branchID != nil {
		return append(channels, notify.BranchChannel(*branchID)), nil
	}
	for _, t := range types {
		channels = append(channels, notify.TypeChannel(t))
	}
	return channels, nil
}

// EventStream serves a text/event-stream of realtime notifications with periodic heartbeats.
func EventStream(source EventSource, heartbeat time.Duration, logg *logger.Logger) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		branchID, err := validators.QueryUUID(r, "branch_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		channel := enums.EventType("")
		if raw := validators.QueryString(r, "channel"); raw != nil {
			channel = enums.EventType(*raw)
		}
		channels, err := streamChannels(actor, branchID, channel)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		events, err := source.Stream(ctx, channels)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to events"))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()
		logg.Info(ctx, "event stream opened")

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		seen := newRecentSet(recentEventWindow)
		for {
			select {
			case <-ctx.Done():
				logg.Info(ctx, "event stream closed")
				return
			case <-ticker.C:
				fmt.Fprint(w, ": heartbeat\n\n")
				flusher.Flush()
			case payload, ok := <-events:
				if !ok {
					return
				}
				var env notify.Envelope
				if err := json.Unmarshal(payload, &env); err != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "dropping malformed event")
					continue
				}
				if channel != "" && env.Type != channel.String() {
					continue
				}
				// A staff member subscribed to overlapping channels receives each event once.
				if !seen.add(env.ID) {
					continue
				}
				fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", env.ID, env.Type, payload)
				flusher.Flush()
			}
		}
	}
}

type recentSet struct {
	order []string
	index map[string]struct{}
	limit int
}

func newRecentSet(limit int) *recentSet {
	return &recentSet{index: make(map[string]struct{}, limit), limit: limit}
}

// add reports false when id was already seen among the last limit ids.
func (s *recentSet) add(id string) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	if len(s.order) == s.limit {
		delete(s.index, s.order[0])
		s.order = s.order[1:]
	}
	s.order = append(s.order, id)
	s.index[id] = struct{}{}
	return true
}
