package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ferremas/backoffice/pkg/enums"
	"github.com/google/uuid"
)

// Event is one realtime notification produced after a committed state change.
type Event struct {
	ID         uuid.UUID
	Type       enums.EventType
	UserID     *uuid.UUID
	BranchID   *uuid.UUID
	Data       any
	OccurredAt time.Time
}

// Envelope is the wire body delivered to subscribers.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func NewEvent(eventType enums.EventType, data any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// ForUser scopes the event to a user channel in addition to the type channel.
func (e Event) ForUser(id uuid.UUID) Event {
	e.UserID = &id
	return e
}

// ForBranch scopes the event to a branch channel in addition to the type channel.
func (e Event) ForBranch(id uuid.UUID) Event {
	e.BranchID = &id
	return e
}

// Channels lists every logical channel the event fans out to.
func (e Event) Channels() []string {
	channels := []string{TypeChannel(e.Type)}
	if e.UserID != nil {
		channels = append(channels, UserChannel(*e.UserID))
	}
	if e.BranchID != nil {
		channels = append(channels, BranchChannel(*e.BranchID))
	}
	return channels
}

func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", e.Type, err)
	}
	return json.Marshal(Envelope{
		ID:        e.ID.String(),
		Type:      e.Type.String(),
		Timestamp: e.OccurredAt,
		Data:      data,
	})
}

func (e Event) Attributes() map[string]string {
	attrs := map[string]string{"event_type": e.Type.String(), "event_id": e.ID.String()}
	if e.UserID != nil {
		attrs["user_id"] = e.UserID.String()
	}
	if e.BranchID != nil {
		attrs["branch_id"] = e.BranchID.String()
	}
	return attrs
}

func TypeChannel(t enums.EventType) string {
	return "events:" + t.String()
}

func UserChannel(id uuid.UUID) string {
	return "events:user:" + id.String()
}

func BranchChannel(id uuid.UUID) string {
	return "events:branch:" + id.String()
}
