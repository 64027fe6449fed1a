// Package notify tells registrants about changes to their events.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// Routing keys published to the events exchange.
const (
	KeyEventCancelled       = "event.cancelled"
	KeyRegistrationPromoted = "registration.promoted"
)

// Notifier delivers registrant-facing notifications.
type Notifier interface {
	EventCancelled(ctx context.Context, event model.Event, registrants []model.Registration) error
	RegistrationPromoted(ctx context.Context, event model.Event, reg model.Registration) error
}

// EventCancelledMessage is the body published when an event is cancelled.
type EventCancelledMessage struct {
	EventID     string    `json:"event_id"`
	EventName   string    `json:"event_name"`
	StartTime   time.Time `json:"start_time"`
	UserIDs     []string  `json:"user_ids"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// RegistrationPromotedMessage is the body published when a waitlisted
// registration takes a freed seat.
type RegistrationPromotedMessage struct {
	EventID        string    `json:"event_id"`
	EventName      string    `json:"event_name"`
	RegistrationID string    `json:"registration_id"`
	UserID         string    `json:"user_id"`
	Category       string    `json:"category"`
	PromotedAt     time.Time `json:"promoted_at"`
}

func cancelledMessage(event model.Event, registrants []model.Registration) EventCancelledMessage {
	ids := make([]string, 0, len(registrants))
	for _, r := range registrants {
		if r.Active() {
			ids = append(ids, r.UserID)
		}
	}
	return EventCancelledMessage{
		EventID:     event.ID,
		EventName:   event.Name,
		StartTime:   event.StartTime,
		UserIDs:     ids,
		CancelledAt: event.UpdatedAt,
	}
}

func promotedMessage(event model.Event, reg model.Registration) RegistrationPromotedMessage {
	return RegistrationPromotedMessage{
		EventID:        event.ID,
		EventName:      event.Name,
		RegistrationID: reg.ID,
		UserID:         reg.UserID,
		Category:       reg.Category,
		PromotedAt:     reg.UpdatedAt,
	}
}

func encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}
	return b, nil
}

// LogNotifier writes notifications to the log. It is used when no broker is
// configured.
type LogNotifier struct {
	log *zerolog.Logger
}

// NewLogNotifier returns a notifier that only logs.
func NewLogNotifier(log *zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) EventCancelled(_ context.Context, event model.Event, registrants []model.Registration) error {
	msg := cancelledMessage(event, registrants)
	n.log.Info().
		Str("event_id", msg.EventID).
		Str("event_name", msg.EventName).
		Strs("user_ids", msg.UserIDs).
		Msg("notify: event cancelled")
	return nil
}

func (n *LogNotifier) RegistrationPromoted(_ context.Context, event model.Event, reg model.Registration) error {
	n.log.Info().
		Str("event_id", event.ID).
		Str("registration_id", reg.ID).
		Str("user_id", reg.UserID).
		Msg("notify: registration promoted from waitlist")
	return nil
}
