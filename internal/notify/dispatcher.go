// Package notify carries business events from committed mutations to the
// outbound channels. Dispatch is fire-and-forget with at-least-once
// semantics: a dispatch failure is logged and never propagated back to the
// operation that committed.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vpetrenko/courtbooking/internal/domain"
	"github.com/vpetrenko/courtbooking/internal/store"
)

// Event is the wire payload published to the notifications topic.
type Event struct {
	Type          domain.NotificationEvent `json:"type"`
	UserID        string                   `json:"user_id"`
	Email         string                   `json:"email,omitempty"`
	Phone         string                   `json:"phone,omitempty"`
	Channels      []string                 `json:"channels"`
	Code          string                   `json:"code,omitempty"`
	ReservationID string                   `json:"reservation_id,omitempty"`
	CourtID       string                   `json:"court_id,omitempty"`
	Date          string                   `json:"date,omitempty"`
	Slot          string                   `json:"slot,omitempty"`
	Amount        int64                    `json:"amount,omitempty"`
	Currency      string                   `json:"currency,omitempty"`
	At            time.Time                `json:"at"`
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type Dispatcher struct {
	store    store.Store
	producer Producer
	topic    string
}

func NewDispatcher(s store.Store, producer Producer, topic string) *Dispatcher {
	return &Dispatcher{store: s, producer: producer, topic: topic}
}

// Dispatch persists the write-once notification records and publishes the
// event. Called only after a successful commit; its own failures must not
// undo that commit, so they are logged and swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	ev.At = time.Now().UTC()
	if len(ev.Channels) == 0 {
		ev.Channels = []string{"email"}
	}

	for _, channel := range ev.Channels {
		recipient := ev.Email
		if channel == "sms" {
			recipient = ev.Phone
		}
		record := domain.Notification{
			ID:        uuid.NewString(),
			Event:     ev.Type,
			Channel:   channel,
			Recipient: recipient,
			Payload: map[string]any{
				"user_id":        ev.UserID,
				"reservation_id": ev.ReservationID,
				"court_id":       ev.CourtID,
				"date":           ev.Date,
				"slot":           ev.Slot,
				"amount":         ev.Amount,
				"currency":       ev.Currency,
			},
			CreatedAt: ev.At,
		}
		if err := d.store.AppendNotification(ctx, record); err != nil {
			log.Error().Err(err).Str("event", string(ev.Type)).Msg("persist notification")
		}
	}

	if d.producer == nil || d.topic == "" {
		return
	}
	if err := d.producer.Publish(ctx, d.topic, ev.UserID, ev); err != nil {
		log.Error().Err(err).Str("event", string(ev.Type)).Msg("publish notification")
	}
}
