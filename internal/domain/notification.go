package domain

import "time"

type NotificationEvent string

const (
	NotifyAccountValidation  NotificationEvent = "account_validation"
	NotifyOneTimeCode        NotificationEvent = "one_time_code"
	NotifyReservationCreated NotificationEvent = "reservation_created"
	NotifyReservationCancel  NotificationEvent = "reservation_cancelled"
	NotifyPaymentConfirmed   NotificationEvent = "payment_confirmed"
	NotifyNoShow             NotificationEvent = "no_show"
	NotifyRefund             NotificationEvent = "refund"
)

// Notification is a write-once record of an outbound event. Delivery runs
// through the dispatcher; the record itself is never mutated.
type Notification struct {
	ID        string
	Event     NotificationEvent
	Channel   string
	Recipient string
	Payload   map[string]any
	CreatedAt time.Time
}
