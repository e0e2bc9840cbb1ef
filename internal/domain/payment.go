package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending         PaymentStatus = "PENDING"
	PaymentStatusApproved        PaymentStatus = "APPROVED"
	PaymentStatusRejected        PaymentStatus = "REJECTED"
	PaymentStatusRefundedPartial PaymentStatus = "REFUNDED_PARTIAL"
)

type PaymentMethod string

const (
	PaymentMethodUnset  PaymentMethod = ""
	PaymentMethodOnline PaymentMethod = "ONLINE"
	PaymentMethodCash   PaymentMethod = "CASH"
)

type Payment struct {
	ID            string
	ReservationID string
	Method        PaymentMethod
	Status        PaymentStatus
	Amount        int64
	Currency      string
	RefundAmount  int64
	// Reference holds the gateway transaction reference for online payments
	// or the administering actor id for cash entries.
	Reference string
	CreatedAt time.Time
	UpdatedAt time.Time
}
