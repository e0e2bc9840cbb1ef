package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusPendingPayment ReservationStatus = "PENDING_PAYMENT"
	ReservationStatusConfirmed      ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled      ReservationStatus = "CANCELLED"
	ReservationStatusNoShow         ReservationStatus = "NO_SHOW"
)

// Active reports whether the reservation still occupies its (court, date,
// slot) tuple. Cancelled reservations release the tuple; everything else
// holds it.
func (s ReservationStatus) Active() bool {
	return s != ReservationStatusCancelled
}

type Reservation struct {
	ID           string
	UserID       string
	CreatedBy    string // may differ from UserID for administrator bookings
	CourtID      string
	Date         time.Time // calendar day, UTC midnight
	Slot         Slot
	Status       ReservationStatus
	PriceAmount  int64 // snapshot in minor currency units, immutable
	Currency     string
	CancelReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
