package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for every business-rule violation the engine can report.
// All are non-retryable except ErrPaymentRejected, which a caller may retry
// once the gateway recovers.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrWeakPassword        = errors.New("weak password")
	ErrDuplicateUser       = errors.New("duplicate user")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidCode         = errors.New("invalid one-time code")
	ErrInvalidUser         = errors.New("invalid target user")
	ErrAccountNotValidated = errors.New("account not validated")
	ErrPastDate            = errors.New("date is in the past")
	ErrTooFarAhead         = errors.New("date is beyond the advance window")
	ErrCourtUnavailable    = errors.New("court unavailable")
	ErrSlotBlocked         = errors.New("slot blocked")
	ErrSlotTaken           = errors.New("slot already taken")
	ErrUserDoubleBooked    = errors.New("user already booked for this slot")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrNotFound            = errors.New("not found")
	ErrPaymentRejected     = errors.New("payment rejected")
	ErrForbidden           = errors.New("operation not permitted")
)

// PartialError reports a composed administrative operation whose first step
// committed while a later step failed. The caller must see both outcomes.
type PartialError struct {
	ReservationID string
	Err           error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("reservation %s created but follow-up failed: %v", e.ReservationID, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }
