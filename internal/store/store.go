// Package store defines the transactional boundary of the domain. Every
// mutating call is atomic and serialized against all other mutations, and
// re-checks its invariants at commit time so that races opened while an
// operation was suspended on an external call surface as regular business
// errors. No collaborator mutates entities directly.
package store

import (
	"context"
	"time"

	"github.com/vpetrenko/courtbooking/internal/domain"
)

type Store interface {
	// Users. CreateUser enforces uniqueness of normalized email, phone and
	// government id and returns domain.ErrDuplicateUser on collision.
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*domain.User, error)
	// SetValidationFlags idempotently sets the verification flags; nil
	// leaves a flag untouched.
	SetValidationFlags(ctx context.Context, id string, emailOK, phoneOK *bool) (*domain.User, error)

	// Courts.
	CreateCourt(ctx context.Context, c *domain.Court) error
	GetCourt(ctx context.Context, id string) (*domain.Court, error)
	ListCourts(ctx context.Context) ([]domain.Court, error)
	SetCourtActive(ctx context.Context, id string, active bool) (*domain.Court, error)

	// Blocks.
	AddBlock(ctx context.Context, b *domain.Block) error
	RemoveBlock(ctx context.Context, id string) error
	HasBlock(ctx context.Context, courtID string, date time.Time, slot domain.Slot) (bool, error)

	// CreateReservation commits the reservation and its paired payment in
	// one mutation. Under the write lock it re-validates that the court is
	// active, the tuple is not blocked, no active reservation holds the
	// (court, date, slot) tuple and none holds the (user, date, slot) tuple.
	CreateReservation(ctx context.Context, r *domain.Reservation, p *domain.Payment) error
	GetReservation(ctx context.Context, id string) (*domain.Reservation, error)
	GetPaymentByReservation(ctx context.Context, reservationID string) (*domain.Payment, error)
	ListReservationsForUser(ctx context.Context, userID string) ([]domain.Reservation, error)
	ListReservationsForCourtDate(ctx context.Context, courtID string, date time.Time) ([]domain.Reservation, error)

	// CancelReservation moves any cancellable reservation to CANCELLED.
	// Re-cancelling is a success no-op with changed=false; cancelling a
	// no-show fails with domain.ErrInvalidTransition.
	CancelReservation(ctx context.Context, id, reason string) (res *domain.Reservation, changed bool, err error)
	// ApprovePayment couples payment approval to reservation confirmation:
	// payment PENDING -> APPROVED with the given method and reference,
	// reservation PENDING_PAYMENT -> CONFIRMED, one mutation.
	ApprovePayment(ctx context.Context, reservationID string, method domain.PaymentMethod, reference string) (*domain.Reservation, *domain.Payment, error)
	// RejectPayment marks a declined gateway charge: PENDING -> REJECTED.
	RejectPayment(ctx context.Context, reservationID string) (*domain.Payment, error)
	// MarkNoShow moves a CONFIRMED reservation to NO_SHOW and its payment
	// to REFUNDED_PARTIAL with the given refund amount.
	MarkNoShow(ctx context.Context, reservationID string, refund int64) (*domain.Reservation, *domain.Payment, error)

	// Runtime config singleton.
	GetConfig(ctx context.Context) (domain.Config, error)
	SetConfig(ctx context.Context, patch domain.ConfigPatch) (domain.Config, error)

	// Append-only ledgers. ListAudit returns entries most-recent-first.
	AppendAudit(ctx context.Context, e domain.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error)
	AppendNotification(ctx context.Context, n domain.Notification) error
}
