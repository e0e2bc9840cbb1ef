package domain

import "time"

type AuditAction string

const (
	AuditUserRegistered      AuditAction = "user_registered"
	AuditUserLoggedIn        AuditAction = "user_logged_in"
	AuditAccountValidated    AuditAction = "account_validated"
	AuditReservationCreated  AuditAction = "reservation_created"
	AuditReservationCanceled AuditAction = "reservation_cancelled"
	AuditReservationNoShow   AuditAction = "reservation_no_show"
	AuditPaymentApproved     AuditAction = "payment_approved"
	AuditPaymentRejected     AuditAction = "payment_rejected"
	AuditCourtToggled        AuditAction = "court_toggled"
	AuditBlockAdded          AuditAction = "block_added"
	AuditBlockRemoved        AuditAction = "block_removed"
	AuditConfigChanged       AuditAction = "config_changed"
)

// AuditEntry is one row of the append-only action ledger. Entries are
// written only alongside a successful commit and listed most-recent-first.
type AuditEntry struct {
	ID        string
	ActorID   string
	Action    AuditAction
	Detail    string
	CreatedAt time.Time
}
