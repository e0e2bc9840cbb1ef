// Package repository provides the Postgres binding of store.Store. Each
// mutating call runs in one SQL transaction and repeats the conflict checks
// inside it, so concurrent writers serialize on the database instead of a
// process-wide lock.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vpetrenko/courtbooking/internal/domain"
	"github.com/vpetrenko/courtbooking/internal/store"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

var _ store.Store = (*PGStore)(nil)

// Postgres unique_violation.
const uniqueViolationCode = "23505"

// mapConflict translates a unique-index violation into the conflict the
// in-transaction re-check would have reported. The court row lock serializes
// same-court writers, but two inserts for one user on different courts lock
// different court rows, and FOR UPDATE cannot see the other transaction's
// uncommitted row. The partial unique indexes settle that race; the loser
// must still observe the sequential outcome.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return err
	}
	switch pgErr.ConstraintName {
	case "reservations_court_slot_idx":
		return domain.ErrSlotTaken
	case "reservations_user_slot_idx":
		return domain.ErrUserDoubleBooked
	case "users_email_idx", "users_gov_id_idx", "users_phone_idx":
		return domain.ErrDuplicateUser
	}
	return err
}

func (s *PGStore) CreateUser(ctx context.Context, u *domain.User) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var count int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM users WHERE lower(email)=lower($1) OR gov_id=$2 OR phone=$3`,
		u.Email, u.GovID, u.Phone).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrDuplicateUser
	}

	if err := tx.QueryRow(ctx, `INSERT INTO users (id, email, phone, gov_id, role, tier, email_verified, phone_verified, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.Phone, u.GovID, u.Role, u.Tier, u.EmailVerified, u.PhoneVerified, u.PasswordHash).
		Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapConflict(err)
	}
	return tx.Commit(ctx)
}

const userColumns = `id, email, phone, gov_id, role, tier, email_verified, phone_verified, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.GovID, &u.Role, &u.Tier, &u.EmailVerified, &u.PhoneVerified, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PGStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (s *PGStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email))
}

func (s *PGStore) GetUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE phone=$1`, phone))
}

func (s *PGStore) SetValidationFlags(ctx context.Context, id string, emailOK, phoneOK *bool) (*domain.User, error) {
	return scanUser(s.db.QueryRow(ctx, `UPDATE users SET
		email_verified = COALESCE($2, email_verified),
		phone_verified = COALESCE($3, phone_verified),
		updated_at = now()
		WHERE id=$1 RETURNING `+userColumns, id, emailOK, phoneOK))
}

func (s *PGStore) CreateCourt(ctx context.Context, c *domain.Court) error {
	return s.db.QueryRow(ctx, `INSERT INTO courts (id, name, active) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Active).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func scanCourt(row pgx.Row) (*domain.Court, error) {
	var c domain.Court
	err := row.Scan(&c.ID, &c.Name, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PGStore) GetCourt(ctx context.Context, id string) (*domain.Court, error) {
	return scanCourt(s.db.QueryRow(ctx, `SELECT id, name, active, created_at, updated_at FROM courts WHERE id=$1`, id))
}

func (s *PGStore) ListCourts(ctx context.Context) ([]domain.Court, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, active, created_at, updated_at FROM courts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courts := make([]domain.Court, 0)
	for rows.Next() {
		var c domain.Court
		if err := rows.Scan(&c.ID, &c.Name, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

func (s *PGStore) SetCourtActive(ctx context.Context, id string, active bool) (*domain.Court, error) {
	return scanCourt(s.db.QueryRow(ctx, `UPDATE courts SET active=$2, updated_at=now() WHERE id=$1
		RETURNING id, name, active, created_at, updated_at`, id, active))
}

func (s *PGStore) AddBlock(ctx context.Context, b *domain.Block) error {
	b.Date = domain.Day(b.Date)
	return s.db.QueryRow(ctx, `INSERT INTO blocks (id, court_id, date, slot, reason, created_by)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		b.ID, b.CourtID, b.Date, b.Slot, b.Reason, b.CreatedBy).Scan(&b.CreatedAt)
}

func (s *PGStore) RemoveBlock(ctx context.Context, id string) error {
	cmd, err := s.db.Exec(ctx, `DELETE FROM blocks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PGStore) HasBlock(ctx context.Context, courtID string, date time.Time, slot domain.Slot) (bool, error) {
	var blocked bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM blocks WHERE court_id=$1 AND date=$2 AND slot=$3)`,
		courtID, domain.Day(date), slot).Scan(&blocked)
	return blocked, err
}

func (s *PGStore) CreateReservation(ctx context.Context, r *domain.Reservation, p *domain.Payment) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	r.Date = domain.Day(r.Date)

	var active bool
	if err := tx.QueryRow(ctx, `SELECT active FROM courts WHERE id=$1 FOR UPDATE`, r.CourtID).Scan(&active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrCourtUnavailable
		}
		return err
	}
	if !active {
		return domain.ErrCourtUnavailable
	}

	var blocked bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM blocks WHERE court_id=$1 AND date=$2 AND slot=$3)`,
		r.CourtID, r.Date, r.Slot).Scan(&blocked); err != nil {
		return err
	}
	if blocked {
		return domain.ErrSlotBlocked
	}

	// Lock candidate conflicting rows before deciding so two writers on
	// the same tuple serialize here.
	rows, err := tx.Query(ctx, `SELECT court_id, user_id FROM reservations
		WHERE date=$1 AND slot=$2 AND status <> 'CANCELLED' AND (court_id=$3 OR user_id=$4)
		FOR UPDATE`, r.Date, r.Slot, r.CourtID, r.UserID)
	if err != nil {
		return err
	}
	var courtConflict, userConflict bool
	for rows.Next() {
		var courtID, userID string
		if err := rows.Scan(&courtID, &userID); err != nil {
			rows.Close()
			return err
		}
		courtConflict = courtConflict || courtID == r.CourtID
		userConflict = userConflict || userID == r.UserID
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if courtConflict {
		return domain.ErrSlotTaken
	}
	if userConflict {
		return domain.ErrUserDoubleBooked
	}

	r.Status = domain.ReservationStatusPendingPayment
	if err := tx.QueryRow(ctx, `INSERT INTO reservations (id, user_id, created_by, court_id, date, slot, status, price_amount, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		r.ID, r.UserID, r.CreatedBy, r.CourtID, r.Date, r.Slot, r.Status, r.PriceAmount, r.Currency).
		Scan(&r.CreatedAt, &r.UpdatedAt); err != nil {
		return mapConflict(err)
	}

	p.ReservationID = r.ID
	p.Status = domain.PaymentStatusPending
	if err := tx.QueryRow(ctx, `INSERT INTO payments (id, reservation_id, method, status, amount, currency, refund_amount, reference)
		VALUES ($1, $2, $3, $4, $5, $6, 0, '')
		RETURNING created_at, updated_at`,
		p.ID, p.ReservationID, p.Method, p.Status, p.Amount, p.Currency).
		Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return err
	}

	return mapConflict(tx.Commit(ctx))
}

const reservationColumns = `id, user_id, created_by, court_id, date, slot, status, price_amount, currency, cancel_reason, created_at, updated_at`

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var r domain.Reservation
	err := row.Scan(&r.ID, &r.UserID, &r.CreatedBy, &r.CourtID, &r.Date, &r.Slot, &r.Status, &r.PriceAmount, &r.Currency, &r.CancelReason, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PGStore) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	return scanReservation(s.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=$1`, id))
}

const paymentColumns = `id, reservation_id, method, status, amount, currency, refund_amount, reference, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.ReservationID, &p.Method, &p.Status, &p.Amount, &p.Currency, &p.RefundAmount, &p.Reference, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PGStore) GetPaymentByReservation(ctx context.Context, reservationID string) (*domain.Payment, error) {
	return scanPayment(s.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reservation_id=$1`, reservationID))
}

func (s *PGStore) listReservations(ctx context.Context, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Reservation, 0)
	for rows.Next() {
		var r domain.Reservation
		if err := rows.Scan(&r.ID, &r.UserID, &r.CreatedBy, &r.CourtID, &r.Date, &r.Slot, &r.Status, &r.PriceAmount, &r.Currency, &r.CancelReason, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) ListReservationsForUser(ctx context.Context, userID string) ([]domain.Reservation, error) {
	return s.listReservations(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (s *PGStore) ListReservationsForCourtDate(ctx context.Context, courtID string, date time.Time) ([]domain.Reservation, error) {
	return s.listReservations(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE court_id=$1 AND date=$2 ORDER BY slot`, courtID, domain.Day(date))
}

func (s *PGStore) CancelReservation(ctx context.Context, id, reason string) (*domain.Reservation, bool, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	r, err := scanReservation(tx.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, false, err
	}
	switch r.Status {
	case domain.ReservationStatusCancelled:
		return r, false, tx.Commit(ctx)
	case domain.ReservationStatusNoShow:
		return nil, false, domain.ErrInvalidTransition
	}

	r, err = scanReservation(tx.QueryRow(ctx, `UPDATE reservations SET status=$2, cancel_reason=$3, updated_at=now() WHERE id=$1
		RETURNING `+reservationColumns, id, domain.ReservationStatusCancelled, reason))
	if err != nil {
		return nil, false, err
	}
	return r, true, tx.Commit(ctx)
}

func (s *PGStore) ApprovePayment(ctx context.Context, reservationID string, method domain.PaymentMethod, reference string) (*domain.Reservation, *domain.Payment, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	r, err := scanReservation(tx.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=$1 FOR UPDATE`, reservationID))
	if err != nil {
		return nil, nil, err
	}
	p, err := scanPayment(tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reservation_id=$1 FOR UPDATE`, reservationID))
	if err != nil {
		return nil, nil, err
	}
	if r.Status != domain.ReservationStatusPendingPayment || p.Status != domain.PaymentStatusPending {
		return nil, nil, domain.ErrInvalidTransition
	}

	p, err = scanPayment(tx.QueryRow(ctx, `UPDATE payments SET status=$2, method=$3, reference=$4, updated_at=now() WHERE reservation_id=$1
		RETURNING `+paymentColumns, reservationID, domain.PaymentStatusApproved, method, reference))
	if err != nil {
		return nil, nil, err
	}
	r, err = scanReservation(tx.QueryRow(ctx, `UPDATE reservations SET status=$2, updated_at=now() WHERE id=$1
		RETURNING `+reservationColumns, reservationID, domain.ReservationStatusConfirmed))
	if err != nil {
		return nil, nil, err
	}
	return r, p, tx.Commit(ctx)
}

func (s *PGStore) RejectPayment(ctx context.Context, reservationID string) (*domain.Payment, error) {
	p, err := scanPayment(s.db.QueryRow(ctx, `UPDATE payments SET status=$2, updated_at=now()
		WHERE reservation_id=$1 AND status=$3 RETURNING `+paymentColumns,
		reservationID, domain.PaymentStatusRejected, domain.PaymentStatusPending))
	if errors.Is(err, domain.ErrNotFound) {
		// Either no such payment or it already left PENDING.
		if _, getErr := s.GetPaymentByReservation(ctx, reservationID); getErr == nil {
			return nil, domain.ErrInvalidTransition
		}
		return nil, domain.ErrNotFound
	}
	return p, err
}

func (s *PGStore) MarkNoShow(ctx context.Context, reservationID string, refund int64) (*domain.Reservation, *domain.Payment, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	r, err := scanReservation(tx.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=$1 FOR UPDATE`, reservationID))
	if err != nil {
		return nil, nil, err
	}
	if r.Status != domain.ReservationStatusConfirmed {
		return nil, nil, domain.ErrInvalidTransition
	}

	r, err = scanReservation(tx.QueryRow(ctx, `UPDATE reservations SET status=$2, updated_at=now() WHERE id=$1
		RETURNING `+reservationColumns, reservationID, domain.ReservationStatusNoShow))
	if err != nil {
		return nil, nil, err
	}
	p, err := scanPayment(tx.QueryRow(ctx, `UPDATE payments SET status=$2, refund_amount=$3, updated_at=now() WHERE reservation_id=$1
		RETURNING `+paymentColumns, reservationID, domain.PaymentStatusRefundedPartial, refund))
	if err != nil {
		return nil, nil, err
	}
	return r, p, tx.Commit(ctx)
}

// EnsureConfig seeds the config singleton on first boot. Values already in
// the database win over the bootstrap defaults.
func (s *PGStore) EnsureConfig(ctx context.Context, c domain.Config) error {
	_, err := s.db.Exec(ctx, `INSERT INTO config (id, require_email_validation, require_phone_validation, member_price, non_member_price, currency)
		VALUES (1, $1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
		c.RequireEmailValidation, c.RequirePhoneValidation, c.MemberPrice, c.NonMemberPrice, c.Currency)
	return err
}

func (s *PGStore) GetConfig(ctx context.Context) (domain.Config, error) {
	var c domain.Config
	err := s.db.QueryRow(ctx, `SELECT require_email_validation, require_phone_validation, member_price, non_member_price, currency FROM config WHERE id=1`).
		Scan(&c.RequireEmailValidation, &c.RequirePhoneValidation, &c.MemberPrice, &c.NonMemberPrice, &c.Currency)
	return c, err
}

func (s *PGStore) SetConfig(ctx context.Context, patch domain.ConfigPatch) (domain.Config, error) {
	var c domain.Config
	err := s.db.QueryRow(ctx, `UPDATE config SET
		require_email_validation = COALESCE($1, require_email_validation),
		require_phone_validation = COALESCE($2, require_phone_validation),
		member_price = COALESCE($3, member_price),
		non_member_price = COALESCE($4, non_member_price),
		currency = COALESCE($5, currency)
		WHERE id=1
		RETURNING require_email_validation, require_phone_validation, member_price, non_member_price, currency`,
		patch.RequireEmailValidation, patch.RequirePhoneValidation, patch.MemberPrice, patch.NonMemberPrice, patch.Currency).
		Scan(&c.RequireEmailValidation, &c.RequirePhoneValidation, &c.MemberPrice, &c.NonMemberPrice, &c.Currency)
	return c, err
}

func (s *PGStore) AppendAudit(ctx context.Context, e domain.AuditEntry) error {
	_, err := s.db.Exec(ctx, `INSERT INTO audit_entries (id, actor_id, action, detail, created_at) VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.ActorID, e.Action, e.Detail, e.CreatedAt)
	return err
}

func (s *PGStore) ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `SELECT id, actor_id, action, detail, created_at FROM audit_entries ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.AuditEntry, 0, limit)
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PGStore) AppendNotification(ctx context.Context, n domain.Notification) error {
	_, err := s.db.Exec(ctx, `INSERT INTO notifications (id, event, channel, recipient, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.Event, n.Channel, n.Recipient, n.Payload, n.CreatedAt)
	return err
}
