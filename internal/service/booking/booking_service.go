package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vpetrenko/courtbooking/internal/domain"
	"github.com/vpetrenko/courtbooking/internal/notify"
	"github.com/vpetrenko/courtbooking/internal/policy"
	"github.com/vpetrenko/courtbooking/internal/store"
)

type BookingUseCase interface {
	Create(ctx context.Context, actorID string, input CreateInput) (*domain.Reservation, error)
	Cancel(ctx context.Context, actorID, reservationID, reason string) error
	MarkNoShow(ctx context.Context, actorID, reservationID string) error
	ListForUser(ctx context.Context, userID string) ([]domain.Reservation, error)
	Courts(ctx context.Context) ([]domain.Court, error)
	Availability(ctx context.Context, courtID string, date time.Time) ([]SlotAvailability, error)
}

type Cache interface {
	GetCourts(ctx context.Context) ([]domain.Court, error)
	SetCourts(ctx context.Context, courts []domain.Court) error
}

type Notifier interface {
	Dispatch(ctx context.Context, ev notify.Event)
}

type BookingService struct {
	store    store.Store
	cache    Cache
	notifier Notifier
	now      func() time.Time
}

type CreateInput struct {
	TargetUserID string      `json:"target_user_id,omitempty"`
	CourtID      string      `json:"court_id"`
	Date         time.Time   `json:"date"`
	Slot         domain.Slot `json:"slot"`
}

type SlotAvailability struct {
	Slot      domain.Slot `json:"slot"`
	Available bool        `json:"available"`
}

type BookingServiceOption func(*BookingService)

// WithClock overrides the advance-window anchor, for tests.
func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(s store.Store, cache Cache, notifier Notifier, opts ...BookingServiceOption) *BookingService {
	service := &BookingService{
		store:    s,
		cache:    cache,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Create runs the validation pipeline in its contract order, short-circuiting
// on the first failure, then commits the reservation and its pending payment
// atomically. The store repeats the conflict checks under its write lock, so
// a race lost between validation and commit reports the same error a
// sequential caller would see.
func (s *BookingService) Create(ctx context.Context, actorID string, input CreateInput) (*domain.Reservation, error) {
	targetID := input.TargetUserID
	if targetID == "" {
		targetID = actorID
	}
	user, err := s.store.GetUser(ctx, targetID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidUser
		}
		return nil, err
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.RequireEmailValidation && !user.EmailVerified {
		return nil, fmt.Errorf("%w: email", domain.ErrAccountNotValidated)
	}
	if cfg.RequirePhoneValidation && !user.PhoneVerified {
		return nil, fmt.Errorf("%w: phone", domain.ErrAccountNotValidated)
	}

	if err := policy.CheckAdvanceWindow(s.now(), input.Date); err != nil {
		return nil, err
	}

	court, err := s.store.GetCourt(ctx, input.CourtID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCourtUnavailable
		}
		return nil, err
	}
	if !court.Active {
		return nil, domain.ErrCourtUnavailable
	}

	blocked, err := s.store.HasBlock(ctx, input.CourtID, input.Date, input.Slot)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, domain.ErrSlotBlocked
	}

	day := domain.Day(input.Date)
	courtRes, err := s.store.ListReservationsForCourtDate(ctx, input.CourtID, day)
	if err != nil {
		return nil, err
	}
	for _, other := range courtRes {
		if other.Status.Active() && other.Slot == input.Slot {
			return nil, domain.ErrSlotTaken
		}
	}
	userRes, err := s.store.ListReservationsForUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	for _, other := range userRes {
		if other.Status.Active() && other.Date.Equal(day) && other.Slot == input.Slot {
			return nil, domain.ErrUserDoubleBooked
		}
	}

	price := cfg.PriceFor(user.Tier)
	reservation := &domain.Reservation{
		ID:          uuid.NewString(),
		UserID:      targetID,
		CreatedBy:   actorID,
		CourtID:     input.CourtID,
		Date:        day,
		Slot:        input.Slot,
		PriceAmount: price,
		Currency:    cfg.Currency,
	}
	payment := &domain.Payment{
		ID:       uuid.NewString(),
		Amount:   price,
		Currency: cfg.Currency,
	}
	if err := s.store.CreateReservation(ctx, reservation, payment); err != nil {
		return nil, err
	}

	s.audit(ctx, actorID, domain.AuditReservationCreated,
		fmt.Sprintf("reservation %s: court %s %s %s for user %s", reservation.ID, reservation.CourtID, day.Format(domain.DateLayout), reservation.Slot, targetID))
	s.notifier.Dispatch(ctx, notify.Event{
		Type:          domain.NotifyReservationCreated,
		UserID:        targetID,
		Email:         user.Email,
		Phone:         user.Phone,
		ReservationID: reservation.ID,
		CourtID:       reservation.CourtID,
		Date:          day.Format(domain.DateLayout),
		Slot:          string(reservation.Slot),
		Amount:        price,
		Currency:      cfg.Currency,
	})
	return reservation, nil
}

// Cancel is idempotent: re-cancelling an already-cancelled reservation
// succeeds without emitting a second audit entry or notification.
func (s *BookingService) Cancel(ctx context.Context, actorID, reservationID, reason string) error {
	reservation, changed, err := s.store.CancelReservation(ctx, reservationID, reason)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	s.audit(ctx, actorID, domain.AuditReservationCanceled,
		fmt.Sprintf("reservation %s cancelled: %s", reservationID, reason))

	user, err := s.store.GetUser(ctx, reservation.UserID)
	if err != nil {
		log.Warn().Err(err).Str("reservation", reservationID).Msg("cancel notification recipient lookup")
		return nil
	}
	s.notifier.Dispatch(ctx, notify.Event{
		Type:          domain.NotifyReservationCancel,
		UserID:        user.ID,
		Email:         user.Email,
		Phone:         user.Phone,
		ReservationID: reservationID,
		CourtID:       reservation.CourtID,
		Date:          reservation.Date.Format(domain.DateLayout),
		Slot:          string(reservation.Slot),
	})
	return nil
}

// MarkNoShow moves a confirmed reservation to NO_SHOW and refunds half of
// the original payment, rounded to the nearest currency unit.
func (s *BookingService) MarkNoShow(ctx context.Context, actorID, reservationID string) error {
	payment, err := s.store.GetPaymentByReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	refund := policy.HalfRefund(payment.Amount)

	reservation, payment, err := s.store.MarkNoShow(ctx, reservationID, refund)
	if err != nil {
		return err
	}

	s.audit(ctx, actorID, domain.AuditReservationNoShow,
		fmt.Sprintf("reservation %s no-show, refund %d %s", reservationID, refund, payment.Currency))

	user, err := s.store.GetUser(ctx, reservation.UserID)
	if err != nil {
		log.Warn().Err(err).Str("reservation", reservationID).Msg("no-show notification recipient lookup")
		return nil
	}
	base := notify.Event{
		UserID:        user.ID,
		Email:         user.Email,
		Phone:         user.Phone,
		ReservationID: reservationID,
		CourtID:       reservation.CourtID,
		Date:          reservation.Date.Format(domain.DateLayout),
		Slot:          string(reservation.Slot),
		Currency:      payment.Currency,
	}
	noShow := base
	noShow.Type = domain.NotifyNoShow
	s.notifier.Dispatch(ctx, noShow)

	refundEv := base
	refundEv.Type = domain.NotifyRefund
	refundEv.Amount = refund
	s.notifier.Dispatch(ctx, refundEv)
	return nil
}

func (s *BookingService) ListForUser(ctx context.Context, userID string) ([]domain.Reservation, error) {
	return s.store.ListReservationsForUser(ctx, userID)
}

func (s *BookingService) Courts(ctx context.Context) ([]domain.Court, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetCourts(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	courts, err := s.store.ListCourts(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetCourts(ctx, courts)
	}
	return courts, nil
}

// Availability reports, per slot of the daily grid, whether the court can
// still be booked for the given date.
func (s *BookingService) Availability(ctx context.Context, courtID string, date time.Time) ([]SlotAvailability, error) {
	court, err := s.store.GetCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}

	day := domain.Day(date)
	reservations, err := s.store.ListReservationsForCourtDate(ctx, courtID, day)
	if err != nil {
		return nil, err
	}
	taken := make(map[domain.Slot]bool)
	for _, r := range reservations {
		if r.Status.Active() {
			taken[r.Slot] = true
		}
	}

	out := make([]SlotAvailability, 0, len(domain.Slots()))
	for _, slot := range domain.Slots() {
		free := court.Active && !taken[slot]
		if free {
			blocked, err := s.store.HasBlock(ctx, courtID, day, slot)
			if err != nil {
				return nil, err
			}
			free = !blocked
		}
		out = append(out, SlotAvailability{Slot: slot, Available: free})
	}
	return out, nil
}

func (s *BookingService) audit(ctx context.Context, actorID string, action domain.AuditAction, detail string) {
	entry := domain.AuditEntry{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		log.Error().Err(err).Str("action", string(action)).Msg("append audit entry")
	}
}

var _ BookingUseCase = (*BookingService)(nil)
