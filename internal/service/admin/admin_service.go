package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vpetrenko/courtbooking/internal/domain"
	"github.com/vpetrenko/courtbooking/internal/service/booking"
	"github.com/vpetrenko/courtbooking/internal/service/payment"
	"github.com/vpetrenko/courtbooking/internal/store"
)

type AdminUseCase interface {
	SetCourtActive(ctx context.Context, actorID, courtID string, active bool) (*domain.Court, error)
	AddBlock(ctx context.Context, actorID string, input BlockInput) (*domain.Block, error)
	RemoveBlock(ctx context.Context, actorID, blockID string) error
	SetConfig(ctx context.Context, actorID string, patch domain.ConfigPatch) (domain.Config, error)
	CreateManualReservation(ctx context.Context, actorID string, input ManualReservationInput) (*domain.Reservation, error)
	ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

type Cache interface {
	InvalidateCourts(ctx context.Context) error
}

type AdminService struct {
	store    store.Store
	bookings booking.BookingUseCase
	payments payment.PaymentUseCase
	cache    Cache
}

type BlockInput struct {
	CourtID string      `json:"court_id"`
	Date    time.Time   `json:"date"`
	Slot    domain.Slot `json:"slot"`
	Reason  string      `json:"reason"`
}

type ManualReservationInput struct {
	TargetUserID string      `json:"target_user_id"`
	CourtID      string      `json:"court_id"`
	Date         time.Time   `json:"date"`
	Slot         domain.Slot `json:"slot"`
	MarkPaidCash bool        `json:"mark_paid_cash"`
}

func NewAdminService(s store.Store, bookings booking.BookingUseCase, payments payment.PaymentUseCase, cache Cache) *AdminService {
	return &AdminService{store: s, bookings: bookings, payments: payments, cache: cache}
}

// SetCourtActive toggles a court. Existing reservations stay untouched;
// only new bookings are affected.
func (s *AdminService) SetCourtActive(ctx context.Context, actorID, courtID string, active bool) (*domain.Court, error) {
	court, err := s.store.SetCourtActive(ctx, courtID, active)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateCourts(ctx)
	}
	s.audit(ctx, actorID, domain.AuditCourtToggled, fmt.Sprintf("court %s active=%t", courtID, active))
	return court, nil
}

func (s *AdminService) AddBlock(ctx context.Context, actorID string, input BlockInput) (*domain.Block, error) {
	block := &domain.Block{
		ID:        uuid.NewString(),
		CourtID:   input.CourtID,
		Date:      domain.Day(input.Date),
		Slot:      input.Slot,
		Reason:    input.Reason,
		CreatedBy: actorID,
	}
	if _, err := s.store.GetCourt(ctx, input.CourtID); err != nil {
		return nil, err
	}
	if err := s.store.AddBlock(ctx, block); err != nil {
		return nil, err
	}
	s.audit(ctx, actorID, domain.AuditBlockAdded,
		fmt.Sprintf("block %s: court %s %s %s (%s)", block.ID, block.CourtID, block.Date.Format(domain.DateLayout), block.Slot, block.Reason))
	return block, nil
}

func (s *AdminService) RemoveBlock(ctx context.Context, actorID, blockID string) error {
	if err := s.store.RemoveBlock(ctx, blockID); err != nil {
		return err
	}
	s.audit(ctx, actorID, domain.AuditBlockRemoved, "block "+blockID+" removed")
	return nil
}

func (s *AdminService) SetConfig(ctx context.Context, actorID string, patch domain.ConfigPatch) (domain.Config, error) {
	cfg, err := s.store.SetConfig(ctx, patch)
	if err != nil {
		return domain.Config{}, err
	}
	s.audit(ctx, actorID, domain.AuditConfigChanged,
		fmt.Sprintf("config: emailValidation=%t phoneValidation=%t member=%d nonMember=%d %s",
			cfg.RequireEmailValidation, cfg.RequirePhoneValidation, cfg.MemberPrice, cfg.NonMemberPrice, cfg.Currency))
	return cfg, nil
}

// CreateManualReservation composes the booking create with an optional cash
// registration as two engine calls. If the cash step fails the reservation
// stays PENDING_PAYMENT and the failure is surfaced as a domain.PartialError
// carrying the committed reservation id.
func (s *AdminService) CreateManualReservation(ctx context.Context, actorID string, input ManualReservationInput) (*domain.Reservation, error) {
	reservation, err := s.bookings.Create(ctx, actorID, booking.CreateInput{
		TargetUserID: input.TargetUserID,
		CourtID:      input.CourtID,
		Date:         input.Date,
		Slot:         input.Slot,
	})
	if err != nil {
		return nil, err
	}
	if !input.MarkPaidCash {
		return reservation, nil
	}

	if err := s.payments.RegisterCash(ctx, actorID, reservation.ID); err != nil {
		return reservation, &domain.PartialError{ReservationID: reservation.ID, Err: err}
	}
	return reservation, nil
}

func (s *AdminService) ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return s.store.ListAudit(ctx, limit)
}

func (s *AdminService) audit(ctx context.Context, actorID string, action domain.AuditAction, detail string) {
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

var _ AdminUseCase = (*AdminService)(nil)
