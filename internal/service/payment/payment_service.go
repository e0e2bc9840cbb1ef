package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vpetrenko/courtbooking/internal/domain"
	"github.com/vpetrenko/courtbooking/internal/gateway"
	"github.com/vpetrenko/courtbooking/internal/notify"
	"github.com/vpetrenko/courtbooking/internal/store"
)

type PaymentUseCase interface {
	PayOnline(ctx context.Context, actorID, reservationID string) error
	RegisterCash(ctx context.Context, actorID, reservationID string) error
}

// Gateway is the external charge provider boundary. The call is
// latency-bearing and runs outside the store lock.
type Gateway interface {
	Charge(ctx context.Context, amount int64, currency, reservationID string) (gateway.ChargeResult, error)
}

// Authorizer is the capability hook guarding the manual cash path.
type Authorizer interface {
	IsAdmin(ctx context.Context, actorID string) (bool, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, ev notify.Event)
}

type PaymentService struct {
	store      store.Store
	gateway    Gateway
	authorizer Authorizer
	notifier   Notifier
}

func NewPaymentService(s store.Store, gw Gateway, authorizer Authorizer, notifier Notifier) *PaymentService {
	return &PaymentService{store: s, gateway: gw, authorizer: authorizer, notifier: notifier}
}

// PayOnline charges the external gateway and, on approval, confirms the
// reservation and approves the payment in one atomic commit. The commit
// re-checks both state machines under the store lock, so a reservation that
// changed state during the gateway round trip fails with
// domain.ErrInvalidTransition instead of double-charging the booking.
func (s *PaymentService) PayOnline(ctx context.Context, actorID, reservationID string) error {
	reservation, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	payment, err := s.store.GetPaymentByReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if reservation.Status != domain.ReservationStatusPendingPayment || payment.Status != domain.PaymentStatusPending {
		return domain.ErrInvalidTransition
	}

	result, err := s.gateway.Charge(ctx, payment.Amount, payment.Currency, reservationID)
	if err != nil {
		// Transport failure: nothing committed, the payment stays PENDING
		// and the caller may retry.
		return fmt.Errorf("%w: %v", domain.ErrPaymentRejected, err)
	}
	if !result.Approved {
		// An explicit decline is terminal for this payment.
		if _, rejErr := s.store.RejectPayment(ctx, reservationID); rejErr != nil && !errors.Is(rejErr, domain.ErrInvalidTransition) {
			return rejErr
		}
		s.audit(ctx, actorID, domain.AuditPaymentRejected,
			fmt.Sprintf("reservation %s: gateway declined (%s)", reservationID, result.Reference))
		return domain.ErrPaymentRejected
	}

	return s.approve(ctx, actorID, reservationID, domain.PaymentMethodOnline, result.Reference)
}

// RegisterCash records a manual cash payment. Admin-only; the reference
// records the administering actor.
func (s *PaymentService) RegisterCash(ctx context.Context, actorID, reservationID string) error {
	ok, err := s.authorizer.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return s.approve(ctx, actorID, reservationID, domain.PaymentMethodCash, "cash:"+actorID)
}

func (s *PaymentService) approve(ctx context.Context, actorID, reservationID string, method domain.PaymentMethod, reference string) error {
	reservation, payment, err := s.store.ApprovePayment(ctx, reservationID, method, reference)
	if err != nil {
		return err
	}

	s.audit(ctx, actorID, domain.AuditPaymentApproved,
		fmt.Sprintf("reservation %s paid via %s (%s)", reservationID, method, reference))

	user, err := s.store.GetUser(ctx, reservation.UserID)
	if err != nil {
		log.Warn().Err(err).Str("reservation", reservationID).Msg("payment notification recipient lookup")
		return nil
	}
	s.notifier.Dispatch(ctx, notify.Event{
		Type:          domain.NotifyPaymentConfirmed,
		UserID:        user.ID,
		Email:         user.Email,
		Phone:         user.Phone,
		ReservationID: reservationID,
		CourtID:       reservation.CourtID,
		Date:          reservation.Date.Format(domain.DateLayout),
		Slot:          string(reservation.Slot),
		Amount:        payment.Amount,
		Currency:      payment.Currency,
	})
	return nil
}

func (s *PaymentService) audit(ctx context.Context, actorID string, action domain.AuditAction, detail string) {
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

// StoreAuthorizer derives the cash capability from the actor's stored role.
type StoreAuthorizer struct {
	store store.Store
}

func NewStoreAuthorizer(s store.Store) *StoreAuthorizer {
	return &StoreAuthorizer{store: s}
}

func (a *StoreAuthorizer) IsAdmin(ctx context.Context, actorID string) (bool, error) {
	user, err := a.store.GetUser(ctx, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Role == domain.RoleAdmin, nil
}

var _ PaymentUseCase = (*PaymentService)(nil)
var _ Authorizer = (*StoreAuthorizer)(nil)
