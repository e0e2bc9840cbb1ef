package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/vpetrenko/courtbooking/internal/domain"
	"github.com/vpetrenko/courtbooking/internal/gateway"
	"github.com/vpetrenko/courtbooking/internal/notify"
	"github.com/vpetrenko/courtbooking/internal/policy"
	"github.com/vpetrenko/courtbooking/internal/service/booking"
	"github.com/vpetrenko/courtbooking/internal/store"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Charge(ctx context.Context, amount int64, currency, reservationID string) (gateway.ChargeResult, error) {
	args := m.Called(ctx, amount, currency, reservationID)
	return args.Get(0).(gateway.ChargeResult), args.Error(1)
}

type notifierRecorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *notifierRecorder) Dispatch(_ context.Context, ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *notifierRecorder) ofType(t domain.NotificationEvent) []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Event
	for _, ev := range n.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	store       *store.Memory
	gateway     *MockGateway
	recorder    *notifierRecorder
	payments    *PaymentService
	member      *domain.User
	admin       *domain.User
	reservation *domain.Reservation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory(domain.Config{MemberPrice: 1500, NonMemberPrice: 2500, Currency: "EUR"})
	ctx := context.Background()

	member := &domain.User{ID: "user-1", Email: "ana@example.com", Phone: "+34911222333", GovID: "X1234568", Tier: domain.TierMember, Role: domain.RoleMember}
	admin := &domain.User{ID: "admin-1", Email: "desk@example.com", Phone: "+34911999000", GovID: "A1234568", Tier: domain.TierMember, Role: domain.RoleAdmin}
	assert.NoError(t, mem.CreateUser(ctx, member))
	assert.NoError(t, mem.CreateUser(ctx, admin))
	assert.NoError(t, mem.CreateCourt(ctx, &domain.Court{ID: "court-1", Name: "Court 1", Active: true}))

	reservation := &domain.Reservation{
		ID:          "res-1",
		UserID:      member.ID,
		CreatedBy:   member.ID,
		CourtID:     "court-1",
		Date:        domain.Day(time.Now().UTC().AddDate(0, 0, 1)),
		Slot:        "10:00",
		PriceAmount: 1500,
		Currency:    "EUR",
	}
	pending := &domain.Payment{ID: "pay-1", Amount: 1500, Currency: "EUR"}
	assert.NoError(t, mem.CreateReservation(ctx, reservation, pending))

	gw := &MockGateway{}
	recorder := &notifierRecorder{}
	payments := NewPaymentService(mem, gw, NewStoreAuthorizer(mem), recorder)
	return &fixture{store: mem, gateway: gw, recorder: recorder, payments: payments, member: member, admin: admin, reservation: reservation}
}

func TestPaymentService_PayOnline_Approved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gateway.On("Charge", ctx, int64(1500), "EUR", "res-1").
		Return(gateway.ChargeResult{Approved: true, Reference: "txn-42"}, nil).Once()

	assert.NoError(t, f.payments.PayOnline(ctx, f.member.ID, "res-1"))

	reservation, err := f.store.GetReservation(ctx, "res-1")
	assert.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusConfirmed, reservation.Status)

	payment, err := f.store.GetPaymentByReservation(ctx, "res-1")
	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusApproved, payment.Status)
	assert.Equal(t, domain.PaymentMethodOnline, payment.Method)
	assert.Equal(t, "txn-42", payment.Reference)

	confirmed := f.recorder.ofType(domain.NotifyPaymentConfirmed)
	assert.Len(t, confirmed, 1)
	assert.Equal(t, int64(1500), confirmed[0].Amount)

	f.gateway.AssertExpectations(t)
}

func TestPaymentService_PayOnline_Declined(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gateway.On("Charge", ctx, int64(1500), "EUR", "res-1").
		Return(gateway.ChargeResult{Approved: false, Reference: "decl-7"}, nil).Once()

	err := f.payments.PayOnline(ctx, f.member.ID, "res-1")
	assert.ErrorIs(t, err, domain.ErrPaymentRejected)

	// The decline is terminal for this payment; the reservation never confirms.
	payment, err := f.store.GetPaymentByReservation(ctx, "res-1")
	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRejected, payment.Status)

	reservation, err := f.store.GetReservation(ctx, "res-1")
	assert.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusPendingPayment, reservation.Status)

	assert.Empty(t, f.recorder.ofType(domain.NotifyPaymentConfirmed))
}

// A transport failure commits nothing: the payment stays PENDING and a retry
// can still succeed.
func TestPaymentService_PayOnline_TransportErrorThenRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gateway.On("Charge", ctx, int64(1500), "EUR", "res-1").
		Return(gateway.ChargeResult{}, errors.New("gateway timeout")).Once()

	err := f.payments.PayOnline(ctx, f.member.ID, "res-1")
	assert.ErrorIs(t, err, domain.ErrPaymentRejected)

	payment, err := f.store.GetPaymentByReservation(ctx, "res-1")
	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)

	f.gateway.On("Charge", ctx, int64(1500), "EUR", "res-1").
		Return(gateway.ChargeResult{Approved: true, Reference: "txn-43"}, nil).Once()

	assert.NoError(t, f.payments.PayOnline(ctx, f.member.ID, "res-1"))

	reservation, err := f.store.GetReservation(ctx, "res-1")
	assert.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusConfirmed, reservation.Status)

	f.gateway.AssertExpectations(t)
}

func TestPaymentService_PayOnline_WrongState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.store.ApprovePayment(ctx, "res-1", domain.PaymentMethodOnline, "txn-1")
	assert.NoError(t, err)

	err = f.payments.PayOnline(ctx, f.member.ID, "res-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	f.gateway.AssertNotCalled(t, "Charge")

	assert.ErrorIs(t, f.payments.PayOnline(ctx, f.member.ID, "res-404"), domain.ErrNotFound)
}

func TestPaymentService_RegisterCash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Members cannot register cash payments.
	err := f.payments.RegisterCash(ctx, f.member.ID, "res-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	assert.NoError(t, f.payments.RegisterCash(ctx, f.admin.ID, "res-1"))

	payment, err := f.store.GetPaymentByReservation(ctx, "res-1")
	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusApproved, payment.Status)
	assert.Equal(t, domain.PaymentMethodCash, payment.Method)
	assert.Equal(t, "cash:admin-1", payment.Reference)

	reservation, err := f.store.GetReservation(ctx, "res-1")
	assert.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusConfirmed, reservation.Status)

	// Cash on an already-approved payment fails.
	assert.ErrorIs(t, f.payments.RegisterCash(ctx, f.admin.ID, "res-1"), domain.ErrInvalidTransition)

	f.gateway.AssertNotCalled(t, "Charge")
}

func TestStoreAuthorizer_UnknownActor(t *testing.T) {
	mem := store.NewMemory(domain.Config{})
	authorizer := NewStoreAuthorizer(mem)

	ok, err := authorizer.IsAdmin(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.False(t, ok)
}

// Full member journey: book, pay online, then no-show with the half refund.
func TestReservationLifecycle(t *testing.T) {
	mem := store.NewMemory(domain.Config{MemberPrice: 1501, NonMemberPrice: 2500, Currency: "EUR"})
	ctx := context.Background()

	member := &domain.User{ID: "user-1", Email: "ana@example.com", Phone: "+34911222333", Tier: domain.TierMember}
	assert.NoError(t, mem.CreateUser(ctx, member))
	assert.NoError(t, mem.CreateCourt(ctx, &domain.Court{ID: "court-1", Name: "Court 1", Active: true}))

	recorder := &notifierRecorder{}
	bookings := booking.NewBookingService(mem, nil, recorder)
	gw := &MockGateway{}
	payments := NewPaymentService(mem, gw, NewStoreAuthorizer(mem), recorder)

	reservation, err := bookings.Create(ctx, member.ID, booking.CreateInput{
		CourtID: "court-1",
		Date:    time.Now().UTC().AddDate(0, 0, 2),
		Slot:    "18:00",
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusPendingPayment, reservation.Status)
	assert.Equal(t, int64(1501), reservation.PriceAmount)

	gw.On("Charge", ctx, int64(1501), "EUR", reservation.ID).
		Return(gateway.ChargeResult{Approved: true, Reference: "txn-9"}, nil).Once()
	assert.NoError(t, payments.PayOnline(ctx, member.ID, reservation.ID))

	assert.NoError(t, bookings.MarkNoShow(ctx, "admin-1", reservation.ID))

	final, err := mem.GetReservation(ctx, reservation.ID)
	assert.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusNoShow, final.Status)

	payment, err := mem.GetPaymentByReservation(ctx, reservation.ID)
	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefundedPartial, payment.Status)
	assert.Equal(t, policy.HalfRefund(1501), payment.RefundAmount)
	assert.Equal(t, int64(751), payment.RefundAmount) // .5 rounds up

	// One event per stage, in order.
	assert.Len(t, recorder.ofType(domain.NotifyReservationCreated), 1)
	assert.Len(t, recorder.ofType(domain.NotifyPaymentConfirmed), 1)
	assert.Len(t, recorder.ofType(domain.NotifyNoShow), 1)
	assert.Len(t, recorder.ofType(domain.NotifyRefund), 1)

	gw.AssertExpectations(t)
}
