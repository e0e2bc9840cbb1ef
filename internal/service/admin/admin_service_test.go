package admin

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
	"github.com/vpetrenko/courtbooking/internal/service/booking"
	"github.com/vpetrenko/courtbooking/internal/service/payment"
	"github.com/vpetrenko/courtbooking/internal/store"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) InvalidateCourts(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type stubGateway struct{}

func (stubGateway) Charge(context.Context, int64, string, string) (gateway.ChargeResult, error) {
	return gateway.ChargeResult{}, errors.New("gateway not wired in this test")
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

type fixture struct {
	store   *store.Memory
	cache   *MockCache
	service *AdminService
	admin   *domain.User
	member  *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory(domain.Config{MemberPrice: 1500, NonMemberPrice: 2500, Currency: "EUR"})
	ctx := context.Background()

	admin := &domain.User{ID: "admin-1", Email: "desk@example.com", Phone: "+34911999000", GovID: "A1234568", Tier: domain.TierMember, Role: domain.RoleAdmin}
	member := &domain.User{ID: "user-1", Email: "ana@example.com", Phone: "+34911222333", GovID: "X1234568", Tier: domain.TierMember, Role: domain.RoleMember}
	assert.NoError(t, mem.CreateUser(ctx, admin))
	assert.NoError(t, mem.CreateUser(ctx, member))
	assert.NoError(t, mem.CreateCourt(ctx, &domain.Court{ID: "court-1", Name: "Court 1", Active: true}))

	recorder := &notifierRecorder{}
	bookings := booking.NewBookingService(mem, nil, recorder)
	payments := payment.NewPaymentService(mem, stubGateway{}, payment.NewStoreAuthorizer(mem), recorder)

	cache := &MockCache{}
	service := NewAdminService(mem, bookings, payments, cache)
	return &fixture{store: mem, cache: cache, service: service, admin: admin, member: member}
}

func TestAdminService_SetCourtActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cache.On("InvalidateCourts", ctx).Return(nil).Once()

	court, err := f.service.SetCourtActive(ctx, f.admin.ID, "court-1", false)
	assert.NoError(t, err)
	assert.False(t, court.Active)

	_, err = f.service.SetCourtActive(ctx, f.admin.ID, "court-99", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.cache.AssertExpectations(t)

	entries, err := f.store.ListAudit(ctx, 1)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, domain.AuditCourtToggled, entries[0].Action)
}

func TestAdminService_Blocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := time.Now().UTC().AddDate(0, 0, 2)

	block, err := f.service.AddBlock(ctx, f.admin.ID, BlockInput{CourtID: "court-1", Date: date, Slot: "10:00", Reason: "maintenance"})
	assert.NoError(t, err)
	assert.Equal(t, f.admin.ID, block.CreatedBy)

	blocked, err := f.store.HasBlock(ctx, "court-1", date, "10:00")
	assert.NoError(t, err)
	assert.True(t, blocked)

	_, err = f.service.AddBlock(ctx, f.admin.ID, BlockInput{CourtID: "court-99", Date: date, Slot: "10:00"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, f.service.RemoveBlock(ctx, f.admin.ID, block.ID))
	blocked, err = f.store.HasBlock(ctx, "court-1", date, "10:00")
	assert.NoError(t, err)
	assert.False(t, blocked)

	assert.ErrorIs(t, f.service.RemoveBlock(ctx, f.admin.ID, block.ID), domain.ErrNotFound)
}

func TestAdminService_SetConfig_PartialPatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newPrice := int64(1800)
	cfg, err := f.service.SetConfig(ctx, f.admin.ID, domain.ConfigPatch{MemberPrice: &newPrice})
	assert.NoError(t, err)
	assert.Equal(t, int64(1800), cfg.MemberPrice)
	// Untouched fields keep their values.
	assert.Equal(t, int64(2500), cfg.NonMemberPrice)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.False(t, cfg.RequireEmailValidation)
}

func TestAdminService_CreateManualReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reservation, err := f.service.CreateManualReservation(ctx, f.admin.ID, ManualReservationInput{
		TargetUserID: f.member.ID,
		CourtID:      "court-1",
		Date:         time.Now().UTC().AddDate(0, 0, 1),
		Slot:         "10:00",
		MarkPaidCash: true,
	})
	assert.NoError(t, err)
	assert.Equal(t, f.member.ID, reservation.UserID)
	assert.Equal(t, f.admin.ID, reservation.CreatedBy)

	stored, err := f.store.GetReservation(ctx, reservation.ID)
	assert.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusConfirmed, stored.Status)

	pay, err := f.store.GetPaymentByReservation(ctx, reservation.ID)
	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentMethodCash, pay.Method)
	assert.Equal(t, "cash:"+f.admin.ID, pay.Reference)
}

func TestAdminService_CreateManualReservation_WithoutCash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reservation, err := f.service.CreateManualReservation(ctx, f.admin.ID, ManualReservationInput{
		TargetUserID: f.member.ID,
		CourtID:      "court-1",
		Date:         time.Now().UTC().AddDate(0, 0, 1),
		Slot:         "11:00",
	})
	assert.NoError(t, err)

	stored, err := f.store.GetReservation(ctx, reservation.ID)
	assert.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusPendingPayment, stored.Status)
}

// When the cash step fails the reservation has already committed; the caller
// gets both the reservation and the failure.
func TestAdminService_CreateManualReservation_Partial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// An actor without the admin role books fine but cannot register cash.
	reservation, err := f.service.CreateManualReservation(ctx, f.member.ID, ManualReservationInput{
		TargetUserID: f.member.ID,
		CourtID:      "court-1",
		Date:         time.Now().UTC().AddDate(0, 0, 1),
		Slot:         "12:00",
		MarkPaidCash: true,
	})

	var partial *domain.PartialError
	assert.ErrorAs(t, err, &partial)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.NotNil(t, reservation)
	assert.Equal(t, reservation.ID, partial.ReservationID)

	stored, err := f.store.GetReservation(ctx, reservation.ID)
	assert.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusPendingPayment, stored.Status)
}

func TestAdminService_CreateManualReservation_FirstStepFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateManualReservation(ctx, f.admin.ID, ManualReservationInput{
		TargetUserID: "ghost",
		CourtID:      "court-1",
		Date:         time.Now().UTC().AddDate(0, 0, 1),
		Slot:         "13:00",
		MarkPaidCash: true,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidUser)

	var partial *domain.PartialError
	assert.False(t, errors.As(err, &partial))
}

func TestAdminService_ListAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cache.On("InvalidateCourts", ctx).Return(nil)
	_, err := f.service.SetCourtActive(ctx, f.admin.ID, "court-1", false)
	assert.NoError(t, err)
	_, err = f.service.SetCourtActive(ctx, f.admin.ID, "court-1", true)
	assert.NoError(t, err)

	entries, err := f.service.ListAudit(ctx, 1)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	// Most recent first.
	assert.Contains(t, entries[0].Detail, "active=true")

	entries, err = f.service.ListAudit(ctx, 0)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}
