package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vpetrenko/courtbooking/internal/domain"
)

// Memory is the in-process Store. A single write mutex serializes every
// mutation; reads copy entities out so callers never alias shared state.
type Memory struct {
	mu sync.RWMutex

	users         map[string]*domain.User
	courts        map[string]*domain.Court
	blocks        map[string]*domain.Block
	reservations  map[string]*domain.Reservation
	payments      map[string]*domain.Payment // keyed by reservation id
	config        domain.Config
	audit         []domain.AuditEntry
	notifications []domain.Notification
}

func NewMemory(cfg domain.Config) *Memory {
	return &Memory{
		users:        make(map[string]*domain.User),
		courts:       make(map[string]*domain.Court),
		blocks:       make(map[string]*domain.Block),
		reservations: make(map[string]*domain.Reservation),
		payments:     make(map[string]*domain.Payment),
		config:       cfg,
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) || existing.GovID == u.GovID || existing.Phone == u.Phone {
			return domain.ErrDuplicateUser
		}
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *Memory) GetUserByPhone(_ context.Context, phone string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *Memory) SetValidationFlags(_ context.Context, id string, emailOK, phoneOK *bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if emailOK != nil {
		u.EmailVerified = *emailOK
	}
	if phoneOK != nil {
		u.PhoneVerified = *phoneOK
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	return &cp, nil
}

func (m *Memory) CreateCourt(_ context.Context, c *domain.Court) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courts[c.ID]; ok {
		return fmt.Errorf("court %s already provisioned", c.ID)
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	m.courts[c.ID] = &cp
	return nil
}

func (m *Memory) GetCourt(_ context.Context, id string) (*domain.Court, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) ListCourts(_ context.Context) ([]domain.Court, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Court, 0, len(m.courts))
	for _, c := range m.courts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) SetCourtActive(_ context.Context, id string, active bool) (*domain.Court, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.Active = active
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	return &cp, nil
}

func (m *Memory) AddBlock(_ context.Context, b *domain.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.CreatedAt = time.Now().UTC()
	b.Date = domain.Day(b.Date)
	cp := *b
	m.blocks[b.ID] = &cp
	return nil
}

func (m *Memory) RemoveBlock(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.blocks, id)
	return nil
}

func (m *Memory) HasBlock(_ context.Context, courtID string, date time.Time, slot domain.Slot) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blockedLocked(courtID, date, slot), nil
}

func (m *Memory) blockedLocked(courtID string, date time.Time, slot domain.Slot) bool {
	day := domain.Day(date)
	for _, b := range m.blocks {
		if b.CourtID == courtID && b.Date.Equal(day) && b.Slot == slot {
			return true
		}
	}
	return false
}

func (m *Memory) CreateReservation(_ context.Context, r *domain.Reservation, p *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Conflict invariants re-checked under the write lock: validation may
	// have run against a stale snapshot while the caller was suspended.
	court, ok := m.courts[r.CourtID]
	if !ok || !court.Active {
		return domain.ErrCourtUnavailable
	}
	if m.blockedLocked(r.CourtID, r.Date, r.Slot) {
		return domain.ErrSlotBlocked
	}
	day := domain.Day(r.Date)
	var courtConflict, userConflict bool
	for _, other := range m.reservations {
		if !other.Status.Active() || !other.Date.Equal(day) || other.Slot != r.Slot {
			continue
		}
		courtConflict = courtConflict || other.CourtID == r.CourtID
		userConflict = userConflict || other.UserID == r.UserID
	}
	// Scan everything before deciding: map order is random, and the court
	// conflict outranks the double booking when both hold.
	if courtConflict {
		return domain.ErrSlotTaken
	}
	if userConflict {
		return domain.ErrUserDoubleBooked
	}

	now := time.Now().UTC()
	r.Date = day
	r.Status = domain.ReservationStatusPendingPayment
	r.CreatedAt, r.UpdatedAt = now, now
	p.ReservationID = r.ID
	p.Status = domain.PaymentStatusPending
	p.CreatedAt, p.UpdatedAt = now, now

	rc, pc := *r, *p
	m.reservations[r.ID] = &rc
	m.payments[r.ID] = &pc
	return nil
}

func (m *Memory) GetReservation(_ context.Context, id string) (*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) GetPaymentByReservation(_ context.Context, reservationID string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[reservationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) ListReservationsForUser(_ context.Context, userID string) ([]domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Reservation
	for _, r := range m.reservations {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListReservationsForCourtDate(_ context.Context, courtID string, date time.Time) ([]domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	day := domain.Day(date)
	var out []domain.Reservation
	for _, r := range m.reservations {
		if r.CourtID == courtID && r.Date.Equal(day) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

func (m *Memory) CancelReservation(_ context.Context, id, reason string) (*domain.Reservation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	switch r.Status {
	case domain.ReservationStatusCancelled:
		cp := *r
		return &cp, false, nil
	case domain.ReservationStatusNoShow:
		return nil, false, domain.ErrInvalidTransition
	}
	r.Status = domain.ReservationStatusCancelled
	r.CancelReason = reason
	r.UpdatedAt = time.Now().UTC()
	cp := *r
	return &cp, true, nil
}

func (m *Memory) ApprovePayment(_ context.Context, reservationID string, method domain.PaymentMethod, reference string) (*domain.Reservation, *domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[reservationID]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	p, ok := m.payments[reservationID]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	if r.Status != domain.ReservationStatusPendingPayment || p.Status != domain.PaymentStatusPending {
		return nil, nil, domain.ErrInvalidTransition
	}
	now := time.Now().UTC()
	p.Status = domain.PaymentStatusApproved
	p.Method = method
	p.Reference = reference
	p.UpdatedAt = now
	r.Status = domain.ReservationStatusConfirmed
	r.UpdatedAt = now
	rc, pc := *r, *p
	return &rc, &pc, nil
}

func (m *Memory) RejectPayment(_ context.Context, reservationID string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[reservationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Status != domain.PaymentStatusPending {
		return nil, domain.ErrInvalidTransition
	}
	p.Status = domain.PaymentStatusRejected
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

func (m *Memory) MarkNoShow(_ context.Context, reservationID string, refund int64) (*domain.Reservation, *domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[reservationID]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	if r.Status != domain.ReservationStatusConfirmed {
		return nil, nil, domain.ErrInvalidTransition
	}
	p := m.payments[reservationID]
	now := time.Now().UTC()
	r.Status = domain.ReservationStatusNoShow
	r.UpdatedAt = now
	p.Status = domain.PaymentStatusRefundedPartial
	p.RefundAmount = refund
	p.UpdatedAt = now
	rc, pc := *r, *p
	return &rc, &pc, nil
}

func (m *Memory) GetConfig(_ context.Context) (domain.Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config, nil
}

func (m *Memory) SetConfig(_ context.Context, patch domain.ConfigPatch) (domain.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = m.config.Apply(patch)
	return m.config, nil
}

func (m *Memory) AppendAudit(_ context.Context, e domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, e)
	return nil
}

func (m *Memory) ListAudit(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.AuditEntry, 0, len(m.audit))
	for i := len(m.audit) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.audit[i])
	}
	return out, nil
}

func (m *Memory) AppendNotification(_ context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

// Notifications returns the persisted outbound records, oldest first.
// Used by tests and diagnostics.
func (m *Memory) Notifications() []domain.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}
