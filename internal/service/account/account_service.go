package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/vpetrenko/courtbooking/internal/domain"
	"github.com/vpetrenko/courtbooking/internal/notify"
	"github.com/vpetrenko/courtbooking/internal/policy"
	"github.com/vpetrenko/courtbooking/internal/store"
)

const minGovIDLength = 6

type AccountUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	LoginWithCredentials(ctx context.Context, email, password string) (*domain.User, error)
	RequestOneTimeCode(ctx context.Context, channel, destination string) error
	LoginWithOneTimeCode(ctx context.Context, channel, destination, code string) (*domain.User, error)
	ValidateAccount(ctx context.Context, actorID, userID string, emailOK, phoneOK *bool) (*domain.User, error)
}

// MembershipLookup resolves the registration-time tier. The call may be
// latent; it runs before any store mutation so the write lock is never held
// across it.
type MembershipLookup interface {
	Active(ctx context.Context, govID string) (bool, error)
}

// CodeChallenges is the external one-time-code provider boundary.
type CodeChallenges interface {
	Issue(ctx context.Context, channel, destination string) (string, error)
	Verify(ctx context.Context, channel, destination, code string) (bool, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, ev notify.Event)
}

type AccountService struct {
	store      store.Store
	membership MembershipLookup
	codes      CodeChallenges
	notifier   Notifier
}

type RegisterInput struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	GovID    string `json:"gov_id"`
	Password string `json:"password"`
}

func NewAccountService(s store.Store, membership MembershipLookup, codes CodeChallenges, notifier Notifier) *AccountService {
	return &AccountService{store: s, membership: membership, codes: codes, notifier: notifier}
}

func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	phone := strings.TrimSpace(input.Phone)
	govID := strings.TrimSpace(input.GovID)

	if len(govID) < minGovIDLength {
		return nil, fmt.Errorf("%w: government id too short", domain.ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: malformed email", domain.ErrInvalidInput)
	}
	if phone == "" {
		return nil, fmt.Errorf("%w: phone is required", domain.ErrInvalidInput)
	}
	if err := policy.CheckPassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	// Suspend point: the registry call happens before the store mutation,
	// and CreateUser repeats the duplicate check under its own lock.
	active, err := s.membership.Active(ctx, govID)
	if err != nil {
		return nil, fmt.Errorf("membership lookup: %w", err)
	}
	tier := domain.TierNonMember
	if active {
		tier = domain.TierMember
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Phone:        phone,
		GovID:        govID,
		Role:         domain.RoleMember,
		Tier:         tier,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.audit(ctx, user.ID, domain.AuditUserRegistered, fmt.Sprintf("user %s registered, tier %s", email, tier))
	s.notifier.Dispatch(ctx, notify.Event{
		Type:     domain.NotifyAccountValidation,
		UserID:   user.ID,
		Email:    user.Email,
		Phone:    user.Phone,
		Channels: []string{"email", "sms"},
	})
	return user, nil
}

func (s *AccountService) LoginWithCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	s.audit(ctx, user.ID, domain.AuditUserLoggedIn, "credential login")
	return user, nil
}

// RequestOneTimeCode issues a login code and hands it to the requested
// channel for delivery. The destination may not belong to a known user yet;
// the lookup happens at verification time.
func (s *AccountService) RequestOneTimeCode(ctx context.Context, channel, destination string) error {
	code, err := s.codes.Issue(ctx, channel, destination)
	if err != nil {
		return err
	}

	ev := notify.Event{
		Type:     domain.NotifyOneTimeCode,
		Channels: []string{channel},
		Code:     code,
	}
	if channel == "sms" {
		ev.Phone = destination
	} else {
		ev.Email = destination
	}
	s.notifier.Dispatch(ctx, ev)
	return nil
}

func (s *AccountService) LoginWithOneTimeCode(ctx context.Context, channel, destination, code string) (*domain.User, error) {
	ok, err := s.codes.Verify(ctx, channel, destination, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidCode
	}

	var user *domain.User
	if channel == "sms" {
		user, err = s.store.GetUserByPhone(ctx, destination)
	} else {
		user, err = s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(destination)))
	}
	if err != nil {
		return nil, err
	}
	s.audit(ctx, user.ID, domain.AuditUserLoggedIn, "one-time-code login via "+channel)
	return user, nil
}

func (s *AccountService) ValidateAccount(ctx context.Context, actorID, userID string, emailOK, phoneOK *bool) (*domain.User, error) {
	user, err := s.store.SetValidationFlags(ctx, userID, emailOK, phoneOK)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actorID, domain.AuditAccountValidated,
		fmt.Sprintf("user %s flags: email=%t phone=%t", userID, user.EmailVerified, user.PhoneVerified))
	s.notifier.Dispatch(ctx, notify.Event{
		Type:   domain.NotifyAccountValidation,
		UserID: user.ID,
		Email:  user.Email,
		Phone:  user.Phone,
	})
	return user, nil
}

func (s *AccountService) audit(ctx context.Context, actorID string, action domain.AuditAction, detail string) {
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

var _ AccountUseCase = (*AccountService)(nil)
