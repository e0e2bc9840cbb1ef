package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vpetrenko/courtbooking/internal/domain"
)

func TestCheckAdvanceWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		date time.Time
		want error
	}{
		{"today", now, nil},
		{"today at midnight", domain.Day(now), nil},
		{"yesterday", now.AddDate(0, 0, -1), domain.ErrPastDate},
		{"seven days ahead", now.AddDate(0, 0, 7), nil},
		{"eight days ahead", now.AddDate(0, 0, 8), domain.ErrTooFarAhead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAdvanceWindow(now, tt.date)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"abc123", false},   // no upper, no symbol
		{"Abc123", false},   // no symbol
		{"abc123!", false},  // no upper
		{"Ab1!", false},     // too short
		{"Abc123!", true},
		{"P@ssw0rd", true},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := CheckPassword(tt.password)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrWeakPassword)
			}
		})
	}
}

func TestHalfRefund(t *testing.T) {
	assert.Equal(t, int64(500), HalfRefund(1000))
	assert.Equal(t, int64(3), HalfRefund(5)) // 2.5 rounds up
	assert.Equal(t, int64(2), HalfRefund(4))
	assert.Equal(t, int64(0), HalfRefund(0))
}

func TestPriceForTier(t *testing.T) {
	cfg := domain.Config{MemberPrice: 1500, NonMemberPrice: 2500}
	assert.Equal(t, int64(1500), cfg.PriceFor(domain.TierMember))
	assert.Equal(t, int64(2500), cfg.PriceFor(domain.TierNonMember))
}
