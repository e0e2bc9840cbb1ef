// Package policy holds the stateless booking rules: the advance-booking
// window, tier pricing, the password policy and the no-show refund split.
// Everything here is a pure function over explicit inputs so the services
// stay deterministic under test.
package policy

import (
	"fmt"
	"time"
	"unicode"

	"github.com/vpetrenko/courtbooking/internal/domain"
)

// AdvanceWindowDays is how many days past today a reservation may target.
// The window is inclusive on both ends: today plus the seventh day ahead,
// eight bookable days total.
const AdvanceWindowDays = 7

const MinPasswordLength = 6

// CheckAdvanceWindow validates a target calendar date against the window
// anchored at now. Comparison runs at day granularity.
func CheckAdvanceWindow(now, date time.Time) error {
	today := domain.Day(now)
	target := domain.Day(date)
	if target.Before(today) {
		return domain.ErrPastDate
	}
	if target.After(today.AddDate(0, 0, AdvanceWindowDays)) {
		return domain.ErrTooFarAhead
	}
	return nil
}

// CheckPassword enforces the credential policy: at least MinPasswordLength
// characters, one upper-case letter and one non-alphanumeric symbol.
func CheckPassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: shorter than %d characters", domain.ErrWeakPassword, MinPasswordLength)
	}
	var hasUpper, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			hasSymbol = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("%w: needs an upper-case letter", domain.ErrWeakPassword)
	}
	if !hasSymbol {
		return fmt.Errorf("%w: needs a symbol", domain.ErrWeakPassword)
	}
	return nil
}

// HalfRefund returns the no-show refund: half the original amount rounded
// to the nearest minor currency unit, .5 rounding up.
func HalfRefund(amount int64) int64 {
	return (amount + 1) / 2
}
