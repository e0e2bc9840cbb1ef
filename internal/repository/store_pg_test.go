package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"

	"github.com/vpetrenko/courtbooking/internal/domain"
)

func TestNewPGStore(t *testing.T) {
	pool := &pgxpool.Pool{}
	s := NewPGStore(pool)
	assert.NotNil(t, s)
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: constraint}
}

// Two same-user inserts on different courts lock different court rows, so
// neither FOR UPDATE scan sees the other; the loser surfaces through the
// partial unique index and must map back to the sequential conflict error.
func TestMapConflict(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want error
	}{
		{"user tuple", uniqueViolation("reservations_user_slot_idx"), domain.ErrUserDoubleBooked},
		{"court tuple", uniqueViolation("reservations_court_slot_idx"), domain.ErrSlotTaken},
		{"user email", uniqueViolation("users_email_idx"), domain.ErrDuplicateUser},
		{"user gov id", uniqueViolation("users_gov_id_idx"), domain.ErrDuplicateUser},
		{"user phone", uniqueViolation("users_phone_idx"), domain.ErrDuplicateUser},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, mapConflict(tc.err), tc.want)
			// Drivers may wrap; the mapping unwraps.
			assert.ErrorIs(t, mapConflict(fmt.Errorf("insert reservation: %w", tc.err)), tc.want)
		})
	}
}

func TestMapConflict_Passthrough(t *testing.T) {
	assert.NoError(t, mapConflict(nil))

	boom := errors.New("connection reset")
	assert.Equal(t, boom, mapConflict(boom))

	// Other Postgres errors and foreign constraints pass through untouched.
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "reservations_user_id_fkey"}
	assert.Equal(t, error(fk), mapConflict(fk))
	unknown := uniqueViolation("payments_reservation_id_key")
	assert.Equal(t, unknown, mapConflict(unknown))
}
