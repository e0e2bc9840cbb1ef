package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vpetrenko/courtbooking/internal/domain"
)

// statusFor maps the engine's error taxonomy to HTTP statuses in one place
// so every handler reports failures the same way.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrWeakPassword),
		errors.Is(err, domain.ErrPastDate),
		errors.Is(err, domain.ErrTooFarAhead):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidCode):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPaymentRejected):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrInvalidUser):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateUser),
		errors.Is(err, domain.ErrSlotTaken),
		errors.Is(err, domain.ErrUserDoubleBooked),
		errors.Is(err, domain.ErrSlotBlocked),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAccountNotValidated),
		errors.Is(err, domain.ErrCourtUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	var partial *domain.PartialError
	if errors.As(err, &partial) {
		// The first step committed; the caller must see both outcomes.
		c.JSON(statusFor(partial.Err), gin.H{
			"error":          partial.Err.Error(),
			"reservation_id": partial.ReservationID,
			"status":         string(domain.ReservationStatusPendingPayment),
		})
		return
	}
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
