package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vpetrenko/courtbooking/internal/domain"
	"github.com/vpetrenko/courtbooking/internal/service/booking"
	"github.com/vpetrenko/courtbooking/internal/service/payment"
)

type ReservationHandler struct {
	bookings booking.BookingUseCase
	payments payment.PaymentUseCase
}

type createReservationRequest struct {
	CourtID string `json:"court_id"`
	Date    string `json:"date"`
	Slot    string `json:"slot"`
}

type reservationResponse struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	CourtID  string `json:"court_id"`
	Date     string `json:"date"`
	Slot     string `json:"slot"`
	Status   string `json:"status"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
}

func NewReservationHandler(bookings booking.BookingUseCase, payments payment.PaymentUseCase) *ReservationHandler {
	return &ReservationHandler{bookings: bookings, payments: payments}
}

func (h *ReservationHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.DELETE("/:id", h.cancel)
	router.POST("/:id/payment", h.payOnline)
}

// RegisterAdmin mounts the operations reserved for administrators.
func (h *ReservationHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.POST("/:id/no-show", h.markNoShow)
	router.POST("/:id/payment/cash", h.registerCash)
}

func toReservationResponse(r *domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:       r.ID,
		UserID:   r.UserID,
		CourtID:  r.CourtID,
		Date:     r.Date.Format(domain.DateLayout),
		Slot:     string(r.Slot),
		Status:   string(r.Status),
		Price:    r.PriceAmount,
		Currency: r.Currency,
	}
}

func parseDateSlot(dateStr, slotStr string) (time.Time, domain.Slot, error) {
	date, err := domain.ParseDate(dateStr)
	if err != nil {
		return time.Time{}, "", err
	}
	slot, err := domain.ParseSlot(slotStr)
	if err != nil {
		return time.Time{}, "", err
	}
	return date, slot, nil
}

func (h *ReservationHandler) create(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, slot, err := parseDateSlot(req.Date, req.Slot)
	if err != nil {
		writeError(c, err)
		return
	}

	reservation, err := h.bookings.Create(c.Request.Context(), actorID(c), booking.CreateInput{
		CourtID: req.CourtID,
		Date:    date,
		Slot:    slot,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReservationResponse(reservation))
}

func (h *ReservationHandler) list(c *gin.Context) {
	reservations, err := h.bookings.ListForUser(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]reservationResponse, 0, len(reservations))
	for i := range reservations {
		out = append(out, toReservationResponse(&reservations[i]))
	}
	c.JSON(http.StatusOK, out)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *ReservationHandler) cancel(c *gin.Context) {
	var req cancelRequest
	_ = c.ShouldBindJSON(&req) // reason is optional

	if err := h.bookings.Cancel(c.Request.Context(), actorID(c), c.Param("id"), req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReservationHandler) payOnline(c *gin.Context) {
	if err := h.payments.PayOnline(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.ReservationStatusConfirmed)})
}

func (h *ReservationHandler) markNoShow(c *gin.Context) {
	if err := h.bookings.MarkNoShow(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.ReservationStatusNoShow)})
}

func (h *ReservationHandler) registerCash(c *gin.Context) {
	if err := h.payments.RegisterCash(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.ReservationStatusConfirmed)})
}
